package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/internal/services/images"
	"github.com/anoixa/watchbox/internal/services/records"
	"github.com/anoixa/watchbox/utils"
	"github.com/anoixa/watchbox/utils/generator"
)

// RecordStore 编排器用到的记录存储操作
type RecordStore interface {
	GetRecord(ctx context.Context, owner, id string) (*models.Watch, error)
	CreateRecord(ctx context.Context, owner string, fields records.RecordFields) (*models.Watch, error)
	UpdateRecord(ctx context.Context, owner, id string, patch records.WatchPatch) (*models.Watch, error)
	ToggleAcquired(ctx context.Context, owner, id string) (*models.Watch, error)
	DeleteRecord(ctx context.Context, owner, id string) error
	FindBrandByName(ctx context.Context, owner, name string) (*models.Brand, error)
	CreateBrand(ctx context.Context, owner, name string) (*models.Brand, error)
}

// ImageStore 编排器用到的图片存储操作
type ImageStore interface {
	UploadImage(ctx context.Context, owner, recordID string, payload io.Reader) (*images.UploadResult, error)
	DeleteImage(ctx context.Context, key string) error
	ParseImageURL(rawURL string) (generator.ImagePath, bool)
}

// Mode 保存模式
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// SaveRequest 一次保存请求，字段为用户原始输入
type SaveRequest struct {
	Mode     Mode
	Owner    string
	RecordID string

	Brand     string
	Model     string
	Price     string
	Reference string
	Link      string
	Acquired  bool

	// Image 新图片，nil 表示未提供
	Image io.Reader
	// ImageRemoved 用户移除了已有图片
	ImageRemoved bool
	// CurrentImageURL 记录没有 image_key 时用于解析旧图片
	CurrentImageURL string
}

// SaveResult 保存结果，Warning 非空表示记录已保存但图片处理失败
type SaveResult struct {
	Record  *models.Watch `json:"record"`
	Created bool          `json:"created"`
	Warning string        `json:"warning,omitempty"`
}

// Orchestrator 保存流程：校验 -> 品牌 -> 记录 -> 图片
type Orchestrator struct {
	records RecordStore
	images  ImageStore
	timeout time.Duration
}

// New 创建编排器，timeout 为每次远程调用的超时
func New(recordStore RecordStore, imageStore ImageStore, timeout time.Duration) *Orchestrator {
	return &Orchestrator{records: recordStore, images: imageStore, timeout: timeout}
}

// call 在超时内执行一次远程调用，超时转为 NetworkError
func (o *Orchestrator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := utils.WithTimeout(ctx, o.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if apperr.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindNetwork {
			return e
		}
		return apperr.Network("Request timed out", err)
	}
	return err
}

type validated struct {
	brand string
	model string
	price float64
}

// validate 校验输入，不访问任何存储
func validate(req SaveRequest) (*validated, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, apperr.Auth("User not authenticated")
	}
	if req.Mode == ModeUpdate && strings.TrimSpace(req.RecordID) == "" {
		return nil, apperr.Validation("Record id is required")
	}

	brand := strings.TrimSpace(req.Brand)
	model := strings.TrimSpace(req.Model)
	priceText := strings.TrimSpace(req.Price)
	if brand == "" || model == "" || priceText == "" {
		return nil, apperr.Validation("Please fill in all required fields")
	}

	price, err := parsePrice(priceText)
	if err != nil || !records.ValidPrice(price) {
		return nil, apperr.Validation("Please enter a valid price")
	}

	return &validated{brand: brand, model: model, price: price}, nil
}

// parsePrice 接受千分位逗号
func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// Save 执行一次保存
func (o *Orchestrator) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	input, err := validate(req)
	if err != nil {
		return nil, err
	}

	var current *models.Watch
	if req.Mode == ModeUpdate {
		err = o.call(ctx, func(ctx context.Context) error {
			var getErr error
			current, getErr = o.records.GetRecord(ctx, req.Owner, req.RecordID)
			return getErr
		})
		if err != nil {
			return nil, err
		}
	}

	brandID, err := o.resolveBrand(ctx, req.Owner, input.brand, current)
	if err != nil {
		return nil, err
	}

	record, err := o.persist(ctx, req, input, brandID)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Record: record, Created: req.Mode == ModeCreate}

	switch {
	case req.Image != nil:
		record, warning := o.attachImage(ctx, req.Owner, record, req.Image)
		result.Record = record
		result.Warning = warning
	case req.Mode == ModeUpdate && req.ImageRemoved:
		result.Record = o.removeImage(ctx, req.Owner, record, req.CurrentImageURL)
	}

	log.Printf("[Orchestrator] Saved record %s (%s) for owner %s", result.Record.ID, req.Mode, req.Owner)
	return result, nil
}

// resolveBrand 更新模式下品牌名未变则沿用，否则查找或创建
func (o *Orchestrator) resolveBrand(ctx context.Context, owner, name string, current *models.Watch) (string, error) {
	if current != nil && current.BrandID != "" && strings.TrimSpace(current.Brand.Name) == name {
		return current.BrandID, nil
	}

	var brand *models.Brand
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		brand, err = o.records.FindBrandByName(ctx, owner, name)
		return err
	})
	if err != nil {
		return "", err
	}
	if brand != nil {
		return brand.ID, nil
	}

	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		brand, err = o.records.CreateBrand(ctx, owner, name)
		return err
	})
	if err == nil {
		return brand.ID, nil
	}

	// 并发创建同名品牌时重新查找一次
	if errors.Is(err, apperr.ErrConflict) {
		lookupErr := o.call(ctx, func(ctx context.Context) error {
			var err error
			brand, err = o.records.FindBrandByName(ctx, owner, name)
			return err
		})
		if lookupErr == nil && brand != nil {
			return brand.ID, nil
		}
	}
	return "", err
}

func (o *Orchestrator) persist(ctx context.Context, req SaveRequest, input *validated, brandID string) (*models.Watch, error) {
	reference := strings.TrimSpace(req.Reference)
	link := strings.TrimSpace(req.Link)

	var record *models.Watch
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		if req.Mode == ModeUpdate {
			acquired := req.Acquired
			record, err = o.records.UpdateRecord(ctx, req.Owner, req.RecordID, records.WatchPatch{
				BrandID:   &brandID,
				Line:      &input.model,
				Reference: &reference,
				Price:     &input.price,
				Link:      &link,
				Acquired:  &acquired,
			})
			return err
		}
		record, err = o.records.CreateRecord(ctx, req.Owner, records.RecordFields{
			BrandID:   brandID,
			Line:      input.model,
			Reference: reference,
			Price:     input.price,
			Link:      link,
			Acquired:  req.Acquired,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// attachImage 上传并写回 key，失败只返回警告，原图片保持不变
func (o *Orchestrator) attachImage(ctx context.Context, owner string, record *models.Watch, payload io.Reader) (*models.Watch, string) {
	var upload *images.UploadResult
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		upload, err = o.images.UploadImage(ctx, owner, record.ID, payload)
		return err
	})
	if err != nil {
		log.Printf("[Orchestrator] Image upload failed for record %s: %v", record.ID, err)
		return record, uploadWarning(err)
	}

	var oldKey string
	if record.HasImage() {
		oldKey = *record.ImageKey
	}

	var updated *models.Watch
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		updated, err = o.records.UpdateRecord(ctx, owner, record.ID, records.WatchPatch{ImageKey: &upload.Key})
		return err
	})
	if err != nil {
		log.Printf("[Orchestrator] Failed to attach image %s to record %s: %v", upload.Key, record.ID, err)
		o.deleteBestEffort(ctx, upload.Key)
		return record, uploadWarning(err)
	}

	if oldKey != "" && oldKey != upload.Key {
		o.deleteBestEffort(ctx, oldKey)
	}
	return updated, ""
}

// removeImage 先尽力删除对象，然后无论结果如何清除记录上的 key
// 记录没有 key 时才使用客户端传入的 URL，且只接受属于该用户该记录的路径
func (o *Orchestrator) removeImage(ctx context.Context, owner string, record *models.Watch, currentURL string) *models.Watch {
	key := ""
	if record.HasImage() {
		key = *record.ImageKey
	} else if path, ok := o.images.ParseImageURL(currentURL); ok {
		if path.Owner == owner && path.Record == record.ID {
			key = path.Key()
		} else {
			log.Printf("[Orchestrator] Ignoring image URL outside record %s: %s", record.ID, utils.SanitizeLogMessage(currentURL))
		}
	}
	if key != "" {
		o.deleteBestEffort(ctx, key)
	}

	var updated *models.Watch
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		updated, err = o.records.UpdateRecord(ctx, owner, record.ID, records.WatchPatch{ClearImage: true})
		return err
	})
	if err != nil {
		log.Printf("[Orchestrator] Failed to clear image on record %s: %v", record.ID, err)
		return record
	}
	return updated
}

func (o *Orchestrator) deleteBestEffort(ctx context.Context, key string) {
	err := o.call(ctx, func(ctx context.Context) error {
		return o.images.DeleteImage(ctx, key)
	})
	if err != nil {
		log.Printf("[Orchestrator] Failed to delete image %s: %v", key, err)
	}
}

func uploadWarning(err error) string {
	return fmt.Sprintf("Watch saved but image upload failed: %s. You can try uploading the image again later.", err.Error())
}

// ToggleAcquired 翻转入手状态，不涉及品牌与图片
func (o *Orchestrator) ToggleAcquired(ctx context.Context, owner, id string) (*models.Watch, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.Auth("User not authenticated")
	}

	var record *models.Watch
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		record, err = o.records.ToggleAcquired(ctx, owner, id)
		return err
	})
	return record, err
}

// Delete 删除记录，图片先尽力删除
func (o *Orchestrator) Delete(ctx context.Context, owner, id string) error {
	if strings.TrimSpace(owner) == "" {
		return apperr.Auth("User not authenticated")
	}

	var record *models.Watch
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		record, err = o.records.GetRecord(ctx, owner, id)
		return err
	})
	if err != nil {
		return err
	}

	if record.HasImage() {
		o.deleteBestEffort(ctx, *record.ImageKey)
	}

	return o.call(ctx, func(ctx context.Context) error {
		return o.records.DeleteRecord(ctx, owner, id)
	})
}

// RetryImage 重新上传之前失败的图片
// 与保存不同，这里的失败直接返回错误
func (o *Orchestrator) RetryImage(ctx context.Context, owner, id string, payload io.Reader) (*models.Watch, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.Auth("User not authenticated")
	}
	if payload == nil {
		return nil, apperr.Validation("Image is required")
	}

	var record *models.Watch
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		record, err = o.records.GetRecord(ctx, owner, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	var upload *images.UploadResult
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		upload, err = o.images.UploadImage(ctx, owner, record.ID, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	var oldKey string
	if record.HasImage() {
		oldKey = *record.ImageKey
	}

	var updated *models.Watch
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		updated, err = o.records.UpdateRecord(ctx, owner, record.ID, records.WatchPatch{ImageKey: &upload.Key})
		return err
	})
	if err != nil {
		o.deleteBestEffort(ctx, upload.Key)
		return nil, err
	}

	if oldKey != "" && oldKey != upload.Key {
		o.deleteBestEffort(ctx, oldKey)
	}
	return updated, nil
}
