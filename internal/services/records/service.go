package records

import (
	"context"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/anoixa/watchbox/cache"
	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/database/repo/brands"
	"github.com/anoixa/watchbox/database/repo/watches"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/utils"
	"golang.org/x/sync/singleflight"
)

const defaultCollectionTTL = 10 * time.Minute

// URLResolver 由存储 key 推导公开地址
type URLResolver interface {
	ResolvePublicURL(key string) string
}

// RecordFields 创建记录所需字段
type RecordFields struct {
	BrandID   string
	Line      string
	Reference string
	Price     float64
	Link      string
	Acquired  bool
}

// WatchPatch 部分更新，nil 字段保持不变
// 图片三态：ImageKey 非 nil 设置新 key，ClearImage 清除，二者都没有则不变
type WatchPatch struct {
	BrandID    *string
	Line       *string
	Reference  *string
	Price      *float64
	Link       *string
	Acquired   *bool
	ImageKey   *string
	ClearImage bool
}

// IsEmpty 补丁是否不含任何修改
func (p WatchPatch) IsEmpty() bool {
	return p.BrandID == nil && p.Line == nil && p.Reference == nil && p.Price == nil &&
		p.Link == nil && p.Acquired == nil && p.ImageKey == nil && !p.ClearImage
}

func (p WatchPatch) updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.BrandID != nil {
		updates["brand_id"] = *p.BrandID
	}
	if p.Line != nil {
		updates["line"] = strings.TrimSpace(*p.Line)
	}
	if p.Reference != nil {
		updates["reference"] = strings.TrimSpace(*p.Reference)
	}
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.Link != nil {
		updates["link"] = strings.TrimSpace(*p.Link)
	}
	if p.Acquired != nil {
		updates["acquired"] = *p.Acquired
	}
	if p.ClearImage {
		updates["image_key"] = nil
	} else if p.ImageKey != nil {
		updates["image_key"] = *p.ImageKey
	}
	return updates
}

// Options 服务选项
type Options struct {
	CollectionTTL time.Duration
	OwnerScope    bool
}

// Service 记录存储，所有操作按 owner 隔离
// 缓存的列表只由写操作返回的权威数据更新，未命中时从数据库加载
type Service struct {
	watches  *watches.Repository
	brands   *brands.Repository
	cache    cache.Provider
	resolver URLResolver
	opts     Options

	group singleflight.Group
	locks sync.Map // key -> *sync.Mutex
}

// NewService 创建记录存储服务
func NewService(
	watchRepo *watches.Repository,
	brandRepo *brands.Repository,
	cacheProvider cache.Provider,
	resolver URLResolver,
	opts Options,
) *Service {
	if opts.CollectionTTL <= 0 {
		opts.CollectionTTL = defaultCollectionTTL
	}
	return &Service{
		watches:  watchRepo,
		brands:   brandRepo,
		cache:    cacheProvider,
		resolver: resolver,
		opts:     opts,
	}
}

// scope 品牌命名空间，全局模式为空串
func (s *Service) scope(owner string) string {
	if s.opts.OwnerScope {
		return owner
	}
	return ""
}

func (s *Service) lock(key string) func() {
	m, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ValidPrice 价格必须为有限的正数
func ValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price > 0
}

func checkPrice(price float64) error {
	if !ValidPrice(price) {
		return apperr.Validation("Please enter a valid price")
	}
	return nil
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return apperr.Auth("User not authenticated")
	}
	return nil
}

// decorate 填充派生字段
func (s *Service) decorate(w *models.Watch) {
	w.ImageURL = ""
	if w.HasImage() && s.resolver != nil {
		w.ImageURL = s.resolver.ResolvePublicURL(*w.ImageKey)
	}
}

// ListRecords 列出用户记录，未入手在前，价格从高到低
func (s *Service) ListRecords(ctx context.Context, owner string) ([]models.Watch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	list, err := s.loadRecords(ctx, owner)
	if err != nil {
		return nil, err
	}

	// 品牌名以品牌列表为准，重命名后无需逐个失效记录缓存
	brandList, err := s.loadBrands(ctx, s.scope(owner))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Brand, len(brandList))
	for _, b := range brandList {
		byID[b.ID] = b
	}

	for i := range list {
		if b, ok := byID[list[i].BrandID]; ok {
			list[i].Brand = b
		}
		s.decorate(&list[i])
	}
	return list, nil
}

// GetRecord 获取单条记录
func (s *Service) GetRecord(ctx context.Context, owner, id string) (*models.Watch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	watch, err := s.watches.GetByID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.decorate(watch)
	return watch, nil
}

// ListBrands 按名称升序列出品牌
func (s *Service) ListBrands(ctx context.Context, owner string) ([]models.Brand, error) {
	if s.opts.OwnerScope {
		if err := requireOwner(owner); err != nil {
			return nil, err
		}
	}
	return s.loadBrands(ctx, s.scope(owner))
}

// CreateRecord 创建记录，不设置图片
func (s *Service) CreateRecord(ctx context.Context, owner string, fields RecordFields) (*models.Watch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fields.BrandID) == "" {
		return nil, apperr.Validation("Brand is required")
	}
	if err := checkPrice(fields.Price); err != nil {
		return nil, err
	}
	if err := s.ensureBrand(ctx, owner, fields.BrandID); err != nil {
		return nil, err
	}

	watch, err := s.watches.Create(ctx, &models.Watch{
		OwnerID:   owner,
		BrandID:   fields.BrandID,
		Line:      strings.TrimSpace(fields.Line),
		Reference: strings.TrimSpace(fields.Reference),
		Price:     fields.Price,
		Link:      strings.TrimSpace(fields.Link),
		Acquired:  fields.Acquired,
	})
	if err != nil {
		return nil, err
	}

	s.applyRecord(ctx, owner, *watch)
	s.decorate(watch)
	utils.LogIfDevf("[RecordStore] Created record %s for owner %s", watch.ID, owner)
	return watch, nil
}

// UpdateRecord 按 id 与 owner 部分更新
func (s *Service) UpdateRecord(ctx context.Context, owner, id string, patch WatchPatch) (*models.Watch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.BrandID != nil {
		if strings.TrimSpace(*patch.BrandID) == "" {
			return nil, apperr.Validation("Brand is required")
		}
		if err := s.ensureBrand(ctx, owner, *patch.BrandID); err != nil {
			return nil, err
		}
	}

	watch, err := s.watches.Update(ctx, owner, id, patch.updates())
	if err != nil {
		return nil, err
	}

	s.applyRecord(ctx, owner, *watch)
	s.decorate(watch)
	return watch, nil
}

// ToggleAcquired 翻转入手状态
func (s *Service) ToggleAcquired(ctx context.Context, owner, id string) (*models.Watch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	watch, err := s.watches.ToggleAcquired(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	s.applyRecord(ctx, owner, *watch)
	s.decorate(watch)
	return watch, nil
}

// DeleteRecord 删除记录，不处理图片
func (s *Service) DeleteRecord(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := s.watches.Delete(ctx, owner, id); err != nil {
		return err
	}

	s.removeRecord(ctx, owner, id)
	utils.LogIfDevf("[RecordStore] Deleted record %s for owner %s", id, owner)
	return nil
}

// FindBrandByName 大小写不敏感查找，不存在返回 nil, nil
func (s *Service) FindBrandByName(ctx context.Context, owner, name string) (*models.Brand, error) {
	if s.opts.OwnerScope {
		if err := requireOwner(owner); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return s.brands.FindByName(ctx, s.scope(owner), name)
}

// CreateBrand 创建品牌
func (s *Service) CreateBrand(ctx context.Context, owner, name string) (*models.Brand, error) {
	if s.opts.OwnerScope {
		if err := requireOwner(owner); err != nil {
			return nil, err
		}
	}

	scope := s.scope(owner)
	brand, err := s.brands.Create(ctx, scope, name)
	if err != nil {
		return nil, err
	}

	s.applyBrand(ctx, scope, *brand)
	log.Printf("[RecordStore] Created brand %q", utils.SanitizeLogMessage(brand.Name))
	return brand, nil
}

// UpdateBrand 重命名品牌
func (s *Service) UpdateBrand(ctx context.Context, owner, id, name string) (*models.Brand, error) {
	if s.opts.OwnerScope {
		if err := requireOwner(owner); err != nil {
			return nil, err
		}
	}

	scope := s.scope(owner)
	brand, err := s.brands.Rename(ctx, scope, id, name)
	if err != nil {
		return nil, err
	}

	s.applyBrand(ctx, scope, *brand)
	return brand, nil
}

// Refresh 丢弃缓存并从数据库重新加载
func (s *Service) Refresh(ctx context.Context, owner string) ([]models.Watch, error) {
	if err := s.Invalidate(ctx, owner); err != nil {
		return nil, err
	}
	return s.ListRecords(ctx, owner)
}

// Invalidate 清除用户记录列表及其品牌列表缓存
func (s *Service) Invalidate(ctx context.Context, owner string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	recordKey := cache.Records.Build(owner)
	brandKey := cache.BrandScopeKey(s.scope(owner))

	for _, key := range []string{recordKey, brandKey} {
		unlock := s.lock(key)
		err := s.cache.Delete(ctx, key)
		unlock()
		if err != nil {
			return apperr.Internal("Failed to invalidate cache", err)
		}
	}
	return nil
}

// ensureBrand 校验品牌属于当前命名空间
func (s *Service) ensureBrand(ctx context.Context, owner, brandID string) error {
	_, err := s.brands.GetByID(ctx, s.scope(owner), brandID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Validation("Brand not found")
		}
		return err
	}
	return nil
}
