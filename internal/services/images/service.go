package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/storage"
	"github.com/anoixa/watchbox/utils"
	"github.com/anoixa/watchbox/utils/generator"
	"github.com/anoixa/watchbox/utils/pool"
	"github.com/anoixa/watchbox/utils/validator"
)

const (
	// ContentType 所有上传的图片统一存为 JPEG
	ContentType = "image/jpeg"

	jpegQuality = 90
)

// UploadResult 上传结果
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Config 图片存储配置
type Config struct {
	Bucket        string
	PublicBaseURL string
	MaxSize       int64
	// MaxDimension 宽高上限，<= 0 不限制
	MaxDimension int
}

// Service 图片存储，每条记录最多一张图片
type Service struct {
	provider storage.Provider
	cfg      Config
	paths    *generator.PathGenerator
}

// NewService 创建图片存储服务
func NewService(provider storage.Provider, cfg Config) *Service {
	return NewServiceWithPaths(provider, cfg, generator.NewPathGenerator())
}

// NewServiceWithPaths 指定路径生成器
func NewServiceWithPaths(provider storage.Provider, cfg Config, paths *generator.PathGenerator) *Service {
	return &Service{provider: provider, cfg: cfg, paths: paths}
}

// Bucket 返回 bucket 名称
func (s *Service) Bucket() string {
	return s.cfg.Bucket
}

// UploadImage 上传记录图片，不修改记录
func (s *Service) UploadImage(ctx context.Context, owner, recordID string, payload io.Reader) (*UploadResult, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.Auth("User not authenticated")
	}
	if strings.TrimSpace(recordID) == "" || strings.Contains(recordID, "/") {
		return nil, apperr.Validation("Invalid record id")
	}
	if payload == nil {
		return nil, apperr.Validation("Image is required")
	}

	data, err := s.readPayload(payload)
	if err != nil {
		return nil, err
	}

	info, err := validator.Inspect(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "File is not a supported image", err)
	}
	if err := validator.CheckDimensions(info, s.cfg.MaxDimension); err != nil {
		return nil, apperr.Wrap(apperr.KindSizeLimit, fmt.Sprintf("Image dimensions exceed the %dpx limit", s.cfg.MaxDimension), err)
	}

	data, err = validator.ToJPEG(data, info, jpegQuality)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Failed to process image", err)
	}
	if int64(len(data)) > s.cfg.MaxSize {
		return nil, apperr.SizeLimit(s.sizeLimitMessage())
	}

	path := s.paths.GenerateWatchImagePath(owner, recordID)
	key := path.Key()

	err = s.provider.PutWithContext(ctx, key, bytes.NewReader(data), int64(len(data)), ContentType)
	if err != nil {
		if apperr.IsTimeout(err) {
			return nil, apperr.Network("Image upload timed out", err)
		}
		reason := storage.Reason(err)
		log.Printf("[ImageStore] Upload failed for key %s (reason: %s): %v", key, reason, err)
		return nil, apperr.Upload(reason, uploadMessage(reason), err)
	}

	utils.LogIfDevf("[ImageStore] Uploaded %s (%s %dx%d, %d bytes)", key, info.Format, info.Width, info.Height, len(data))
	return &UploadResult{Key: key, URL: s.ResolvePublicURL(key)}, nil
}

// readPayload 读取上限 max+1 字节，超出即拒绝
func (s *Service) readPayload(payload io.Reader) ([]byte, error) {
	bufPtr := pool.Get()
	defer pool.Put(bufPtr)

	var out bytes.Buffer
	limited := io.LimitReader(payload, s.cfg.MaxSize+1)
	if _, err := io.CopyBuffer(&out, limited, *bufPtr); err != nil {
		if apperr.IsTimeout(err) {
			return nil, apperr.Network("Image upload timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindValidation, "Failed to read image", err)
	}
	if int64(out.Len()) > s.cfg.MaxSize {
		return nil, apperr.SizeLimit(s.sizeLimitMessage())
	}
	if out.Len() == 0 {
		return nil, apperr.Validation("Image is empty")
	}
	return out.Bytes(), nil
}

func (s *Service) sizeLimitMessage() string {
	return fmt.Sprintf("Image exceeds the %d MB limit", s.cfg.MaxSize>>20)
}

func uploadMessage(reason string) string {
	switch reason {
	case "conflict":
		return "An image with this name already exists"
	case "permission":
		return "Permission denied. Please check your authentication."
	case "bucket_missing":
		return "Storage bucket not found. Please contact support."
	case "too_large":
		return "Image file is too large. Please choose a smaller image."
	default:
		return "Failed to upload image"
	}
}

// DeleteImage 删除对象，不存在时返回 NotFound
func (s *Service) DeleteImage(ctx context.Context, key string) error {
	if _, ok := generator.ParseImageKey(key); !ok {
		return apperr.Validation("Invalid image key")
	}

	err := s.provider.DeleteWithContext(ctx, key)
	if err == nil {
		utils.LogIfDevf("[ImageStore] Deleted %s", key)
		return nil
	}

	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return apperr.NotFound("Image not found")
	case apperr.IsTimeout(err):
		return apperr.Network("Image delete timed out", err)
	}
	reason := storage.Reason(err)
	return apperr.Storage(reason, "Failed to delete image", err)
}

// Open 读取对象
func (s *Service) Open(ctx context.Context, key string) (*storage.Object, error) {
	if _, ok := generator.ParseImageKey(key); !ok {
		return nil, apperr.NotFound("Image not found")
	}

	obj, err := s.provider.GetWithContext(ctx, key)
	if err == nil {
		return obj, nil
	}
	switch {
	case errors.Is(err, storage.ErrObjectNotFound), errors.Is(err, storage.ErrInvalidKey):
		return nil, apperr.NotFound("Image not found")
	case apperr.IsTimeout(err):
		return nil, apperr.Network("Image read timed out", err)
	}
	return nil, apperr.Storage(storage.Reason(err), "Failed to read image", err)
}

// Exists 检查对象是否存在
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.provider.Exists(ctx, key)
	if err != nil {
		return false, apperr.FromContext(err, apperr.KindStorage, "Failed to check image")
	}
	return exists, nil
}

// ResolvePublicURL 生成公开访问地址
func (s *Service) ResolvePublicURL(key string) string {
	return generator.BuildPublicURL(s.cfg.PublicBaseURL, s.cfg.Bucket, key)
}

// ParseImageURL 从公开地址解析图片路径
func (s *Service) ParseImageURL(rawURL string) (generator.ImagePath, bool) {
	return generator.ParseImageURL(rawURL, s.cfg.Bucket)
}

// Health 检查存储连接
func (s *Service) Health(ctx context.Context) error {
	if err := s.provider.Health(ctx); err != nil {
		return apperr.Storage(storage.Reason(err), "Storage is unavailable", err)
	}
	return nil
}
