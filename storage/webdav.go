package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	RootPath string `mapstructure:"root_path"`
	Bucket   string `mapstructure:"bucket"`
}

// WebDAVStorage WebDAV 存储实现，bucket 对应根路径下的一个集合
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}
	if !isValidBucketName(cfg.Bucket) {
		return nil, fmt.Errorf("invalid bucket name: %q", cfg.Bucket)
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}
	rootPath = rootPath + "/" + cfg.Bucket

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)

	s := &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.run(ctx, func() error { return client.MkdirAll(rootPath, 0755) }); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", classifyWebDAVError(err))
	}

	return s, nil
}

// run 在 goroutine 中执行阻塞调用，使其可被 ctx 取消
func (s *WebDAVStorage) run(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(key string) string {
	return s.rootPath + "/" + strings.TrimLeft(key, "/")
}

// classifyWebDAVError 将 WebDAV 状态码映射为存储错误
func classifyWebDAVError(err error) error {
	switch {
	case err == nil:
		return nil
	case gowebdav.IsErrNotFound(err):
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	case gowebdav.IsErrCode(err, http.StatusUnauthorized), gowebdav.IsErrCode(err, http.StatusForbidden):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case gowebdav.IsErrCode(err, http.StatusRequestEntityTooLarge), gowebdav.IsErrCode(err, http.StatusInsufficientStorage):
		return fmt.Errorf("%w: %v", ErrEntityTooLarge, err)
	}
	return err
}

// PutWithContext 保存对象到 WebDAV，不覆盖
func (s *WebDAVStorage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !IsValidStoragePath(key) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}

	fullPath := s.fullPath(key)
	if err := s.run(ctx, func() error { return s.client.MkdirAll(path.Dir(fullPath), 0755) }); err != nil {
		return fmt.Errorf("failed to ensure parent directory for %s: %w", key, classifyWebDAVError(err))
	}

	err = s.run(ctx, func() error { return s.client.WriteStream(fullPath, r, os.FileMode(0644)) })
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", key, classifyWebDAVError(err))
	}
	return nil
}

// GetWithContext 从 WebDAV 获取对象
func (s *WebDAVStorage) GetWithContext(ctx context.Context, key string) (*Object, error) {
	var data []byte
	err := s.run(ctx, func() error {
		var readErr error
		data, readErr = s.client.Read(s.fullPath(key))
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", key, classifyWebDAVError(err))
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// DeleteWithContext 从 WebDAV 删除对象
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, key string) error {
	fullPath := s.fullPath(key)

	// gowebdav 的 Remove 对 404 返回 nil
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}

	if err := s.run(ctx, func() error { return s.client.Remove(fullPath) }); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", key, classifyWebDAVError(err))
	}
	return nil
}

// Exists 检查对象是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, key string) (bool, error) {
	err := s.run(ctx, func() error {
		_, statErr := s.client.Stat(s.fullPath(key))
		return statErr
	})
	if err == nil {
		return true, nil
	}
	if gowebdav.IsErrNotFound(err) {
		return false, nil
	}
	return false, classifyWebDAVError(err)
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	// 如果 client 为 nil（测试场景），直接返回
	if s.client == nil {
		return nil
	}

	err := s.run(ctx, func() error {
		_, readErr := s.client.ReadDir(s.rootPath)
		return readErr
	})
	if gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, s.rootPath)
	}
	return classifyWebDAVError(err)
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	if s.baseURL == "" {
		return "webdav"
	}
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
