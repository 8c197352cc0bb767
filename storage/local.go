package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStorage 本地文件存储实现，bucket 对应基础路径下的一个目录
type LocalStorage struct {
	absBasePath string
	bucket      string
}

// NewLocalStorage 创建本地存储提供者
func NewLocalStorage(basePath, bucket string) (*LocalStorage, error) {
	if !isValidBucketName(bucket) {
		return nil, fmt.Errorf("invalid bucket name: %q", bucket)
	}

	absPath, err := filepath.Abs(filepath.Join(basePath, bucket))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
		bucket:      bucket,
	}, nil
}

// resolve 校验 key 并返回绝对路径
func (s *LocalStorage) resolve(key string) (string, error) {
	if !IsValidStoragePath(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	fullPath := filepath.Join(s.absBasePath, key)

	// 防止目录遍历攻击
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("%w, potential directory traversal: %s", ErrInvalidKey, key)
	}
	return fullPath, nil
}

// PutWithContext 保存对象到本地存储，已存在则失败
func (s *LocalStorage) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dstPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", key, classifyOSError(err))
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create object '%s': %w", key, classifyOSError(err))
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy content to '%s': %w", key, err)
	}

	return nil
}

// GetWithContext 从本地存储读取对象
func (s *LocalStorage) GetWithContext(ctx context.Context, key string) (*Object, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s': %w", key, classifyOSError(err))
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat object '%s': %w", key, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Object{Body: file, Size: info.Size(), ContentType: contentType}, nil
}

// DeleteWithContext 从本地存储删除对象
func (s *LocalStorage) DeleteWithContext(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete object '%s': %w", key, classifyOSError(err))
	}

	// 清理空的父目录，保留 bucket 根目录
	dir := filepath.Dir(fullPath)
	for dir+string(os.PathSeparator) != s.absBasePath && strings.HasPrefix(dir, s.absBasePath) {
		if os.Remove(dir) != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	if _, err := os.ReadDir(s.absBasePath); err != nil {
		return fmt.Errorf("bucket '%s': %w", s.bucket, classifyOSError(err))
	}
	return nil
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath 返回 bucket 目录
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}

func classifyOSError(err error) error {
	switch {
	case os.IsExist(err):
		return fmt.Errorf("%w: %v", ErrObjectExists, err)
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

// IsValidStoragePath 校验存储路径是否合法
func IsValidStoragePath(path string) bool {
	if path == "" {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(path, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range path {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}

func isValidBucketName(bucket string) bool {
	return bucket != "" && !strings.Contains(bucket, "/") && IsValidStoragePath(bucket)
}
