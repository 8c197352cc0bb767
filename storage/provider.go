package storage

import (
	"context"
	"io"
)

// Object 读取到的存储对象
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Provider 存储提供者接口
// 每个提供者绑定一个 bucket，key 形如 {owner}/{record}/{filename}
type Provider interface {
	// PutWithContext 写入对象，不覆盖；对象已存在时返回 ErrObjectExists
	PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// GetWithContext 读取对象，调用方负责关闭 Body
	GetWithContext(ctx context.Context, key string) (*Object, error)

	// DeleteWithContext 删除对象，对象不存在时返回 ErrObjectNotFound
	DeleteWithContext(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查存储与 bucket 是否可用
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
