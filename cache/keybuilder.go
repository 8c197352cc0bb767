package cache

import (
	"fmt"
	"strings"
)

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

// BuildID 构建带 ID 的缓存键
func (kb *KeyBuilder) BuildID(id interface{}) string {
	return fmt.Sprintf("%s%s%v", kb.prefix, kb.sep, id)
}

// 预定义的 KeyBuilder 实例
var (
	// Records 用户记录列表
	Records = NewKeyBuilder("watchbox:records")

	// Brands 品牌列表，按命名空间
	Brands = NewKeyBuilder("watchbox:brands")
)

// BrandScopeKey 全局命名空间使用固定段
func BrandScopeKey(scope string) string {
	if scope == "" {
		return Brands.Build("global")
	}
	return Brands.Build("owner", scope)
}
