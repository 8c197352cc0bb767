package generator

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ImagePath 图片存储路径 {owner}/{record}/{filename}
type ImagePath struct {
	Owner    string
	Record   string
	Filename string
}

// Key 返回存储 key
func (p ImagePath) Key() string {
	return p.Owner + "/" + p.Record + "/" + p.Filename
}

// PathGenerator 图片路径生成器
type PathGenerator struct {
	now func() time.Time
}

// NewPathGenerator 创建路径生成器
func NewPathGenerator() *PathGenerator {
	return &PathGenerator{now: time.Now}
}

// NewPathGeneratorWithClock 指定时钟，用于测试
func NewPathGeneratorWithClock(now func() time.Time) *PathGenerator {
	return &PathGenerator{now: now}
}

// GenerateWatchImagePath 生成记录图片路径，文件名为 watch_{record}_{unix 毫秒}.jpg
func (pg *PathGenerator) GenerateWatchImagePath(owner, record string) ImagePath {
	return ImagePath{
		Owner:    owner,
		Record:   record,
		Filename: fmt.Sprintf("watch_%s_%d.jpg", record, pg.now().UnixMilli()),
	}
}

// ParseImageKey 解析存储 key，段数不是 3 时返回 false
func ParseImageKey(key string) (ImagePath, bool) {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) != 3 {
		return ImagePath{}, false
	}
	for _, p := range parts {
		if p == "" {
			return ImagePath{}, false
		}
	}
	return ImagePath{Owner: parts[0], Record: parts[1], Filename: parts[2]}, true
}

// ParseImageURL 在 URL 路径中定位 bucket 段，取其后三段
// 找不到 bucket 或后续不足三段时返回 false
func ParseImageURL(rawURL, bucket string) (ImagePath, bool) {
	if rawURL == "" || bucket == "" {
		return ImagePath{}, false
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	parts := strings.Split(path, "/")
	idx := -1
	for i, p := range parts {
		if p == bucket {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ImagePath{}, false
	}

	rest := parts[idx+1:]
	if len(rest) < 3 || rest[0] == "" || rest[1] == "" || rest[2] == "" {
		return ImagePath{}, false
	}
	return ImagePath{Owner: rest[0], Record: rest[1], Filename: rest[2]}, true
}

// BuildPublicURL 生成公开访问地址 {base}/{bucket}/{key}
func BuildPublicURL(baseURL, bucket, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}
