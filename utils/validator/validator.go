package validator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImage 检查流内容是否为允许的图片类型，检测后流位置复位
func IsImage(file io.ReadSeeker) (bool, string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}

	mimeType, ok := IsImageBytes(buffer[:n])
	return ok, mimeType, nil
}

// IsImageBytes 按魔数检测 MIME 类型
func IsImageBytes(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	if len(data) > 512 {
		data = data[:512]
	}
	mimeType := http.DetectContentType(data)
	return mimeType, allowedImageMimeTypes[mimeType]
}

// ImageInfo 图片头信息
type ImageInfo struct {
	MimeType string
	Format   string
	Width    int
	Height   int
}

// Inspect 校验图片并解析尺寸，魔数正确但头部损坏时返回错误
func Inspect(data []byte) (*ImageInfo, error) {
	mimeType, ok := IsImageBytes(data)
	if !ok {
		return nil, fmt.Errorf("unsupported content type: %s", mimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	return &ImageInfo{MimeType: mimeType, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ErrDimensionTooLarge 宽或高超过上限
var ErrDimensionTooLarge = errors.New("image dimensions exceed limit")

// CheckDimensions 在解码像素前校验宽高，maxDimension <= 0 表示不限制
func CheckDimensions(info *ImageInfo, maxDimension int) error {
	if maxDimension <= 0 {
		return nil
	}
	if info.Width > maxDimension || info.Height > maxDimension {
		return fmt.Errorf("%w: %dx%d > %d", ErrDimensionTooLarge, info.Width, info.Height, maxDimension)
	}
	return nil
}

// ToJPEG 非 JPEG 图片转码为 JPEG，JPEG 原样返回
func ToJPEG(data []byte, info *ImageInfo, quality int) ([]byte, error) {
	if info != nil && info.MimeType == "image/jpeg" {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
