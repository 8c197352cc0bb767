package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/anoixa/watchbox/config"
)

// Settings 通用存储配置，由 config.StorageSettings 解码
type Settings struct {
	Type      string `mapstructure:"type"`
	Bucket    string `mapstructure:"bucket"`
	LocalPath string `mapstructure:"local_path"`
}

// Factory 存储工厂 - 负责创建存储提供者
type Factory struct {
	provider Provider
	bucket   string
}

// NewFactory 根据配置创建存储工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	provider, bucket, err := NewProvider(cfg.StorageSettings())
	if err != nil {
		return nil, err
	}
	return &Factory{provider: provider, bucket: bucket}, nil
}

// NewFactoryWithProvider 使用已有提供者创建工厂
func NewFactoryWithProvider(provider Provider, bucket string) *Factory {
	return &Factory{provider: provider, bucket: bucket}
}

// NewProvider 按 type 解码对应后端配置并创建提供者
func NewProvider(settings map[string]interface{}) (Provider, string, error) {
	var base Settings
	if err := mapstructure.Decode(settings, &base); err != nil {
		return nil, "", fmt.Errorf("failed to decode storage settings: %w", err)
	}
	if base.Type == "" {
		base.Type = "local"
	}

	log.Printf("[Storage] Initializing storage, type: %s, bucket: %s", base.Type, base.Bucket)

	var (
		provider Provider
		err      error
	)

	switch base.Type {
	case "local":
		provider, err = NewLocalStorage(base.LocalPath, base.Bucket)
	case "minio":
		var cfg MinioConfig
		if err = decodeSettings(settings, &cfg); err == nil {
			provider, err = NewMinioStorage(cfg)
		}
	case "webdav":
		var cfg WebDAVConfig
		if err = decodeSettings(settings, &cfg); err == nil {
			provider, err = NewWebDAVStorage(cfg)
		}
	case "s3":
		var cfg S3Config
		if err = decodeSettings(settings, &cfg); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			provider, err = NewS3Storage(ctx, cfg)
			cancel()
		}
	default:
		return nil, "", fmt.Errorf("unsupported storage type: %s", base.Type)
	}

	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize %s storage: %w", base.Type, err)
	}

	log.Printf("[Storage] Successfully initialized '%s' storage provider", provider.Name())
	return provider, base.Bucket, nil
}

func decodeSettings(settings map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(settings)
}

// GetDefault 获取存储提供者
func (f *Factory) GetDefault() Provider {
	return f.provider
}

// Bucket 返回 bucket 名称
func (f *Factory) Bucket() string {
	return f.bucket
}
