package cache

import (
	"fmt"
	"log"

	"github.com/anoixa/watchbox/cache/memory"
	"github.com/anoixa/watchbox/cache/redis"
	"github.com/anoixa/watchbox/config"
)

// NewProvider 根据配置创建缓存提供者，默认使用内存缓存
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "", "memory":
		provider, err := memory.NewMemory(memory.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		log.Println("[Cache] Using memory cache provider")
		return provider, nil
	case "redis":
		provider, err := redis.NewRedisFromConfig(&redis.Config{
			Address:  cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[Cache] Using redis cache provider at %s", cfg.CacheRedisAddr)
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
