package app

import (
	"fmt"
	"log"

	"github.com/anoixa/watchbox/cache"
	"github.com/anoixa/watchbox/config"
	"github.com/anoixa/watchbox/database"
	"github.com/anoixa/watchbox/database/repo/accounts"
	"github.com/anoixa/watchbox/database/repo/brands"
	"github.com/anoixa/watchbox/database/repo/watches"
	"github.com/anoixa/watchbox/internal/services/auth"
	"github.com/anoixa/watchbox/internal/services/images"
	"github.com/anoixa/watchbox/internal/services/orchestrator"
	"github.com/anoixa/watchbox/internal/services/reconcile"
	"github.com/anoixa/watchbox/internal/services/records"
	"github.com/anoixa/watchbox/internal/services/stats"
	"github.com/anoixa/watchbox/storage"
	"github.com/anoixa/watchbox/utils"
	"gorm.io/gorm"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config  *config.Config
	db      *gorm.DB
	cache   cache.Provider
	storage *storage.Factory

	AccountsRepo *accounts.Repository
	WatchesRepo  *watches.Repository
	BrandsRepo   *brands.Repository

	Records      *records.Service
	Images       *images.Service
	Orchestrator *orchestrator.Orchestrator
	Stats        *stats.Service
	Auth         *auth.Service
	Scanner      *reconcile.OrphanScanner
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Init 初始化全部依赖
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}

	storageFactory, err := storage.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = storageFactory

	cacheProvider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cache = cacheProvider

	return c.InitServices()
}

// InitDatabase 只初始化数据库与仓库，命令行工具使用
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	db, err := database.NewDB(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db
	c.initRepositories()

	utils.LogIfDev("Database initialized successfully")
	return nil
}

// Build 使用已有依赖构建容器，测试中使用
func Build(cfg *config.Config, db *gorm.DB, cacheProvider cache.Provider, storageFactory *storage.Factory) (*Container, error) {
	c := &Container{config: cfg, db: db, cache: cacheProvider, storage: storageFactory}
	c.initRepositories()
	if err := c.InitServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.AccountsRepo = accounts.NewRepository(c.db)
	c.WatchesRepo = watches.NewRepository(c.db)
	c.BrandsRepo = brands.NewRepository(c.db)
}

// InitServices 组装业务服务
func (c *Container) InitServices() error {
	cfg := c.config

	c.Images = images.NewService(c.storage.GetDefault(), images.Config{
		Bucket:        c.storage.Bucket(),
		PublicBaseURL: cfg.PublicImageBaseURL(),
		MaxSize:       cfg.ImageMaxSizeBytes(),
		MaxDimension:  cfg.ImageMaxDimension,
	})

	c.Records = records.NewService(c.WatchesRepo, c.BrandsRepo, c.cache, c.Images, records.Options{
		CollectionTTL: cfg.CacheCollectionTTL,
		OwnerScope:    cfg.IsOwnerBrandScope(),
	})

	c.Orchestrator = orchestrator.New(c.Records, c.Images, cfg.RequestTimeout)
	c.Stats = stats.NewService(c.Records)
	c.Scanner = reconcile.NewOrphanScanner(c.WatchesRepo, c.Images, c.Records, cfg.OrphanScanInterval)

	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := utils.GenerateRandomToken(32)
		if err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		log.Println("WARNING: jwt_secret is not configured, using a random secret; tokens will not survive restarts")
		secret = generated
	}

	authService, err := auth.NewService(c.AccountsRepo, secret, cfg.JWTExpiresIn)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	c.Auth = authService

	log.Println("Services initialized")
	return nil
}

// Config 返回配置
func (c *Container) Config() *config.Config {
	return c.config
}

// DB 返回数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Cache 返回缓存提供者
func (c *Container) Cache() cache.Provider {
	return c.cache
}

// Storage 返回存储工厂
func (c *Container) Storage() *storage.Factory {
	return c.storage
}

// Close 释放资源
func (c *Container) Close() error {
	if c.Scanner != nil {
		c.Scanner.Stop()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Printf("Failed to close cache: %v", err)
		}
	}
	if c.db != nil {
		return database.Close(c.db)
	}
	return nil
}
