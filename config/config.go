package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// 品牌命名空间
const (
	BrandScopeGlobal = "global"
	BrandScopeOwner  = "owner"
)

// DefaultImageMaxDimension 图片单边像素上限
const DefaultImageMaxDimension = 8192

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheCollectionTTL time.Duration `mapstructure:"cache_collection_ttl"`

	// 存储配置
	StorageType       string `mapstructure:"storage_type"`
	StorageBucket     string `mapstructure:"storage_bucket"`
	StorageLocalPath  string `mapstructure:"storage_local_path"`
	StorageEndpoint   string `mapstructure:"storage_endpoint"`
	StorageRegion     string `mapstructure:"storage_region"`
	StorageAccessKey  string `mapstructure:"storage_access_key"`
	StorageSecretKey  string `mapstructure:"storage_secret_key"`
	StorageUseSSL     bool   `mapstructure:"storage_use_ssl"`
	StorageWebDAVURL  string `mapstructure:"storage_webdav_url"`
	StorageWebDAVUser string `mapstructure:"storage_webdav_username"`
	StorageWebDAVPass string `mapstructure:"storage_webdav_password"`
	StoragePublicURL  string `mapstructure:"storage_public_url"`
	ImageMaxSize      string `mapstructure:"image_max_size"`
	ImageMaxDimension int    `mapstructure:"image_max_dimension"`
	imageMaxSizeBytes int64

	// 业务配置
	BrandScope         string        `mapstructure:"brand_scope"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	OrphanScanInterval time.Duration `mapstructure:"orphan_scan_interval"`

	// JWT 配置
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiresIn time.Duration `mapstructure:"jwt_expires_in"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitAuthRPS    float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst  int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		configFile = ".env"
	}
	viper.SetConfigFile(configFile)
	if strings.HasSuffix(configFile, ".env") {
		viper.SetConfigType("env")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: %s not found, using defaults and environment variables\n", configFile)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", configFile)
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	if err := globalConfig.Finalize(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Invalid config, %v\n", err)
		os.Exit(1)
	}
}

// setDefaults 设置默认值
func setDefaults() {
	// 服务器配置默认值
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "30s")
	viper.SetDefault("server_idle_timeout", "120s")

	// 数据库配置默认值
	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "watchbox")
	viper.SetDefault("db_file_path", "")
	viper.SetDefault("db_max_open_conns", 100)
	viper.SetDefault("db_max_idle_conns", 25)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	// 缓存提供者配置默认值
	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_collection_ttl", "10m")

	// 存储配置默认值
	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_bucket", "watch-images")
	viper.SetDefault("storage_local_path", "./data/storage")
	viper.SetDefault("storage_endpoint", "")
	viper.SetDefault("storage_region", "us-east-1")
	viper.SetDefault("storage_access_key", "")
	viper.SetDefault("storage_secret_key", "")
	viper.SetDefault("storage_use_ssl", false)
	viper.SetDefault("storage_webdav_url", "")
	viper.SetDefault("storage_webdav_username", "")
	viper.SetDefault("storage_webdav_password", "")
	viper.SetDefault("storage_public_url", "")
	viper.SetDefault("image_max_size", "10MiB")
	viper.SetDefault("image_max_dimension", DefaultImageMaxDimension)

	// 业务配置默认值
	viper.SetDefault("brand_scope", BrandScopeGlobal)
	viper.SetDefault("request_timeout", "15s")
	viper.SetDefault("orphan_scan_interval", "1h")

	// JWT 配置默认值
	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_expires_in", "24h")

	// 限流配置默认值
	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_auth_rps", 0.5)
	viper.SetDefault("rate_limit_auth_burst", 5)
	viper.SetDefault("rate_limit_expire_time", "10m")
}

// Finalize 校验配置并填充派生值
func (c *Config) Finalize() error {
	if c.ImageMaxSize == "" {
		c.ImageMaxSize = "10MiB"
	}
	size, err := units.RAMInBytes(c.ImageMaxSize)
	if err != nil {
		return fmt.Errorf("invalid image_max_size %q: %w", c.ImageMaxSize, err)
	}
	if size <= 0 {
		return fmt.Errorf("image_max_size must be positive")
	}
	c.imageMaxSizeBytes = size

	// 解码前按宽高拦截，压缩后很小的图片解码也可能占用大量内存
	if c.ImageMaxDimension == 0 {
		c.ImageMaxDimension = DefaultImageMaxDimension
	}
	if c.ImageMaxDimension < 0 {
		return fmt.Errorf("image_max_dimension must be positive")
	}

	switch c.BrandScope {
	case "":
		c.BrandScope = BrandScopeGlobal
	case BrandScopeGlobal, BrandScopeOwner:
	default:
		return fmt.Errorf("invalid brand_scope %q, expected %q or %q", c.BrandScope, BrandScopeGlobal, BrandScopeOwner)
	}

	if c.StorageBucket == "" {
		c.StorageBucket = "watch-images"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	return nil
}

// ImageMaxSizeBytes 返回图片大小上限（字节）
func (c *Config) ImageMaxSizeBytes() int64 {
	if c.imageMaxSizeBytes <= 0 {
		return 10 * units.MiB
	}
	return c.imageMaxSizeBytes
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于生成图片链接
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return strings.TrimRight(c.ServerDomain, "/")
	}
	host := c.ServerHost
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// PublicImageBaseURL 图片公开访问前缀，未配置时由本服务提供
func (c *Config) PublicImageBaseURL() string {
	if c.StoragePublicURL != "" {
		return strings.TrimRight(c.StoragePublicURL, "/")
	}
	return c.BaseURL()
}

// StorageSettings 以 map 形式导出存储配置，供存储工厂按类型解码
func (c *Config) StorageSettings() map[string]interface{} {
	return map[string]interface{}{
		"type":       c.StorageType,
		"bucket":     c.StorageBucket,
		"local_path": c.StorageLocalPath,
		"endpoint":   c.StorageEndpoint,
		"region":     c.StorageRegion,
		"access_key": c.StorageAccessKey,
		"secret_key": c.StorageSecretKey,
		"use_ssl":    c.StorageUseSSL,
		"url":        c.StorageWebDAVURL,
		"username":   c.StorageWebDAVUser,
		"password":   c.StorageWebDAVPass,
	}
}

// IsOwnerBrandScope 品牌是否按用户隔离
func (c *Config) IsOwnerBrandScope() bool {
	return c.BrandScope == BrandScopeOwner
}
