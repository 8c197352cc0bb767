package core

import (
	"net/http"
	"time"

	"github.com/anoixa/watchbox/api"
	"github.com/anoixa/watchbox/api/common"
	handlerBrands "github.com/anoixa/watchbox/api/handler/brands"
	handlerImages "github.com/anoixa/watchbox/api/handler/images"
	handlerStats "github.com/anoixa/watchbox/api/handler/stats"
	handlerWatches "github.com/anoixa/watchbox/api/handler/watches"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/anoixa/watchbox/config"
	"github.com/anoixa/watchbox/internal/app"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Container       *app.Container
	AuthRateLimiter *middleware.IPRateLimiter
	APIRateLimiter  *middleware.IPRateLimiter
	// ImageLimiter 限制同时解码转码的图片数
	ImageLimiter *middleware.ConcurrencyLimiter
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	// 基础路由
	registerBasicRoutes(router, deps)

	// 公共图片
	registerPublicRoutes(router, deps)

	// API 路由
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	c := deps.Container

	router.GET("/health", func(context *gin.Context) {
		ctx := context.Request.Context()
		checks := gin.H{
			"database": checkDatabaseHealth(ctx, c.DB()),
			"cache":    checkCacheHealth(ctx, c.Cache()),
			"storage":  checkStorageHealth(ctx, c.Images),
		}
		httpStatus := http.StatusOK
		for _, checkResult := range checks {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		})
	})

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(context *gin.Context) {
		metrics := middleware.GetMetrics()
		if deps.ImageLimiter != nil {
			metrics["image_uploads_in_flight"] = deps.ImageLimiter.InFlight()
		}
		if deps.APIRateLimiter != nil && deps.AuthRateLimiter != nil {
			metrics["rate_limited_requests"] = deps.APIRateLimiter.Rejected() + deps.AuthRateLimiter.Rejected()
			metrics["rate_limited_clients"] = deps.APIRateLimiter.Clients()
		}
		context.JSON(http.StatusOK, metrics)
	})
}

// registerPublicRoutes 图片按 /{bucket}/{key} 公开访问
func registerPublicRoutes(router *gin.Engine, deps *RouterDependencies) {
	imagesService := deps.Container.Images
	imageHandler := handlerImages.NewHandler(imagesService)

	publicGroup := router.Group("/" + imagesService.Bucket())
	{
		publicGroup.GET("/*key", imageHandler.GetImage)  // GET /{bucket}/{owner}/{record}/{file}
		publicGroup.HEAD("/*key", imageHandler.GetImage) // HEAD /{bucket}/{owner}/{record}/{file}
	}
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	c := deps.Container

	loginHandler := api.NewLoginHandler(c.Auth)
	watchHandler := handlerWatches.NewHandler(c.Records, c.Orchestrator)
	brandHandler := handlerBrands.NewHandler(c.Records)
	statsHandler := handlerStats.NewHandler(c.Stats)

	imageSlot := deps.ImageLimiter.MiddlewareWithBlock(c.Config().RequestTimeout)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(deps.AuthRateLimiter.Middleware())
		{
			authGroup.POST("/login", loginHandler.LoginHandlerFunc) // POST /api/auth/login
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(deps.APIRateLimiter.Middleware())
		v1.Use(middleware.JWTAuth(c.Auth))
		{
			watchesGroup := v1.Group("/watches")
			{
				watchesGroup.GET("", watchHandler.ListWatches)                      // GET /api/v1/watches
				watchesGroup.POST("", imageSlot, watchHandler.CreateWatch)          // POST /api/v1/watches
				watchesGroup.GET("/:id", watchHandler.GetWatch)                     // GET /api/v1/watches/{id}
				watchesGroup.PUT("/:id", imageSlot, watchHandler.UpdateWatch)       // PUT /api/v1/watches/{id}
				watchesGroup.DELETE("/:id", watchHandler.DeleteWatch)               // DELETE /api/v1/watches/{id}
				watchesGroup.POST("/:id/acquired", watchHandler.ToggleAcquired)     // POST /api/v1/watches/{id}/acquired
				watchesGroup.POST("/:id/image", imageSlot, watchHandler.RetryImage) // POST /api/v1/watches/{id}/image
			}

			brandsGroup := v1.Group("/brands")
			{
				brandsGroup.GET("", brandHandler.ListBrands)      // GET /api/v1/brands
				brandsGroup.POST("", brandHandler.CreateBrand)    // POST /api/v1/brands
				brandsGroup.PUT("/:id", brandHandler.UpdateBrand) // PUT /api/v1/brands/{id}
			}

			v1.GET("/stats", statsHandler.GetSummary) // GET /api/v1/stats
		}
	}
}
