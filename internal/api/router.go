package api

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	foodHandler "nutriguard/internal/api/handlers/food"
	"nutriguard/internal/api/handlers/health"
	planHandler "nutriguard/internal/api/handlers/plan"
	profileHandler "nutriguard/internal/api/handlers/profile"
	"nutriguard/internal/api/middleware"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

const (
	// 計畫產生會依序呼叫多個供應商
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (1MB)
	maxBodySize = 1 << 20
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Foods    foodHandler.Analyzer
	Plans    planHandler.Planner
	Profiles profileHandler.Store
	Checks   map[string]health.Check
	Cache    func() *health.CacheStatus
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	healthH := health.NewHandler(cfg.App.Version, deps.Checks, deps.Cache)
	router.GET("/health", healthH.HealthCheck)
	router.GET("/ready", healthH.ReadinessCheck)
	router.GET("/live", healthH.LivenessCheck)

	api := router.Group("/api/v1")
	api.Use(requestTimeout(timeoutDuration))
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		foods := foodHandler.NewHandler(deps.Foods, deps.Profiles)
		foodGroup := api.Group("/food")
		{
			foodGroup.GET("/search", foods.Search)
			foodGroup.POST("/analyze", foods.Analyze)
			foodGroup.POST("/barcode", foods.Barcode)
		}

		profiles := profileHandler.NewHandler(deps.Profiles)
		userGroup := api.Group("/users/:id")
		{
			userGroup.GET("/profile", profiles.Get)
			userGroup.PUT("/profile", profiles.Put)
		}

		plans := planHandler.NewHandler(deps.Plans)
		planGroup := api.Group("/plans")
		{
			planGroup.POST("/generate", plans.Generate)
			planGroup.GET("/:userId", plans.List)
			planGroup.GET("/:userId/:date", plans.Get)
			planGroup.POST("/:userId/:date/meals/:slot/swap", plans.Swap)
			planGroup.DELETE("/:userId/:date/meals/:slot", plans.Remove)
			planGroup.PATCH("/:userId/:date/meals/:slot/status", plans.UpdateStatus)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}

// requestTimeout 為每個 API 請求設定超時
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(common.ErrGatewayTimeout.Status, common.ErrorResponse{
				Code:    common.ErrCodeGatewayTimeout,
				Message: common.ErrGatewayTimeout.Message,
			})
		}
	}
}
