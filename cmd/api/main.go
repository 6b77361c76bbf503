package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nutriguard/internal/api"
	"nutriguard/internal/api/handlers/health"
	"nutriguard/internal/core/food"
	"nutriguard/internal/core/plan"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/core/provider/cache"
	"nutriguard/internal/core/provider/edamam"
	"nutriguard/internal/core/provider/fatsecret"
	"nutriguard/internal/core/provider/openfoodfacts"
	"nutriguard/internal/core/provider/usda"
	"nutriguard/internal/core/recipe"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/infrastructure/persistence"
	"nutriguard/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	db, err := persistence.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}

	// 供應商回應快取，停用時為 nil
	store, err := cache.New(cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize provider cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	rng := common.NewTimeSeededRand()

	fatSecret := fatsecret.NewClient(cfg.Providers.FatSecret)
	foodEngine := food.NewEngine(
		fatSecret,
		cache.NewFoodDetailer(fatSecret, store, string(provider.SourceFatSecret)),
		usda.NewClient(cfg.Providers.USDA),
		cache.NewBarcodeLookup(openfoodfacts.NewClient(cfg.Providers.OpenFoodFacts), store),
	)

	recipes := persistence.NewRecipeStore(db, rng)
	profiles := persistence.NewProfileStore(db)
	recipeEngine := recipe.NewEngine(edamam.NewClient(cfg.Providers.Edamam), fatSecret, recipes, rng, cfg.Recipe)
	planService := plan.NewService(recipeEngine, recipes, persistence.NewPlanStore(db), profiles)

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error { return persistence.Ping(ctx, db) },
	}
	if rs, ok := store.(*cache.RedisStore); ok {
		checks["redis"] = rs.Ping
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Foods:    foodEngine,
		Plans:    planService,
		Profiles: profiles,
		Checks:   checks,
		Cache:    cacheStatus(cfg.Cache, store),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("cache", store != nil),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	common.LogInfo("Server exited")
}

// cacheStatus 健康檢查顯示的快取狀態
func cacheStatus(cfg config.CacheConfig, store cache.Store) func() *health.CacheStatus {
	return func() *health.CacheStatus {
		switch s := store.(type) {
		case nil:
			return nil
		case *cache.Manager:
			return &health.CacheStatus{Backend: "memory", Stats: s.Stats()}
		default:
			return &health.CacheStatus{Backend: cfg.Backend}
		}
	}
}
