package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Recipe      RecipeConfig    `mapstructure:"recipe"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig 資料庫配置
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig 供應商回應緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ProvidersConfig 外部資料供應商配置
type ProvidersConfig struct {
	FatSecret     FatSecretConfig     `mapstructure:"fatsecret"`
	USDA          USDAConfig          `mapstructure:"usda"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Edamam        EdamamConfig        `mapstructure:"edamam"`
}

// FatSecretConfig FatSecret Platform API（食物搜尋與食譜搜尋）
type FatSecretConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	Scope        string        `mapstructure:"scope"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// USDAConfig USDA FoodData Central
type USDAConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenFoodFactsConfig Open Food Facts 條碼資料庫
type OpenFoodFactsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EdamamConfig Edamam Recipe Search v2
type EdamamConfig struct {
	AppID   string        `mapstructure:"app_id"`
	AppKey  string        `mapstructure:"app_key"`
	UserID  string        `mapstructure:"user_id"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RecipeConfig 食譜來源引擎參數
type RecipeConfig struct {
	MealsPerDay          int     `mapstructure:"meals_per_day"`
	CalorieTolerance     float64 `mapstructure:"calorie_tolerance"`
	DenylistedSource     string  `mapstructure:"denylisted_source"`
	EdamamRandomBatch    int     `mapstructure:"edamam_random_batch"`
	FatSecretMaxResults  int     `mapstructure:"fatsecret_max_results"`
	FatSecretMaxPage     int     `mapstructure:"fatsecret_max_page"`
	DefaultDailyCalories float64 `mapstructure:"default_daily_calories"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只依賴環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定供應商慣用的環境變數名稱
	v.BindEnv("providers.fatsecret.client_id", "FATSECRET_CLIENT_ID")
	v.BindEnv("providers.fatsecret.client_secret", "FATSECRET_CLIENT_SECRET")
	v.BindEnv("providers.usda.api_key", "USDA_API_KEY")
	v.BindEnv("providers.edamam.app_id", "EDAMAM_APP_ID")
	v.BindEnv("providers.edamam.app_key", "EDAMAM_APP_KEY")
	v.BindEnv("providers.edamam.user_id", "EDAMAM_USER_ID")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"fatsecret_client_id:", maskAPIKey(v.GetString("providers.fatsecret.client_id")),
		"edamam_app_id:", maskAPIKey(v.GetString("providers.edamam.app_id")),
		"database_driver:", v.GetString("database.driver"),
	)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Default 回傳只套用預設值的設定，供測試與工具使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutriguard")
	v.SetDefault("log_level", "info")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// 資料庫設定
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "nutriguard.db")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("dedup_window", "1s")

	// 供應商設定
	v.SetDefault("providers.fatsecret.base_url", "https://platform.fatsecret.com/rest/server.api")
	v.SetDefault("providers.fatsecret.token_url", "https://oauth.fatsecret.com/connect/token")
	v.SetDefault("providers.fatsecret.scope", "basic premier")
	v.SetDefault("providers.fatsecret.timeout", "10s")
	v.SetDefault("providers.usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("providers.usda.timeout", "10s")
	v.SetDefault("providers.openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("providers.openfoodfacts.user_agent", "nutriguard/1.0")
	v.SetDefault("providers.openfoodfacts.timeout", "10s")
	v.SetDefault("providers.edamam.base_url", "https://api.edamam.com")
	v.SetDefault("providers.edamam.timeout", "15s")

	// 食譜來源設定
	v.SetDefault("recipe.meals_per_day", 3)
	v.SetDefault("recipe.calorie_tolerance", 0.3)
	v.SetDefault("recipe.denylisted_source", "food52.com")
	v.SetDefault("recipe.edamam_random_batch", 20)
	v.SetDefault("recipe.fatsecret_max_results", 20)
	v.SetDefault("recipe.fatsecret_max_page", 5)
	v.SetDefault("recipe.default_daily_calories", 2000)
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("unsupported cache backend %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Recipe.MealsPerDay <= 0 {
		return fmt.Errorf("invalid meals per day")
	}
	if config.Recipe.CalorieTolerance <= 0 || config.Recipe.CalorieTolerance >= 1 {
		return fmt.Errorf("calorie tolerance must be in (0, 1)")
	}

	return nil
}
