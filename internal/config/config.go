package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Quiz      QuizConfig      `mapstructure:"quiz"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func (r *RateLimitConfig) applyDefaults() {
	if r.MaxRequests <= 0 {
		r.MaxRequests = 100000
	}
	if r.WindowMinutes <= 0 {
		r.WindowMinutes = 1
	}
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QuizConfig 出题子系统的调优参数。阈值是刻意的设计常量，
// 不允许在调用点另行硬编码。
type QuizConfig struct {
	// 自适应难度分桶（左闭右开）：successRate < EasyBelow -> EASY,
	// < MediumBelow -> MEDIUM, 其余 -> HARD
	AdaptiveEasyBelow   float64 `mapstructure:"adaptive_easy_below"`
	AdaptiveMediumBelow float64 `mapstructure:"adaptive_medium_below"`

	DefaultLimit    int `mapstructure:"default_limit"`
	OverfetchFactor int `mapstructure:"overfetch_factor"`

	// 缓存TTL分层（秒）
	HotTTLSeconds  int `mapstructure:"hot_ttl_seconds"`
	WarmTTLSeconds int `mapstructure:"warm_ttl_seconds"`
	ColdTTLSeconds int `mapstructure:"cold_ttl_seconds"`

	// 弱项筛选
	WeakRateBelow   float64 `mapstructure:"weak_rate_below"`
	WeakMinAttempts int     `mapstructure:"weak_min_attempts"`
	WeakMaxAreas    int     `mapstructure:"weak_max_areas"`

	// 超过该空闲间隔后恢复作答将开启新会话
	SessionIdleMinutes int `mapstructure:"session_idle_minutes"`

	MetricsQueueSize        int `mapstructure:"metrics_queue_size"`
	PoolRegenIntervalMinute int `mapstructure:"pool_regen_interval_minutes"`
}

func (q *QuizConfig) applyDefaults() {
	if q.AdaptiveEasyBelow <= 0 {
		q.AdaptiveEasyBelow = 40
	}
	if q.AdaptiveMediumBelow <= 0 {
		q.AdaptiveMediumBelow = 70
	}
	if q.DefaultLimit <= 0 {
		q.DefaultLimit = 50
	}
	if q.OverfetchFactor <= 0 {
		q.OverfetchFactor = 2
	}
	if q.HotTTLSeconds <= 0 {
		q.HotTTLSeconds = 300
	}
	if q.WarmTTLSeconds <= 0 {
		q.WarmTTLSeconds = 3600
	}
	if q.ColdTTLSeconds <= 0 {
		q.ColdTTLSeconds = 86400
	}
	if q.WeakRateBelow <= 0 {
		q.WeakRateBelow = 60
	}
	if q.WeakMinAttempts <= 0 {
		q.WeakMinAttempts = 5
	}
	if q.WeakMaxAreas <= 0 {
		q.WeakMaxAreas = 5
	}
	if q.SessionIdleMinutes <= 0 {
		q.SessionIdleMinutes = 30
	}
	if q.MetricsQueueSize <= 0 {
		q.MetricsQueueSize = 1024
	}
	if q.PoolRegenIntervalMinute <= 0 {
		q.PoolRegenIntervalMinute = 60
	}
}

// HotTTL 返回热数据TTL
func (q *QuizConfig) HotTTL() time.Duration {
	return time.Duration(q.HotTTLSeconds) * time.Second
}

func (q *QuizConfig) WarmTTL() time.Duration {
	return time.Duration(q.WarmTTLSeconds) * time.Second
}

func (q *QuizConfig) ColdTTL() time.Duration {
	return time.Duration(q.ColdTTLSeconds) * time.Second
}

func (q *QuizConfig) SessionIdleGap() time.Duration {
	return time.Duration(q.SessionIdleMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("EXAM_PREP")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Storage / MinIO
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Quiz.applyDefaults()
	cfg.RateLimit.applyDefaults()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
