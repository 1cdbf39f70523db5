package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"placement_backend/internal/placement"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Events    EventsConfig    `mapstructure:"events"`
	Placement PlacementConfig `mapstructure:"placement"`

	// 配置文件的实际路径，供热加载使用
	File string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool   `mapstructure:"parse_time"`
	SSLMode   string `mapstructure:"sslmode"`
	Path      string // sqlite 数据库文件
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	ServiceName       string  `mapstructure:"service_name"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

type LevelConfig struct {
	Code      string `mapstructure:"code"`
	BatchSize int    `mapstructure:"batch_size"`
}

type ClassicThresholdConfig struct {
	MinRatio float64 `mapstructure:"min_ratio"`
	Level    string  `mapstructure:"level"`
}

type PlacementConfig struct {
	Levels            []LevelConfig            `mapstructure:"levels"`
	LowThreshold      float64                  `mapstructure:"low_threshold"`
	HighThreshold     float64                  `mapstructure:"high_threshold"`
	ClassicThresholds []ClassicThresholdConfig `mapstructure:"classic_thresholds"`
	SessionTTLMinutes int                      `mapstructure:"session_ttl_minutes"`
	CookieSecure      bool                     `mapstructure:"cookie_secure"`
}

func (p PlacementConfig) SessionTTL() time.Duration {
	return time.Duration(p.SessionTTLMinutes) * time.Minute
}

// ControllerConfig 把配置转换为定级状态机参数，等级为空时使用默认阶梯
func (p PlacementConfig) ControllerConfig() (placement.Config, error) {
	cfg := placement.DefaultConfig()
	cfg.Low = p.LowThreshold
	cfg.High = p.HighThreshold

	if len(p.Levels) > 0 {
		steps := make([]placement.Step, 0, len(p.Levels))
		for _, l := range p.Levels {
			steps = append(steps, placement.Step{Level: placement.Level(l.Code), BatchSize: l.BatchSize})
		}
		ladder, err := placement.NewLadder(steps)
		if err != nil {
			return cfg, err
		}
		cfg.Ladder = ladder
	}

	if len(p.ClassicThresholds) > 0 {
		cfg.Classic = make([]placement.ClassicThreshold, 0, len(p.ClassicThresholds))
		for _, t := range p.ClassicThresholds {
			cfg.Classic = append(cfg.Classic, placement.ClassicThreshold{MinRatio: t.MinRatio, Level: placement.Level(t.Level)})
		}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/placement.db")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.port", 6379)

	v.SetDefault("tracing.service_name", "placement-backend")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("events.exchange", "placement.events")

	v.SetDefault("placement.low_threshold", placement.DefaultLowThreshold)
	v.SetDefault("placement.high_threshold", placement.DefaultHighThreshold)
	v.SetDefault("placement.session_ttl_minutes", 120)
}

// LoadConfig 读取 path 目录下的 config.yaml，环境变量优先
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PLACEMENT")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Events
	v.BindEnv("events.enabled", "EVENTS_ENABLED")
	v.BindEnv("events.amqp_url", "AMQP_URL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	pc, err := cfg.Placement.ControllerConfig()
	if err == nil {
		_, err = placement.NewController(pc)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid placement config: %w", err)
	}

	return &cfg, nil
}
