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
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Grading   GradingConfig   `mapstructure:"grading"`
	Skills    SkillsConfig    `mapstructure:"skills"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// runtime flags, set from the command line
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
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

// GradingConfig tunes the attempt lifecycle background work.
type GradingConfig struct {
	ExpirySweepSeconds int `mapstructure:"expiry_sweep_seconds"`
	DraftTTLHours      int `mapstructure:"draft_ttl_hours"`
}

// SkillsConfig tunes the proficiency updater.
type SkillsConfig struct {
	// BlendWeight is the share of the newly demonstrated ratio in the
	// proficiency blend, in percent (0-100).
	BlendWeight int `mapstructure:"blend_weight"`
	// BreakdownMinQuestions gates the per-attempt skill breakdown until the
	// attempt covers this many skill-mapped questions.
	BreakdownMinQuestions int `mapstructure:"breakdown_min_questions"`
	// HistoryLimit caps the stored progress history per skill.
	HistoryLimit int `mapstructure:"history_limit"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("LMS")
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

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Grading.ExpirySweepSeconds <= 0 {
		cfg.Grading.ExpirySweepSeconds = 60
	}
	if cfg.Grading.DraftTTLHours <= 0 {
		cfg.Grading.DraftTTLHours = 24
	}
	if cfg.Skills.BlendWeight <= 0 || cfg.Skills.BlendWeight > 100 {
		cfg.Skills.BlendWeight = 30
	}
	if cfg.Skills.BreakdownMinQuestions <= 0 {
		cfg.Skills.BreakdownMinQuestions = 1
	}
	if cfg.Skills.HistoryLimit <= 0 {
		cfg.Skills.HistoryLimit = 50
	}
}
