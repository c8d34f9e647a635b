package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Metering MeteringConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	AutoMigrate    bool
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MeteringConfig overrides the built-in plan allowances and per-tier rate
// limits. Zero values fall back to the catalog defaults.
type MeteringConfig struct {
	FreeDailyTokens     int
	StandardDailyTokens int
	PlusDailyTokens     int

	FreeRequestsPerMinute     int
	StandardRequestsPerMinute int
	PlusRequestsPerMinute     int
	PremiumRequestsPerMinute  int

	FlagRefreshInterval time.Duration
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			AutoMigrate:    k.Bool("db.auto.migrate"),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		Metering: MeteringConfig{
			FreeDailyTokens:           k.Int("metering.free.daily.tokens"),
			StandardDailyTokens:       k.Int("metering.standard.daily.tokens"),
			PlusDailyTokens:           k.Int("metering.plus.daily.tokens"),
			FreeRequestsPerMinute:     k.Int("metering.free.requests.per.minute"),
			StandardRequestsPerMinute: k.Int("metering.standard.requests.per.minute"),
			PlusRequestsPerMinute:     k.Int("metering.plus.requests.per.minute"),
			PremiumRequestsPerMinute:  k.Int("metering.premium.requests.per.minute"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "scriptura"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "scriptura"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Metering.FreeDailyTokens == 0 {
		cfg.Metering.FreeDailyTokens = 100
	}
	if cfg.Metering.StandardDailyTokens == 0 {
		cfg.Metering.StandardDailyTokens = 500
	}
	if cfg.Metering.PlusDailyTokens == 0 {
		cfg.Metering.PlusDailyTokens = 2000
	}
	if cfg.Metering.FreeRequestsPerMinute == 0 {
		cfg.Metering.FreeRequestsPerMinute = 10
	}
	if cfg.Metering.StandardRequestsPerMinute == 0 {
		cfg.Metering.StandardRequestsPerMinute = 30
	}
	if cfg.Metering.PlusRequestsPerMinute == 0 {
		cfg.Metering.PlusRequestsPerMinute = 60
	}
	if cfg.Metering.PremiumRequestsPerMinute == 0 {
		cfg.Metering.PremiumRequestsPerMinute = 120
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshStr := k.String("metering.flag.refresh.interval")
	if refreshStr == "" {
		refreshStr = "1m"
	}
	cfg.Metering.FlagRefreshInterval, err = time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("parsing flag refresh interval: %w", err)
	}

	return cfg, nil
}
