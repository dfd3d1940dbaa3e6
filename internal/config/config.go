package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "PASTEBIN"

	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	defaultEnvironment    = EnvironmentDevelopment
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultMaxBodyBytes   = 1 << 20
	defaultDatabaseDriver = "sqlite"
	defaultDatabasePath   = "pastebin.db"
	defaultLogLevel       = "info"
	defaultRetentionDays  = 7
	defaultRedisAddress   = "localhost:6379"
)

var defaultTrustedProxies = []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// RateLimitPolicy bounds requests per client within a window.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimits groups the per-route policies.
type RateLimits struct {
	Backend string
	Global  RateLimitPolicy
	Create  RateLimitPolicy
	Read    RateLimitPolicy
	Cleanup RateLimitPolicy
}

// RedisConfig locates the shared rate limit store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	Environment          string
	PublicURL            string
	HTTPAddress          string
	TrustedProxies       []string
	MaxBodyBytes         int64
	DatabaseDriver       string
	DatabaseDSN          string
	DatabasePath         string
	DatabaseMaxOpenConns int
	LogLevel             string
	CleanupSecret        string
	RetentionDays        int
	CORSAllowedOrigins   []string
	RateLimits           RateLimits
	Redis                RedisConfig
	MetricsEnabled       bool
}

// IsProduction reports whether production-only behavior applies.
func (c AppConfig) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("app.environment", defaultEnvironment)
	configViper.SetDefault("app.public_url", "")
	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.trusted_proxies", defaultTrustedProxies)
	configViper.SetDefault("http.max_body_bytes", defaultMaxBodyBytes)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.max_open_conns", 10)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cleanup.secret", "")
	configViper.SetDefault("cleanup.retention_days", defaultRetentionDays)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("ratelimit.backend", RateLimitBackendMemory)
	configViper.SetDefault("ratelimit.global.limit", 1000)
	configViper.SetDefault("ratelimit.global.window", 15*time.Minute)
	configViper.SetDefault("ratelimit.create.limit", 10)
	configViper.SetDefault("ratelimit.create.window", time.Minute)
	configViper.SetDefault("ratelimit.read.limit", 100)
	configViper.SetDefault("ratelimit.read.window", time.Minute)
	configViper.SetDefault("ratelimit.cleanup.limit", 10)
	configViper.SetDefault("ratelimit.cleanup.window", time.Hour)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("metrics.enabled", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Environment:          strings.ToLower(strings.TrimSpace(configViper.GetString("app.environment"))),
		PublicURL:            strings.TrimRight(strings.TrimSpace(configViper.GetString("app.public_url")), "/"),
		HTTPAddress:          configViper.GetString("http.address"),
		TrustedProxies:       splitList(configViper.GetStringSlice("http.trusted_proxies")),
		MaxBodyBytes:         configViper.GetInt64("http.max_body_bytes"),
		DatabaseDriver:       strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabaseDSN:          configViper.GetString("database.dsn"),
		DatabasePath:         configViper.GetString("database.path"),
		DatabaseMaxOpenConns: configViper.GetInt("database.max_open_conns"),
		LogLevel:             configViper.GetString("log.level"),
		CleanupSecret:        strings.TrimSpace(configViper.GetString("cleanup.secret")),
		RetentionDays:        configViper.GetInt("cleanup.retention_days"),
		CORSAllowedOrigins:   splitList(configViper.GetStringSlice("cors.allowed_origins")),
		RateLimits: RateLimits{
			Backend: strings.ToLower(strings.TrimSpace(configViper.GetString("ratelimit.backend"))),
			Global:  loadPolicy(configViper, "ratelimit.global"),
			Create:  loadPolicy(configViper, "ratelimit.create"),
			Read:    loadPolicy(configViper, "ratelimit.read"),
			Cleanup: loadPolicy(configViper, "ratelimit.cleanup"),
		},
		Redis: RedisConfig{
			Address:  configViper.GetString("redis.address"),
			Password: configViper.GetString("redis.password"),
			DB:       configViper.GetInt("redis.db"),
		},
		MetricsEnabled: configViper.GetBool("metrics.enabled"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func loadPolicy(configViper *viper.Viper, prefix string) RateLimitPolicy {
	return RateLimitPolicy{
		Limit:  configViper.GetInt(prefix + ".limit"),
		Window: configViper.GetDuration(prefix + ".window"),
	}
}

// splitList accepts both list values and comma separated env strings.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

func (c AppConfig) validate() error {
	if c.Environment != EnvironmentDevelopment && c.Environment != EnvironmentProduction {
		return fmt.Errorf("app.environment must be %q or %q", EnvironmentDevelopment, EnvironmentProduction)
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive")
	}
	switch c.DatabaseDriver {
	case "postgres":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	case "sqlite":
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("cleanup.retention_days cannot be negative")
	}
	switch c.RateLimits.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if strings.TrimSpace(c.Redis.Address) == "" {
			return fmt.Errorf("redis.address is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("ratelimit.backend must be memory or redis")
	}
	for name, policy := range map[string]RateLimitPolicy{
		"global":  c.RateLimits.Global,
		"create":  c.RateLimits.Create,
		"read":    c.RateLimits.Read,
		"cleanup": c.RateLimits.Cleanup,
	} {
		if policy.Limit <= 0 || policy.Window <= 0 {
			return fmt.Errorf("ratelimit.%s requires a positive limit and window", name)
		}
	}
	return nil
}
