// Package config loads runtime settings from defaults, an optional config
// file, .env and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Analytics AnalyticsConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Swagger         bool
	Metrics         bool
}

type DatabaseConfig struct {
	// Driver is pgx, postgres (lib/pq) or memory.
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Migrate applies the embedded schema on startup.
	Migrate bool
}

func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type AnalyticsConfig struct {
	WorstDayGap     float64
	TrendDelta      float64
	MinLeaderStreak int
	MaxInsights     int
	StreakLookback  int
	MemoSize        int
	DefaultRange    string
	MaxRangeDays    int
}

func (a AnalyticsConfig) Options() analytics.Options {
	return analytics.Options{
		WorstDayGap:     a.WorstDayGap,
		TrendDelta:      a.TrendDelta,
		MinLeaderStreak: a.MinLeaderStreak,
		MaxInsights:     a.MaxInsights,
		StreakLookback:  a.StreakLookback,
	}
}

type WorkerConfig struct {
	QueueSize   int
	HistoryDays int
	// Timezone cuts calendar days for the stored streak counters.
	Timezone string
}

// envKeys maps config keys to the variable names used in .env files and
// deployments.
var envKeys = map[string]string{
	"server.port":             "PORT",
	"server.swagger":          "SWAGGER_ENABLED",
	"server.metrics":          "METRICS_ENABLED",
	"database.driver":         "DB_DRIVER",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"database.migrate":        "DB_MIGRATE",
	"redis.enabled":           "REDIS_ENABLED",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"auth.jwt_secret":         "JWT_SECRET",
	"auth.issuer":             "JWT_ISSUER",
	"auth.token_ttl":          "JWT_TTL",
	"ratelimit.requests":      "RATE_LIMIT_REQUESTS",
	"ratelimit.window":        "RATE_LIMIT_WINDOW",
	"analytics.default_range": "STATS_DEFAULT_RANGE",
	"analytics.memo_size":     "STATS_MEMO_SIZE",
	"worker.timezone":         "STREAK_TIMEZONE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.swagger", true)
	v.SetDefault("server.metrics", true)

	v.SetDefault("database.driver", DriverPgx)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "kanso_user")
	v.SetDefault("database.name", "kanso_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", false)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", 30*time.Minute)

	v.SetDefault("auth.issuer", "kanso-dashboard")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)

	def := analytics.DefaultOptions()
	v.SetDefault("analytics.worst_day_gap", def.WorstDayGap)
	v.SetDefault("analytics.trend_delta", def.TrendDelta)
	v.SetDefault("analytics.min_leader_streak", def.MinLeaderStreak)
	v.SetDefault("analytics.max_insights", def.MaxInsights)
	v.SetDefault("analytics.streak_lookback", def.StreakLookback)
	v.SetDefault("analytics.memo_size", analytics.DefaultMemoCapacity)
	v.SetDefault("analytics.default_range", fmt.Sprint(analytics.DefaultRangeDays))
	v.SetDefault("analytics.max_range_days", 366)

	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.history_days", 365)
	v.SetDefault("worker.timezone", "UTC")
}

// New returns a viper instance with defaults and environment bindings. The
// KANSO_ prefixed form of every key (KANSO_SERVER_PORT) is honoured as well.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("kanso")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, env := range envKeys {
		// BindEnv only fails without arguments.
		_ = v.BindEnv(key, "KANSO_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env)
	}
	return v
}

// Load reads envFile (ignored when missing) and configFile (optional) into v
// and decodes the result.
func Load(v *viper.Viper, envFile, configFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			Swagger:         v.GetBool("server.swagger"),
			Metrics:         v.GetBool("server.metrics"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			Migrate:         v.GetBool("database.migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PoolSize: v.GetInt("redis.pool_size"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
		},
		Analytics: AnalyticsConfig{
			WorstDayGap:     v.GetFloat64("analytics.worst_day_gap"),
			TrendDelta:      v.GetFloat64("analytics.trend_delta"),
			MinLeaderStreak: v.GetInt("analytics.min_leader_streak"),
			MaxInsights:     v.GetInt("analytics.max_insights"),
			StreakLookback:  v.GetInt("analytics.streak_lookback"),
			MemoSize:        v.GetInt("analytics.memo_size"),
			DefaultRange:    v.GetString("analytics.default_range"),
			MaxRangeDays:    v.GetInt("analytics.max_range_days"),
		},
		Worker: WorkerConfig{
			QueueSize:   v.GetInt("worker.queue_size"),
			HistoryDays: v.GetInt("worker.history_days"),
			Timezone:    v.GetString("worker.timezone"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPgx, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.Requests < 0 || (c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0) {
		return fmt.Errorf("%w: rate limit needs a positive window", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Worker.Timezone); err != nil {
		return fmt.Errorf("%w: worker timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location is the parsed worker timezone; Validate guarantees it loads.
func (w WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
