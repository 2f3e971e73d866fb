package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-dashboard/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-dashboard/internal/config"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/workers"
)

type repositories struct {
	habits  domain.HabitRepository
	entries domain.HabitEntryRepository
	users   domain.UserRepository
}

// app is everything serve needs, built from one Config.
type app struct {
	router *gin.Engine
	worker *workers.StreakWorker
	db     *sqlx.DB
	redis  *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("[WARN] closing redis: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("[WARN] closing database: %v", err)
		}
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	var repos repositories
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("Using in-memory storage, data is lost on restart.")
		habits := repository.NewInMemoryHabitRepository()
		repos = repositories{
			habits:  habits,
			entries: repository.NewInMemoryEntryRepository(habits),
			users:   repository.NewInMemoryUserRepository(),
		}
	} else {
		log.Println("Connecting to database...")
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		log.Println("Database connected successfully.")

		if cfg.Database.Migrate {
			if err := repository.EnsureSchema(ctx, db); err != nil {
				a.Close()
				return nil, err
			}
		}
		repos = repositories{
			habits:  repository.NewPostgresHabitRepository(db),
			entries: repository.NewPostgresEntryRepository(db),
			users:   repository.NewPostgresUserRepository(db),
		}
	}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			// Cache and rate limiter are optional; run without them.
			log.Printf("[CACHE] redis unavailable, continuing without cache: %v", err)
		} else {
			a.redis = rdb
			repos.habits = repository.NewCachedHabitRepository(repos.habits, rdb, cfg.Redis.CacheTTL)
		}
	}

	var exporter *metrics.Exporter
	if cfg.Server.Metrics {
		mcfg := metrics.DefaultConfig()
		mcfg.RuntimeCollectors = true
		exporter = metrics.NewExporter(mcfg)
	}

	a.worker = workers.NewStreakWorker(repos.habits, repos.entries, workers.Config{
		QueueSize:   cfg.Worker.QueueSize,
		Lookback:    cfg.Analytics.StreakLookback,
		HistoryDays: cfg.Worker.HistoryDays,
		Location:    cfg.Worker.Location(),
	})

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, repos.users)
	stats := services.NewStatsService(repos.habits, repos.entries, repos.users, services.StatsConfig{
		Options:           cfg.Analytics.Options(),
		MemoSize:          cfg.Analytics.MemoSize,
		DefaultRange:      cfg.Analytics.DefaultRange,
		MaxRangeDays:      cfg.Analytics.MaxRangeDays,
		StreakHistoryDays: cfg.Worker.HistoryDays,
	})
	if exporter != nil {
		a.worker.SetRecorder(exporter)
		stats.SetRecorder(exporter)
	}

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(services.NewAuthService(repos.users, tokens)),
		HabitHandler: adapterHTTP.NewHabitHandler(services.NewHabitService(repos.habits)),
		EntryHandler: adapterHTTP.NewEntryHandler(services.NewEntryService(repos.entries, repos.habits, a.worker)),
		StatsHandler: adapterHTTP.NewStatsHandler(stats),
		Tokens:       tokens,
		DB:           a.db,
		Redis:        a.redis,
		RateLimit: middleware.RateLimitConfig{
			Limit:  cfg.RateLimit.Requests,
			Window: cfg.RateLimit.Window,
		},
		Metrics:   exporter,
		Swagger:   cfg.Server.Swagger,
		StartTime: time.Now(),
	})

	return a, nil
}
