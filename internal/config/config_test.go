package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Success: Defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")

		cfg, err := Load(New(), "", "")
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, DriverPgx, cfg.Database.Driver)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, 100, cfg.RateLimit.Requests)
		assert.Equal(t, "30", cfg.Analytics.DefaultRange)
		assert.Equal(t, 366, cfg.Analytics.MaxRangeDays)

		opts := cfg.Analytics.Options()
		assert.Equal(t, 15.0, opts.WorstDayGap)
		assert.Equal(t, 10.0, opts.TrendDelta)
		assert.Equal(t, 3, opts.MinLeaderStreak)
		assert.Equal(t, 4, opts.MaxInsights)
		assert.Equal(t, 90, opts.StreakLookback)
		assert.Equal(t, time.UTC, cfg.Worker.Location())
	})

	t.Run("Success: Plain and prefixed environment variables", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("PORT", "9090")
		t.Setenv("DB_DRIVER", "MEMORY")
		t.Setenv("JWT_TTL", "90m")
		t.Setenv("KANSO_ANALYTICS_TREND_DELTA", "20")
		t.Setenv("STREAK_TIMEZONE", "Europe/Rome")

		cfg, err := Load(New(), "", "")
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, DriverMemory, cfg.Database.Driver)
		assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
		assert.Equal(t, 20.0, cfg.Analytics.TrendDelta)
		assert.Equal(t, "Europe/Rome", cfg.Worker.Location().String())
	})

	t.Run("Success: Config file", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		path := filepath.Join(t.TempDir(), "kanso.yaml")
		require.NoError(t, os.WriteFile(path, []byte("analytics:\n  worst_day_gap: 25\n  memo_size: 16\nratelimit:\n  requests: 0\n"), 0o600))

		cfg, err := Load(New(), "", path)
		require.NoError(t, err)

		assert.Equal(t, 25.0, cfg.Analytics.WorstDayGap)
		assert.Equal(t, 16, cfg.Analytics.MemoSize)
		assert.Equal(t, 0, cfg.RateLimit.Requests)
	})

	t.Run("Success: .env file fills unset variables", func(t *testing.T) {
		require.NoError(t, os.Unsetenv("JWT_SECRET"))
		t.Cleanup(func() { _ = os.Unsetenv("JWT_SECRET") })

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv\n"), 0o600))

		cfg, err := Load(New(), path, "")
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	})

	t.Run("Fail: Missing config file", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")

		_, err := Load(New(), "", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("Fail: Invalid settings", func(t *testing.T) {
		cases := map[string]map[string]string{
			"no secret":    {"JWT_SECRET": ""},
			"bad driver":   {"JWT_SECRET": "x", "DB_DRIVER": "sqlite"},
			"bad timezone": {"JWT_SECRET": "x", "STREAK_TIMEZONE": "Mars/Olympus"},
			"bad window":   {"JWT_SECRET": "x", "RATE_LIMIT_WINDOW": "0s"},
		}
		for name, env := range cases {
			t.Run(name, func(t *testing.T) {
				for k, v := range env {
					t.Setenv(k, v)
				}
				_, err := Load(New(), "", "")
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5433", User: "kanso", Password: "p@ss word", Name: "kanso_db", SSLMode: "disable"}

	assert.Equal(t, "postgres://kanso:p%40ss%20word@db:5433/kanso_db?sslmode=disable", d.DSN())
}
