// Command api serves the Kanso dashboard HTTP API.
//
//	@title						Kanso Dashboard API
//	@version					1.0
//	@description				Habit tracking with schedule-aware completion stats, streaks and insights.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-dashboard/internal/config"
)

var (
	v       = config.New()
	envFile string
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:          "kanso-api",
	Short:        "Habit dashboard API: completions, streaks and insights",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, envFile, cfgFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, envFile, cfgFile)
		if err != nil {
			return err
		}
		if cfg.Database.Driver == config.DriverMemory {
			return errors.New("migrate: nothing to do for the memory driver")
		}

		db, err := openDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.EnsureSchema(cmd.Context(), db); err != nil {
			return err
		}
		log.Println("Schema applied.")
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.StringVar(&cfgFile, "config", "", "optional config file (yaml, json or toml)")
	flags.String("port", "8080", "HTTP port")
	flags.String("driver", config.DriverPgx, `storage driver: "pgx", "postgres" or "memory"`)
	flags.Bool("migrate", false, "apply the schema on startup")

	for key, name := range map[string]string{
		"server.port":      "port",
		"database.driver":  "driver",
		"database.migrate": "migrate",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.worker.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Kanso Dashboard running on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Println("Stop signal received. Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Println("Server stopped gracefully.")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("Critical: %v", err)
		os.Exit(1)
	}
}
