package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinforms/clinforms/internal/api"
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/config"
	"github.com/clinforms/clinforms/internal/forms"
	"github.com/clinforms/clinforms/internal/forms/editors"
	"github.com/clinforms/clinforms/internal/forms/propagate"
	"github.com/clinforms/clinforms/internal/platform/db"
	"github.com/clinforms/clinforms/internal/platform/middleware"
	"github.com/clinforms/clinforms/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forms-server",
		Short: "Clinical forms computation and synchronization server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the forms API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s)\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "migrations", "Migrations directory")

	cmd.AddCommand(upCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	var repo store.Repository
	var pool *pgxpool.Pool
	if cfg.MemoryStore {
		logger.Warn().Msg("using in-memory store, data is not persisted")
		repo = store.NewMemRepo()
	} else {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		repo = store.NewPGRepo(pool)
	}

	st := store.NewWithPipeline(repo, logger, commit.NewPipeline(
		editors.StructureProvider{},
		editors.ReferenceProvider{Scope: referenceScope(cfg.ReferenceScope)},
		editors.ComputedProvider{},
		editors.IdentifierProvider{},
		editors.BacklinkProvider{},
		editors.SortProvider{},
	))

	propagator := propagate.New(st, logger)
	propagator.Start(ctx)
	defer propagator.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.JSONSerializer = api.JSONSerializer{}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	if pool != nil {
		e.GET("/health", db.HealthHandler(pool))
	} else {
		e.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	group := e.Group("", api.Auth(cfg.AuthSecret))
	api.NewHandler(st, logger).RegisterRoutes(group)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("server listening")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func referenceScope(name string) forms.SearchScope {
	switch name {
	case "subject":
		return forms.ScopeSubject
	case "related":
		return forms.ScopeRelated
	default:
		return forms.ScopeAncestors
	}
}
