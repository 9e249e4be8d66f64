package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/farmasalud/fiscal/internal/config"
	"github.com/farmasalud/fiscal/internal/domain/auditlog"
	"github.com/farmasalud/fiscal/internal/domain/contingency"
	"github.com/farmasalud/fiscal/internal/domain/fiscalreport"
	"github.com/farmasalud/fiscal/internal/domain/tax"
	"github.com/farmasalud/fiscal/internal/domain/versionaudit"
	"github.com/farmasalud/fiscal/internal/platform/auth"
	"github.com/farmasalud/fiscal/internal/platform/db"
	"github.com/farmasalud/fiscal/internal/platform/middleware"
	"github.com/farmasalud/fiscal/internal/platform/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fiscal-server",
		Short: "SENIAT fiscal compliance server for pharmacies",
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
		Short: "Start the fiscal compliance API server",
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

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
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
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("unsafe configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store := storage.NewPG(pool)

	// Audit ledger first: every other service writes compliance events
	// through it.
	ledger := auditlog.NewLedger(auditlog.NewKVRepository(store))
	integrity, err := ledger.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load audit log")
	}
	if !integrity.Valid {
		logger.Error().
			Str("detail", integrity.Detail).
			Msg("audit log chain integrity check FAILED; fiscal records may have been tampered with")
	} else {
		logger.Info().Msg("audit log chain verified")
	}

	taxSvc := tax.NewService(tax.NewKVRepository(store), ledger)
	if err := taxSvc.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load tax state")
	}

	contingencyMgr := contingency.NewManager(contingency.NewKVRepository(store), ledger)
	if err := contingencyMgr.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load contingency sessions")
	}
	if contingencyMgr.InContingency() {
		logger.Warn().Msg("contingency session still active; digital invoice emission is blocked")
	}

	versionAuditor := versionaudit.NewAuditor(versionaudit.NewKVRepository(store), ledger)
	if err := versionAuditor.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load version audit record")
	}
	if auth := versionAuditor.IsAuthorized(); !auth.Authorized {
		logger.Warn().Str("reason", auth.Reason).Msg("installed version is not authorized for fiscal operations")
	}

	reportSvc := fiscalreport.NewService()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// Rate limiting
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	// API routes
	apiV1 := e.Group("/api/v1")
	auditlog.NewHandler(ledger).RegisterRoutes(apiV1)
	tax.NewHandler(taxSvc).RegisterRoutes(apiV1)
	contingency.NewHandler(contingencyMgr).RegisterRoutes(apiV1)
	versionaudit.NewHandler(versionAuditor).RegisterRoutes(apiV1)
	fiscalreport.NewHandler(reportSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool,
		db.SubsystemCheck{Name: "audit_chain", Probe: func() (bool, string) {
			result := ledger.VerifyChainIntegrity()
			return result.Valid, result.Detail
		}},
		db.SubsystemCheck{Name: "digital_emission", Probe: func() (bool, string) {
			gate := contingencyMgr.CanEmitDigitalInvoice()
			return gate.Allowed, gate.Reason
		}},
		db.SubsystemCheck{Name: "version_authorization", Probe: func() (bool, string) {
			authz := versionAuditor.IsAuthorized()
			return authz.Authorized, authz.Reason
		}},
	))

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
