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

	"github.com/metimat/metimat/internal/config"
	"github.com/metimat/metimat/internal/domain/location"
	"github.com/metimat/metimat/internal/domain/medication"
	"github.com/metimat/metimat/internal/domain/order"
	"github.com/metimat/metimat/internal/domain/prescription"
	"github.com/metimat/metimat/internal/platform/auth"
	"github.com/metimat/metimat/internal/platform/db"
	"github.com/metimat/metimat/internal/platform/middleware"
	"github.com/metimat/metimat/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "metimat-server",
		Short: "MeTIMat pharmacy pickup API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample catalog data for development",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			medSvc := medication.NewService(medication.NewRepoPG(pool))
			locSvc := location.NewService(location.NewRepoPG(pool))

			desc := func(s string) *string { return &s }
			meds := []*medication.Medication{
				{Name: "Ibuprofen 400 mg", PZN: "02013219", Price: 4.95, Category: "painkillers",
					Description: desc("Schmerzmittel, 20 Filmtabletten"), IsActive: true},
				{Name: "Paracetamol 500 mg", PZN: "04562798", Price: 3.45, Category: "painkillers",
					Description: desc("Schmerz- und Fiebermittel, 20 Tabletten"), IsActive: true},
				{Name: "Nasenspray ratiopharm", PZN: "00999831", Price: 3.97, Category: "cold",
					Description: desc("Abschwellendes Nasenspray, 10 ml"), IsActive: true},
				{Name: "Amoxicillin 1000 mg", PZN: "00652112", Price: 16.80, Category: "antibiotics",
					Description: desc("Antibiotikum, 20 Tabletten"), IsActive: true, PrescriptionRequired: true},
			}
			for _, m := range meds {
				if err := medSvc.Create(ctx, m); err != nil {
					return fmt.Errorf("seed medication %s: %w", m.Name, err)
				}
			}

			key := "dev-machine-key"
			loc := &location.Location{
				Name:          "MeTIMat Automat Hauptbahnhof",
				Address:       "Bahnhofsplatz 1",
				City:          "Berlin",
				PostalCode:    "10115",
				Country:       "DE",
				LocationType:  location.TypeVendingMachine,
				ValidationKey: &key,
				IsActive:      true,
			}
			if err := locSvc.Create(ctx, loc); err != nil {
				return fmt.Errorf("seed location: %w", err)
			}

			fmt.Printf("Seeded %d medications and location %s (machine key %q).\n", len(meds), loc.ID, key)
			return nil
		},
	}
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
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", order.MachineTokenHeader},
	}))

	// User-authenticated API. The machine group carries no user auth: vending
	// machines authenticate per request with X-Machine-Token.
	apiV1 := e.Group("/api/v1")
	machineV1 := e.Group("/api/v1")

	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(cfg.JWTSecret))
	}

	// Repositories
	medRepo := medication.NewRepoPG(pool)
	locRepo := location.NewRepoPG(pool)
	rxRepo := prescription.NewRepoPG(pool)
	orderRepo := order.NewRepoPG(pool)

	// Notifications
	emailSender := notification.NewSMTPSender(notification.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		User:      cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		FromName:  cfg.EmailsFromName,
		FromEmail: cfg.EmailsFromEmail,
	}, logger)
	templates := notification.NewTemplateEngine()

	// Medication catalog
	medSvc := medication.NewService(medRepo)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1)

	// Locations and inventory
	locSvc := location.NewService(locRepo)
	location.NewHandler(locSvc).RegisterRoutes(apiV1)

	// Prescriptions
	rxSvc := prescription.NewService(rxRepo, medRepo)
	prescription.NewHandler(rxSvc, cfg.EnableMockPrescriptions).RegisterRoutes(apiV1)

	// Orders
	orderSvc := order.NewService(order.Deps{
		Orders:        orderRepo,
		Medications:   medRepo,
		Prescriptions: rxRepo,
		Locations:     locRepo,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
		Emails:          emailSender,
		Templates:       templates,
		Logger:          logger,
		ProjectName:     cfg.ProjectName,
		PrescriptionFee: cfg.PrescriptionFee,
	})
	order.NewHandler(orderSvc).RegisterRoutes(apiV1, machineV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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
