package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-facture/internal/config"
	"github.com/diewo77/go-facture/internal/db"
	"github.com/diewo77/go-facture/internal/logger"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/services"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		ServiceName: "facture",
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	dbConn, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	seedOpts, err := seedOptions(cfg.Billing)
	if err != nil {
		log.Fatal("Invalid billing configuration", zap.Error(err))
	}

	if *migrateOnlyFlag {
		if err := migrateDB(cfg, dbConn); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(dbConn, seedOpts); err != nil {
			log.Fatal("Seeding failed", zap.Error(err))
		}
		log.Info("Seeding completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := migrateDB(cfg, dbConn); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Migrations completed")
	}

	// Seed numbering parameters and the company row
	if err := db.Seed(dbConn, seedOpts); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	appHandler := NewApp(dbConn, newServices(dbConn, cfg.Billing, seedOpts.DefaultVATRate), prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	log.Info("Server stopped gracefully")
}

// migrateDB applies the versioned SQL files when enabled, AutoMigrate otherwise.
// golang-migrate only drives postgres here.
func migrateDB(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.App.SQLMigrations && cfg.Database.Driver != "sqlite" {
		return db.RunSQLMigrations(cfg.App.MigrationsDir, cfg.Database.DSN())
	}
	return db.Migrate(dbConn)
}

func seedOptions(b config.BillingConfig) (db.SeedOptions, error) {
	vat, err := decimal.NewFromString(b.DefaultVATRate)
	if err != nil {
		return db.SeedOptions{}, err
	}
	return db.SeedOptions{
		InvoicePrefix:  b.InvoicePrefix,
		QuotePrefix:    b.QuotePrefix,
		DefaultVATRate: vat,
	}, nil
}

func newServices(dbConn *gorm.DB, b config.BillingConfig, defaultVAT decimal.Decimal) Services {
	numbers := services.NewNumberAllocator(
		services.NewCounterStore(dbConn),
		services.WithDefaultPrefixes(b.InvoicePrefix, b.QuotePrefix),
	)
	stock := services.NewStockLedger(dbConn)
	company := services.NewCompanyService(dbConn).WithDefaultVAT(defaultVAT)
	return Services{
		Documents: services.NewDocumentService(dbConn, numbers, stock, company,
			services.WithPaymentTermDays(b.PaymentTermDays)),
		Stock:   stock,
		Clients: services.NewClientService(dbConn),
		Company: company,
	}
}
