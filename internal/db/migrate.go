package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-facture/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

var errMissingTable = errors.New("missing table after migration")

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&models.Parameter{},
		&models.Company{},
		&models.Client{},
		&models.Product{},
		&models.Document{},
		&models.LineItem{},
		&models.StockMovement{},
	}
}

// Migrate creates or updates the schema with gorm's AutoMigrate.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, table := range []string{"parameters", "documents", "line_items", "stock_movements"} {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("%w: %s", errMissingTable, table)
		}
	}
	return nil
}

// RunSQLMigrations applies the versioned SQL files in dir to a postgres database.
func RunSQLMigrations(dir, dsn string) error {
	m, err := migrate.New("file://"+dir, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
