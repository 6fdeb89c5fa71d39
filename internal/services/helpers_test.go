package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-facture/internal/dialect"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(dialect.SQLite(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Parameter{},
		&models.Company{},
		&models.Client{},
		&models.Product{},
		&models.Document{},
		&models.LineItem{},
		&models.StockMovement{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	counters *CounterStore
	numbers  *NumberAllocator
	stock    *StockLedger
	company  *CompanyService
	docs     *DocumentService
	clients  *ClientService
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	counters := NewCounterStore(db)
	numbers := NewNumberAllocator(counters, WithClock(clock))
	stock := NewStockLedger(db)
	company := NewCompanyService(db)
	return &fixture{
		db:       db,
		counters: counters,
		numbers:  numbers,
		stock:    stock,
		company:  company,
		docs:     NewDocumentService(db, numbers, stock, company, WithNow(clock)),
		clients:  NewClientService(db),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ndec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func requireDecEqual(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "%s = %s, want %s", msg, got, want)
}

func (f *fixture) client(t *testing.T) *models.Client {
	t.Helper()
	c := &models.Client{Kind: models.ClientIndividual, FirstName: "Jean", LastName: "Dupont"}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) product(t *testing.T, name, price string, vat *string, stock *string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, UnitPrice: dec(price)}
	if vat != nil {
		p.VATRate = ndec(*vat)
	}
	if stock != nil {
		p.TrackStock = true
		p.CurrentStock = ndec(*stock)
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) reloadProduct(t *testing.T, id uint) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return &p
}

func strPtr(s string) *string { return &s }

func freeLine(designation, qty, price, vat string) LineInput {
	return LineInput{
		Designation: designation,
		Quantity:    dec(qty),
		UnitPrice:   ndec(price),
		VATRate:     ndec(vat),
	}
}

func productLine(p *models.Product, qty string) LineInput {
	id := p.ID
	return LineInput{ProductID: &id, Quantity: dec(qty)}
}

func (f *fixture) create(t *testing.T, kind models.DocumentKind, status models.DocumentStatus, clientID uint, lines ...LineInput) *models.Document {
	t.Helper()
	doc, err := f.docs.Create(context.Background(), CreateInput{
		Kind:          kind,
		Status:        status,
		DocumentInput: DocumentInput{ClientID: clientID, Lines: lines},
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) countMovements(t *testing.T, docID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.StockMovement{}).Where("document_id = ?", docID).Count(&n).Error)
	return n
}

// failCreatesOn makes every INSERT into table fail with errBoom.
func (f *fixture) failCreatesOn(t *testing.T, table string) {
	t.Helper()
	name := "test:fail_" + table
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			_ = tx.AddError(errBoom)
		}
	}))
	t.Cleanup(func() { _ = f.db.Callback().Create().Remove(name) })
}

var errBoom = errors.New("boom")
