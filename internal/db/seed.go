package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedOptions carries the defaults written on first start.
type SeedOptions struct {
	InvoicePrefix  string
	QuotePrefix    string
	DefaultVATRate decimal.Decimal
}

// DefaultSeedOptions returns the built-in prefixes and VAT rate.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		InvoicePrefix:  services.DefaultInvoicePrefix,
		QuotePrefix:    services.DefaultQuotePrefix,
		DefaultVATRate: models.DefaultVATRate,
	}
}

// Seed inserts the numbering parameters and the company row if missing.
// Existing rows are never modified, so it is safe to run on every start.
func Seed(db *gorm.DB, opts SeedOptions) error {
	params := []models.Parameter{
		{Key: services.KeyInvoiceCounter, Value: "1", Description: "Next invoice sequence number"},
		{Key: services.KeyQuoteCounter, Value: "1", Description: "Next quote sequence number"},
		{Key: services.KeyInvoicePrefix, Value: opts.InvoicePrefix, Description: "Invoice number prefix"},
		{Key: services.KeyQuotePrefix, Value: opts.QuotePrefix, Description: "Quote number prefix"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, p := range params {
			if err := tx.Where(models.Parameter{Key: p.Key}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed parameter %s: %w", p.Key, err)
			}
		}

		var company models.Company
		err := tx.Order("id").First(&company).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			company = models.Company{Name: models.DefaultCompanyName, DefaultVATRate: opts.DefaultVATRate}
			if err := tx.Create(&company).Error; err != nil {
				return fmt.Errorf("seed company: %w", err)
			}
			return nil
		}
		return err
	})
}
