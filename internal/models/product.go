package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockStatus summarises the stock level of a product.
type StockStatus string

const (
	StockUntracked StockStatus = "untracked"
	StockOut       StockStatus = "out"
	StockAlert     StockStatus = "alert"
	StockOK        StockStatus = "ok"
)

var hundred = decimal.NewFromInt(100)

// Product represents a product or service in the billing system.
// Stock fields are only meaningful when TrackStock is set.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Reference is optional but unique when set.
	Reference *string `gorm:"size:50;uniqueIndex" json:"reference,omitempty"`
	Name      string  `gorm:"size:200;not null" json:"name"`

	Description string          `gorm:"type:text" json:"description,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	Unit        string          `gorm:"size:20;default:'piece'" json:"unit"`
	Category    string          `gorm:"size:100" json:"category,omitempty"`

	// VATRate is a percentage (20 = 20%). Null falls back to the company default.
	VATRate decimal.NullDecimal `gorm:"type:numeric" json:"vat_rate"`

	TrackStock   bool                `gorm:"default:false" json:"track_stock"`
	CurrentStock decimal.NullDecimal `gorm:"type:numeric" json:"current_stock"`
	MinStock     decimal.NullDecimal `gorm:"type:numeric" json:"min_stock"`

	Active bool `gorm:"default:true" json:"active"`
}

// EffectiveVATRate returns the product VAT rate, or fallback when unset.
func (p *Product) EffectiveVATRate(fallback decimal.Decimal) decimal.Decimal {
	if p.VATRate.Valid {
		return p.VATRate.Decimal
	}
	return fallback
}

// GrossPrice returns the unit price including VAT.
func (p *Product) GrossPrice(fallbackVAT decimal.Decimal) decimal.Decimal {
	rate := p.EffectiveVATRate(fallbackVAT)
	return p.UnitPrice.Add(p.UnitPrice.Mul(rate).Div(hundred))
}

// Stock returns the current stock level, zero when unset.
func (p *Product) Stock() decimal.Decimal {
	if p.CurrentStock.Valid {
		return p.CurrentStock.Decimal
	}
	return decimal.Zero
}

// StockStatus reports out/alert/ok for tracked products.
func (p *Product) StockStatus() StockStatus {
	if !p.TrackStock {
		return StockUntracked
	}
	current := p.Stock()
	if !current.IsPositive() {
		return StockOut
	}
	if p.MinStock.Valid && p.MinStock.Decimal.IsPositive() && current.LessThanOrEqual(p.MinStock.Decimal) {
		return StockAlert
	}
	return StockOK
}

// HasStock reports whether qty units can be taken without going negative.
// Untracked products always have stock.
func (p *Product) HasStock(qty decimal.Decimal) bool {
	if !p.TrackStock {
		return true
	}
	if !p.CurrentStock.Valid {
		return false
	}
	return p.CurrentStock.Decimal.GreaterThanOrEqual(qty)
}
