package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCompanyName is used when the company row is created on first access.
const DefaultCompanyName = "My Company"

// DefaultVATRate is the fallback VAT percentage for a fresh company.
var DefaultVATRate = decimal.NewFromInt(20)

// Company describes the issuing business. Exactly one row exists.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"size:200;not null" json:"name"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Website string `gorm:"size:255" json:"website,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	// Tax & Legal information
	SIRET          string          `gorm:"size:14" json:"siret,omitempty"`
	VATNumber      string          `gorm:"size:20" json:"vat_number,omitempty"`
	DefaultVATRate decimal.Decimal `gorm:"type:numeric;not null" json:"default_vat_rate"`
	LegalNotices   string          `gorm:"type:text" json:"legal_notices,omitempty"`
	Terms          string          `gorm:"type:text" json:"terms,omitempty"`

	// Branding
	LogoPath string `gorm:"size:500" json:"logo_path,omitempty"`
}
