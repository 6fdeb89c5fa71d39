package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	MovementIn         MovementKind = "in"
	MovementOut        MovementKind = "out"
	MovementAdjustment MovementKind = "adjustment"
	MovementInvoice    MovementKind = "invoice"
)

// ErrMovementImmutable is returned when something tries to update a ledger row.
var ErrMovementImmutable = errors.New("stock_movement_immutable")

// StockMovement is an append-only ledger row. Quantity is signed: negative
// when stock leaves.
type StockMovement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`

	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"-"`

	Kind        MovementKind    `gorm:"size:20;not null" json:"kind"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	StockBefore decimal.Decimal `gorm:"type:numeric;not null" json:"stock_before"`
	StockAfter  decimal.Decimal `gorm:"type:numeric;not null" json:"stock_after"`

	DocumentID *uint     `gorm:"index" json:"document_id,omitempty"`
	Document   *Document `gorm:"foreignKey:DocumentID" json:"-"`

	Comment string `gorm:"type:text" json:"comment,omitempty"`
}

// BeforeUpdate rejects any update: movements are reversed by deletion or
// by a compensating row.
func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return ErrMovementImmutable
}
