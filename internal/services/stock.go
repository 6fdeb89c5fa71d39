package services

import (
	"context"
	"fmt"

	"github.com/diewo77/go-facture/internal/logger"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockLedger keeps product stock levels in step with an append-only
// movement ledger. It never refuses to go negative; callers get warnings.
type StockLedger struct {
	db *gorm.DB
}

func NewStockLedger(db *gorm.DB) *StockLedger {
	return &StockLedger{db: db}
}

// WithTx returns a ledger bound to tx.
func (l *StockLedger) WithTx(tx *gorm.DB) *StockLedger {
	return &StockLedger{db: tx}
}

// lockProduct loads a product with a row lock.
func lockProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, notFound("product", id, err)
	}
	return &p, nil
}

// move applies a signed delta to a product and appends the ledger row.
func move(tx *gorm.DB, p *models.Product, kind models.MovementKind, delta decimal.Decimal, docID *uint, comment string) (*models.StockMovement, error) {
	before := p.Stock()
	after := before.Add(delta)
	if err := tx.Model(p).Update("current_stock", decimal.NewNullDecimal(after)).Error; err != nil {
		return nil, storageErr("update stock", err)
	}
	p.CurrentStock = decimal.NewNullDecimal(after)

	m := &models.StockMovement{
		ProductID:   p.ID,
		Kind:        kind,
		Quantity:    delta,
		StockBefore: before,
		StockAfter:  after,
		DocumentID:  docID,
		Comment:     comment,
	}
	if err := tx.Create(m).Error; err != nil {
		return nil, storageErr("record stock movement", err)
	}
	metrics.StockMovements.WithLabelValues(string(kind)).Inc()
	return m, nil
}

func stockWarning(p *models.Product) string {
	current := p.Stock()
	switch {
	case current.IsNegative():
		return fmt.Sprintf("stock for %s is negative (%s)", p.Name, current)
	case p.MinStock.Valid && current.LessThanOrEqual(p.MinStock.Decimal):
		return fmt.Sprintf("stock for %s is at or below its minimum (%s <= %s)", p.Name, current, p.MinStock.Decimal)
	}
	return ""
}

// ApplyDocument records one invoice movement per stock-tracked line when
// the document consumes stock. It returns warnings for products that end
// up negative or under their minimum.
func (l *StockLedger) ApplyDocument(ctx context.Context, doc *models.Document) ([]string, error) {
	if !doc.MovesStock() {
		return nil, nil
	}
	var warnings []string
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range doc.Lines {
			if line.ProductID == nil {
				continue
			}
			p, err := lockProduct(tx, *line.ProductID)
			if err != nil {
				return err
			}
			if !p.TrackStock {
				continue
			}
			comment := fmt.Sprintf("Invoice %s", doc.Number)
			if _, err := move(tx, p, models.MovementInvoice, line.Quantity.Neg(), &doc.ID, comment); err != nil {
				return err
			}
			if w := stockWarning(p); w != "" {
				warnings = append(warnings, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		logger.FromContext(ctx).Warn("stock warnings after document",
			zap.String("number", doc.Number),
			zap.Strings("warnings", warnings),
		)
	}
	return warnings, nil
}

// ReverseDocument deletes the movements caused by a document and restores
// the stock they consumed.
func (l *StockLedger) ReverseDocument(ctx context.Context, documentID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var movements []models.StockMovement
		if err := tx.Where("document_id = ?", documentID).Order("id DESC").Find(&movements).Error; err != nil {
			return storageErr("load document movements", err)
		}
		if len(movements) == 0 {
			return nil
		}
		for _, m := range movements {
			p, err := lockProduct(tx, m.ProductID)
			if err != nil {
				return err
			}
			restored := p.Stock().Sub(m.Quantity)
			if err := tx.Model(p).Update("current_stock", decimal.NewNullDecimal(restored)).Error; err != nil {
				return storageErr("restore stock", err)
			}
		}
		if err := tx.Where("document_id = ?", documentID).Delete(&models.StockMovement{}).Error; err != nil {
			return storageErr("delete document movements", err)
		}
		metrics.StockReversals.Add(float64(len(movements)))
		logger.FromContext(ctx).Info("stock movements reversed",
			zap.Uint("document_id", documentID),
			zap.Int("movements", len(movements)),
		)
		return nil
	})
}

// RecordInput describes a manual stock movement. For in and out, Quantity
// is a positive magnitude; for adjustment it is a signed delta.
type RecordInput struct {
	ProductID uint
	Kind      models.MovementKind
	Quantity  decimal.Decimal
	Comment   string
}

// Record applies a manual movement to a stock-tracked product.
func (l *StockLedger) Record(ctx context.Context, in RecordInput) (*models.StockMovement, []string, error) {
	v := validation.Violations{}
	var delta decimal.Decimal
	switch in.Kind {
	case models.MovementIn:
		validation.PositiveDecimal("quantity", in.Quantity, v)
		delta = in.Quantity
	case models.MovementOut:
		validation.PositiveDecimal("quantity", in.Quantity, v)
		delta = in.Quantity.Neg()
	case models.MovementAdjustment:
		validation.NonZeroDecimal("quantity", in.Quantity, v)
		delta = in.Quantity
	default:
		v["kind"] = "invalid_choice"
	}
	if !v.Empty() {
		return nil, nil, &ValidationError{Violations: v}
	}

	var (
		m        *models.StockMovement
		warnings []string
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProduct(tx, in.ProductID)
		if err != nil {
			return err
		}
		if !p.TrackStock {
			return &ValidationError{Violations: validation.Violations{"product_id": "stock_not_tracked"}}
		}
		m, err = move(tx, p, in.Kind, delta, nil, in.Comment)
		if err != nil {
			return err
		}
		if w := stockWarning(p); w != "" {
			warnings = append(warnings, w)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return m, warnings, nil
}

// Movements returns the latest movements of a product, newest first.
func (l *StockLedger) Movements(ctx context.Context, productID uint, limit int) ([]models.StockMovement, error) {
	var out []models.StockMovement
	q := l.db.WithContext(ctx).Where("product_id = ?", productID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr("list movements", err)
	}
	return out, nil
}

// DocumentMovements returns the movements caused by a document.
func (l *StockLedger) DocumentMovements(ctx context.Context, documentID uint) ([]models.StockMovement, error) {
	var out []models.StockMovement
	if err := l.db.WithContext(ctx).Where("document_id = ?", documentID).Order("id").Find(&out).Error; err != nil {
		return nil, storageErr("list document movements", err)
	}
	return out, nil
}
