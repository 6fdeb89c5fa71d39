package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/diewo77/go-facture/internal/logger"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPaymentTermDays is the gap between issue and due date when no due
// date is given.
const DefaultPaymentTermDays = 30

var maxVATRate = decimal.NewFromInt(100)

var (
	documentKinds = []string{string(models.KindInvoice), string(models.KindQuote)}
	discountKinds = []string{"", string(models.DiscountPercentage), string(models.DiscountFlat)}

	// Accepted and refused are reached through SetStatus or conversion only.
	creatableStatuses = map[models.DocumentKind][]string{
		models.KindInvoice: {string(models.StatusDraft), string(models.StatusSent), string(models.StatusPaid)},
		models.KindQuote:   {string(models.StatusDraft), string(models.StatusSent)},
	}
)

// LineInput describes one line of a document. Designation, UnitPrice and
// VATRate default from the product when ProductID is set.
type LineInput struct {
	ProductID    *uint               `json:"product_id,omitempty"`
	Designation  string              `json:"designation"`
	Quantity     decimal.Decimal     `json:"quantity"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	VATRate      decimal.NullDecimal `json:"vat_rate"`
	Discount     decimal.Decimal     `json:"discount"`
	DiscountKind string              `json:"discount_kind"`
}

// DocumentInput holds the editable fields of a document.
type DocumentInput struct {
	ClientID     uint
	IssueDate    time.Time
	DueDate      *time.Time
	Discount     decimal.Decimal
	DiscountKind string
	Notes        string
	PaymentTerms string
	Lines        []LineInput
}

// CreateInput adds what is fixed at creation time.
type CreateInput struct {
	Kind   models.DocumentKind
	Status models.DocumentStatus
	DocumentInput
}

// Snapshot is the read model handed to renderers and exporters.
type Snapshot struct {
	Document *models.Document   `json:"document"`
	Client   *models.Client     `json:"client"`
	Company  *models.Company    `json:"company"`
	VAT      []models.VATBucket `json:"vat_breakdown"`
}

// DocumentService runs every document mutation as one transaction:
// reverse prior stock, replace lines, recompute totals, apply stock, commit.
type DocumentService struct {
	db       *gorm.DB
	numbers  *NumberAllocator
	stock    *StockLedger
	company  *CompanyService
	termDays int
	now      func() time.Time
}

type DocumentOption func(*DocumentService)

// WithPaymentTermDays sets the default due date offset.
func WithPaymentTermDays(days int) DocumentOption {
	return func(s *DocumentService) { s.termDays = days }
}

// WithNow overrides the clock used for default dates.
func WithNow(now func() time.Time) DocumentOption {
	return func(s *DocumentService) { s.now = now }
}

func NewDocumentService(db *gorm.DB, numbers *NumberAllocator, stock *StockLedger, company *CompanyService, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{
		db:       db,
		numbers:  numbers,
		stock:    stock,
		company:  company,
		termDays: DefaultPaymentTermDays,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DocumentService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateInput(in DocumentInput) validation.Violations {
	v := validation.Violations{}
	if in.ClientID == 0 {
		v["client_id"] = "required"
	}
	validation.OneOf("discount_kind", in.DiscountKind, discountKinds, v)
	validation.NonNegativeDecimal("discount", in.Discount, v)
	if in.DueDate != nil && !in.IssueDate.IsZero() && in.DueDate.Before(in.IssueDate) {
		v["due_date"] = "before_issue_date"
	}
	for i, l := range in.Lines {
		field := func(name string) string { return "lines[" + strconv.Itoa(i) + "]." + name }
		if l.ProductID == nil {
			validation.Required(field("designation"), l.Designation, v)
			if !l.UnitPrice.Valid {
				v[field("unit_price")] = "required"
			}
		}
		validation.OneOf(field("discount_kind"), l.DiscountKind, discountKinds, v)
		validation.NonNegativeDecimal(field("discount"), l.Discount, v)
		if l.VATRate.Valid {
			validation.RangeDecimal(field("vat_rate"), l.VATRate.Decimal, decimal.Zero, maxVATRate, v)
		}
	}
	return v
}

// buildLines resolves product defaults and computes each line total.
func (s *DocumentService) buildLines(ctx context.Context, tx *gorm.DB, inputs []LineInput) ([]models.LineItem, error) {
	var company *models.Company
	lines := make([]models.LineItem, 0, len(inputs))
	for i, in := range inputs {
		kind, _ := models.ParseDiscountKind(in.DiscountKind)
		line := models.LineItem{
			Position:     i + 1,
			ProductID:    in.ProductID,
			Designation:  in.Designation,
			Quantity:     in.Quantity,
			Discount:     in.Discount,
			DiscountKind: kind,
		}

		var product *models.Product
		if in.ProductID != nil {
			var p models.Product
			if err := tx.First(&p, *in.ProductID).Error; err != nil {
				return nil, notFound("product", *in.ProductID, err)
			}
			product = &p
			if line.Designation == "" {
				line.Designation = p.Name
			}
		}

		switch {
		case in.UnitPrice.Valid:
			line.UnitPrice = in.UnitPrice.Decimal
		case product != nil:
			line.UnitPrice = product.UnitPrice
		}

		switch {
		case in.VATRate.Valid:
			line.VATRate = in.VATRate.Decimal
		case product != nil && product.VATRate.Valid:
			line.VATRate = product.VATRate.Decimal
		default:
			if company == nil {
				c, err := s.company.WithTx(tx).Get(ctx)
				if err != nil {
					return nil, err
				}
				company = c
			}
			line.VATRate = company.DefaultVATRate
		}

		line.Recalculate()
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *DocumentService) applyFields(doc *models.Document, in DocumentInput) {
	kind, _ := models.ParseDiscountKind(in.DiscountKind)
	doc.ClientID = in.ClientID
	doc.IssueDate = in.IssueDate
	if doc.IssueDate.IsZero() {
		doc.IssueDate = s.today()
	}
	if in.DueDate != nil {
		doc.DueDate = *in.DueDate
	} else {
		doc.DueDate = doc.IssueDate.AddDate(0, 0, s.termDays)
	}
	doc.Discount = in.Discount
	doc.DiscountKind = kind
	doc.Notes = in.Notes
	doc.PaymentTerms = in.PaymentTerms
}

// ensureClient checks that the client exists and, when requireActive is
// set, that it has not been deactivated.
func ensureClient(tx *gorm.DB, id uint, requireActive bool) error {
	var c models.Client
	if err := tx.Select("id", "active").First(&c, id).Error; err != nil {
		return notFound("client", id, err)
	}
	if requireActive && !c.Active {
		return &ValidationError{Violations: validation.Violations{"client_id": "client_inactive"}}
	}
	return nil
}

// lockDocument loads a document with a row lock, then its ordered lines.
func lockDocument(tx *gorm.DB, id uint) (*models.Document, error) {
	var doc models.Document
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doc, id).Error; err != nil {
		return nil, notFound("document", id, err)
	}
	if err := tx.Where("document_id = ?", id).Order("position").Find(&doc.Lines).Error; err != nil {
		return nil, storageErr("load lines", err)
	}
	return &doc, nil
}

// Create allocates a number, writes the document and its lines with
// computed totals and, for non-draft invoices, consumes stock.
func (s *DocumentService) Create(ctx context.Context, in CreateInput) (*models.Document, error) {
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	v := validateInput(in.DocumentInput)
	validation.OneOf("kind", string(in.Kind), documentKinds, v)
	if allowed, ok := creatableStatuses[in.Kind]; ok {
		validation.OneOf("status", string(in.Status), allowed, v)
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var doc *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureClient(tx, in.ClientID, true); err != nil {
			return err
		}
		lines, err := s.buildLines(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		alloc, err := s.numbers.WithTx(tx).Allocate(ctx, in.Kind)
		if err != nil {
			return err
		}

		doc = &models.Document{
			Kind:   in.Kind,
			Number: alloc.Number,
			Prefix: alloc.Prefix,
			Status: in.Status,
			Lines:  lines,
		}
		s.applyFields(doc, in.DocumentInput)
		if doc.Status == models.StatusPaid {
			paid := s.now()
			doc.PaidDate = &paid
		}
		doc.RecalculateTotals()
		if err := tx.Create(doc).Error; err != nil {
			return storageErr("create document", err)
		}

		warnings, err := s.stock.WithTx(tx).ApplyDocument(ctx, doc)
		if err != nil {
			return err
		}
		doc.Warnings = warnings
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DocumentsCreated.WithLabelValues(string(doc.Kind), "direct").Inc()
	logger.FromContext(ctx).Info("document created",
		zap.Uint("id", doc.ID),
		zap.String("kind", string(doc.Kind)),
		zap.String("number", doc.Number),
		zap.String("status", string(doc.Status)),
		zap.String("total_gross", doc.TotalGross.String()),
	)
	return doc, nil
}

// Edit replaces the editable fields and lines of a document. The number,
// kind and status never change here.
func (s *DocumentService) Edit(ctx context.Context, id uint, in DocumentInput) (*models.Document, error) {
	if v := validateInput(in); !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var doc *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = lockDocument(tx, id)
		if err != nil {
			return err
		}
		if !doc.CanEdit() {
			return &StateError{Kind: doc.Kind, Status: doc.Status, Action: "edit"}
		}
		// A document may stay with its deactivated client but not move to one.
		if err := ensureClient(tx, in.ClientID, in.ClientID != doc.ClientID); err != nil {
			return err
		}
		lines, err := s.buildLines(ctx, tx, in.Lines)
		if err != nil {
			return err
		}

		ledger := s.stock.WithTx(tx)
		if doc.MovesStock() {
			if err := ledger.ReverseDocument(ctx, doc.ID); err != nil {
				return err
			}
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.LineItem{}).Error; err != nil {
			return storageErr("delete lines", err)
		}
		for i := range lines {
			lines[i].DocumentID = doc.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return storageErr("create lines", err)
			}
		}

		s.applyFields(doc, in)
		doc.Lines = lines
		doc.RecalculateTotals()
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return storageErr("save document", err)
		}

		warnings, err := ledger.ApplyDocument(ctx, doc)
		if err != nil {
			return err
		}
		if doc.Kind == models.KindInvoice && doc.Status == models.StatusSent {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("invoice %s was already sent; the client holds the previous version", doc.Number))
		}
		doc.Warnings = append(doc.Warnings, warnings...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("document edited",
		zap.Uint("id", doc.ID),
		zap.String("number", doc.Number),
		zap.Int("lines", len(doc.Lines)),
		zap.Strings("warnings", doc.Warnings),
	)
	return doc, nil
}

// SetStatus moves a document along its lifecycle. Leaving draft makes an
// invoice consume stock; moving to paid stamps the paid date.
func (s *DocumentService) SetStatus(ctx context.Context, id uint, status models.DocumentStatus) (*models.Document, error) {
	var (
		doc  *models.Document
		from models.DocumentStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = lockDocument(tx, id)
		if err != nil {
			return err
		}
		from = doc.Status
		if !doc.Kind.HasStatus(status) {
			return &ValidationError{Violations: validation.Violations{"status": "invalid_choice"}}
		}
		if status == doc.Status {
			return nil
		}
		if !doc.Kind.CanTransition(doc.Status, status) {
			return &StateError{Kind: doc.Kind, Status: doc.Status, Action: "move to " + string(status)}
		}

		wasMoving := doc.MovesStock()
		doc.Status = status
		if status == models.StatusPaid {
			paid := s.now()
			doc.PaidDate = &paid
		}
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return storageErr("save status", err)
		}

		ledger := s.stock.WithTx(tx)
		switch {
		case !wasMoving && doc.MovesStock():
			warnings, err := ledger.ApplyDocument(ctx, doc)
			if err != nil {
				return err
			}
			doc.Warnings = warnings
		case wasMoving && !doc.MovesStock():
			return ledger.ReverseDocument(ctx, doc.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != doc.Status {
		metrics.StatusTransitions.WithLabelValues(string(doc.Kind), string(from), string(doc.Status)).Inc()
		logger.FromContext(ctx).Info("document status changed",
			zap.String("number", doc.Number),
			zap.String("from", string(from)),
			zap.String("to", string(doc.Status)),
		)
	}
	return doc, nil
}

// ConvertQuoteToInvoice copies a quote into a new draft invoice with its own
// number, then marks the quote accepted. Stock is untouched.
func (s *DocumentService) ConvertQuoteToInvoice(ctx context.Context, quoteID uint) (*models.Document, error) {
	var invoice *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := lockDocument(tx, quoteID)
		if err != nil {
			return err
		}
		if !quote.CanConvert() {
			return &StateError{Kind: quote.Kind, Status: quote.Status, Action: "convert"}
		}

		alloc, err := s.numbers.WithTx(tx).Allocate(ctx, models.KindInvoice)
		if err != nil {
			return err
		}
		issue := s.today()
		invoice = &models.Document{
			Kind:         models.KindInvoice,
			Number:       alloc.Number,
			Prefix:       alloc.Prefix,
			Status:       models.StatusDraft,
			ClientID:     quote.ClientID,
			IssueDate:    issue,
			DueDate:      issue.AddDate(0, 0, s.termDays),
			Discount:     quote.Discount,
			DiscountKind: quote.DiscountKind,
			Notes:        quote.Notes,
			PaymentTerms: quote.PaymentTerms,
		}
		for _, l := range quote.Lines {
			invoice.Lines = append(invoice.Lines, models.LineItem{
				Position:     l.Position,
				ProductID:    l.ProductID,
				Designation:  l.Designation,
				Quantity:     l.Quantity,
				UnitPrice:    l.UnitPrice,
				VATRate:      l.VATRate,
				Discount:     l.Discount,
				DiscountKind: l.DiscountKind,
			})
		}
		invoice.RecalculateTotals()
		if err := tx.Create(invoice).Error; err != nil {
			return storageErr("create invoice", err)
		}
		if quote.ConvertedToID != nil {
			invoice.Warnings = append(invoice.Warnings,
				fmt.Sprintf("quote %s had already been converted (invoice id %d)", quote.Number, *quote.ConvertedToID))
		}

		quote.Status = models.StatusAccepted
		quote.ConvertedToID = &invoice.ID
		if err := tx.Omit(clause.Associations).Save(quote).Error; err != nil {
			return storageErr("accept quote", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DocumentsCreated.WithLabelValues(string(models.KindInvoice), "conversion").Inc()
	logger.FromContext(ctx).Info("quote converted",
		zap.Uint("quote_id", quoteID),
		zap.String("invoice_number", invoice.Number),
	)
	return invoice, nil
}

// Delete removes a draft document and its lines. Its number is not reused.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(tx, id)
		if err != nil {
			return err
		}
		if !doc.IsDraft() {
			return &StateError{Kind: doc.Kind, Status: doc.Status, Action: "delete"}
		}
		if err := tx.Where("document_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return storageErr("delete lines", err)
		}
		return storageErr("delete document", tx.Delete(doc).Error)
	})
}

// Get returns a document with its client and ordered lines.
func (s *DocumentService) Get(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&doc, id).Error
	if err != nil {
		return nil, notFound("document", id, err)
	}
	return &doc, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Kind     models.DocumentKind
	Status   models.DocumentStatus
	ClientID uint
}

// List returns documents without lines, newest first.
func (s *DocumentService) List(ctx context.Context, f ListFilter) ([]models.Document, error) {
	q := s.db.WithContext(ctx).Model(&models.Document{})
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	var docs []models.Document
	if err := q.Order("id DESC").Find(&docs).Error; err != nil {
		return nil, storageErr("list documents", err)
	}
	return docs, nil
}

// Snapshot returns a document together with its client, the company and
// the VAT breakdown.
func (s *DocumentService) Snapshot(ctx context.Context, id uint) (*Snapshot, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	company, err := s.company.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Document: doc,
		Client:   doc.Client,
		Company:  company,
		VAT:      doc.VATBreakdown(),
	}, nil
}
