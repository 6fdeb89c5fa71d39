package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentKind tags a document as an invoice or a quote.
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindQuote   DocumentKind = "quote"
)

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	return k == KindInvoice || k == KindQuote
}

// DocumentStatus is the lifecycle state of a document. The set of
// reachable statuses depends on the document kind.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusSent     DocumentStatus = "sent"
	StatusPaid     DocumentStatus = "paid"
	StatusAccepted DocumentStatus = "accepted"
	StatusRefused  DocumentStatus = "refused"
)

// transitions lists the allowed forward moves per kind.
var transitions = map[DocumentKind]map[DocumentStatus][]DocumentStatus{
	KindInvoice: {
		StatusDraft: {StatusSent},
		StatusSent:  {StatusPaid},
	},
	KindQuote: {
		StatusDraft: {StatusSent},
		StatusSent:  {StatusAccepted, StatusRefused},
	},
}

// HasStatus reports whether s belongs to the status set of kind k.
func (k DocumentKind) HasStatus(s DocumentStatus) bool {
	switch k {
	case KindInvoice:
		return s == StatusDraft || s == StatusSent || s == StatusPaid
	case KindQuote:
		return s == StatusDraft || s == StatusSent || s == StatusAccepted || s == StatusRefused
	}
	return false
}

// CanTransition reports whether a document of kind k may move from one
// status to another.
func (k DocumentKind) CanTransition(from, to DocumentStatus) bool {
	for _, next := range transitions[k][from] {
		if next == to {
			return true
		}
	}
	return false
}

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFlat       DiscountKind = "flat"
)

// ParseDiscountKind normalises a discount kind. The empty string means
// percentage.
func ParseDiscountKind(s string) (DiscountKind, bool) {
	switch DiscountKind(s) {
	case "", DiscountPercentage:
		return DiscountPercentage, true
	case DiscountFlat:
		return DiscountFlat, true
	}
	return "", false
}

// DiscountAmount returns the amount removed from base by a discount of the
// given value and kind. Oversized discounts are not clamped.
func DiscountAmount(base, value decimal.Decimal, kind DiscountKind) decimal.Decimal {
	if kind == DiscountFlat {
		return value
	}
	return base.Mul(value).Div(hundred)
}

// LineTotal computes the net amount of a line:
// quantity*unitPrice minus the line discount.
func LineTotal(quantity, unitPrice, discount decimal.Decimal, kind DiscountKind) decimal.Decimal {
	subtotal := quantity.Mul(unitPrice)
	return subtotal.Sub(DiscountAmount(subtotal, discount, kind))
}

// Document is an invoice or a quote. Totals are cached and only ever
// written by RecalculateTotals.
type Document struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Kind   DocumentKind `gorm:"size:10;not null;index" json:"kind"`
	Number string       `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Prefix string       `gorm:"size:10" json:"prefix"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status DocumentStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	// Document-level discount
	Discount     decimal.Decimal `gorm:"type:numeric;not null" json:"discount"`
	DiscountKind DiscountKind    `gorm:"size:15;not null;default:'percentage'" json:"discount_kind"`

	// Cached totals
	TotalNet   decimal.Decimal `gorm:"type:numeric;not null" json:"total_net"`
	TotalVAT   decimal.Decimal `gorm:"type:numeric;not null" json:"total_vat"`
	TotalGross decimal.Decimal `gorm:"type:numeric;not null" json:"total_gross"`

	Notes        string `gorm:"type:text" json:"notes,omitempty"`
	PaymentTerms string `gorm:"type:text" json:"payment_terms,omitempty"`

	// ConvertedToID points from a quote to the invoice created from it.
	ConvertedToID *uint `gorm:"index" json:"converted_to_id,omitempty"`

	Lines []LineItem `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lines"`

	// Warnings are surfaced to the caller and never persisted.
	Warnings []string `gorm:"-" json:"warnings,omitempty"`
}

// IsDraft returns true if the document is in draft status.
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// IsTerminal returns true once no further transition is possible.
func (d *Document) IsTerminal() bool {
	return len(transitions[d.Kind][d.Status]) == 0
}

// CanEdit returns true if the document content may still change.
// Sent invoices remain editable; paid invoices and decided quotes do not.
func (d *Document) CanEdit() bool {
	switch d.Kind {
	case KindInvoice:
		return d.Status != StatusPaid
	case KindQuote:
		return d.Status == StatusDraft || d.Status == StatusSent
	}
	return false
}

// MovesStock reports whether the lines of this document consume stock.
func (d *Document) MovesStock() bool {
	return d.Kind == KindInvoice && d.Status != StatusDraft
}

// CanConvert reports whether a quote may be turned into an invoice.
func (d *Document) CanConvert() bool {
	return d.Kind == KindQuote && d.Status != StatusRefused
}

// Totals is the output of the totals engine.
type Totals struct {
	LinesNet decimal.Decimal
	Discount decimal.Decimal
	Net      decimal.Decimal
	VAT      decimal.Decimal
	Gross    decimal.Decimal
}

// ComputeTotals aggregates already-computed line totals and applies the
// document discount. When a positive discount applies, the nominal VAT is
// scaled by total_net/lines_net so every rate absorbs its share.
func ComputeTotals(lines []LineItem, discount decimal.Decimal, kind DiscountKind) Totals {
	var t Totals
	nominalVAT := decimal.Zero
	for _, l := range lines {
		t.LinesNet = t.LinesNet.Add(l.TotalNet)
		nominalVAT = nominalVAT.Add(l.TotalNet.Mul(l.VATRate).Div(hundred))
	}
	t.Discount = DiscountAmount(t.LinesNet, discount, kind)
	t.Net = t.LinesNet.Sub(t.Discount)
	t.VAT = scaleVAT(nominalVAT, t)
	t.Gross = t.Net.Add(t.VAT)
	return t
}

func scaleVAT(nominal decimal.Decimal, t Totals) decimal.Decimal {
	if t.Discount.IsPositive() && t.LinesNet.IsPositive() {
		return nominal.Mul(t.Net).Div(t.LinesNet)
	}
	return nominal
}

// RecalculateTotals recomputes every line total, then the document totals,
// and stores them on d.
func (d *Document) RecalculateTotals() Totals {
	for i := range d.Lines {
		d.Lines[i].Recalculate()
	}
	t := ComputeTotals(d.Lines, d.Discount, d.DiscountKind)
	d.TotalNet = t.Net
	d.TotalVAT = t.VAT
	d.TotalGross = t.Gross
	return t
}

// VATBucket is the share of a document's totals carried by one VAT rate.
type VATBucket struct {
	Rate decimal.Decimal `json:"rate"`
	Net  decimal.Decimal `json:"net"`
	VAT  decimal.Decimal `json:"vat"`
}

// VATBreakdown groups lines by VAT rate, after the document discount has
// been spread proportionally. Buckets are sorted by rate.
func (d *Document) VATBreakdown() []VATBucket {
	var buckets []VATBucket
	for _, l := range d.Lines {
		idx := -1
		for i := range buckets {
			if buckets[i].Rate.Equal(l.VATRate) {
				idx = i
				break
			}
		}
		if idx < 0 {
			buckets = append(buckets, VATBucket{Rate: l.VATRate})
			idx = len(buckets) - 1
		}
		buckets[idx].Net = buckets[idx].Net.Add(l.TotalNet)
		buckets[idx].VAT = buckets[idx].VAT.Add(l.TotalNet.Mul(l.VATRate).Div(hundred))
	}

	t := ComputeTotals(d.Lines, d.Discount, d.DiscountKind)
	if t.Discount.IsPositive() && t.LinesNet.IsPositive() {
		for i := range buckets {
			buckets[i].Net = buckets[i].Net.Mul(t.Net).Div(t.LinesNet)
			buckets[i].VAT = buckets[i].VAT.Mul(t.Net).Div(t.LinesNet)
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Rate.LessThan(buckets[j].Rate) })
	return buckets
}

// LineItem represents a line item on a document.
type LineItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DocumentID uint `gorm:"not null;uniqueIndex:idx_line_document_position" json:"document_id"`
	// Position orders lines for display and is unique per document.
	Position int `gorm:"not null;uniqueIndex:idx_line_document_position" json:"position"`

	// Optional product reference (can be null for free-text lines)
	ProductID *uint    `gorm:"index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"-"`

	Designation  string          `gorm:"type:text;not null" json:"designation"`
	Quantity     decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	VATRate      decimal.Decimal `gorm:"type:numeric;not null" json:"vat_rate"`
	Discount     decimal.Decimal `gorm:"type:numeric;not null" json:"discount"`
	DiscountKind DiscountKind    `gorm:"size:15;not null;default:'percentage'" json:"discount_kind"`

	TotalNet decimal.Decimal `gorm:"type:numeric;not null" json:"total_net"`
}

// Recalculate stores and returns the line's net total.
func (l *LineItem) Recalculate() decimal.Decimal {
	l.TotalNet = LineTotal(l.Quantity, l.UnitPrice, l.Discount, l.DiscountKind)
	return l.TotalNet
}

// VATAmount returns the nominal VAT of the line, before any document discount.
func (l *LineItem) VATAmount() decimal.Decimal {
	return l.TotalNet.Mul(l.VATRate).Div(hundred)
}
