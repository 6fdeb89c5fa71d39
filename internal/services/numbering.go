package services

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-facture/internal/logger"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Parameter keys used by the allocator.
const (
	KeyInvoiceCounter = "invoice_number_counter"
	KeyQuoteCounter   = "quote_number_counter"
	KeyInvoicePrefix  = "invoice_prefix"
	KeyQuotePrefix    = "quote_prefix"

	DefaultInvoicePrefix = "FAC"
	DefaultQuotePrefix   = "DEV"
)

// Allocation is a freshly issued document number.
type Allocation struct {
	Number   string
	Prefix   string
	Year     int
	Sequence int64
}

// FormatNumber renders PREFIX-YYYY-NNNNN.
func FormatNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// NumberAllocator issues document numbers from the counter store.
// Every call burns a number: callers allocate exactly once per document.
type NumberAllocator struct {
	counters *CounterStore
	now      func() time.Time
	prefixes map[models.DocumentKind]string
}

type AllocatorOption func(*NumberAllocator)

// WithClock overrides the clock used to pick the year.
func WithClock(now func() time.Time) AllocatorOption {
	return func(a *NumberAllocator) { a.now = now }
}

// WithDefaultPrefixes overrides the prefixes used when none is stored.
func WithDefaultPrefixes(invoice, quote string) AllocatorOption {
	return func(a *NumberAllocator) {
		if invoice != "" {
			a.prefixes[models.KindInvoice] = invoice
		}
		if quote != "" {
			a.prefixes[models.KindQuote] = quote
		}
	}
}

func NewNumberAllocator(counters *CounterStore, opts ...AllocatorOption) *NumberAllocator {
	a := &NumberAllocator{
		counters: counters,
		now:      time.Now,
		prefixes: map[models.DocumentKind]string{
			models.KindInvoice: DefaultInvoicePrefix,
			models.KindQuote:   DefaultQuotePrefix,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithTx returns an allocator whose counter store is bound to tx.
func (a *NumberAllocator) WithTx(tx *gorm.DB) *NumberAllocator {
	cp := *a
	cp.counters = a.counters.WithTx(tx)
	return &cp
}

func keysFor(kind models.DocumentKind) (prefixKey, counterKey string) {
	if kind == models.KindQuote {
		return KeyQuotePrefix, KeyQuoteCounter
	}
	return KeyInvoicePrefix, KeyInvoiceCounter
}

// Allocate returns the next number for kind.
func (a *NumberAllocator) Allocate(ctx context.Context, kind models.DocumentKind) (Allocation, error) {
	if !kind.Valid() {
		return Allocation{}, &ValidationError{Violations: map[string]string{"kind": "invalid_choice"}}
	}
	prefixKey, counterKey := keysFor(kind)

	prefix, err := a.counters.Get(ctx, prefixKey, a.prefixes[kind])
	if err != nil {
		return Allocation{}, err
	}
	seq, err := a.counters.Next(ctx, counterKey)
	if err != nil {
		return Allocation{}, err
	}

	year := a.now().Year()
	alloc := Allocation{
		Number:   FormatNumber(prefix, year, seq),
		Prefix:   prefix,
		Year:     year,
		Sequence: seq,
	}
	metrics.NumbersAllocated.WithLabelValues(string(kind)).Inc()
	logger.FromContext(ctx).Debug("document number allocated",
		zap.String("kind", string(kind)),
		zap.String("number", alloc.Number),
	)
	return alloc, nil
}
