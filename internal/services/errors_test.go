package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/diewo77/go-facture/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStorageErr(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantConcurrent bool
	}{
		{"duplicate key", gorm.ErrDuplicatedKey, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain error", errors.New("disk full"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageErr("op", tt.err)
			var ce *ConcurrencyError
			assert.Equal(t, tt.wantConcurrent, errors.As(err, &ce))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, storageErr("op", nil))
}

func TestStorageErr_KeepsTaxonomy(t *testing.T) {
	se := &StateError{Kind: models.KindInvoice, Status: models.StatusPaid, Action: "edit"}
	assert.Same(t, se, storageErr("op", se))
}

func TestNotFound(t *testing.T) {
	err := notFound("client", 7, gorm.ErrRecordNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "client 7 not found", nf.Error())
}

func TestErrorMessages(t *testing.T) {
	se := &StateError{Kind: models.KindQuote, Status: models.StatusRefused, Action: "convert"}
	assert.Equal(t, "cannot convert quote in status refused", se.Error())

	ve := &ValidationError{Violations: map[string]string{"kind": "invalid_choice"}}
	assert.Equal(t, "validation failed: kind=invalid_choice", ve.Error())
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, func() error {
		calls++
		if calls < 3 {
			return &ConcurrencyError{Op: "next", Err: gorm.ErrDuplicatedKey}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	boom := errors.New("boom")
	err = Retry(ctx, 3, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-retryable errors are returned at once")

	calls = 0
	err = Retry(ctx, 2, func() error {
		calls++
		return &ConcurrencyError{Op: "next", Err: gorm.ErrDuplicatedKey}
	})
	var ce *ConcurrencyError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, calls)
}
