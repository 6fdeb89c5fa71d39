package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/validation"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ValidationError reports malformed input. Nothing has been written.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Violations.String()
}

// StateError reports an action the document lifecycle forbids.
type StateError struct {
	Kind   models.DocumentKind
	Status models.DocumentStatus
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Kind, e.Status)
}

// NotFoundError reports a missing client, product or document.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConcurrencyError reports a storage conflict. The whole operation can be retried.
type ConcurrencyError struct {
	Op  string
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s: concurrent update: %v", e.Op, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }

// ErrClientHasDocuments is returned when deleting a client that still owns documents.
var ErrClientHasDocuments = errors.New("client_has_documents")

// Postgres SQLSTATE codes treated as retryable.
var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"23505": true, // unique_violation
}

// IsRetryable reports whether err is a storage conflict worth retrying.
func IsRetryable(err error) bool {
	var ce *ConcurrencyError
	if errors.As(err, &ce) {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCodes[pgErr.Code]
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// storageErr wraps a raw storage error, promoting conflicts to ConcurrencyError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	if IsRetryable(err) {
		metrics.ConcurrencyConflicts.WithLabelValues(op).Inc()
		return &ConcurrencyError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTaxonomy(err error) bool {
	var (
		ve *ValidationError
		se *StateError
		ne *NotFoundError
		ce *ConcurrencyError
	)
	return errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &ne) || errors.As(err, &ce)
}

// notFound turns gorm.ErrRecordNotFound into a NotFoundError.
func notFound(entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return storageErr("load "+entity, err)
}
