package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterStore is a durable key/value store backed by the parameters table.
// Numeric counters are only advanced through Next.
type CounterStore struct {
	db *gorm.DB
}

func NewCounterStore(db *gorm.DB) *CounterStore {
	return &CounterStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *CounterStore) WithTx(tx *gorm.DB) *CounterStore {
	return &CounterStore{db: tx}
}

// Get returns the stored value for key, or def when the key is absent.
func (s *CounterStore) Get(ctx context.Context, key, def string) (string, error) {
	var p models.Parameter
	err := s.db.WithContext(ctx).Where("param_key = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return "", storageErr("get parameter "+key, err)
	}
	return p.Value, nil
}

// Set upserts key. An empty description keeps the existing one.
func (s *CounterStore) Set(ctx context.Context, key, value, description string) error {
	p := models.Parameter{Key: key, Value: value, Description: description}
	updates := []string{"value", "updated_at"}
	if description != "" {
		updates = append(updates, "description")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "param_key"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&p).Error
	return storageErr("set parameter "+key, err)
}

// Next returns the current value of the counter (1 when absent) and stores
// the following one. The row is locked for the duration of the enclosing
// transaction so concurrent callers never see the same value.
func (s *CounterStore) Next(ctx context.Context, key string) (int64, error) {
	var current int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Parameter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("param_key = ?", key).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current = 1
			// A concurrent insert of the same key fails on the unique index.
			return tx.Create(&models.Parameter{Key: key, Value: "2"}).Error
		}
		if err != nil {
			return err
		}

		current, err = strconv.ParseInt(p.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("counter %s holds non-numeric value %q", key, p.Value)
		}
		return tx.Model(&models.Parameter{}).
			Where("id = ?", p.ID).
			Update("value", strconv.FormatInt(current+1, 10)).Error
	})
	if err != nil {
		return 0, storageErr("next "+key, err)
	}
	return current, nil
}
