package services

import (
	"context"
	"time"

	"github.com/diewo77/go-facture/internal/logger"
	"go.uber.org/zap"
)

// Retry runs fn up to attempts times, retrying only on storage conflicts.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		logger.FromContext(ctx).Warn("retrying after storage conflict",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 20 * time.Millisecond):
		}
	}
	return err
}
