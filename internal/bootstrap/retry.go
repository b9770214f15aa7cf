// Package bootstrap holds the start-up plumbing shared by the API server, the
// background worker and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// WithRetry runs fn until it succeeds or attempts are exhausted, backing off
// quadratically from baseDelay.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
