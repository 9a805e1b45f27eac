package orchestrator

import (
	"context"
	"time"

	"github.com/calcforge/calcforge/internal/driver"
)

// retryOp runs op up to attempts times with a fixed delay between tries.
// The retry budget is deliberately small and flat; there is no backoff
// growth. Fatal session loss and caller cancellation stop retries at once.
func retryOp(ctx context.Context, attempts int, delay time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				err = cerr
			}
			return err
		}
		if err = op(); err == nil {
			return nil
		}
		if driver.IsFatal(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}
