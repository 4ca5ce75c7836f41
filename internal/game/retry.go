// internal/game/retry.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/rolecast/internal/database"
)

// RetryPolicy bounds retries of storage calls made while finalizing a round or a game.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is three attempts starting at 200ms, doubling.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond}

func permanent(err error) bool {
	return errors.Is(err, database.ErrNotFound) ||
		errors.Is(err, database.ErrInsufficientCharacters) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs f until it succeeds, fails permanently, the attempts run out or ctx ends.
// f is never called once ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op string, f func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Backoff
	var err error
	for i := 1; i <= attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = f(ctx); err == nil || permanent(err) {
			return err
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
