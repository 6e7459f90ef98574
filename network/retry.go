package network

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// sleepFunc is replaced in tests to avoid real waits.
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffFor returns the wait before retry number attempt (0-based): base
// doubled per attempt, capped at max.
func backoffFor(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// statusError records a non-success HTTP status.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return http.StatusText(e.code) + ": " + e.body
}

// retryable reports whether err is worth another attempt: transport failures,
// per-attempt timeouts, 5xx and 429. The caller's own cancellation is not.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return errors.Is(err, ErrConnectionFailed)
}
