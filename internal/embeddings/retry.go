package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// withRetry runs fn up to maxAttempts times with exponential backoff between
// attempts. transient decides which failures are retried; everything else
// returns immediately.
func withRetry(ctx context.Context, fn func() error, transient func(error) bool) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, err)
}

// httpStatusError carries a non-200 backend response so retry classification
// can see the status code.
type httpStatusError struct {
	provider string
	status   int
	body     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.provider, e.status, e.body)
}

// isTransientHTTP reports whether a backend failure is worth retrying: rate
// limits, server errors, and transport failures. Malformed responses are
// permanent.
func isTransientHTTP(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status == http.StatusTooManyRequests || statusErr.status >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
