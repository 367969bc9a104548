package sqlkv

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Server mode talks to dolt over go-sql-driver/mysql, which has no retry of
// its own. Transient connection errors are retried with backoff.
const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

var retryableFragments = []string{
	"driver: bad connection",
	"invalid connection",
	"broken pipe",
	"connection reset",
	// A restarting server usually comes back within the backoff window.
	"connection refused",
	// Dolt can turn read-only under load until restarted.
	"database is read only",
	"lost connection",
	"gone away",
	"i/o timeout",
}

// isRetryableError reports whether err is a transient connection error.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, frag := range retryableFragments {
		if strings.Contains(errStr, frag) {
			return true
		}
	}
	return false
}

// withRetry runs op, retrying transient errors in dolt mode. SQLite runs
// op exactly once; busy_timeout already covers lock waits.
func (b *Backend) withRetry(ctx context.Context, op func() error) error {
	if b.cfg.Dialect != DialectDolt {
		return op()
	}
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newServerRetryBackoff(), ctx))
}
