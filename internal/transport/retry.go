package transport

import (
	"context"
	"net"
	"time"

	ncerr "mcpnc/internal/errors"
	"mcpnc/internal/metrics"
	"mcpnc/internal/retry"
	"mcpnc/util"
)

// RetryDialer retries failed dials of an inner Dialer with exponential
// backoff.  Only errors classified as retryable are retried, so a bad
// SSH key or an unknown host fails at once.
type RetryDialer struct {
	inner   Dialer
	backoff *retry.Backoff
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewRetryDialer allows retries extra attempts after the first.
func NewRetryDialer(inner Dialer, retries int, logger *util.Logger, m *metrics.Collector) *RetryDialer {
	return &RetryDialer{
		inner:   inner,
		backoff: retry.ForDial(retries, 0, 0),
		logger:  logger,
		metrics: m,
	}
}

// WithDelays overrides the backoff bounds.
func (d *RetryDialer) WithDelays(base, max time.Duration) *RetryDialer {
	d.backoff.InitialDelay = base
	d.backoff.MaxDelay = max
	return d
}

// Dial dials through the inner dialer until it succeeds, the error is
// not retryable, the attempts run out or ctx is done.
func (d *RetryDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	var conn net.Conn
	bo := *d.backoff
	bo.Retryable = ncerr.IsRetryable
	bo.OnRetry = func(attempt int, err error, wait time.Duration) {
		d.metrics.DialRetry()
		d.logger.Warn("dial %s failed (attempt %d/%d): %v; retrying in %s",
			address, attempt, bo.MaxAttempts, err, wait.Round(time.Millisecond))
	}

	err := bo.Do(ctx, func(int) error {
		c, err := d.inner.Dial(ctx, network, address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		if ctx.Err() == nil && ncerr.IsRetryable(err) && bo.MaxAttempts > 1 {
			return nil, &retriesExhausted{err: err}
		}
		return nil, err
	}
	return conn, nil
}

// Close closes the inner dialer.
func (d *RetryDialer) Close() error { return d.inner.Close() }

// retriesExhausted matches both ErrRetriesExhausted and the last dial
// error.
type retriesExhausted struct{ err error }

func (e *retriesExhausted) Error() string { return e.err.Error() }
func (e *retriesExhausted) Unwrap() []error {
	return []error{ncerr.ErrRetriesExhausted, e.err}
}
