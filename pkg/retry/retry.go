package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second

	// delayCeiling caps a policy with no MaxDelay so late attempts stay finite.
	delayCeiling = 24 * time.Hour

	jitterFactor = 0.1
)

// Policy computes exponential delays with up to 10% jitter:
//
//	delay(n) = min(base * 2^n, max) + jitter, jitter in [0, 0.1*delay)
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Jitter returns a value in [0, 1). Defaults to math/rand.
	Jitter func() float64
	// Retryable decides whether a failed attempt is retried. Defaults to pkgError.IsTransient.
	Retryable func(error) bool
	// NewTimer overrides the sleep between attempts. Tests use it to avoid real waits.
	NewTimer func() backoff.Timer
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Delay returns the wait before the retry that follows attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	limit := delayCeiling
	if p.MaxDelay > 0 {
		limit = p.MaxDelay
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	switch {
	case math.IsNaN(d) || d <= 0:
		return 0
	case d > float64(limit):
		d = float64(limit)
	}
	return time.Duration(d + d*jitterFactor*p.jitter())
}

func (p Policy) jitter() float64 {
	if p.Jitter != nil {
		j := p.Jitter()
		if j < 0 || j >= 1 {
			return 0
		}
		return j
	}
	return rand.Float64()
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return pkgError.IsTransient(err)
}

// policyBackOff feeds Policy.Delay into the backoff engine.
type policyBackOff struct {
	policy  Policy
	attempt int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	d := b.policy.Delay(b.attempt)
	b.attempt++
	return d
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
}

// Do runs op up to MaxRetries+1 times and returns the last error once attempts
// are exhausted. Non-retryable errors are returned immediately. A cancelled ctx
// interrupts the wait between attempts.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&policyBackOff{policy: p}, uint64(maxRetries)),
		ctx,
	)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && !p.retryable(err) {
			return res, backoff.Permanent(err)
		}
		if err != nil && attempt > maxRetries {
			logrus.WithError(err).Errorf("[RETRY] Failed after %d attempts", maxRetries+1)
		}
		return res, err
	}
	notify := func(err error, next time.Duration) {
		logrus.Warnf("[RETRY] Attempt %d/%d failed: %v. Retrying in %.1f seconds...",
			attempt, maxRetries+1, err, next.Seconds())
	}

	var timer backoff.Timer
	if p.NewTimer != nil {
		timer = p.NewTimer()
	}
	return backoff.RetryNotifyWithTimerAndData(operation, b, notify, timer)
}
