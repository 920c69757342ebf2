package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const defaultRetryBase = 25 * time.Millisecond

// RetryPolicy bounds how often a transaction is re-run after a serialization failure.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
}

// RetryTx runs fn in a transaction and re-runs the whole transaction when the
// store reports a serialization failure or deadlock. Other errors are returned
// after the first attempt.
func RetryTx(ctx context.Context, runner TxRunner, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	if policy.MaxRetries <= 0 {
		return runner.WithTx(ctx, fn)
	}
	base := policy.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	backoff := retry.NewExponential(base)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(policy.MaxRetries), backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := runner.WithTx(ctx, fn)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
