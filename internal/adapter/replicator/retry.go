package replicator

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

// Retrying wraps a Replicator with bounded exponential backoff.
// Skip-if-exists makes re-running a partially failed pass safe: each
// attempt transfers only what is still missing.
type Retrying struct {
	inner    domain.Replicator
	attempts uint64
}

var retryBase = 2 * time.Second

func WithRetry(inner domain.Replicator, attempts int) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{inner: inner, attempts: uint64(attempts)}
}

func (r *Retrying) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
	var result domain.TransferResult

	backoff := retry.WithMaxRetries(r.attempts-1, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := r.inner.Sync(ctx, srcDir)

		// Copies accumulate across attempts; skip and remaining
		// counts reflect the last attempt only.
		result.FilesCopied += res.FilesCopied
		result.BytesCopied += res.BytesCopied
		result.FilesSkipped = res.FilesSkipped
		result.Remaining = res.Remaining

		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})

	return result, err
}
