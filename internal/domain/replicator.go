package domain

import "context"

// TransferResult accounts for one sync pass.
type TransferResult struct {
	FilesCopied  int
	FilesSkipped int
	BytesCopied  int64

	// Remaining lists relative paths that could not be transferred.
	// A later run picks them up again: the destination is
	// append-only, so partial transfer leaves a valid subset.
	Remaining []string
}

// Replicator is the external transfer capability toward the DR site.
// Sync is one-way and skip-if-exists: a destination file already
// present at the same relative path is never overwritten, which
// makes repeated runs idempotent and safe to retry.
type Replicator interface {
	Sync(ctx context.Context, srcDir string) (TransferResult, error)
}
