package domain

import "context"

// BackupProvider is the external backup capability. Implementations
// shell out to the database's native tooling; the pipeline only
// interprets pass/fail.
type BackupProvider interface {
	// RunBackup produces a leveled database backup (0 = full,
	// N > 0 = incremental) into the backup directory.
	RunBackup(ctx context.Context, level int) error

	// RunArchiveLogBackup backs up and purges archived redo logs.
	RunArchiveLogBackup(ctx context.Context) error

	// CaptureControlFile snapshots the database's structural
	// metadata to dest. Callers must remove a stale snapshot first.
	CaptureControlFile(ctx context.Context, dest string) error

	// EnforceRetention asks the provider's own obsolescence
	// bookkeeping to drop artifacts outside the recovery window.
	// Only the provider knows which files are still required for
	// point-in-time recovery.
	EnforceRetention(ctx context.Context, windowDays int) error
}
