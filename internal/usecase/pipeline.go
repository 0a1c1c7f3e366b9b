package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Token is exclusive ownership of one kind's execution right.
type Token interface {
	Release() error
}

// Guard hands out at most one live token per kind, system-wide.
type Guard interface {
	Acquire(kind domain.Kind) (Token, error)
}

// RetentionEngine reclaims space in the backup directory.
type RetentionEngine interface {
	CompressAged(ctx context.Context, dir string, olderThan time.Duration) (int, error)
	ApplyWindow(ctx context.Context, windowDays int) error
}

// Params carries the pipeline's collaborators and tunables.
type Params struct {
	Guard      Guard
	Provider   domain.BackupProvider
	Retention  RetentionEngine
	Replicator domain.Replicator
	Invoker    domain.RemoteInvoker
	Notifier   domain.Notifier // optional
	Logger     Logger

	BackupDir        string
	ControlFileName  string
	FullLevel        int
	IncrementalLevel int
	CompressAfter    time.Duration
	RetentionDays    int
	StageTimeout     time.Duration

	Site           domain.RemoteSite
	RestoreCommand string
}

// Pipeline sequences capture, cleaning, replication and the DR
// trigger under the execution guard. Capture and trigger failures
// abort the run: a missed backup or an unarmed DR site compromises
// durability. Cleaning and replication failures are recorded and the
// run proceeds: they degrade storage efficiency or DR freshness for
// one cadence and the next scheduled run retries.
type Pipeline struct {
	p Params
}

func NewPipeline(p Params) *Pipeline {
	return &Pipeline{p: p}
}

// Execute performs one run of the given kind. The lock token is
// released on every exit path, including cancellation.
func (pl *Pipeline) Execute(ctx context.Context, kind domain.Kind) (*domain.Run, error) {
	plan := domain.PlanFor(kind, pl.p.FullLevel, pl.p.IncrementalLevel)
	run := &domain.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Level:     plan.Level,
		StartedAt: time.Now(),
		Stage:     domain.StageInit,
	}

	pl.p.Logger.Infof("[%s] Starting run %s", kind, run.ID)

	run.Stage = domain.StageLocking
	token, err := pl.p.Guard.Acquire(kind)
	if err != nil {
		run.Stage = domain.StageAborted
		if errors.Is(err, domain.ErrBusy) {
			run.Outcome = domain.OutcomeAborted
			pl.p.Logger.Warnf("[%s] Another run holds the lock, aborting", kind)
			return run, err
		}
		run.Outcome = domain.OutcomeFailure
		fatal := &domain.FatalStageError{Stage: domain.StageLocking, Err: err}
		pl.p.Logger.Errorf("[%s] Run %s: %v", kind, run.ID, fatal)
		return run, fatal
	}
	defer func() {
		if err := token.Release(); err != nil {
			pl.p.Logger.Errorf("[%s] Failed to release lock: %v", kind, err)
		}
	}()

	if err := pl.runStages(ctx, run, plan); err != nil {
		run.Stage = domain.StageAborted
		run.Outcome = domain.OutcomeFailure
		pl.p.Logger.Errorf("[%s] Run %s aborted: %v", kind, run.ID, err)
		pl.notify(fmt.Sprintf("❌ %s pipeline failed\nRun: %s\nError: %v", kind, run.ID, err))
		return run, err
	}

	run.Stage = domain.StageDone
	run.Outcome = domain.OutcomeSuccess
	pl.p.Logger.Infof("[%s] Run %s completed in %s",
		kind, run.ID, time.Since(run.StartedAt).Round(time.Second))
	return run, nil
}

func (pl *Pipeline) runStages(ctx context.Context, run *domain.Run, plan domain.Plan) error {
	var degraded error

	if plan.Capture {
		run.Stage = domain.StageCapturing
		if err := pl.stage(ctx, run.Stage, func(ctx context.Context) error {
			return pl.capture(ctx, run.Kind, plan)
		}); err != nil {
			return fatal(run.Stage, err)
		}
	}

	if plan.Clean {
		run.Stage = domain.StageCleaning
		err := pl.stage(ctx, run.Stage, pl.clean)
		if err != nil {
			if isTimeout(err) {
				return err
			}
			deg := &domain.DegradedStageError{Stage: run.Stage, Err: err}
			pl.p.Logger.Warnf("[%s] %v, proceeding", run.Kind, deg)
			degraded = multierr.Append(degraded, deg)
		}
	}

	if plan.Replicate {
		run.Stage = domain.StageReplicating
		err := pl.stage(ctx, run.Stage, pl.replicate)
		if err != nil {
			if isTimeout(err) {
				return err
			}
			deg := &domain.DegradedStageError{Stage: run.Stage, Err: err}
			pl.p.Logger.Warnf("[%s] %v, proceeding", run.Kind, deg)
			degraded = multierr.Append(degraded, deg)
		}
	}

	// Backup kinds carry the trigger only when a restore command is
	// configured; a dedicated DR-trigger run must have one.
	if plan.Trigger && (pl.p.RestoreCommand != "" || run.Kind == domain.KindDRTrigger) {
		run.Stage = domain.StageTriggering
		if err := pl.stage(ctx, run.Stage, pl.trigger); err != nil {
			return fatal(run.Stage, err)
		}
	}

	if degraded != nil {
		pl.p.Logger.Warnf("[%s] Run %s finished degraded: %v", run.Kind, run.ID, degraded)
	}
	return nil
}

// stage bounds one external capability invocation. A hung tool hits
// the deadline and the run aborts instead of holding the lock
// forever.
func (pl *Pipeline) stage(ctx context.Context, stage domain.Stage, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, pl.p.StageTimeout)
	defer cancel()

	err := fn(stageCtx)
	if err == nil {
		return nil
	}
	// An exec-based capability killed at the deadline reports
	// "signal: killed", not context.DeadlineExceeded, so the stage
	// context is the authoritative timeout signal.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return &domain.TimeoutError{Stage: stage, Err: err}
	}
	return err
}

func (pl *Pipeline) capture(ctx context.Context, kind domain.Kind, plan domain.Plan) error {
	if plan.CaptureControlFile {
		if err := pl.removeStaleControlFile(); err != nil {
			return err
		}
	}

	if kind == domain.KindArchiveLog {
		pl.p.Logger.Infof("[%s] Backing up archived logs", kind)
		if err := pl.p.Provider.RunArchiveLogBackup(ctx); err != nil {
			return err
		}
	} else {
		pl.p.Logger.Infof("[%s] Backing up database at level %d", kind, plan.Level)
		if err := pl.p.Provider.RunBackup(ctx, plan.Level); err != nil {
			return err
		}
	}

	if plan.CaptureControlFile {
		dest := pl.controlFilePath()
		pl.p.Logger.Infof("[%s] Capturing control file to %s", kind, dest)
		if err := pl.p.Provider.CaptureControlFile(ctx, dest); err != nil {
			return fmt.Errorf("control file capture failed: %w", err)
		}
	}

	return nil
}

// removeStaleControlFile drops the previous run's snapshot so at
// most one current snapshot ever exists. A snapshot we cannot remove
// would be silently re-backed-up stale, which is a correctness
// hazard, so failure here is fatal.
func (pl *Pipeline) removeStaleControlFile() error {
	path := pl.controlFilePath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale control file snapshot: %w", err)
	}
	return nil
}

func (pl *Pipeline) controlFilePath() string {
	return filepath.Join(pl.p.BackupDir, pl.p.ControlFileName)
}

func (pl *Pipeline) clean(ctx context.Context) error {
	var errs error

	n, err := pl.p.Retention.CompressAged(ctx, pl.p.BackupDir, pl.p.CompressAfter)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("compress aged artifacts: %w", err))
	} else {
		pl.p.Logger.Infof("Compressed %d aged artifact(s)", n)
	}

	if err := pl.p.Retention.ApplyWindow(ctx, pl.p.RetentionDays); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("apply retention window: %w", err))
	}

	return errs
}

func (pl *Pipeline) replicate(ctx context.Context) error {
	result, err := pl.p.Replicator.Sync(ctx, pl.p.BackupDir)
	if err != nil {
		return fmt.Errorf("replication: %w (remaining: %d)", err, len(result.Remaining))
	}

	pl.p.Logger.Infof("Replicated %d file(s), skipped %d, %d byte(s) transferred",
		result.FilesCopied, result.FilesSkipped, result.BytesCopied)
	return nil
}

func (pl *Pipeline) trigger(ctx context.Context) error {
	if pl.p.RestoreCommand == "" {
		return fmt.Errorf("no restore command configured")
	}

	pl.p.Logger.Infof("Triggering remote restore on %s", pl.p.Site.Host)

	exitCode, err := pl.p.Invoker.Invoke(ctx, pl.p.Site, pl.p.RestoreCommand)
	if err != nil {
		return fmt.Errorf("remote trigger: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("remote restore exited with status %d", exitCode)
	}
	return nil
}

func (pl *Pipeline) notify(message string) {
	if pl.p.Notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pl.p.Notifier.Notify(ctx, message); err != nil {
		pl.p.Logger.Errorf("Failed to send notification: %v", err)
	}
}

// NotifySuccess pushes a success summary; daemon mode enables it per
// configuration.
func (pl *Pipeline) NotifySuccess(run *domain.Run) {
	pl.notify(fmt.Sprintf("✅ %s pipeline completed\nRun: %s\nDuration: %s",
		run.Kind, run.ID, time.Since(run.StartedAt).Round(time.Second)))
}

func fatal(stage domain.Stage, err error) error {
	var timeout *domain.TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	return &domain.FatalStageError{Stage: stage, Err: err}
}

func isTimeout(err error) bool {
	var timeout *domain.TimeoutError
	return errors.As(err, &timeout)
}
