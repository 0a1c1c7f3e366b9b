package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/viewertech/RMAM-automation/internal/adapter/notifier"
	"github.com/viewertech/RMAM-automation/internal/adapter/provider"
	"github.com/viewertech/RMAM-automation/internal/adapter/remote"
	"github.com/viewertech/RMAM-automation/internal/adapter/replicator"
	"github.com/viewertech/RMAM-automation/internal/config"
	"github.com/viewertech/RMAM-automation/internal/domain"
	"github.com/viewertech/RMAM-automation/internal/guard"
	"github.com/viewertech/RMAM-automation/internal/infrastructure/logger"
	"github.com/viewertech/RMAM-automation/internal/infrastructure/scheduler"
	"github.com/viewertech/RMAM-automation/internal/retention"
	"github.com/viewertech/RMAM-automation/internal/usecase"
)

// Exit status contract for the scheduler and operators.
const (
	ExitOK      = 0
	ExitBusy    = 2
	ExitFatal   = 3
	ExitTimeout = 4
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	pipeline  *usecase.Pipeline
	scheduler *scheduler.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	if err := os.MkdirAll(cfg.Backup.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	g, err := guard.New(cfg.App.LockDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize execution guard: %w", err)
	}

	backupProvider := provider.New(&cfg.Oracle, cfg.Backup.Directory)
	retentionEngine := retention.New(backupProvider, log.Named("retention"))

	repl, err := buildReplicator(cfg, log)
	if err != nil {
		return nil, err
	}

	var invokerOpts []remote.Option
	if cfg.DR.KnownHosts != "" {
		invokerOpts = append(invokerOpts, remote.WithKnownHosts(cfg.DR.KnownHosts))
	}

	var notify domain.Notifier
	if cfg.Notify.Enabled {
		tg, err := notifier.NewTelegram(&cfg.Notify)
		if err != nil {
			log.Errorf("Failed to initialize Telegram notifier: %v", err)
		} else {
			notify = tg
			log.Infof("✓ Telegram notifications enabled")
		}
	}

	pipeline := usecase.NewPipeline(usecase.Params{
		Guard:            guardAdapter{g},
		Provider:         backupProvider,
		Retention:        retentionEngine,
		Replicator:       replicator.WithRetry(repl, cfg.Replication.RetryAttempts),
		Invoker:          remote.NewSSH(invokerOpts...),
		Notifier:         notify,
		Logger:           log.Named("pipeline"),
		BackupDir:        cfg.Backup.Directory,
		ControlFileName:  cfg.Backup.ControlFileName,
		FullLevel:        cfg.Backup.FullLevel,
		IncrementalLevel: cfg.Backup.IncrementalLevel,
		CompressAfter:    cfg.Backup.CompressAfter,
		RetentionDays:    cfg.Backup.RetentionDays,
		StageTimeout:     cfg.Backup.StageTimeout,
		Site:             cfg.RemoteSite(),
		RestoreCommand:   cfg.DR.RestoreCommand,
	})

	return &App{
		config:    cfg,
		logger:    log,
		pipeline:  pipeline,
		scheduler: scheduler.New(log.Named("scheduler")),
	}, nil
}

func buildReplicator(cfg *config.Config, log *logger.Logger) (domain.Replicator, error) {
	switch cfg.Replication.Type {
	case "rsync":
		log.Infof("✓ Replication via rsync to %s", cfg.Replication.Destination)
		return replicator.NewRsync(cfg.Replication.RsyncBinary, cfg.Replication.Destination), nil

	case "mirror":
		m, err := replicator.NewMirror(cfg.Replication.MirrorPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mirror replication: %w", err)
		}
		log.Infof("✓ Replication via local mirror at %s", cfg.Replication.MirrorPath)
		return m, nil

	case "s3":
		s, err := replicator.NewS3(&cfg.Replication)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 replication: %w", err)
		}
		log.Infof("✓ Replication via S3 (bucket: %s)", cfg.Replication.Bucket)
		return s, nil

	case "gdrive":
		g, err := replicator.NewGDrive(&cfg.Replication)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Drive replication: %w", err)
		}
		log.Infof("✓ Replication via Google Drive")
		return g, nil
	}
	return nil, fmt.Errorf("unsupported replication type: %s", cfg.Replication.Type)
}

// guardAdapter narrows the concrete guard to the orchestrator's
// interface.
type guardAdapter struct {
	g *guard.Guard
}

func (a guardAdapter) Acquire(kind domain.Kind) (usecase.Token, error) {
	token, err := a.g.Acquire(kind)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Execute performs one run of the given pipeline kind.
func (a *App) Execute(ctx context.Context, kind domain.Kind) error {
	run, err := a.pipeline.Execute(ctx, kind)
	if err == nil && a.config.Notify.NotifySuccess {
		a.pipeline.NotifySuccess(run)
	}
	return err
}

// RunDaemon schedules every configured pipeline kind and blocks
// until the context is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	kinds := []domain.Kind{
		domain.KindFull,
		domain.KindIncremental,
		domain.KindArchiveLog,
		domain.KindDRTrigger,
	}

	scheduled := 0
	for _, kind := range kinds {
		spec := a.config.ScheduleFor(kind)
		if spec == "" {
			continue
		}

		kind := kind
		if err := a.scheduler.AddJob(string(kind), spec, func(ctx context.Context) error {
			return a.Execute(ctx, kind)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", kind, err)
		}

		a.logger.Infof("✓ Scheduled %s pipeline: %s", kind, spec)
		scheduled++
	}

	if scheduled == 0 {
		return fmt.Errorf("no schedules configured")
	}

	a.scheduler.Start(ctx)
	a.logger.Infof("Scheduler started with %d pipeline kind(s)", scheduled)

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.logger.Close()
}

// ExitCode maps a pipeline error onto the exit status contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, domain.ErrBusy) {
		return ExitBusy
	}
	var timeout *domain.TimeoutError
	if errors.As(err, &timeout) {
		return ExitTimeout
	}
	return ExitFatal
}
