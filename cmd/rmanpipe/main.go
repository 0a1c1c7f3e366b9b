// cmd/rmanpipe/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viewertech/RMAM-automation/internal/app"
	"github.com/viewertech/RMAM-automation/internal/config"
	"github.com/viewertech/RMAM-automation/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(app.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "rmanpipe",
		Short:         "Oracle RMAN backup and DR replication pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c",
		"configs/config.yaml", "path to config file")

	pipelines := []struct {
		use   string
		short string
		kind  domain.Kind
	}{
		{"full", "Run a level-0 database backup pipeline", domain.KindFull},
		{"incremental", "Run an incremental database backup pipeline", domain.KindIncremental},
		{"archivelog", "Run an archive-log backup pipeline", domain.KindArchiveLog},
		{"dr-trigger", "Trigger the remote DR restore procedure", domain.KindDRTrigger},
	}

	for _, p := range pipelines {
		kind := p.kind
		root.AddCommand(&cobra.Command{
			Use:   p.use,
			Short: p.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(configPath, kind)
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Run all configured pipeline kinds on their cron schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	})

	return root
}

func runOnce(configPath string, kind domain.Kind) error {
	application, ctx, cancel, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cancel()
	defer application.Shutdown()

	return application.Execute(ctx, kind)
}

func runDaemon(configPath string) error {
	application, ctx, cancel, err := setup(configPath)
	if err != nil {
		return err
	}
	defer cancel()
	defer application.Shutdown()

	return application.RunDaemon(ctx)
}

func setup(configPath string) (*app.App, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize app: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return application, ctx, cancel, nil
}
