// Package provider shells out to Oracle RMAN. The pipeline treats
// RMAN as an opaque capability and only interprets pass/fail; every
// invocation runs under the caller's context so a hung session is
// killed at the stage deadline.
package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/viewertech/RMAM-automation/internal/config"
)

// waitDelay bounds how long a killed rman invocation may keep its
// output pipe open. RMAN forks channel processes that inherit the
// pipe and outlive the kill; without the bound, waiting on them
// would hold the stage past its deadline.
var waitDelay = 10 * time.Second

type RMAN struct {
	config    *config.OracleConfig
	backupDir string
}

func New(cfg *config.OracleConfig, backupDir string) *RMAN {
	return &RMAN{config: cfg, backupDir: backupDir}
}

func (r *RMAN) RunBackup(ctx context.Context, level int) error {
	format := filepath.Join(r.backupDir, fmt.Sprintf("db_level%d_%%d_%%T_%%s.bkp", level))
	script := fmt.Sprintf(
		"BACKUP INCREMENTAL LEVEL %d DATABASE FORMAT '%s';", level, format)

	return r.run(ctx, script)
}

func (r *RMAN) RunArchiveLogBackup(ctx context.Context) error {
	format := filepath.Join(r.backupDir, "arch_%d_%T_%s.bkp")
	script := fmt.Sprintf(
		"BACKUP ARCHIVELOG ALL DELETE INPUT FORMAT '%s';", format)

	return r.run(ctx, script)
}

func (r *RMAN) CaptureControlFile(ctx context.Context, dest string) error {
	script := fmt.Sprintf("BACKUP CURRENT CONTROLFILE FORMAT '%s';", dest)

	return r.run(ctx, script)
}

func (r *RMAN) EnforceRetention(ctx context.Context, windowDays int) error {
	script := fmt.Sprintf(
		"CONFIGURE RETENTION POLICY TO RECOVERY WINDOW OF %d DAYS;\n"+
			"DELETE NOPROMPT OBSOLETE;", windowDays)

	return r.run(ctx, script)
}

func (r *RMAN) run(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, r.config.RMANBinary, "target", r.config.Target)
	cmd.Stdin = strings.NewReader(script + "\nEXIT;\n")
	cmd.WaitDelay = waitDelay

	if r.config.SID != "" {
		cmd.Env = append(os.Environ(), fmt.Sprintf("ORACLE_SID=%s", r.config.SID))
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rman failed: %w, output: %s", err, string(output))
	}

	// RMAN exits zero on some failures; its transcript is the
	// reliable signal.
	if strings.Contains(string(output), "RMAN-") && strings.Contains(string(output), "ERROR MESSAGE STACK") {
		return fmt.Errorf("rman reported errors: %s", string(output))
	}

	return nil
}
