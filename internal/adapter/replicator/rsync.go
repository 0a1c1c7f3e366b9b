package replicator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

// Rsync replicates with the system rsync in --ignore-existing mode.
// Destination may be a remote rsync/ssh target like
// "oracle@drhost:/backup/standby".
type Rsync struct {
	binary      string
	destination string
}

func NewRsync(binary, destination string) *Rsync {
	if binary == "" {
		binary = "rsync"
	}
	return &Rsync{binary: binary, destination: destination}
}

func (r *Rsync) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
	var result domain.TransferResult

	cmd := exec.CommandContext(ctx, r.binary,
		"--recursive",
		"--links",
		"--times",
		"--ignore-existing",
		"--stats",
		srcDir+"/",
		r.destination,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// rsync spawns an ssh transport child that inherits the pipes;
	// bound the post-kill wait so a deadline actually ends the stage.
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Run(); err != nil {
		return result, fmt.Errorf("rsync failed: %w, stderr: %s", err, stderr.String())
	}

	result.FilesCopied = parseStat(stdout.String(), "Number of regular files transferred:")
	result.BytesCopied = int64(parseStat(stdout.String(), "Total transferred file size:"))
	return result, nil
}

// parseStat pulls one integer out of rsync --stats output. Returns
// zero when the line is absent, which older rsync releases omit for
// empty transfers.
func parseStat(output, label string) int {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, label) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, label))
		value = strings.Fields(value)[0]
		value = strings.ReplaceAll(value, ",", "")
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
