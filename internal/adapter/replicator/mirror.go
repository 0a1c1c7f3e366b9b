// Package replicator moves backup artifacts toward the DR site.
// Every implementation is one-way and skip-if-exists: a destination
// file already present at the same relative path is never
// overwritten, so interrupted transfers leave a valid subset and the
// next run copies only what is still missing.
package replicator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

// Mirror replicates into a locally mounted directory, typically an
// NFS export of the DR host.
type Mirror struct {
	destPath string
}

func NewMirror(destPath string) (*Mirror, error) {
	if err := os.MkdirAll(destPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &Mirror{destPath: destPath}, nil
}

func (m *Mirror) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
	var result domain.TransferResult

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return result, fmt.Errorf("failed to read source directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() {
			continue
		}

		destPath := filepath.Join(m.destPath, entry.Name())
		if _, err := os.Stat(destPath); err == nil {
			result.FilesSkipped++
			continue
		}

		written, err := copyFile(filepath.Join(srcDir, entry.Name()), destPath)
		if err != nil {
			result.Remaining = append(result.Remaining, entry.Name())
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
			}
			continue
		}

		result.FilesCopied++
		result.BytesCopied += written
	}

	return result, firstErr
}

func copyFile(src, dst string) (int64, error) {
	source, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create dest: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, source)
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to copy: %w", err)
	}
	if err := dest.Sync(); err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to sync dest: %w", err)
	}

	return written, nil
}
