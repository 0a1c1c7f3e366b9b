// Package retention reclaims space in the backup directory. Aged
// artifacts are gzipped in place; artifacts outside the recovery
// window are dropped by the backup provider's own obsolescence
// bookkeeping, which alone knows what point-in-time recovery still
// needs.
package retention

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

const compressedSuffix = ".gz"

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Engine struct {
	provider domain.BackupProvider
	logger   Logger
}

func New(provider domain.BackupProvider, logger Logger) *Engine {
	return &Engine{provider: provider, logger: logger}
}

// CompressAged gzips every regular file in dir older than olderThan
// that is not already compressed, preserving the name with a .gz
// suffix. Already-compressed files are untouched, so running it
// twice produces the same file set as running it once.
func (e *Engine) CompressAged(ctx context.Context, dir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	compressed := 0

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return compressed, err
		}
		if entry.IsDir() || strings.HasSuffix(entry.Name(), compressedSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return compressed, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := compressFile(path); err != nil {
			return compressed, fmt.Errorf("failed to compress %s: %w", entry.Name(), err)
		}

		e.logger.Infof("Compressed aged artifact: %s", entry.Name())
		compressed++
	}

	return compressed, nil
}

// ApplyWindow asks the provider to enforce its recovery window. The
// engine only requests the policy; it never decides which files are
// obsolete.
func (e *Engine) ApplyWindow(ctx context.Context, windowDays int) error {
	e.logger.Infof("Enforcing retention window: %d day(s)", windowDays)

	if err := e.provider.EnforceRetention(ctx, windowDays); err != nil {
		return fmt.Errorf("retention window enforcement failed: %w", err)
	}
	return nil
}

func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer source.Close()

	if err := writeCompressed(path+compressedSuffix, source); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove original: %w", err)
	}
	return nil
}

// writeCompressed writes gzip(source) to destPath. A partial archive
// is removed on failure: replication skips names that already exist,
// so a truncated .gz left behind would be shipped to the DR site and
// never repaired.
func writeCompressed(destPath string, source io.Reader) (err error) {
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer func() {
		if err != nil {
			dest.Close()
			os.Remove(destPath)
		}
	}()

	gzipWriter, err := gzip.NewWriterLevel(dest, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err = io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err = gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip writer: %w", err)
	}
	if err = dest.Sync(); err != nil {
		return fmt.Errorf("failed to sync dest file: %w", err)
	}
	if err = dest.Close(); err != nil {
		return fmt.Errorf("failed to close dest file: %w", err)
	}
	return nil
}
