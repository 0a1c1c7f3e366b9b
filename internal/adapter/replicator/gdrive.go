package replicator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	appconfig "github.com/viewertech/RMAM-automation/internal/config"
	"github.com/viewertech/RMAM-automation/internal/domain"
)

// GDrive replicates into a Google Drive folder. Drive allows
// duplicate names, so existing names are listed once per pass and
// skipped.
type GDrive struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *appconfig.ReplicationConfig) (*GDrive, error) {
	service, err := drive.NewService(context.Background(),
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDrive{service: service, folderID: cfg.FolderID}, nil
}

func (g *GDrive) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
	var result domain.TransferResult

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return result, fmt.Errorf("failed to read source directory: %w", err)
	}

	existing, err := g.existingNames(ctx)
	if err != nil {
		return result, err
	}

	var firstErr error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() {
			continue
		}
		if existing[entry.Name()] {
			result.FilesSkipped++
			continue
		}

		written, err := g.upload(ctx, filepath.Join(srcDir, entry.Name()), entry.Name())
		if err != nil {
			result.Remaining = append(result.Remaining, entry.Name())
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to upload %s: %w", entry.Name(), err)
			}
			continue
		}

		result.FilesCopied++
		result.BytesCopied += written
	}

	return result, firstErr
}

func (g *GDrive) existingNames(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)

	names := make(map[string]bool)
	pageToken := ""
	for {
		call := g.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(name)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, file := range fileList.Files {
			names[file.Name] = true
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			return names, nil
		}
	}
}

func (g *GDrive) upload(ctx context.Context, localPath, remoteName string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	fileMetadata := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return info.Size(), nil
}
