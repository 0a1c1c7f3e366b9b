package replicator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/viewertech/RMAM-automation/internal/config"
	"github.com/viewertech/RMAM-automation/internal/domain"
)

// S3 replicates into an S3 bucket, skipping keys that already exist.
type S3 struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

func NewS3(cfg *appconfig.ReplicationConfig) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3{
		client:   client,
		uploader: s3manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

func (s *S3) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
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

		key := path.Join(s.prefix, entry.Name())

		exists, err := s.objectExists(ctx, key)
		if err != nil {
			result.Remaining = append(result.Remaining, entry.Name())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if exists {
			result.FilesSkipped++
			continue
		}

		written, err := s.upload(ctx, filepath.Join(srcDir, entry.Name()), key)
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

func (s *S3) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3) upload(ctx context.Context, localPath, key string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   file,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return info.Size(), nil
}
