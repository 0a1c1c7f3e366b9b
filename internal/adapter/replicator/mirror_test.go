package replicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

func TestMirror(t *testing.T) {
	Convey("Given a Mirror replicator", t, func() {
		srcDir, err := os.MkdirTemp("", "mirror_src")
		So(err, ShouldBeNil)
		defer os.RemoveAll(srcDir)

		destDir, err := os.MkdirTemp("", "mirror_dest")
		So(err, ShouldBeNil)
		defer os.RemoveAll(destDir)

		ctx := context.Background()

		Convey("NewMirror", func() {
			Convey("When the destination does not exist yet", func() {
				newDest := filepath.Join(destDir, "dr", "backups")
				mirror, err := NewMirror(newDest)

				Convey("It should create the directory and succeed", func() {
					So(err, ShouldBeNil)
					So(mirror, ShouldNotBeNil)

					info, err := os.Stat(newDest)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})
		})

		Convey("Sync", func() {
			mirror, err := NewMirror(destDir)
			So(err, ShouldBeNil)

			Convey("When the destination is empty", func() {
				So(os.WriteFile(filepath.Join(srcDir, "db_level0.bkp"), []byte("full"), 0644), ShouldBeNil)
				So(os.WriteFile(filepath.Join(srcDir, "arch_1.bkp"), []byte("archive"), 0644), ShouldBeNil)

				result, err := mirror.Sync(ctx, srcDir)

				Convey("It should copy everything", func() {
					So(err, ShouldBeNil)
					So(result.FilesCopied, ShouldEqual, 2)
					So(result.FilesSkipped, ShouldEqual, 0)
					So(result.BytesCopied, ShouldEqual, int64(len("full")+len("archive")))

					content, err := os.ReadFile(filepath.Join(destDir, "db_level0.bkp"))
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "full")
				})
			})

			Convey("When run twice with no source changes", func() {
				So(os.WriteFile(filepath.Join(srcDir, "db_level1.bkp"), []byte("incremental"), 0644), ShouldBeNil)

				_, err := mirror.Sync(ctx, srcDir)
				So(err, ShouldBeNil)

				result, err := mirror.Sync(ctx, srcDir)

				Convey("The second pass should transfer zero bytes", func() {
					So(err, ShouldBeNil)
					So(result.FilesCopied, ShouldEqual, 0)
					So(result.FilesSkipped, ShouldEqual, 1)
					So(result.BytesCopied, ShouldEqual, 0)
				})
			})

			Convey("When a destination file already exists with different content", func() {
				So(os.WriteFile(filepath.Join(srcDir, "db_level0.bkp"), []byte("new content"), 0644), ShouldBeNil)
				So(os.WriteFile(filepath.Join(destDir, "db_level0.bkp"), []byte("original"), 0644), ShouldBeNil)

				result, err := mirror.Sync(ctx, srcDir)

				Convey("It should never overwrite", func() {
					So(err, ShouldBeNil)
					So(result.FilesCopied, ShouldEqual, 0)
					So(result.FilesSkipped, ShouldEqual, 1)

					content, err := os.ReadFile(filepath.Join(destDir, "db_level0.bkp"))
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "original")
				})
			})

			Convey("When a prior transfer was partial", func() {
				So(os.WriteFile(filepath.Join(srcDir, "db_level0.bkp"), []byte("full"), 0644), ShouldBeNil)
				So(os.WriteFile(filepath.Join(srcDir, "arch_1.bkp"), []byte("archive"), 0644), ShouldBeNil)
				// Simulate a transfer interrupted after the first file.
				So(os.WriteFile(filepath.Join(destDir, "db_level0.bkp"), []byte("full"), 0644), ShouldBeNil)

				result, err := mirror.Sync(ctx, srcDir)

				Convey("It should resume by copying only the missing file", func() {
					So(err, ShouldBeNil)
					So(result.FilesCopied, ShouldEqual, 1)
					So(result.FilesSkipped, ShouldEqual, 1)

					content, err := os.ReadFile(filepath.Join(destDir, "arch_1.bkp"))
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "archive")
				})
			})

			Convey("When the source directory does not exist", func() {
				_, err := mirror.Sync(ctx, filepath.Join(srcDir, "missing"))

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to read source directory")
				})
			})

			Convey("When subdirectories exist in the source", func() {
				So(os.Mkdir(filepath.Join(srcDir, "scripts"), 0755), ShouldBeNil)

				result, err := mirror.Sync(ctx, srcDir)

				Convey("They should be skipped", func() {
					So(err, ShouldBeNil)
					So(result.FilesCopied, ShouldEqual, 0)
				})
			})
		})
	})
}

type flakyReplicator struct {
	failures int
	calls    int
}

func (f *flakyReplicator) Sync(ctx context.Context, srcDir string) (domain.TransferResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.TransferResult{Remaining: []string{"db_level0.bkp"}}, errors.New("connection reset")
	}
	return domain.TransferResult{FilesCopied: 1, BytesCopied: 128}, nil
}

func TestRetrying(t *testing.T) {
	Convey("Given a Retrying replicator", t, func() {
		ctx := context.Background()

		originalBase := retryBase
		retryBase = time.Millisecond
		defer func() { retryBase = originalBase }()

		Convey("When the inner replicator fails transiently", func() {
			inner := &flakyReplicator{failures: 2}
			result, err := WithRetry(inner, 3).Sync(ctx, "/backups")

			Convey("It should retry until the pass succeeds", func() {
				So(err, ShouldBeNil)
				So(inner.calls, ShouldEqual, 3)
				So(result.FilesCopied, ShouldEqual, 1)
				So(result.Remaining, ShouldBeEmpty)
			})
		})

		Convey("When the inner replicator keeps failing", func() {
			inner := &flakyReplicator{failures: 10}
			result, err := WithRetry(inner, 3).Sync(ctx, "/backups")

			Convey("It should give up after the configured attempts", func() {
				So(err, ShouldNotBeNil)
				So(inner.calls, ShouldEqual, 3)
				So(result.Remaining, ShouldResemble, []string{"db_level0.bkp"})
			})
		})

		Convey("When the inner replicator succeeds first try", func() {
			inner := &flakyReplicator{}
			result, err := WithRetry(inner, 3).Sync(ctx, "/backups")

			Convey("It should not retry", func() {
				So(err, ShouldBeNil)
				So(inner.calls, ShouldEqual, 1)
				So(result.FilesCopied, ShouldEqual, 1)
			})
		})
	})
}
