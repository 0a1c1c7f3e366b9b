package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	. "github.com/smartystreets/goconvey/convey"
)

type testLogger struct{}

func (testLogger) Infof(template string, args ...interface{}) {}
func (testLogger) Warnf(template string, args ...interface{}) {}

type fakeProvider struct {
	retentionCalls []int
	retentionErr   error
}

func (f *fakeProvider) RunBackup(ctx context.Context, level int) error         { return nil }
func (f *fakeProvider) RunArchiveLogBackup(ctx context.Context) error          { return nil }
func (f *fakeProvider) CaptureControlFile(ctx context.Context, d string) error { return nil }
func (f *fakeProvider) EnforceRetention(ctx context.Context, days int) error {
	f.retentionCalls = append(f.retentionCalls, days)
	return f.retentionErr
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read error")
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func writeAged(t *testing.T, dir, name, content string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestRetentionEngine(t *testing.T) {
	Convey("Given a retention Engine", t, func() {
		tempDir, err := os.MkdirTemp("", "retention_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		provider := &fakeProvider{}
		engine := New(provider, testLogger{})
		ctx := context.Background()
		threshold := 3 * 24 * time.Hour

		Convey("CompressAged", func() {
			Convey("When the directory has aged and fresh artifacts", func() {
				writeAged(t, tempDir, "db_level0_old.bkp", "old full backup", 5*24*time.Hour)
				writeAged(t, tempDir, "db_level1_fresh.bkp", "fresh incremental", time.Hour)

				n, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("It should compress only the aged one, in place", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
					So(listNames(t, tempDir), ShouldResemble, []string{
						"db_level0_old.bkp.gz",
						"db_level1_fresh.bkp",
					})
				})

				Convey("The compressed artifact should round-trip", func() {
					So(err, ShouldBeNil)

					f, err := os.Open(filepath.Join(tempDir, "db_level0_old.bkp.gz"))
					So(err, ShouldBeNil)
					defer f.Close()

					r, err := gzip.NewReader(f)
					So(err, ShouldBeNil)
					defer r.Close()

					buf := make([]byte, 64)
					read, _ := r.Read(buf)
					So(string(buf[:read]), ShouldEqual, "old full backup")
				})
			})

			Convey("When run twice on the same directory", func() {
				writeAged(t, tempDir, "db_arch_1.bkp", "archive logs", 5*24*time.Hour)

				_, err := engine.CompressAged(ctx, tempDir, threshold)
				So(err, ShouldBeNil)
				first := listNames(t, tempDir)

				n, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("The second run should be a no-op", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
					So(listNames(t, tempDir), ShouldResemble, first)
				})
			})

			Convey("When an aged .gz file is present", func() {
				writeAged(t, tempDir, "db_level0.bkp.gz", "already compressed", 10*24*time.Hour)

				n, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("It should never be recompressed", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
					So(listNames(t, tempDir), ShouldResemble, []string{"db_level0.bkp.gz"})
				})
			})

			Convey("When the directory has no aged artifacts", func() {
				writeAged(t, tempDir, "recent.bkp", "recent", time.Minute)

				n, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("It should do nothing", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
				})
			})

			Convey("When subdirectories exist", func() {
				So(os.Mkdir(filepath.Join(tempDir, "archive"), 0755), ShouldBeNil)

				n, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("They should be skipped", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
					So(listNames(t, tempDir), ShouldResemble, []string{"archive"})
				})
			})

			Convey("When compression fails midway", func() {
				dest := filepath.Join(tempDir, "db_level0.bkp.gz")

				err := writeCompressed(dest, failingReader{})

				Convey("No partial archive should be left for replication to ship", func() {
					So(err, ShouldNotBeNil)
					_, statErr := os.Stat(dest)
					So(os.IsNotExist(statErr), ShouldBeTrue)
				})
			})

			Convey("When the archive destination cannot be created", func() {
				writeAged(t, tempDir, "db_level0.bkp", "full backup", 5*24*time.Hour)
				// A directory squatting on the .gz name defeats os.Create.
				So(os.Mkdir(filepath.Join(tempDir, "db_level0.bkp.gz"), 0755), ShouldBeNil)

				_, err := engine.CompressAged(ctx, tempDir, threshold)

				Convey("The failure should surface and the original survive", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "db_level0.bkp")

					content, readErr := os.ReadFile(filepath.Join(tempDir, "db_level0.bkp"))
					So(readErr, ShouldBeNil)
					So(string(content), ShouldEqual, "full backup")
				})
			})

			Convey("When the directory does not exist", func() {
				_, err := engine.CompressAged(ctx, filepath.Join(tempDir, "missing"), threshold)

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to read backup directory")
				})
			})
		})

		Convey("ApplyWindow", func() {
			Convey("When the provider succeeds", func() {
				err := engine.ApplyWindow(ctx, 3)

				Convey("It should delegate the window to the provider", func() {
					So(err, ShouldBeNil)
					So(provider.retentionCalls, ShouldResemble, []int{3})
				})
			})

			Convey("When the provider fails", func() {
				provider.retentionErr = os.ErrPermission

				err := engine.ApplyWindow(ctx, 3)

				Convey("It should surface the failure", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "retention window enforcement failed")
				})
			})
		})
	})
}
