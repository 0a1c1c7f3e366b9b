package logger

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the Logger package", t, func() {
		Convey("New function", func() {
			Convey("When creating a logger with console output only", func() {
				logger, err := New("info", "")

				Convey("It should create a logger successfully", func() {
					So(err, ShouldBeNil)
					So(logger, ShouldNotBeNil)
					So(func() { logger.Info("test") }, ShouldNotPanic)
				})
			})

			Convey("When creating a logger with a log file", func() {
				tempDir, err := os.MkdirTemp("", "logger_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				logFile := filepath.Join(tempDir, "nested", "pipeline.log")
				logger, err := New("debug", logFile)

				Convey("It should create the directory and the file on first write", func() {
					So(err, ShouldBeNil)
					So(logger, ShouldNotBeNil)

					logger.Debug("test debug entry")
					logger.Sync()

					_, err := os.Stat(logFile)
					So(err, ShouldBeNil)

					logger.Close()
				})
			})

			Convey("When the log level is unknown", func() {
				logger, err := New("chatty", "")

				Convey("It should fall back to info", func() {
					So(err, ShouldBeNil)
					So(logger, ShouldNotBeNil)
					So(func() { logger.Info("test") }, ShouldNotPanic)
				})
			})

			Convey("When the log directory cannot be created", func() {
				logger, err := New("info", "/proc/invalid/pipeline.log")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create log directory")
					So(logger, ShouldBeNil)
				})
			})
		})

		Convey("Named method", func() {
			logger, err := New("info", "")
			So(err, ShouldBeNil)

			Convey("When deriving a child logger", func() {
				child := logger.Named("incremental")

				Convey("It should log without affecting the parent", func() {
					So(child, ShouldNotBeNil)
					So(child, ShouldNotEqual, logger)
					So(func() { child.Info("test") }, ShouldNotPanic)
					So(func() { logger.Info("test") }, ShouldNotPanic)
				})
			})
		})

		Convey("Close method", func() {
			tempDir, err := os.MkdirTemp("", "logger_test")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tempDir)

			logger, err := New("info", filepath.Join(tempDir, "pipeline.log"))
			So(err, ShouldBeNil)

			Convey("When closing after a write", func() {
				logger.Info("test entry")

				Convey("It should not panic", func() {
					So(func() { logger.Close() }, ShouldNotPanic)
				})
			})
		})
	})
}
