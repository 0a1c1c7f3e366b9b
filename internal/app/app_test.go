package app

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

func TestExitCode(t *testing.T) {
	Convey("Given the exit status contract", t, func() {
		Convey("A clean run should exit 0", func() {
			So(ExitCode(nil), ShouldEqual, ExitOK)
		})

		Convey("Lock contention should exit with the busy code", func() {
			So(ExitCode(domain.ErrBusy), ShouldEqual, ExitBusy)

			wrapped := errors.Join(errors.New("run aborted"), domain.ErrBusy)
			So(ExitCode(wrapped), ShouldEqual, ExitBusy)
		})

		Convey("A stage timeout should exit with the timeout code", func() {
			err := &domain.TimeoutError{
				Stage: domain.StageCapturing,
				Err:   context.DeadlineExceeded,
			}
			So(ExitCode(err), ShouldEqual, ExitTimeout)
		})

		Convey("Any other failure should exit with the fatal code", func() {
			err := &domain.FatalStageError{
				Stage: domain.StageTriggering,
				Err:   errors.New("remote restore exited with status 1"),
			}
			So(ExitCode(err), ShouldEqual, ExitFatal)
			So(ExitCode(errors.New("load config: no such file")), ShouldEqual, ExitFatal)
		})

		Convey("The codes should be pairwise distinct", func() {
			codes := map[int]bool{ExitOK: true, ExitBusy: true, ExitFatal: true, ExitTimeout: true}
			So(len(codes), ShouldEqual, 4)
		})
	})
}
