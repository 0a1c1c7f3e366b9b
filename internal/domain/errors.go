package domain

import (
	"errors"
	"fmt"
)

// ErrBusy reports that another run of the same kind currently holds
// the execution lock. It is an expected concurrency outcome, not a
// fault: overlapping runs abort instead of queueing.
var ErrBusy = errors.New("pipeline already running")

// FatalStageError aborts the remaining pipeline. The guard is still
// released on the way out.
type FatalStageError struct {
	Stage Stage
	Err   error
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("fatal failure in stage %s: %v", e.Stage, e.Err)
}

func (e *FatalStageError) Unwrap() error { return e.Err }

// DegradedStageError is recorded and the pipeline proceeds. Cleanup
// and replication failures degrade storage efficiency or DR
// freshness but do not corrupt this run; the next scheduled run
// retries.
type DegradedStageError struct {
	Stage Stage
	Err   error
}

func (e *DegradedStageError) Error() string {
	return fmt.Sprintf("degraded failure in stage %s: %v", e.Stage, e.Err)
}

func (e *DegradedStageError) Unwrap() error { return e.Err }

// TimeoutError reports that an external capability exceeded its
// bound. Treated as fatal for the stage so a hung tool cannot wedge
// the guard.
type TimeoutError struct {
	Stage Stage
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out: %v", e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
