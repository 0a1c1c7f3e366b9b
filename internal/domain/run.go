package domain

import "time"

// Kind identifies one pipeline variant. Each kind has its own lock
// domain and its own stage plan; runs of different kinds may overlap,
// runs of the same kind must not.
type Kind string

const (
	KindFull        Kind = "full"
	KindIncremental Kind = "incremental"
	KindArchiveLog  Kind = "archivelog"
	KindDRTrigger   Kind = "drtrigger"
)

// Stage is the orchestrator's position in the pipeline.
type Stage string

const (
	StageInit        Stage = "INIT"
	StageLocking     Stage = "LOCKING"
	StageCapturing   Stage = "CAPTURING"
	StageCleaning    Stage = "CLEANING"
	StageReplicating Stage = "REPLICATING"
	StageTriggering  Stage = "TRIGGERING"
	StageDone        Stage = "DONE"
	StageAborted     Stage = "ABORTED"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeAborted Outcome = "aborted"
)

// Run is one pipeline execution attempt. It exists only for the
// duration of the attempt; nothing is persisted beyond the log.
type Run struct {
	ID        string
	Kind      Kind
	Level     int
	StartedAt time.Time
	Stage     Stage
	Outcome   Outcome
}

// Plan selects which stages a kind executes. Archive-log runs skip
// control-file capture, DR-trigger runs execute only the trigger.
type Plan struct {
	Level              int
	Capture            bool
	CaptureControlFile bool
	Clean              bool
	Replicate          bool
	Trigger            bool
}

// PlanFor returns the stage plan for a pipeline kind. Backup levels
// come from configuration; the orchestrator is otherwise
// level-agnostic and forwards the value to the provider.
func PlanFor(kind Kind, fullLevel, incrementalLevel int) Plan {
	switch kind {
	case KindFull:
		return Plan{Level: fullLevel, Capture: true, CaptureControlFile: true, Clean: true, Replicate: true, Trigger: true}
	case KindIncremental:
		return Plan{Level: incrementalLevel, Capture: true, CaptureControlFile: true, Clean: true, Replicate: true, Trigger: true}
	case KindArchiveLog:
		return Plan{Capture: true, Clean: true, Replicate: true, Trigger: true}
	case KindDRTrigger:
		return Plan{Trigger: true}
	}
	return Plan{}
}
