package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies which part of the linear pipeline an error came from
type Stage int

const (
	StageResolve Stage = iota + 1
	StageAllocate
	StageCompile
	StageDispatch
)

func (s Stage) String() string {
	switch s {
	case StageResolve:
		return "resolve"
	case StageAllocate:
		return "allocate"
	case StageCompile:
		return "compile"
	case StageDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// StageError wraps a failure with the pipeline stage and operation that
// produced it. Every stage failure is fatal to the run: the pipeline never
// proceeds past a failed stage.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, op string, err error) error {
	return &StageError{Stage: stage, Op: op, Err: err}
}

// IsStage reports whether err belongs to the given pipeline stage
func IsStage(err error, stage Stage) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage == stage
	}
	return false
}
