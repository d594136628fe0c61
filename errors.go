package conveyor

import (
	"errors"
	"fmt"
)

var (
	// Stage errors. Every error surfaced by a job run wraps one of these.
	ErrOpening    = errors.New("conveyor: opening failed")
	ErrReading    = errors.New("conveyor: reading failed")
	ErrProcessing = errors.New("conveyor: processing failed")
	ErrWriting    = errors.New("conveyor: writing failed")
	ErrClosing    = errors.New("conveyor: closing failed")

	// Job errors.
	ErrErrorThreshold    = errors.New("conveyor: error threshold exceeded")
	ErrInterrupted       = errors.New("conveyor: job interrupted")
	ErrInvalidParameters = errors.New("conveyor: invalid job parameters")
	ErrRetryExhausted    = errors.New("conveyor: retry attempts exhausted")

	// Data errors.
	ErrBatchSealed     = errors.New("conveyor: batch is sealed")
	ErrPayloadType     = errors.New("conveyor: unexpected payload type")
	ErrNoSinks         = errors.New("conveyor: no sinks configured")
	ErrUnmatchedRecord = errors.New("conveyor: record matched no route")
)

// Stage identifies where in a job run an error happened.
type Stage string

const (
	StageOpening    Stage = "opening"
	StageReading    Stage = "reading"
	StageProcessing Stage = "processing"
	StageWriting    Stage = "writing"
	StageClosing    Stage = "closing"
)

func (s Stage) sentinel() error {
	switch s {
	case StageOpening:
		return ErrOpening
	case StageReading:
		return ErrReading
	case StageProcessing:
		return ErrProcessing
	case StageWriting:
		return ErrWriting
	case StageClosing:
		return ErrClosing
	default:
		return nil
	}
}

// StageError records the failing stage, the component involved (for
// example "reader" or "writer") and the underlying cause.
//
// errors.Is matches both the stage sentinel and the cause.
type StageError struct {
	Stage     Stage
	Component string
	Err       error
}

// NewStageError wraps err for the given stage. A nil err yields nil.
func NewStageError(stage Stage, component string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Component: component, Err: err}
}

func (e *StageError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("conveyor: %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("conveyor: %s %s failed: %v", e.Stage, e.Component, e.Err)
}

// Unwrap exposes the stage sentinel and the cause.
func (e *StageError) Unwrap() []error {
	if s := e.Stage.sentinel(); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

// StageOf reports the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
