package dawg

import (
	"errors"
	"fmt"
)

// The error taxonomy of the engine. Every rejected operation returns one of
// the four typed errors below, usually wrapping one of the sentinel values so
// callers can branch either on the category (errors.As) or on the specific
// failure (errors.Is). Model errors are synchronous and leave the model
// untouched; readiness is surfaced as a state the caller can await, not as an
// error to retry against.

var (
	ErrInvalidTempo        = errors.New("tempo out of range")
	ErrInvalidPan          = errors.New("pan out of range")
	ErrInvalidVolume       = errors.New("volume out of range")
	ErrInvalidLoopRegion   = errors.New("loop end must be greater than loop start")
	ErrInvalidGridDivision = errors.New("unsupported grid division")
	ErrInvalidClipBounds   = errors.New("invalid clip bounds")
	ErrInvalidNote         = errors.New("invalid note")
	ErrInvalidParameter    = errors.New("parameter out of range")
	ErrUnknownEffectType   = errors.New("unknown effect type")
	ErrTrackNotFound       = errors.New("track not found")
	ErrClipNotFound        = errors.New("clip not found")
	ErrEffectNotFound      = errors.New("effect not found")
	ErrNotAFolder          = errors.New("track is not a folder")
	ErrKindMismatch        = errors.New("operation does not apply to this track kind")
	ErrEmptyRenderRegion   = errors.New("render region is empty")
	ErrRenderCancelled     = errors.New("render cancelled")
	ErrEngineClosed        = errors.New("engine closed")
)

// ValidationError is returned when a parameter is out of its documented range.
// The operation is rejected before any mutation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("validation: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError is returned when an operation references a missing track,
// clip or effect id. No partial mutation takes place.
type NotFoundError struct {
	Kind string // "track", "clip", "effect"
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// GraphError is returned when a signal graph mutation cannot be applied
// without leaving a node unconnected. The graph is left in its prior
// consistent state.
type GraphError struct {
	Op  string
	Err error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph: %s: %v", e.Op, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

// NotReadyError is returned for operations that require an active audio
// context before the context has reached its ready state. Recoverable by
// retrying after the ready transition.
type NotReadyError struct {
	State ContextState
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("audio context not ready (state: %v)", e.State)
}

func validationErr(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func notFoundErr(kind, id string, err error) error {
	return &NotFoundError{Kind: kind, ID: id, Err: err}
}
