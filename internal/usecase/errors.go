package usecase

import (
	"errors"

	"github.com/forPelevin/clipper/internal/ports"
	"github.com/forPelevin/clipper/internal/runctl"
)

var (
	// ErrCancelled is returned when the run token was observed set at a
	// stopping point.
	ErrCancelled    = errors.New("cancelled")
	ErrNoHighlights = errors.New("no highlights found")
)

// CollaboratorError wraps a failure of an external collaborator unchanged.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *CollaboratorError) Unwrap() error { return e.Err }

// classify maps a collaborator result to the phase outcome. A set token
// always wins; a missing transcript passes through as-is.
func classify(tok *runctl.Token, op string, err error) error {
	if tok.Cancelled() {
		return ErrCancelled
	}
	if err == nil {
		return nil
	}
	var tnf *ports.TranscriptNotFoundError
	if errors.As(err, &tnf) {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}
