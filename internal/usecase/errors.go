package usecase

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrMissingRequiredFields = player.ErrMissingRequiredColumns
	ErrCheckpointMissing     = crerr.New("checkpoint missing")
)

// StageError is the error a run returns when a stage fails. It names the stage
// and unwraps to the cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if crerr.As(err, &existing) {
		return err
	}
	return &StageError{Stage: stage, Err: crerr.WithStack(err)}
}
