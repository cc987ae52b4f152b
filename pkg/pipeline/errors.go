package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrRootMustBeSet    = errors.New("root pipeline must be set")
	ErrConfiguration    = errors.New("invalid pipeline configuration")
	ErrInvalidStage     = errors.New("invalid stage")
	ErrInvalidForkEntry = errors.New("invalid fork entry")
	ErrUnknownKind      = errors.New("unknown processor kind")
	ErrOutputPanic      = errors.New("output panicked")
)

// StageError is a configuration error raised while a stage is built or bound.
// It matches ErrConfiguration and unwraps to its cause.
type StageError struct {
	Err error
	Key string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Key, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	return target == ErrConfiguration
}

func stageError(key string, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Key: key, Err: err}
}
