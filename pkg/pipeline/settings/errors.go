package settings

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingArgument = errors.New("required argument not provided")
	ErrInvalidArgument = errors.New("invalid argument value")
	ErrUnsupportedExpr = errors.New("unsupported settings expression")
)

const (
	// ContextArg is the group of placeholders resolved against the run's argument bag.
	ContextArg = "arg"
	// ContextEnv is the group of placeholders resolved against the process environment.
	ContextEnv = "env"
	// ContextSetting is the group of concrete values checked against processor descriptors.
	ContextSetting = "setting"
)

// ArgError reports a failed argument resolution or validation.
type ArgError struct {
	err     error
	Value   any
	Context string
	Name    string
	Allowed []any
}

func (e *ArgError) Error() string {
	switch {
	case errors.Is(e.err, ErrMissingArgument):
		return fmt.Sprintf("required %s %s not provided", e.Context, e.Name)
	case len(e.Allowed) > 0:
		return fmt.Sprintf("%s %s: value %v is not one of %v", e.Context, e.Name, e.Value, e.Allowed)
	default:
		return fmt.Sprintf("%s %s: invalid value %v: %v", e.Context, e.Name, e.Value, e.err)
	}
}

func (e *ArgError) Unwrap() error {
	return e.err
}

func missingArg(group, name string) error {
	return &ArgError{err: ErrMissingArgument, Context: group, Name: name}
}

func invalidArg(group, name string, value any, allowed []any, cause error) error {
	err := ErrInvalidArgument
	if cause != nil {
		err = errors.Wrap(ErrInvalidArgument, cause.Error())
	}

	return &ArgError{err: err, Context: group, Name: name, Value: value, Allowed: allowed}
}
