package processor

import (
	"context"

	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

// Record is one element of the sequence flowing through a pipeline.
type Record = any

type Kind int

const (
	KindInput Kind = iota + 1
	KindTransform
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindTransform:
		return "transform"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// BuildInfo is handed to a factory when a stage is bound for a run.
type BuildInfo struct {
	Logger   *zap.Logger
	Key      string
	Pipeline string
	RunID    string
}

// Done is the completion signal injected into an output. It must be called
// exactly once, with nil on success.
type Done func(err error)

// Input produces the records of a run.
type Input interface {
	Run(ctx context.Context, emit chan<- Record) error
}

// Transform reads in until it is closed and writes to out. The engine closes out.
type Transform interface {
	Transform(ctx context.Context, in <-chan Record, out chan<- Record) error
}

// Output consumes its fork to the end and signals done. An upstream failure
// is reported by in.Err and should be passed to done.
type Output interface {
	Write(ctx context.Context, key string, in *stream.Stream[Record], done Done)
}

type (
	InputFactory     func(info BuildInfo, params settings.Values, args settings.Args) (Input, error)
	TransformFactory func(info BuildInfo, params settings.Values, args settings.Args) (Transform, error)
	OutputFactory    func(info BuildInfo, params settings.Values, args settings.Args) (Output, error)
)

// Module describes a kind of processor.
type Module interface {
	Name() string
	Kind() Kind
	// DefaultArgs declares every configurable argument of the processor.
	DefaultArgs() map[string]settings.ArgDescriptor
}

// InputModule builds input stages. settingsOrShorthand is either a structured
// settings value, a module specific shorthand or nil.
type InputModule interface {
	Module
	Build(key string, settingsOrShorthand any) (settings.Expr, InputFactory, error)
}

type TransformModule interface {
	Module
	Build(key string, settingsOrShorthand any) (settings.Expr, TransformFactory, error)
}

type OutputModule interface {
	Module
	Build(key string, settingsOrShorthand any) (settings.Expr, OutputFactory, error)
}
