package pipeline

import (
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/model"
)

type RunOption func(e *Executor)

// WithBufferSize sets the capacity of every fork buffer.
func WithBufferSize(size int) RunOption {
	return func(e *Executor) {
		if size > 0 {
			e.bufferSize = size
		}
	}
}

func WithLogger(logger *zap.Logger) RunOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPipelineOptions registers run observers such as a drawer or a measure.
func WithPipelineOptions(opts ...model.PipelineOption) RunOption {
	return func(e *Executor) {
		e.opts = append(e.opts, opts...)
	}
}

// WithLookupEnv replaces the environment used to resolve $env placeholders.
func WithLookupEnv(lookup func(string) (string, bool)) RunOption {
	return func(e *Executor) {
		if lookup != nil {
			e.lookupEnv = lookup
		}
	}
}

type BuilderOption func(b *Builder)

// WithRegistry replaces the processor table the builder looks kinds up in.
func WithRegistry(lookup Lookup) BuilderOption {
	return func(b *Builder) {
		if lookup != nil {
			b.tree.lookup = lookup
		}
	}
}
