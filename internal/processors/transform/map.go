package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// Map replaces every record by the result of a function. With a concurrency
// above 1 records are mapped in parallel and their order is not preserved.
func Map() processor.TransformModule {
	return newModule("map", "func", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"func":        settings.NewArg("func").Required().Description("Mapping function").Build(),
			"concurrency": settings.NewArg("concurrency").Default(1).Description("Number of records mapped at the same time").Build(),
		}
	}, newMap)
}

func newMap(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	concurrency, err := params.Int("concurrency", 1)
	if err != nil {
		return nil, err
	}

	value, _ := params.Get("func")

	var fn recordFn

	switch f := value.(type) {
	case func(processor.Record) processor.Record:
		fn = func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
			return one(f(rec)), nil
		}
	case func(context.Context, processor.Record) (processor.Record, error):
		fn = func(ctx context.Context, rec processor.Record) ([]processor.Record, error) {
			res, err := f(ctx, rec)
			if err != nil {
				return nil, err
			}

			return one(res), nil
		}
	default:
		return nil, errors.Wrapf(ErrInvalidFunc, "map: unexpected %T", value)
	}

	return &flow{concurrency: concurrency, fn: fn}, nil
}
