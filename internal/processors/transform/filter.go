package transform

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// Filter keeps the records matching a predicate. The predicate is either a
// function or a field that must equal a value.
func Filter() processor.TransformModule {
	return newModule("filter", "func", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"func":   settings.NewArg("func").Description("Predicate function").Build(),
			"field":  settings.NewArg("field").Description("Field of object records to compare").Build(),
			"equals": settings.NewArg("equals").Description("Value the field must equal").Build(),
		}
	}, newFilter)
}

type predicate func(ctx context.Context, rec processor.Record) (bool, error)

func newFilter(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	pred, err := filterPredicate(params)
	if err != nil {
		return nil, err
	}

	return &flow{concurrency: 1, fn: func(ctx context.Context, rec processor.Record) ([]processor.Record, error) {
		ok, err := pred(ctx, rec)
		if err != nil || !ok {
			return nil, err
		}

		return one(rec), nil
	}}, nil
}

func filterPredicate(params settings.Values) (predicate, error) {
	if fn, ok := params.Get("func"); ok {
		switch f := fn.(type) {
		case func(processor.Record) bool:
			return func(_ context.Context, rec processor.Record) (bool, error) {
				return f(rec), nil
			}, nil
		case func(context.Context, processor.Record) (bool, error):
			return f, nil
		default:
			return nil, errors.Wrapf(ErrInvalidFunc, "filter: unexpected %T", fn)
		}
	}

	field := params.String("field", "")
	if field == "" {
		return nil, errors.Wrap(settings.ErrMissingArgument, "filter needs func or field")
	}

	want := fmt.Sprint(params["equals"])

	return func(_ context.Context, rec processor.Record) (bool, error) {
		obj, err := asObject(rec)
		if err != nil {
			return false, err
		}

		value, ok := obj[field]

		return ok && fmt.Sprint(value) == want, nil
	}, nil
}
