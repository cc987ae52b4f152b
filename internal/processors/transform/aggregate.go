package transform

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// aggregate is a Transform folding every record with add, then emitting the
// records returned by result once its input is exhausted.
type aggregate struct {
	add    func(ctx context.Context, rec processor.Record) error
	result func() []processor.Record
}

func (a *aggregate) Transform(ctx context.Context, in <-chan processor.Record, out chan<- processor.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-in:
			if !ok {
				return a.emit(ctx, out)
			}

			err := a.add(ctx, rec)
			if err != nil {
				return err
			}
		}
	}
}

func (a *aggregate) emit(ctx context.Context, out chan<- processor.Record) error {
	for _, rec := range a.result() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- rec:
		}
	}

	return nil
}

// Reduce folds the whole stream into a single record, emitted when the
// stream ends. Nothing is emitted for an empty stream without an initial value.
func Reduce() processor.TransformModule {
	return newModule("reduce", "func", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"func":    settings.NewArg("func").Required().Description("Reducer function").Build(),
			"initial": settings.NewArg("initial").Description("Initial accumulator").Build(),
		}
	}, newReduce)
}

func newReduce(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	value, _ := params.Get("func")

	var fn func(ctx context.Context, acc any, rec processor.Record) (any, error)

	switch f := value.(type) {
	case func(any, processor.Record) any:
		fn = func(_ context.Context, acc any, rec processor.Record) (any, error) {
			return f(acc, rec), nil
		}
	case func(context.Context, any, processor.Record) (any, error):
		fn = f
	default:
		return nil, errors.Wrapf(ErrInvalidFunc, "reduce: unexpected %T", value)
	}

	acc, seen := params.Get("initial")

	return &aggregate{
		add: func(ctx context.Context, rec processor.Record) error {
			var err error

			acc, err = fn(ctx, acc, rec)
			seen = true

			return err
		},
		result: func() []processor.Record {
			if !seen {
				return nil
			}

			return one(acc)
		},
	}, nil
}

// GroupBy gathers the records of the whole stream by key, emitted as a single
// object mapping every key to its records. The key is either a field of
// object records, records without it being grouped under "", or the result
// of a function.
func GroupBy() processor.TransformModule {
	return newModule("groupBy", "field", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"field": settings.NewArg("field").Description("Field of object records to group by").Build(),
			"func":  settings.NewArg("func").Description("Function returning the group of a record").Build(),
		}
	}, newGroupBy)
}

func newGroupBy(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	key, err := groupKey(params)
	if err != nil {
		return nil, err
	}

	groups := map[string]any{}
	seen := false

	return &aggregate{
		add: func(_ context.Context, rec processor.Record) error {
			k, err := key(rec)
			if err != nil {
				return err
			}

			seen = true

			group, _ := groups[k].([]any)
			groups[k] = append(group, rec)

			return nil
		},
		result: func() []processor.Record {
			if !seen {
				return nil
			}

			return one(groups)
		},
	}, nil
}

func groupKey(params settings.Values) (func(rec processor.Record) (string, error), error) {
	if fn, ok := params.Get("func"); ok {
		f, ok := fn.(func(processor.Record) string)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidFunc, "groupBy: unexpected %T", fn)
		}

		return func(rec processor.Record) (string, error) {
			return f(rec), nil
		}, nil
	}

	field := params.String("field", "")
	if field == "" {
		return nil, errors.Wrap(settings.ErrMissingArgument, "groupBy needs field or func")
	}

	return func(rec processor.Record) (string, error) {
		obj, err := asObject(rec)
		if err != nil {
			return "", err
		}

		value, ok := obj[field]
		if !ok || value == nil {
			return "", nil
		}

		return fmt.Sprint(value), nil
	}, nil
}
