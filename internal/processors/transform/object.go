package transform

import (
	"context"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// Keys replaces object records by the list of their keys, sorted.
func Keys() processor.TransformModule {
	return newModule("keys", "", nil, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Transform, error) {
		return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
			obj, err := asObject(rec)
			if err != nil {
				return nil, err
			}

			res := make([]any, 0, len(obj))
			for _, k := range sortedKeys(obj) {
				res = append(res, k)
			}

			return one(res), nil
		}}, nil
	})
}

// Values replaces object records by the list of their values, in key order.
func Values() processor.TransformModule {
	return newModule("values", "", nil, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Transform, error) {
		return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
			obj, err := asObject(rec)
			if err != nil {
				return nil, err
			}

			res := make([]any, 0, len(obj))
			for _, k := range sortedKeys(obj) {
				res = append(res, obj[k])
			}

			return one(res), nil
		}}, nil
	})
}

func predicateArgs(description string) func() map[string]settings.ArgDescriptor {
	return func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"func": settings.NewArg("func").Description(description).Build(),
		}
	}
}

// PickBy keeps the entries of object records matching a predicate. Without
// one, entries with a truthy value are kept.
func PickBy() processor.TransformModule {
	return newModule("pickBy", "func", predicateArgs("Predicate of the entries to keep"), func(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
		return newEntries("pickBy", params, true)
	})
}

// OmitBy drops the entries of object records matching a predicate. Without
// one, entries with a truthy value are dropped.
func OmitBy() processor.TransformModule {
	return newModule("omitBy", "func", predicateArgs("Predicate of the entries to drop"), func(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
		return newEntries("omitBy", params, false)
	})
}

type entryPredicate func(key string, value any) bool

func newEntries(name string, params settings.Values, keep bool) (processor.Transform, error) {
	pred := entryPredicate(func(_ string, value any) bool { return truthy(value) })

	if fn, ok := params.Get("func"); ok {
		switch f := fn.(type) {
		case func(string, any) bool:
			pred = f
		case func(any) bool:
			pred = func(_ string, value any) bool { return f(value) }
		default:
			return nil, errors.Wrapf(ErrInvalidFunc, "%s: unexpected %T", name, fn)
		}
	}

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		obj, err := asObject(rec)
		if err != nil {
			return nil, err
		}

		res := make(map[string]any, len(obj))

		for k, v := range obj {
			if pred(k, v) == keep {
				res[k] = v
			}
		}

		return one(res), nil
	}}, nil
}

// truthy is false for nil, false, zero numbers and empty strings.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		// NaN is not truthy either
		return rv.Float() != 0 && rv.Float() == rv.Float()
	default:
		return true
	}
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
