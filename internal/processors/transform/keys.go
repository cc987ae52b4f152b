package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

func keysArgs(description string) func() map[string]settings.ArgDescriptor {
	return func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"keys": settings.NewArg("keys").Required().Description(description).Build(),
		}
	}
}

// Pick keeps only the given keys of object records.
func Pick() processor.TransformModule {
	return newModule("pick", "keys", keysArgs("Keys to keep"), func(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
		return newKeys(params, true)
	})
}

// Omit drops the given keys of object records.
func Omit() processor.TransformModule {
	return newModule("omit", "keys", keysArgs("Keys to drop"), func(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
		return newKeys(params, false)
	})
}

func newKeys(params settings.Values, keep bool) (processor.Transform, error) {
	keys := params.Strings("keys")
	if len(keys) == 0 {
		return nil, errors.Wrap(settings.ErrMissingArgument, "keys")
	}

	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		obj, err := asObject(rec)
		if err != nil {
			return nil, err
		}

		res := make(map[string]any, len(obj))

		for k, v := range obj {
			if _, ok := set[k]; ok == keep {
				res[k] = v
			}
		}

		return one(res), nil
	}}, nil
}
