package definition

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const (
	argKey = "$arg"
	envKey = "$env"
)

// toExpr converts a decoded YAML value into a settings template.
func toExpr(value any) (settings.Expr, error) {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v[argKey]; ok {
			desc, err := descriptor(argKey, v)
			if err != nil {
				return nil, err
			}

			return settings.Arg(desc), nil
		}

		if _, ok := v[envKey]; ok {
			desc, err := descriptor(envKey, v)
			if err != nil {
				return nil, err
			}

			return settings.Env(desc), nil
		}

		m := make(settings.Mapping, len(v))

		for k, elem := range v {
			expr, err := toExpr(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}

			m[k] = expr
		}

		return m, nil
	case []any:
		s := make(settings.Sequence, len(v))

		for i, elem := range v {
			expr, err := toExpr(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}

			s[i] = expr
		}

		return s, nil
	default:
		return settings.Literal{Value: value}, nil
	}
}

func descriptor(key string, v map[string]any) (settings.ArgDescriptor, error) {
	name, ok := v[key].(string)
	if !ok || name == "" {
		return settings.ArgDescriptor{}, errors.Wrapf(ErrInvalidDefinition, "%s must be a name", key)
	}

	b := settings.NewArg(name)

	for k, value := range v {
		switch k {
		case key:
		case "required":
			if isTrue(value) {
				b.Required()
			}
		case "boolean":
			if isTrue(value) {
				b.Boolean()
			}
		case "default":
			b.Default(value)
		case "validValues":
			values, ok := value.([]any)
			if !ok {
				return settings.ArgDescriptor{}, errors.Wrapf(ErrInvalidDefinition, "%s %s: validValues must be a list", key, name)
			}

			b.ValidValues(values...)
		case "description":
			b.Description(fmt.Sprint(value))
		default:
			return settings.ArgDescriptor{}, errors.Wrapf(ErrInvalidDefinition, "%s %s: unknown field %q", key, name, k)
		}
	}

	return b.Build(), nil
}

func isTrue(value any) bool {
	b, ok := value.(bool)

	return ok && b
}
