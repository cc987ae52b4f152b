package settings

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Args is the flat argument bag supplied for one run.
type Args map[string]any

// ParseArgs builds an Args from "name=value" pairs.
func ParseArgs(pairs []string) (Args, error) {
	args := make(Args, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.Wrapf(ErrInvalidArgument, "malformed argument %q, expected name=value", pair)
		}

		args[name] = value
	}

	return args, nil
}

// Option configures a resolution.
type Option func(r *resolver)

// WithLookupEnv replaces os.LookupEnv for EnvRef placeholders.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(r *resolver) {
		if lookup != nil {
			r.lookupEnv = lookup
		}
	}
}

type resolver struct {
	args      Args
	lookupEnv func(string) (string, bool)
}

func newResolver(args Args, opts ...Option) *resolver {
	r := &resolver{
		args:      args,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve evaluates the template against args and returns a fully concrete value.
// Neither the template nor args are modified, so resolving the same pair twice
// yields equal results.
func Resolve(template Expr, args Args, opts ...Option) (any, error) {
	return evalExpr(template, newResolver(args, opts...))
}

// ResolveValues resolves a mapping template. A nil template yields empty Values.
func ResolveValues(template Expr, args Args, opts ...Option) (Values, error) {
	out, err := Resolve(template, args, opts...)
	if err != nil {
		return nil, err
	}

	switch v := out.(type) {
	case nil:
		return Values{}, nil
	case Values:
		return v, nil
	case map[string]any:
		return Values(v), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedExpr, "settings must resolve to a mapping, got %T", out)
	}
}

func (r *resolver) bind(group string, desc ArgDescriptor, value any, ok bool) (any, error) {
	if !ok {
		if desc.Required && !desc.HasDefault {
			return nil, missingArg(group, desc.Name)
		}

		if !desc.HasDefault {
			return nil, nil
		}

		value = desc.Default
	}

	return check(group, desc, value)
}

// check applies the boolean coercion and the allow-set of desc to value.
func check(group string, desc ArgDescriptor, value any) (any, error) {
	if desc.Boolean {
		b, err := toBool(value)
		if err != nil {
			return nil, invalidArg(group, desc.Name, value, nil, err)
		}

		value = b
	}

	if len(desc.ValidValues) > 0 && !contains(desc.ValidValues, value) {
		return nil, invalidArg(group, desc.Name, value, desc.ValidValues, nil)
	}

	return value, nil
}

// Validate checks concrete values against processor descriptors.
func Validate(values Values, descs map[string]ArgDescriptor) error {
	for name, desc := range descs {
		if desc.Name == "" {
			desc.Name = name
		}

		value, ok := values[name]
		if !ok || value == nil {
			if desc.Required && !desc.HasDefault {
				return missingArg(ContextSetting, desc.Name)
			}

			continue
		}

		checked, err := check(ContextSetting, desc, value)
		if err != nil {
			return err
		}

		values[name] = checked
	}

	return nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	default:
		return strconv.ParseBool(fmt.Sprint(v))
	}
}

func contains(allowed []any, value any) bool {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) || looselyEqual(a, value) {
			return true
		}
	}

	return false
}

// looselyEqual matches a string against the text form of a boolean or a
// number, as arguments from the command line are always strings, and numbers
// of different types by value. Nothing else is compared by its text form.
func looselyEqual(a, b any) bool {
	if s, ok := a.(string); ok {
		return isScalar(b) && fmt.Sprint(b) == s
	}

	if s, ok := b.(string); ok {
		return isScalar(a) && fmt.Sprint(a) == s
	}

	x, ok := toFloat(a)
	if !ok {
		return false
	}

	y, ok := toFloat(b)

	return ok && x == y
}

func isScalar(v any) bool {
	if _, ok := v.(bool); ok {
		return true
	}

	_, ok := toFloat(v)

	return ok
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
