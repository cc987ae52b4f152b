package settings

import (
	"sort"

	"github.com/pkg/errors"
)

// Expr is a settings template node. It is one of Literal, ArgRef, EnvRef,
// Sequence or Mapping.
type Expr interface {
	eval(r *resolver) (any, error)
}

// Literal is a concrete value, returned as is.
type Literal struct {
	Value any
}

// ArgRef is a placeholder resolved against the run's argument bag.
type ArgRef struct {
	ArgDescriptor
}

// EnvRef is a placeholder resolved against the process environment.
type EnvRef struct {
	ArgDescriptor
}

// Sequence is resolved element-wise into a []any.
type Sequence []Expr

// Mapping is resolved key-wise into a Values.
type Mapping map[string]Expr

func (l Literal) eval(*resolver) (any, error) {
	return l.Value, nil
}

func (a ArgRef) eval(r *resolver) (any, error) {
	value, ok := r.args[a.Name]

	return r.bind(ContextArg, a.ArgDescriptor, value, ok)
}

func (e EnvRef) eval(r *resolver) (any, error) {
	value, ok := r.lookupEnv(e.Name)

	return r.bind(ContextEnv, e.ArgDescriptor, value, ok)
}

func (s Sequence) eval(r *resolver) (any, error) {
	out := make([]any, len(s))

	for i, elem := range s {
		v, err := evalExpr(elem, r)
		if err != nil {
			return nil, errors.Wrapf(err, "index %d", i)
		}

		out[i] = v
	}

	return out, nil
}

func (m Mapping) eval(r *resolver) (any, error) {
	out := make(Values, len(m))

	// sorted so the first reported error does not depend on map iteration
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		v, err := evalExpr(m[k], r)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}

		out[k] = v
	}

	return out, nil
}

func evalExpr(expr Expr, r *resolver) (any, error) {
	if expr == nil {
		return nil, nil
	}

	return expr.eval(r)
}

// Lift converts a plain value into an Expr. Nested map[string]any and []any
// are walked so placeholders can sit at any depth; Expr values are kept.
func Lift(value any) Expr {
	switch v := value.(type) {
	case nil:
		return nil
	case Expr:
		return v
	case map[string]any:
		m := make(Mapping, len(v))
		for k, elem := range v {
			m[k] = Lift(elem)
		}

		return m
	case Values:
		return Lift(map[string]any(v))
	case []any:
		s := make(Sequence, len(v))
		for i, elem := range v {
			s[i] = Lift(elem)
		}

		return s
	default:
		return Literal{Value: v}
	}
}

// FromDescriptors returns a Mapping with one ArgRef per descriptor, so every
// declared argument is taken from the run's argument bag.
func FromDescriptors(descs map[string]ArgDescriptor) Mapping {
	m := make(Mapping, len(descs))
	for name, desc := range descs {
		if desc.Name == "" {
			desc.Name = name
		}

		m[name] = ArgRef{ArgDescriptor: desc}
	}

	return m
}
