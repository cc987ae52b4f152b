package settings

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Values is a resolved, concrete settings mapping.
type Values map[string]any

func (v Values) Get(name string) (any, bool) {
	value, ok := v[name]
	if !ok || value == nil {
		return nil, false
	}

	return value, true
}

func (v Values) String(name, fallback string) string {
	value, ok := v.Get(name)
	if !ok {
		return fallback
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}

func (v Values) Bool(name string, fallback bool) bool {
	value, ok := v.Get(name)
	if !ok {
		return fallback
	}

	b, err := toBool(value)
	if err != nil {
		return fallback
	}

	return b
}

func (v Values) Int(name string, fallback int) (int, error) {
	value, ok := v.Get(name)
	if !ok {
		return fallback, nil
	}

	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidArgument, "%s: %v", name, err)
		}

		return i, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "%s: unexpected type %T", name, value)
	}
}

// Strings accepts a []string, a []any of strings or a single string.
func (v Values) Strings(name string) []string {
	value, ok := v.Get(name)
	if !ok {
		return nil
	}

	switch s := value.(type) {
	case []string:
		return append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, elem := range s {
			out = append(out, fmt.Sprint(elem))
		}

		return out
	case string:
		return []string{s}
	default:
		return []string{fmt.Sprint(s)}
	}
}
