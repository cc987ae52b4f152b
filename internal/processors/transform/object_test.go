package transform_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/internal/processors/transform"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
)

func TestKeysValues(t *testing.T) {
	t.Parallel()

	rec := map[string]any{"b": 2, "a": 1, "c": "x"}

	res, err := run(t, mustBuild(t, transform.Keys(), nil), rec)
	require.NoError(t, err)
	assert.Equal(t, []processor.Record{[]any{"a", "b", "c"}}, res)

	res, err = run(t, mustBuild(t, transform.Values(), nil), rec)
	require.NoError(t, err)
	assert.Equal(t, []processor.Record{[]any{1, 2, "x"}}, res)

	_, err = run(t, mustBuild(t, transform.Keys(), nil), "not an object")
	require.ErrorIs(t, err, transform.ErrUnexpectedRecord)
}

func TestPickByOmitBy(t *testing.T) {
	t.Parallel()

	rec := map[string]any{
		"zero":  0,
		"one":   1,
		"empty": "",
		"text":  "x",
		"no":    false,
		"nil":   nil,
		"nan":   math.NaN(),
		"list":  []any{},
	}

	short := func(key string, _ any) bool {
		return len(key) <= 3
	}

	tcs := map[string]struct {
		module   processor.TransformModule
		settings any
		want     map[string]any
	}{
		"pickBy truthy": {
			module: transform.PickBy(),
			want:   map[string]any{"one": 1, "text": "x", "list": []any{}},
		},
		"omitBy truthy": {
			module: transform.OmitBy(),
			want:   map[string]any{"zero": 0, "empty": "", "no": false, "nil": nil},
		},
		"pickBy key predicate": {
			module:   transform.PickBy(),
			settings: short,
			want:     map[string]any{"one": 1, "no": false, "nil": nil},
		},
		"omitBy value predicate": {
			module: transform.OmitBy(),
			settings: func(value any) bool {
				s, ok := value.(string)

				return ok && strings.TrimSpace(s) == ""
			},
			want: map[string]any{"zero": 0, "one": 1, "text": "x", "no": false, "nil": nil, "list": []any{}},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := run(t, mustBuild(t, tc.module, tc.settings), rec)
			require.NoError(t, err)
			require.Len(t, res, 1)

			got, ok := res[0].(map[string]any)
			require.True(t, ok)

			// NaN never equals itself, compare the rest
			delete(got, "nan")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPickByInvalidFunc(t *testing.T) {
	t.Parallel()

	_, err := build(t, transform.PickBy(), 42, processor.BuildInfo{})
	require.ErrorIs(t, err, transform.ErrInvalidFunc)
}

func TestJSONArray(t *testing.T) {
	t.Parallel()

	res, err := run(t, mustBuild(t, transform.JSONArray(), nil), `[1,{"a":"b"}]`, "", []any{"x"}, []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, []processor.Record{float64(1), map[string]any{"a": "b"}, "x"}, res)

	_, err = run(t, mustBuild(t, transform.JSONArray(), nil), `{"a":1}`)
	require.Error(t, err)

	_, err = run(t, mustBuild(t, transform.JSONArray(), nil), 42)
	require.ErrorIs(t, err, transform.ErrUnexpectedRecord)
}
