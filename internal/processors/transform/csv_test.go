package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/internal/processors/transform"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

func TestCSVToJSON(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		settings any
		wantErr  error
		lines    []processor.Record
		want     []processor.Record
	}{
		"header line": {
			lines: []processor.Record{"id,name", `1,"Doe, John"`, "", []byte("2,Ann")},
			want: []processor.Record{
				map[string]any{"id": "1", "name": "Doe, John"},
				map[string]any{"id": "2", "name": "Ann"},
			},
		},
		"given headers": {
			settings: []any{"id", "name"},
			lines:    []processor.Record{"1,Ann"},
			want:     []processor.Record{map[string]any{"id": "1", "name": "Ann"}},
		},
		"given headers with another separator": {
			settings: []any{"id", "name"},
			lines:    []processor.Record{"1;Ann"},
			wantErr:  transform.ErrUnexpectedRecord,
		},
		"separator": {
			settings: map[string]any{"headers": []any{"id", "name"}, "separator": ";"},
			lines:    []processor.Record{"1;Ann"},
			want:     []processor.Record{map[string]any{"id": "1", "name": "Ann"}},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := run(t, mustBuild(t, transform.CSVToJSON(), tc.settings), tc.lines...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, res)
		})
	}
}

func TestCSVToJSONErrors(t *testing.T) {
	t.Parallel()

	_, err := run(t, mustBuild(t, transform.CSVToJSON(), nil), "a,b", "1,2,3")
	require.ErrorIs(t, err, transform.ErrUnexpectedRecord)

	_, err = run(t, mustBuild(t, transform.CSVToJSON(), nil), map[string]any{"a": 1})
	require.ErrorIs(t, err, transform.ErrUnexpectedRecord)

	_, err = build(t, transform.CSVToJSON(), map[string]any{"separator": ";;"}, processor.BuildInfo{})
	require.ErrorIs(t, err, settings.ErrInvalidArgument)
}

func TestJSONToCSV(t *testing.T) {
	t.Parallel()

	records := []processor.Record{
		map[string]any{"name": "Doe, John", "id": 1, "tags": []any{"a"}},
		map[string]any{"id": 2, "extra": true},
	}

	tcs := map[string]struct {
		settings any
		want     []processor.Record
	}{
		"columns from the first record": {
			want: []processor.Record{"id,name,tags", `1,"Doe, John","[""a""]"`, "2,,"},
		},
		"given columns": {
			settings: []any{"name", "id"},
			want:     []processor.Record{"name,id", `"Doe, John",1`, ",2"},
		},
		"without header": {
			settings: map[string]any{"headers": []any{"id"}, "writeHeader": "false", "separator": "\t"},
			want:     []processor.Record{"1", "2"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := run(t, mustBuild(t, transform.JSONToCSV(), tc.settings), records...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res)
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	lines, err := run(t, mustBuild(t, transform.JSONToCSV(), nil), map[string]any{"a": "x,y", "b": "z"})
	require.NoError(t, err)

	res, err := run(t, mustBuild(t, transform.CSVToJSON(), nil), lines...)
	require.NoError(t, err)
	assert.Equal(t, []processor.Record{map[string]any{"a": "x,y", "b": "z"}}, res)
}
