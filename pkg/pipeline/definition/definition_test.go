package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/pkg/pipeline"
	"github.com/askiada/go-etl/pkg/pipeline/definition"
	"github.com/askiada/go-etl/pkg/pipeline/model"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const events = `
name: events
stages:
  - input: file
    settings:
      path: {$arg: in, required: true, description: events file}
  - transform: json
  - fork:
      - output: file
        settings: {path: {$arg: all}}
      - stages:
          - transform: pick
            settings: [id]
          - fork:
              - output: file
                settings:
                  path: {$env: IDS_FILE, required: true}
              - output: file
                settings:
                  path: {$arg: copy, default: copy.txt}
                  mode: gzip
`

func TestLoadBuildsTheTree(t *testing.T) {
	t.Parallel()

	root, err := definition.Load([]byte(events))
	require.NoError(t, err)

	assert.Equal(t, "events", root.Name())
	assert.Equal(t, 3, root.Leaves())

	stages := root.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, "file#1", stages[0].Key())
	assert.Equal(t, "json#1", stages[1].Key())

	fork, ok := stages[2].(model.Fork)
	require.True(t, ok)
	require.Len(t, fork, 2)
	assert.Equal(t, "file#2", fork[0].Key())
	assert.Equal(t, model.ChildStageType, fork[1].StageType())
}

func TestLoadPlaceholders(t *testing.T) {
	t.Parallel()

	root, err := definition.Load([]byte(events))
	require.NoError(t, err)

	input := root.Input()

	_, err = settings.ResolveValues(input.Settings, settings.Args{})
	require.ErrorIs(t, err, settings.ErrMissingArgument)

	params, err := settings.ResolveValues(input.Settings, settings.Args{"in": "events.txt"})
	require.NoError(t, err)
	assert.Equal(t, "events.txt", params["path"])
}

func TestLoadAndExecute(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(in, []byte("{\"id\":1,\"type\":\"a\"}\n{\"id\":2,\"type\":\"b\"}\n"), 0o600))

	root, err := definition.Load([]byte(events))
	require.NoError(t, err)

	env := map[string]string{"IDS_FILE": filepath.Join(dir, "ids.txt")}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]

		return v, ok
	}

	args := settings.Args{
		"in":   in,
		"all":  filepath.Join(dir, "all.txt"),
		"copy": filepath.Join(dir, "copy.gz"),
	}

	err = pipeline.Execute(t.Context(), root, args, pipeline.WithLookupEnv(lookup))
	require.NoError(t, err)

	all, err := os.ReadFile(filepath.Join(dir, "all.txt"))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1,\"type\":\"a\"}\n{\"id\":2,\"type\":\"b\"}\n", string(all))

	ids, err := os.ReadFile(filepath.Join(dir, "ids.txt"))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", string(ids))

	assert.FileExists(t, filepath.Join(dir, "copy.gz"))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		yaml    string
		wantErr error
	}{
		"not yaml": {
			yaml:    "stages: [",
			wantErr: definition.ErrInvalidDefinition,
		},
		"unknown kind": {
			yaml:    "name: x\nstages:\n  - input: sql\n",
			wantErr: pipeline.ErrUnknownKind,
		},
		"output outside a fork": {
			yaml:    "name: x\nstages:\n  - input: file\n  - output: stdout\n",
			wantErr: definition.ErrInvalidDefinition,
		},
		"two kinds in one stage": {
			yaml:    "name: x\nstages:\n  - input: file\n    transform: json\n",
			wantErr: definition.ErrInvalidDefinition,
		},
		"transform as fork entry": {
			yaml:    "name: x\nstages:\n  - input: file\n  - fork:\n      - transform: json\n",
			wantErr: definition.ErrInvalidDefinition,
		},
		"stage after fork": {
			yaml:    "name: x\nstages:\n  - input: file\n  - fork:\n      - output: stdout\n  - transform: json\n",
			wantErr: pipeline.ErrConfiguration,
		},
		"unknown placeholder field": {
			yaml:    "name: x\nstages:\n  - input: file\n    settings: {path: {$arg: in, optional: true}}\n",
			wantErr: definition.ErrInvalidDefinition,
		},
		"missing input": {
			yaml:    "name: x\nstages:\n  - transform: json\n",
			wantErr: pipeline.ErrConfiguration,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := definition.Load([]byte(tc.yaml))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(events), 0o600))

	root, err := definition.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "events", root.Name())

	_, err = definition.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
