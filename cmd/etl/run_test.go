package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/internal/config"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const copyDefinition = `
name: copy
stages:
  - input: file
    settings: {path: {$arg: in, required: true}}
  - transform: json
  - fork:
      - output: file
        settings: {path: {$arg: out, required: true}}
`

func writeDefinition(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "copy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(copyDefinition), 0o600))

	return path
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	dot := filepath.Join(dir, "copy.dot")

	require.NoError(t, os.WriteFile(in, []byte("{\"b\":2,\"a\":1}\n"), 0o600))

	cfg := &config.Config{Definition: writeDefinition(t, dir), DrawFile: dot, BufferSize: 4}

	err := run(t.Context(), cfg, settings.Args{"in": in, "out": out}, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1,\"b\":2}\n", string(data))
	assert.FileExists(t, dot)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := run(t.Context(), &config.Config{}, nil, zap.NewNop(), prometheus.NewRegistry())
	require.ErrorIs(t, err, ErrMissingDefinition)

	cfg := &config.Config{Definition: writeDefinition(t, dir), BufferSize: 1}
	err = run(t.Context(), cfg, settings.Args{"in": filepath.Join(dir, "in.jsonl")}, zap.NewNop(), prometheus.NewRegistry())
	require.ErrorIs(t, err, settings.ErrMissingArgument)
}

func TestModulesCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"modules"})
	require.NoError(t, cmd.Execute())

	for _, want := range []string{"inputs:", "  filePattern", "transforms:", "  pick", "outputs:", "  http", "required"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestRunCmdRejectsMalformedArgs(t *testing.T) {
	t.Setenv("ETL_DEFINITION", "unused.yaml")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--arg", "novalue"})

	err := cmd.Execute()
	require.ErrorIs(t, err, settings.ErrInvalidArgument)
}
