package input

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func writeGzip(t *testing.T, path string, lines ...string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	defer file.Close()

	w := gzip.NewWriter(file)
	_, err = w.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	defer file.Close()

	w := zip.NewWriter(file)

	for _, name := range []string{"a.txt", "b.txt"} {
		entry, err := w.Create(name)
		require.NoError(t, err)

		_, err = entry.Write([]byte(entries[name]))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
}

func build(t *testing.T, module processor.InputModule, settingsOrShorthand any, args settings.Args) processor.Input {
	t.Helper()

	tpl, factory, err := module.Build("test#1", settingsOrShorthand)
	require.NoError(t, err)

	params, err := settings.ResolveValues(tpl, args)
	require.NoError(t, err)

	require.NoError(t, settings.Validate(params, module.DefaultArgs()))

	in, err := factory(processor.BuildInfo{Key: "test#1"}, params, args)
	require.NoError(t, err)

	return in
}

func runInput(t *testing.T, ctx context.Context, in processor.Input) ([]string, error) {
	t.Helper()

	emit := make(chan processor.Record)
	errC := make(chan error, 1)

	go func() {
		defer close(emit)
		errC <- in.Run(ctx, emit)
	}()

	res := []string{}
	for rec := range emit {
		res = append(res, rec.(string))
	}

	return res, <-errC
}

func TestFileInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.txt"), "a", "b", "c")
	writeGzip(t, filepath.Join(dir, "data.gz"), "d", "e")
	writeZip(t, filepath.Join(dir, "data.zip"), map[string]string{"a.txt": "f\ng", "b.txt": "h"})

	tcs := map[string]struct {
		settings any
		args     settings.Args
		want     []string
	}{
		"shorthand": {
			settings: filepath.Join(dir, "plain.txt"),
			args:     settings.Args{},
			want:     []string{"a", "b", "c"},
		},
		"from args": {
			args: settings.Args{"path": filepath.Join(dir, "plain.txt")},
			want: []string{"a", "b", "c"},
		},
		"gzip": {
			args: settings.Args{"path": filepath.Join(dir, "data.gz"), "mode": "gzip"},
			want: []string{"d", "e"},
		},
		"zip": {
			args: settings.Args{"path": filepath.Join(dir, "data.zip"), "mode": "zip"},
			want: []string{"f", "g", "h"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := runInput(t, t.Context(), build(t, File(), tc.settings, tc.args))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFileInputErrors(t *testing.T) {
	t.Parallel()

	tpl, _, err := File().Build("file#1", nil)
	require.NoError(t, err)

	_, err = settings.ResolveValues(tpl, settings.Args{})
	require.ErrorIs(t, err, settings.ErrMissingArgument)

	_, err = settings.ResolveValues(tpl, settings.Args{"path": "x", "mode": "rar"})
	require.ErrorIs(t, err, settings.ErrInvalidArgument)

	_, err = runInput(t, t.Context(), build(t, File(), filepath.Join(t.TempDir(), "missing.txt"), settings.Args{}))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilePatternIsSequential(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "sub", "3.txt"), "3a", "3b")
	writeFile(t, filepath.Join(dir, "a", "1.txt"), "1a", "1b")
	writeFile(t, filepath.Join(dir, "a", "2.txt"), "2a")
	writeFile(t, filepath.Join(dir, "a", "skip.log"), "no")

	got, err := runInput(t, t.Context(), build(t, FilePattern(), filepath.Join(dir, "**", "*.txt"), settings.Args{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"1a", "1b", "2a", "3a", "3b"}, got)
}

func TestFilePatternNoMatch(t *testing.T) {
	t.Parallel()

	got, err := runInput(t, t.Context(), build(t, FilePattern(), filepath.Join(t.TempDir(), "*.txt"), settings.Args{}))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilePatternWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1.txt"), "first")

	in := build(t, FilePattern(), map[string]any{"pattern": filepath.Join(dir, "*.txt"), "watch": "true"}, settings.Args{})
	pattern, ok := in.(*patternInput)
	require.True(t, ok)
	assert.True(t, pattern.watch)

	pattern.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	emit := make(chan processor.Record)
	errC := make(chan error, 1)

	go func() {
		defer close(emit)
		errC <- in.Run(ctx, emit)
	}()

	assert.Equal(t, "first", <-emit)

	// renamed so the poll never sees a partially written file
	writeFile(t, filepath.Join(dir, "2.tmp"), "second")
	require.NoError(t, os.Rename(filepath.Join(dir, "2.tmp"), filepath.Join(dir, "2.txt")))
	assert.Equal(t, "second", <-emit)

	cancel()

	for range emit { //nolint:revive
	}

	require.NoError(t, <-errC)
}

func TestDirectoryInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.txt"), "z")
	writeFile(t, filepath.Join(dir, "a", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a", "c.csv"), "c")

	got, err := runInput(t, t.Context(), build(t, Directory(), dir, settings.Args{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "z"}, got)

	got, err = runInput(t, t.Context(), build(t, Directory(), map[string]any{"dir": dir, "include": "**/*.txt"}, settings.Args{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "z"}, got)
}

func TestReadCanceled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, path, "a", "b")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := readFile(ctx, path, "", make(chan processor.Record))
	require.ErrorIs(t, err, context.Canceled)

	err = readFile(t.Context(), path, "rar", make(chan processor.Record))
	require.ErrorIs(t, err, ErrUnsupportedMode)
}
