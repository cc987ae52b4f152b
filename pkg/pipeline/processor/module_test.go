package processor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

func fileModule() processor.BaseModule {
	return processor.BaseModule{
		ModuleName:   "file",
		ModuleKind:   processor.KindInput,
		ShorthandKey: "path",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"path": settings.NewArg("path").Required().Build(),
				"mode": settings.NewArg("mode").ValidValues("gzip", "zip").Build(),
				"sep":  settings.NewArg("sep").Default(",").Build(),
			}
		},
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "input", processor.KindInput.String())
	assert.Equal(t, "transform", processor.KindTransform.String())
	assert.Equal(t, "output", processor.KindOutput.String())
	assert.Equal(t, "unknown", processor.Kind(0).String())
}

func TestTemplate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		settings any
		args     settings.Args
		want     settings.Values
	}{
		"nil binds every argument": {
			args: settings.Args{"path": "a.txt", "mode": "gzip"},
			want: settings.Values{"path": "a.txt", "mode": "gzip", "sep": ","},
		},
		"nil binds overridden defaults": {
			args: settings.Args{"path": "a.txt", "sep": ";"},
			want: settings.Values{"path": "a.txt", "mode": nil, "sep": ";"},
		},
		"shorthand": {
			settings: "b.txt",
			args:     settings.Args{},
			want:     settings.Values{"path": "b.txt", "sep": ","},
		},
		"shorthand ignores the argument bag": {
			settings: "b.txt",
			args:     settings.Args{"path": "other.txt", "mode": "zip", "sep": ";"},
			want:     settings.Values{"path": "b.txt", "sep": ","},
		},
		"structured": {
			settings: map[string]any{"path": "c.txt", "extra": 1},
			args:     settings.Args{"mode": "zip"},
			want:     settings.Values{"path": "c.txt", "sep": ",", "extra": 1},
		},
		"structured overrides a default": {
			settings: map[string]any{"path": "c.txt", "sep": "|"},
			args:     settings.Args{"sep": ";"},
			want:     settings.Values{"path": "c.txt", "sep": "|"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tpl, err := fileModule().Template(tc.settings)
			require.NoError(t, err)

			got, err := settings.ResolveValues(tpl, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTemplateErrors(t *testing.T) {
	t.Parallel()

	_, err := fileModule().Template(42)
	require.ErrorIs(t, err, processor.ErrInvalidSettings)

	noShorthand := fileModule()
	noShorthand.ShorthandKey = ""

	_, err = noShorthand.Template("x")
	require.ErrorIs(t, err, processor.ErrInvalidSettings)
}

func TestSequentialNeverOverlaps(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		calls   []string
		running atomic.Int32
		overlap atomic.Bool
	)

	sources := []string{"a.txt", "b.txt", "c.txt"}

	err := processor.Sequential(t.Context(), sources, func(_ context.Context, source string) error {
		if running.Add(1) > 1 {
			overlap.Store(true)
		}
		defer running.Add(-1)

		mu.Lock()
		calls = append(calls, "start "+source)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		calls = append(calls, "end "+source)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	assert.False(t, overlap.Load())
	assert.Equal(t, []string{
		"start a.txt", "end a.txt",
		"start b.txt", "end b.txt",
		"start c.txt", "end c.txt",
	}, calls)
}

func TestSequentialStopsOnError(t *testing.T) {
	t.Parallel()

	var seen []int

	err := processor.Sequential(t.Context(), []int{1, 2, 3}, func(_ context.Context, source int) error {
		seen = append(seen, source)
		if source == 2 {
			return assert.AnError
		}

		return nil
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestSequentialCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := processor.Sequential(ctx, []int{1}, func(context.Context, int) error {
		t.Fatal("must not run")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBaseModuleNoArgs(t *testing.T) {
	t.Parallel()

	m := processor.BaseModule{ModuleName: "stdout", ModuleKind: processor.KindOutput}
	assert.Equal(t, "stdout", m.Name())
	assert.Equal(t, processor.KindOutput, m.Kind())
	assert.Empty(t, m.DefaultArgs())
}
