package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/pkg/pipeline"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

type inputFunc func(ctx context.Context, emit chan<- processor.Record) error

func (f inputFunc) Run(ctx context.Context, emit chan<- processor.Record) error {
	return f(ctx, emit)
}

type transformFunc func(ctx context.Context, in <-chan processor.Record, out chan<- processor.Record) error

func (f transformFunc) Transform(ctx context.Context, in <-chan processor.Record, out chan<- processor.Record) error {
	return f(ctx, in, out)
}

type outputFunc func(ctx context.Context, key string, in *stream.Stream[processor.Record], done processor.Done)

func (f outputFunc) Write(ctx context.Context, key string, in *stream.Stream[processor.Record], done processor.Done) {
	f(ctx, key, in, done)
}

type inputModule struct {
	run inputFunc
	processor.BaseModule
}

func (m *inputModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.InputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)

	return tpl, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Input, error) {
		return m.run, nil
	}, err
}

type transformModule struct {
	fn transformFunc
	processor.BaseModule
}

func (m *transformModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.TransformFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)

	return tpl, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Transform, error) {
		return m.fn, nil
	}, err
}

type outputModule struct {
	write outputFunc
	processor.BaseModule
}

func (m *outputModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.OutputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)

	return tpl, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Output, error) {
		return m.write, nil
	}, err
}

// fakeRegistry implements pipeline.Lookup on top of test modules.
type fakeRegistry struct {
	inputs     map[string]processor.InputModule
	transforms map[string]processor.TransformModule
	outputs    map[string]processor.OutputModule
}

func (r *fakeRegistry) Input(kind string) (processor.InputModule, bool) {
	m, ok := r.inputs[kind]

	return m, ok
}

func (r *fakeRegistry) Transform(kind string) (processor.TransformModule, bool) {
	m, ok := r.transforms[kind]

	return m, ok
}

func (r *fakeRegistry) Output(kind string) (processor.OutputModule, bool) {
	m, ok := r.outputs[kind]

	return m, ok
}

// collector gathers what every output received, by stage key.
type collector struct {
	got map[string][]processor.Record
	mu  sync.Mutex
}

func newCollector() *collector {
	return &collector{got: map[string][]processor.Record{}}
}

func (c *collector) add(key string, rec processor.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.got[key] = append(c.got[key], rec)
}

func (c *collector) get(key string) []processor.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]processor.Record{}, c.got[key]...)
}

func (c *collector) write(delay time.Duration) outputFunc {
	return func(_ context.Context, key string, in *stream.Stream[processor.Record], done processor.Done) {
		for rec := range in.C {
			time.Sleep(delay)
			c.add(key, rec)
		}

		done(in.Err())
	}
}

func emitAll(records ...processor.Record) inputFunc {
	return func(ctx context.Context, emit chan<- processor.Record) error {
		for _, rec := range records {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case emit <- rec:
			}
		}

		return nil
	}
}

// testRegistry returns a registry with:
//   - input "letters" emitting A, B, C and "failing" returning assert.AnError after A
//   - input "strict" requiring a "source" argument with mode in {gzip, zip}
//   - transform "lower" and "broken" failing on the first record
//   - output "collect" into c, "slow" into c, "reject" and "panic"
func testRegistry(c *collector, started *atomic.Bool) *fakeRegistry {
	letters := inputFunc(func(ctx context.Context, emit chan<- processor.Record) error {
		started.Store(true)

		return emitAll("A", "B", "C")(ctx, emit)
	})

	return &fakeRegistry{
		inputs: map[string]processor.InputModule{
			"letters": &inputModule{run: letters, BaseModule: processor.BaseModule{ModuleName: "letters", ModuleKind: processor.KindInput}},
			"failing": &inputModule{
				run: func(ctx context.Context, emit chan<- processor.Record) error {
					started.Store(true)

					err := emitAll("A")(ctx, emit)
					if err != nil {
						return err
					}

					return errInput
				},
				BaseModule: processor.BaseModule{ModuleName: "failing", ModuleKind: processor.KindInput},
			},
			"strict": &inputModule{run: letters, BaseModule: processor.BaseModule{
				ModuleName:   "strict",
				ModuleKind:   processor.KindInput,
				ShorthandKey: "source",
				Args: func() map[string]settings.ArgDescriptor {
					return map[string]settings.ArgDescriptor{
						"source": settings.NewArg("source").Required().Build(),
						"mode":   settings.NewArg("mode").ValidValues("gzip", "zip").Build(),
					}
				},
			}},
		},
		transforms: map[string]processor.TransformModule{
			"lower": &transformModule{
				fn: func(ctx context.Context, in <-chan processor.Record, out chan<- processor.Record) error {
					for rec := range in {
						select {
						case <-ctx.Done():
							return ctx.Err()
						case out <- "lower " + rec.(string):
						}
					}

					return nil
				},
				BaseModule: processor.BaseModule{ModuleName: "lower", ModuleKind: processor.KindTransform},
			},
			"broken": &transformModule{
				fn: func(_ context.Context, in <-chan processor.Record, _ chan<- processor.Record) error {
					<-in

					return errTransform
				},
				BaseModule: processor.BaseModule{ModuleName: "broken", ModuleKind: processor.KindTransform},
			},
		},
		outputs: map[string]processor.OutputModule{
			"collect": &outputModule{write: c.write(0), BaseModule: processor.BaseModule{ModuleName: "collect", ModuleKind: processor.KindOutput}},
			"slow":    &outputModule{write: c.write(5 * time.Millisecond), BaseModule: processor.BaseModule{ModuleName: "slow", ModuleKind: processor.KindOutput}},
			"reject": &outputModule{
				write: func(_ context.Context, _ string, _ *stream.Stream[processor.Record], done processor.Done) {
					done(errOutput)
				},
				BaseModule: processor.BaseModule{ModuleName: "reject", ModuleKind: processor.KindOutput},
			},
			"panic": &outputModule{
				write: func(context.Context, string, *stream.Stream[processor.Record], processor.Done) {
					panic("boom")
				},
				BaseModule: processor.BaseModule{ModuleName: "panic", ModuleKind: processor.KindOutput},
			},
		},
	}
}

func newBuilder(t *testing.T, c *collector, started *atomic.Bool) *pipeline.Builder {
	t.Helper()

	return pipeline.NewBuilder("test", pipeline.WithRegistry(testRegistry(c, started)))
}

func requireNotStarted(t *testing.T, started *atomic.Bool) {
	t.Helper()

	time.Sleep(10 * time.Millisecond)
	require.False(t, started.Load(), "input must not run")
}
