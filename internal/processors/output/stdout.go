package output

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

// flushSize is the number of bytes of complete lines an output buffers
// before handing them to the shared writer.
const flushSize = 4096

// stdout is shared by every Stdout module so lines of concurrent outputs
// never interleave.
var stdout = &lockedWriter{w: os.Stdout}

type stdoutModule struct {
	processor.BaseModule
	w io.Writer
}

// Stdout writes one line per record to the standard output.
func Stdout() processor.OutputModule {
	return newStdout(stdout)
}

// StdoutTo is Stdout writing to w. Outputs built from the same module share w.
func StdoutTo(w io.Writer) processor.OutputModule {
	return newStdout(&lockedWriter{w: w})
}

func newStdout(w *lockedWriter) processor.OutputModule {
	return &stdoutModule{
		w: w,
		BaseModule: processor.BaseModule{
			ModuleName: "stdout",
			ModuleKind: processor.KindOutput,
			Args: func() map[string]settings.ArgDescriptor {
				return map[string]settings.ArgDescriptor{
					"pretty": settings.NewArg("pretty").Boolean().Default(false).Description("Indents JSON records").Build(),
				}
			},
		},
	}
}

func (m *stdoutModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.OutputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, func(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Output, error) {
		return &stdoutOutput{w: m.w, pretty: params.Bool("pretty", false)}, nil
	}, nil
}

type stdoutOutput struct {
	w      io.Writer
	pretty bool
}

// Write buffers whole lines only: every call to the shared writer carries
// complete lines, so outputs writing to it concurrently never split a line.
func (o *stdoutOutput) Write(ctx context.Context, _ string, in *stream.Stream[processor.Record], done processor.Done) {
	buf := make([]byte, 0, flushSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}

		_, err := o.w.Write(buf)
		buf = buf[:0]

		return errors.Wrap(err, "unable to write records")
	}

	err := consume(ctx, in, func(rec processor.Record) error {
		var err error

		buf, err = appendLine(buf, rec, o.pretty)
		if err != nil {
			return err
		}

		if len(buf) >= flushSize {
			return flush()
		}

		return nil
	})

	flushErr := flush()
	if err == nil {
		err = flushErr
	}

	done(err)
}

// lockedWriter serialises writes of outputs sharing the same writer.
type lockedWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}
