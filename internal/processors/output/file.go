package output

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

const (
	ModeGzip = "gzip"
	ModeZstd = "zstd"
)

var ErrMissingTarget = errors.New("missing target")

type fileModule struct {
	processor.BaseModule
}

// File writes one line per record to a file, optionally compressed. Its
// shorthand is the file path.
func File() processor.OutputModule {
	return &fileModule{BaseModule: processor.BaseModule{
		ModuleName:   "file",
		ModuleKind:   processor.KindOutput,
		ShorthandKey: "path",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"path": settings.NewArg("path").Required().Description("File path").Build(),
				"mode": settings.NewArg("mode").ValidValues(ModeGzip, ModeZstd).Description("Defines file mode: gzip or zstd").Build(),
			}
		},
	}}
}

func (m *fileModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.OutputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, newFile, nil
}

func newFile(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Output, error) {
	path := params.String("path", "")
	if path == "" {
		return nil, errors.Wrap(ErrMissingTarget, "must pass a file path")
	}

	return &fileOutput{
		logger: loggerOrNop(info.Logger),
		path:   path,
		mode:   params.String("mode", ""),
	}, nil
}

type fileOutput struct {
	logger *zap.Logger
	path   string
	mode   string
}

func (o *fileOutput) Write(ctx context.Context, _ string, in *stream.Stream[processor.Record], done processor.Done) {
	done(o.write(ctx, in))
}

func (o *fileOutput) write(ctx context.Context, in *stream.Stream[processor.Record]) (err error) {
	err = os.MkdirAll(filepath.Dir(o.path), 0o755)
	if err != nil {
		return errors.Wrap(err, "unable to create directory")
	}

	file, err := os.Create(o.path)
	if err != nil {
		return errors.Wrap(err, "unable to create file")
	}

	// closers run last to first: buffer, compressor, file
	closers := []io.Closer{file}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	var w io.Writer = file

	switch o.mode {
	case "":
	case ModeGzip:
		gzWriter := gzip.NewWriter(file)
		closers = append(closers, gzWriter)
		w = gzWriter
	case ModeZstd:
		zstdWriter, err := zstd.NewWriter(file)
		if err != nil {
			return errors.Wrap(err, "zstd")
		}

		closers = append(closers, zstdWriter)
		w = zstdWriter
	default:
		return errors.Errorf("unsupported file mode %q", o.mode)
	}

	buf := bufio.NewWriter(w)
	closers = append(closers, flusher{buf})

	total := 0

	err = consume(ctx, in, func(rec processor.Record) error {
		total++

		return writeLine(buf, rec, false)
	})
	if err != nil {
		return err
	}

	o.logger.Debug("file written", zap.String("path", o.path), zap.Int("records", total))

	return nil
}

type flusher struct {
	*bufio.Writer
}

func (f flusher) Close() error {
	return f.Flush()
}
