package input

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const (
	ModeGzip = "gzip"
	ModeZip  = "zip"
)

var ErrUnsupportedMode = errors.New("unsupported file mode")

// maxLineSize bounds a single record.
const maxLineSize = 16 * 1024 * 1024

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func modeArg() settings.ArgDescriptor {
	return settings.NewArg("mode").
		ValidValues(ModeGzip, ModeZip).
		Description("Defines file(s) mode: gzip or zip").
		Build()
}

// lines emits every line of the files returned by list, one file after the other.
type lines struct {
	logger *zap.Logger
	list   func(ctx context.Context) ([]string, error)
	mode   string
}

func (l *lines) Run(ctx context.Context, emit chan<- processor.Record) error {
	paths, err := l.list(ctx)
	if err != nil {
		return err
	}

	l.logger.Debug("reading files", zap.Int("total", len(paths)))

	return processor.Sequential(ctx, paths, func(ctx context.Context, path string) error {
		return readFile(ctx, path, l.mode, emit)
	})
}

func readFile(ctx context.Context, path, mode string, emit chan<- processor.Record) error {
	switch mode {
	case "":
		file, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "unable to open file")
		}
		defer file.Close()

		return scan(ctx, file, emit)
	case ModeGzip:
		file, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "unable to open file")
		}
		defer file.Close()

		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return errors.Wrapf(err, "gzip %s", path)
		}
		defer gzReader.Close()

		return scan(ctx, gzReader, emit)
	case ModeZip:
		reader, err := zip.OpenReader(path)
		if err != nil {
			return errors.Wrapf(err, "zip %s", path)
		}
		defer reader.Close()

		for _, entry := range reader.File {
			if entry.FileInfo().IsDir() {
				continue
			}

			err = scanZipEntry(ctx, entry, emit)
			if err != nil {
				return errors.Wrapf(err, "zip %s: %s", path, entry.Name)
			}
		}

		return nil
	default:
		return errors.Wrapf(ErrUnsupportedMode, "%q", mode)
	}
}

func scanZipEntry(ctx context.Context, entry *zip.File, emit chan<- processor.Record) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	return scan(ctx, rc, emit)
}

func scan(ctx context.Context, r io.Reader, emit chan<- processor.Record) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case emit <- scanner.Text():
		}
	}

	return errors.Wrap(scanner.Err(), "unable to read lines")
}
