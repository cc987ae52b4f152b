package output

import (
	"context"
	"io"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

// encode returns the line written for a record: strings and bytes as is,
// anything else as JSON with sorted keys.
func encode(rec processor.Record, pretty bool) ([]byte, error) {
	switch v := rec.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}

	if pretty {
		return sonic.ConfigStd.MarshalIndent(rec, "", "  ")
	}

	return sonic.ConfigStd.Marshal(rec)
}

// appendLine appends the encoded record and a line break to buf.
func appendLine(buf []byte, rec processor.Record, pretty bool) ([]byte, error) {
	data, err := encode(rec, pretty)
	if err != nil {
		return buf, errors.Wrap(err, "unable to encode record")
	}

	buf = append(buf, data...)

	return append(buf, '\n'), nil
}

// writeLine hands a whole line to w in a single call.
func writeLine(w io.Writer, rec processor.Record, pretty bool) error {
	line, err := appendLine(nil, rec, pretty)
	if err != nil {
		return err
	}

	_, err = w.Write(line)

	return errors.Wrap(err, "unable to write record")
}

// consume hands every record of in to fn and reports the upstream failure
// once the stream is exhausted.
func consume(ctx context.Context, in *stream.Stream[processor.Record], fn func(rec processor.Record) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-in.C:
			if !ok {
				return in.Err()
			}

			err := fn(rec)
			if err != nil {
				return err
			}
		}
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
