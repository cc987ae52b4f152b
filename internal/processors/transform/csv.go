package transform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const defaultSeparator = ","

// CSVToJSON turns CSV lines into objects. The first line holds the column
// names unless headers is set.
func CSVToJSON() processor.TransformModule {
	return newModule("csvToJSON", "headers", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"headers":   settings.NewArg("headers").Description("Column names, read from the first line when not set").Build(),
			"separator": settings.NewArg("separator").Default(defaultSeparator).Description("Field separator").Build(),
		}
	}, newCSVToJSON)
}

func newCSVToJSON(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	sep, err := separator(params)
	if err != nil {
		return nil, err
	}

	headers := params.Strings("headers")

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		var line string

		switch v := rec.(type) {
		case string:
			line = v
		case []byte:
			line = string(v)
		default:
			return nil, errors.Wrapf(ErrUnexpectedRecord, "expected a CSV line, got %T", rec)
		}

		if strings.TrimSpace(line) == "" {
			return nil, nil
		}

		r := csv.NewReader(strings.NewReader(line))
		r.Comma = sep
		r.FieldsPerRecord = -1

		fields, err := r.Read()
		if err != nil {
			return nil, errors.Wrap(err, "unable to parse CSV line")
		}

		if headers == nil {
			headers = fields

			return nil, nil
		}

		if len(fields) != len(headers) {
			return nil, errors.Wrapf(ErrUnexpectedRecord, "%d fields for %d columns", len(fields), len(headers))
		}

		obj := make(map[string]any, len(headers))
		for i, name := range headers {
			obj[name] = fields[i]
		}

		return one(obj), nil
	}}, nil
}

// JSONToCSV turns objects into CSV lines, preceded by a header line. Columns
// default to the sorted keys of the first object.
func JSONToCSV() processor.TransformModule {
	return newModule("jsonToCSV", "headers", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"headers":     settings.NewArg("headers").Description("Columns to write, in order").Build(),
			"separator":   settings.NewArg("separator").Default(defaultSeparator).Description("Field separator").Build(),
			"writeHeader": settings.NewArg("writeHeader").Boolean().Default(true).Description("Emits the column names first").Build(),
		}
	}, newJSONToCSV)
}

func newJSONToCSV(_ processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	sep, err := separator(params)
	if err != nil {
		return nil, err
	}

	headers := params.Strings("headers")
	writeHeader := params.Bool("writeHeader", true)

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		obj, err := asObject(rec)
		if err != nil {
			return nil, err
		}

		res := make([]processor.Record, 0, 2)

		if headers == nil {
			headers = sortedKeys(obj)
		}

		if writeHeader {
			writeHeader = false

			line, err := csvLine(headers, sep)
			if err != nil {
				return nil, err
			}

			res = append(res, line)
		}

		row := make([]string, len(headers))

		for i, name := range headers {
			row[i], err = csvField(obj[name])
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", name)
			}
		}

		line, err := csvLine(row, sep)
		if err != nil {
			return nil, err
		}

		return append(res, line), nil
	}}, nil
}

func separator(params settings.Values) (rune, error) {
	sep := params.String("separator", defaultSeparator)
	if utf8.RuneCountInString(sep) != 1 {
		return 0, errors.Wrapf(settings.ErrInvalidArgument, "separator %q must be a single character", sep)
	}

	r, _ := utf8.DecodeRuneInString(sep)

	return r, nil
}

func csvLine(fields []string, sep rune) (string, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	w.Comma = sep

	err := w.Write(fields)
	if err == nil {
		w.Flush()
		err = w.Error()
	}

	if err != nil {
		return "", errors.Wrap(err, "unable to write CSV line")
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// csvField writes nested values as JSON.
func csvField(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case map[string]any, []any:
		data, err := sonic.ConfigStd.Marshal(v)

		return string(data), errors.Wrap(err, "unable to encode field")
	default:
		return fmt.Sprint(v), nil
	}
}
