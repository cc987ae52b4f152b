package transform

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// JSONArray emits every element of array records, one record each. String or
// byte records are decoded as a JSON array first.
func JSONArray() processor.TransformModule {
	return newModule("jsonArray", "", nil, func(processor.BuildInfo, settings.Values, settings.Args) (processor.Transform, error) {
		return &flow{concurrency: 1, fn: splitArray}, nil
	})
}

func splitArray(_ context.Context, rec processor.Record) ([]processor.Record, error) {
	var data []byte

	switch v := rec.(type) {
	case []any:
		return v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, errors.Wrapf(ErrUnexpectedRecord, "expected an array, got %T", rec)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var elems []any

	err := sonic.Unmarshal(data, &elems)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode JSON array")
	}

	return elems, nil
}
