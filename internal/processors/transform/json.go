package transform

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// JSON decodes string or byte records. Blank lines are dropped.
func JSON() processor.TransformModule {
	return newModule("json", "", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"skipInvalid": settings.NewArg("skipInvalid").Boolean().Default(false).Description("Drops records that are not valid JSON").Build(),
		}
	}, newJSON)
}

func newJSON(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	logger := loggerOrNop(info.Logger)
	skipInvalid := params.Bool("skipInvalid", false)

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		var data []byte

		switch v := rec.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			return one(rec), nil
		}

		if strings.TrimSpace(string(data)) == "" {
			return nil, nil
		}

		var decoded any

		err := sonic.Unmarshal(data, &decoded)
		if err != nil {
			if skipInvalid {
				logger.Debug("invalid JSON record dropped", zap.Error(err))

				return nil, nil
			}

			return nil, errors.Wrap(err, "unable to decode JSON record")
		}

		return one(decoded), nil
	}}, nil
}
