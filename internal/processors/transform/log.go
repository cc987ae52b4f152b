package transform

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

// Log writes every record to the run logger and passes it through.
func Log() processor.TransformModule {
	return newModule("log", "message", func() map[string]settings.ArgDescriptor {
		return map[string]settings.ArgDescriptor{
			"level":   settings.NewArg("level").Default("info").ValidValues("debug", "info", "warn", "error").Build(),
			"message": settings.NewArg("message").Default("record").Build(),
		}
	}, newLog)
}

func newLog(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Transform, error) {
	level, err := zapcore.ParseLevel(params.String("level", "info"))
	if err != nil {
		return nil, err
	}

	logger := loggerOrNop(info.Logger)
	message := params.String("message", "record")

	return &flow{concurrency: 1, fn: func(_ context.Context, rec processor.Record) ([]processor.Record, error) {
		logger.Log(level, message, zap.Any("record", rec))

		return one(rec), nil
	}}, nil
}
