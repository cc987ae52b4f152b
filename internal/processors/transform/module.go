package transform

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

var (
	ErrUnexpectedRecord = errors.New("unexpected record")
	ErrInvalidFunc      = errors.New("invalid function")
)

type module struct {
	factory processor.TransformFactory
	processor.BaseModule
}

// Build accepts any shorthand: a value that is not a settings mapping is
// assigned to the shorthand key of the module.
func (m *module) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.TransformFactory, error) {
	switch settingsOrShorthand.(type) {
	case nil, string, map[string]any, settings.Values, settings.Mapping:
	default:
		if m.ShorthandKey != "" {
			settingsOrShorthand = map[string]any{m.ShorthandKey: settingsOrShorthand}
		}
	}

	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, m.factory, nil
}

func newModule(name, shorthand string, args func() map[string]settings.ArgDescriptor, factory processor.TransformFactory) processor.TransformModule {
	return &module{
		factory: factory,
		BaseModule: processor.BaseModule{
			ModuleName:   name,
			ModuleKind:   processor.KindTransform,
			ShorthandKey: shorthand,
			Args:         args,
		},
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func asObject(rec processor.Record) (map[string]any, error) {
	switch v := rec.(type) {
	case map[string]any:
		return v, nil
	case settings.Values:
		return v, nil
	default:
		return nil, errors.Wrapf(ErrUnexpectedRecord, "expected an object, got %T", rec)
	}
}
