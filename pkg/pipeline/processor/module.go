package processor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

var ErrInvalidSettings = errors.New("invalid settings")

// BaseModule carries the identity of a concrete module.
type BaseModule struct {
	Args         func() map[string]settings.ArgDescriptor
	ModuleName   string
	ShorthandKey string
	ModuleKind   Kind
}

func (b BaseModule) Name() string {
	return b.ModuleName
}

func (b BaseModule) Kind() Kind {
	return b.ModuleKind
}

func (b BaseModule) DefaultArgs() map[string]settings.ArgDescriptor {
	if b.Args == nil {
		return map[string]settings.ArgDescriptor{}
	}

	return b.Args()
}

// Template returns the settings template of a stage. Without settings, every
// declared argument is bound to the run's argument bag. Explicit settings or a
// string shorthand (which sets ShorthandKey) never read the bag: arguments
// they leave out take their declared default.
func (b BaseModule) Template(settingsOrShorthand any) (settings.Expr, error) {
	if settingsOrShorthand == nil {
		return settings.FromDescriptors(b.DefaultArgs()), nil
	}

	tpl := settings.Mapping{}

	for name, desc := range b.DefaultArgs() {
		if desc.HasDefault {
			tpl[name] = settings.Literal{Value: desc.Default}
		}
	}

	switch s := settingsOrShorthand.(type) {
	case string:
		if b.ShorthandKey == "" {
			return nil, errors.Wrapf(ErrInvalidSettings, "%s does not accept a shorthand", b.ModuleName)
		}

		tpl[b.ShorthandKey] = settings.Literal{Value: s}

		return tpl, nil
	case settings.Mapping:
		for k, v := range s {
			tpl[k] = v
		}

		return tpl, nil
	case map[string]any:
		return b.Template(settings.Lift(s))
	case settings.Values:
		return b.Template(settings.Lift(s))
	default:
		return nil, errors.Wrapf(ErrInvalidSettings, "%s: unexpected settings type %T", b.ModuleName, settingsOrShorthand)
	}
}

// Sequential runs fn on every source, one at a time: a source starts only
// once the previous one returned. It stops at the first error.
func Sequential[S any](ctx context.Context, sources []S, fn func(ctx context.Context, source S) error) error {
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "source %d", i)
		}

		err := fn(ctx, source)
		if err != nil {
			return errors.Wrapf(err, "source %d", i)
		}
	}

	return nil
}
