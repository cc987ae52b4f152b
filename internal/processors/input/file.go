package input

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

var ErrMissingSource = errors.New("missing source")

type fileModule struct {
	processor.BaseModule
}

// File reads one file line by line. Its shorthand is the file path.
func File() processor.InputModule {
	return &fileModule{BaseModule: processor.BaseModule{
		ModuleName:   "file",
		ModuleKind:   processor.KindInput,
		ShorthandKey: "path",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"path": settings.NewArg("path").Required().Description("File path").Build(),
				"mode": modeArg(),
			}
		},
	}}
}

func (m *fileModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.InputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, newFile, nil
}

func newFile(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Input, error) {
	path := params.String("path", "")
	if path == "" {
		return nil, errors.Wrap(ErrMissingSource, "must pass a file path")
	}

	return &lines{
		logger: loggerOrNop(info.Logger),
		mode:   params.String("mode", ""),
		list: func(context.Context) ([]string, error) {
			return []string{path}, nil
		},
	}, nil
}
