package input

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

type directoryModule struct {
	processor.BaseModule
}

// Directory reads every regular file below a directory, in lexical order.
// An optional include pattern is matched against the path relative to dir.
func Directory() processor.InputModule {
	return &directoryModule{BaseModule: processor.BaseModule{
		ModuleName:   "directory",
		ModuleKind:   processor.KindInput,
		ShorthandKey: "dir",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"dir":     settings.NewArg("dir").Required().Description("Directory to read").Build(),
				"include": settings.NewArg("include").Description("Pattern of the files to read, relative to dir").Build(),
				"mode":    modeArg(),
			}
		},
	}}
}

func (m *directoryModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.InputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, newDirectory, nil
}

func newDirectory(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Input, error) {
	dir := params.String("dir", "")
	if dir == "" {
		return nil, errors.Wrap(ErrMissingSource, "must pass a directory")
	}

	include := filepath.ToSlash(params.String("include", ""))
	if include != "" && !doublestar.ValidatePattern(include) {
		return nil, errors.Wrapf(doublestar.ErrBadPattern, "%q", include)
	}

	return &lines{
		logger: loggerOrNop(info.Logger),
		mode:   params.String("mode", ""),
		list: func(ctx context.Context) ([]string, error) {
			return listDirectory(ctx, dir, include)
		},
	}, nil
}

func listDirectory(ctx context.Context, dir, include string) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)

	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if include != "" {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}

			if ok, _ := doublestar.Match(include, filepath.ToSlash(rel)); !ok {
				return nil
			}
		}

		// the walk function runs on several goroutines
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", dir)
	}

	sort.Strings(paths)

	return paths, nil
}
