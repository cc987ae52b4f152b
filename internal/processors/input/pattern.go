package input

import (
	"context"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

const defaultWatchInterval = time.Second

type patternModule struct {
	processor.BaseModule
}

// FilePattern reads every file matching a glob pattern, one after the other.
// Patterns support ** to match any number of directories.
func FilePattern() processor.InputModule {
	return &patternModule{BaseModule: processor.BaseModule{
		ModuleName:   "filePattern",
		ModuleKind:   processor.KindInput,
		ShorthandKey: "pattern",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"pattern": settings.NewArg("pattern").Required().Description("File(s) pattern").Build(),
				"watch":   settings.NewArg("watch").Boolean().Description("Enables watch mode for the file(s) pattern").Build(),
				"mode":    modeArg(),
			}
		},
	}}
}

func (m *patternModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.InputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, newPattern, nil
}

func newPattern(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Input, error) {
	pattern := params.String("pattern", "")
	if pattern == "" {
		return nil, errors.Wrap(ErrMissingSource, "must pass file(s) pattern")
	}

	if !doublestar.ValidatePathPattern(pattern) {
		return nil, errors.Wrapf(doublestar.ErrBadPattern, "%q", pattern)
	}

	return &patternInput{
		logger:   loggerOrNop(info.Logger),
		pattern:  pattern,
		mode:     params.String("mode", ""),
		watch:    params.Bool("watch", false),
		interval: defaultWatchInterval,
	}, nil
}

type patternInput struct {
	logger   *zap.Logger
	pattern  string
	mode     string
	interval time.Duration
	watch    bool
}

// Run reads the matched files in lexical order. In watch mode it keeps polling
// the pattern for new files until ctx is done.
func (p *patternInput) Run(ctx context.Context, emit chan<- processor.Record) error {
	seen := map[string]struct{}{}

	for {
		paths, err := p.match(seen)
		if err != nil {
			return err
		}

		err = processor.Sequential(ctx, paths, func(ctx context.Context, path string) error {
			p.logger.Debug("reading file", zap.String("path", path))

			return readFile(ctx, path, p.mode, emit)
		})
		if err != nil {
			return err
		}

		if !p.watch {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}
	}
}

func (p *patternInput) match(seen map[string]struct{}) ([]string, error) {
	matches, err := doublestar.FilepathGlob(p.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to glob %q", p.pattern)
	}

	sort.Strings(matches)

	paths := make([]string, 0, len(matches))

	for _, path := range matches {
		if _, ok := seen[path]; ok {
			continue
		}

		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	return paths, nil
}
