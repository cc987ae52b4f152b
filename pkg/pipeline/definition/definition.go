// Package definition loads pipeline trees from YAML documents.
//
// A document names the pipeline and lists its stages:
//
//	name: events
//	stages:
//	  - input: filePattern
//	    settings:
//	      pattern: {$arg: pattern, required: true}
//	  - transform: json
//	  - fork:
//	      - output: stdout
//	      - stages:
//	          - transform: pick
//	            settings: [id, type]
//	          - fork:
//	              - output: file
//	                settings: {path: {$env: EVENTS_FILE, default: events.txt}}
//
// A mapping holding a $arg key is resolved against the run's arguments, one
// holding a $env key against the environment. Both accept required, default,
// validValues, boolean and description.
package definition

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/askiada/go-etl/pkg/pipeline"
	"github.com/askiada/go-etl/pkg/pipeline/model"
)

var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Document is the YAML shape of a pipeline.
type Document struct {
	Name   string  `yaml:"name"`
	Stages []Stage `yaml:"stages"`
}

// Stage is one entry of a stage list. Exactly one of Input, Transform,
// Output, Fork or Stages is set.
type Stage struct {
	Settings  any     `yaml:"settings,omitempty"`
	Input     string  `yaml:"input,omitempty"`
	Transform string  `yaml:"transform,omitempty"`
	Output    string  `yaml:"output,omitempty"`
	Fork      []Stage `yaml:"fork,omitempty"`
	Stages    []Stage `yaml:"stages,omitempty"`
}

// LoadFile reads and loads a definition file.
func LoadFile(path string, opts ...pipeline.BuilderOption) (*model.RootPipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read definition")
	}

	return Load(data, opts...)
}

// Load parses a YAML definition and builds its tree.
func Load(data []byte, opts ...pipeline.BuilderOption) (*model.RootPipeline, error) {
	var doc Document

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}

	return doc.Build(opts...)
}

// Build turns the document into a tree.
func (d *Document) Build(opts ...pipeline.BuilderOption) (*model.RootPipeline, error) {
	l := &loader{}
	b := pipeline.NewBuilder(d.Name, opts...)

	for i, stage := range d.Stages {
		kind, err := stage.kind()
		if err != nil {
			l.fail(errors.Wrapf(err, "stage %d", i))

			continue
		}

		switch kind {
		case kindInput:
			b.Input(stage.Input, l.settings(stage.Settings))
		case kindTransform:
			b.Transform(stage.Transform, l.settings(stage.Settings))
		case kindFork:
			b.Fork(l.branches(b, stage.Fork)...)
		default:
			l.fail(errors.Wrapf(ErrInvalidDefinition, "stage %d: %s is only allowed in a fork", i, kind))
		}
	}

	root, err := b.Build()
	if l.err != nil {
		return nil, multierr.Append(l.err, err)
	}

	return root, err
}

const (
	kindInput     = "input"
	kindTransform = "transform"
	kindOutput    = "output"
	kindFork      = "fork"
	kindStages    = "stages"
)

func (s *Stage) kind() (string, error) {
	var kinds []string

	if s.Input != "" {
		kinds = append(kinds, kindInput)
	}

	if s.Transform != "" {
		kinds = append(kinds, kindTransform)
	}

	if s.Output != "" {
		kinds = append(kinds, kindOutput)
	}

	if s.Fork != nil {
		kinds = append(kinds, kindFork)
	}

	if s.Stages != nil {
		kinds = append(kinds, kindStages)
	}

	if len(kinds) != 1 {
		return "", errors.Wrapf(ErrInvalidDefinition, "expected exactly one of input, transform, output, fork or stages, got %v", kinds)
	}

	return kinds[0], nil
}

type loader struct {
	err error
}

func (l *loader) fail(err error) {
	l.err = multierr.Append(l.err, err)
}

// branchBuilder is implemented by both the root and the child builders.
type branchBuilder interface {
	Output(kind string, settingsOrShorthand any) model.Branch
	Child(fn func(c *pipeline.ChildBuilder)) model.Branch
}

func (l *loader) branches(b branchBuilder, stages []Stage) []model.Branch {
	res := make([]model.Branch, 0, len(stages))

	for i, stage := range stages {
		kind, err := stage.kind()
		if err != nil {
			l.fail(errors.Wrapf(err, "fork entry %d", i))

			continue
		}

		switch kind {
		case kindOutput:
			res = append(res, b.Output(stage.Output, l.settings(stage.Settings)))
		case kindStages:
			res = append(res, b.Child(func(c *pipeline.ChildBuilder) {
				l.child(c, stage.Stages)
			}))
		default:
			l.fail(errors.Wrapf(ErrInvalidDefinition, "fork entry %d: %s is not a branch", i, kind))
		}
	}

	return res
}

func (l *loader) child(c *pipeline.ChildBuilder, stages []Stage) {
	for i, stage := range stages {
		kind, err := stage.kind()
		if err != nil {
			l.fail(errors.Wrapf(err, "child stage %d", i))

			continue
		}

		switch kind {
		case kindTransform:
			c.Transform(stage.Transform, l.settings(stage.Settings))
		case kindFork:
			c.Fork(l.branches(c, stage.Fork)...)
		default:
			l.fail(errors.Wrapf(ErrInvalidDefinition, "child stage %d: %s is not allowed in a child", i, kind))
		}
	}
}

// settings keeps string shorthands as is and turns anything else into a
// settings template.
func (l *loader) settings(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	}

	expr, err := toExpr(value)
	if err != nil {
		l.fail(err)

		return nil
	}

	return expr
}
