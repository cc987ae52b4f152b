package pipeline

import (
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/askiada/go-etl/pkg/pipeline/model"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/registry"
)

// Lookup finds the module of a processor kind.
type Lookup interface {
	Input(kind string) (processor.InputModule, bool)
	Transform(kind string) (processor.TransformModule, bool)
	Output(kind string) (processor.OutputModule, bool)
}

// tree is shared by a builder and all of its children so keys are unique
// across the whole tree and every error is reported once by Build.
type tree struct {
	lookup   Lookup
	err      error
	counters map[string]int
}

func (t *tree) key(kind string) string {
	t.counters[kind]++

	return kind + "#" + strconv.Itoa(t.counters[kind])
}

func (t *tree) fail(err error) {
	t.err = multierr.Append(t.err, err)
}

type stages struct {
	tree   *tree
	list   []model.Stage
	forked bool
}

func (s *stages) add(stage model.Stage) bool {
	if s.forked {
		s.tree.fail(stageError(stage.Key(), errors.Wrap(model.ErrInvalidTree, "no stage may follow a fork")))

		return false
	}

	s.list = append(s.list, stage)

	return true
}

func (s *stages) transform(kind string, settingsOrShorthand any) {
	module, ok := s.tree.lookup.Transform(kind)
	if !ok {
		s.tree.fail(stageError(kind, errors.Wrapf(ErrUnknownKind, "transform %q", kind)))

		return
	}

	key := s.tree.key(kind)

	tpl, factory, err := module.Build(key, settingsOrShorthand)
	if err != nil {
		s.tree.fail(stageError(key, err))

		return
	}

	s.add(model.NewTransformPipeline(key, module, tpl, factory))
}

func (s *stages) fork(branches []model.Branch) {
	fork := make(model.Fork, 0, len(branches))

	for _, branch := range branches {
		// a nil branch comes from a failed Output or Child, already reported
		if branch == nil {
			continue
		}

		fork = append(fork, branch)
	}

	if s.add(fork) {
		s.forked = true
	}
}

func (t *tree) output(kind string, settingsOrShorthand any) model.Branch {
	module, ok := t.lookup.Output(kind)
	if !ok {
		t.fail(stageError(kind, errors.Wrapf(ErrUnknownKind, "output %q", kind)))

		return nil
	}

	key := t.key(kind)

	tpl, factory, err := module.Build(key, settingsOrShorthand)
	if err != nil {
		t.fail(stageError(key, err))

		return nil
	}

	return model.NewOutputPipeline(key, module, tpl, factory)
}

func (t *tree) child(fn func(c *ChildBuilder)) model.Branch {
	key := t.key("child")
	c := &ChildBuilder{stages: stages{tree: t}}

	if fn != nil {
		fn(c)
	}

	child, err := model.NewChildPipeline(key, c.stages.list...)
	if err != nil {
		t.fail(stageError(key, err))

		return nil
	}

	return child
}

// Builder assembles a root pipeline. Errors are collected and returned by Build.
type Builder struct {
	tree   *tree
	name   string
	stages stages
	input  bool
}

func NewBuilder(name string, opts ...BuilderOption) *Builder {
	t := &tree{lookup: registry.Default(), counters: map[string]int{}}
	b := &Builder{tree: t, name: name, stages: stages{tree: t}}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Input sets the input of the pipeline. It must be the first stage.
func (b *Builder) Input(kind string, settingsOrShorthand any) *Builder {
	if b.input {
		b.tree.fail(stageError(kind, errors.Wrap(model.ErrInvalidTree, "input already set")))

		return b
	}

	b.input = true

	if len(b.stages.list) > 0 {
		b.tree.fail(stageError(kind, errors.Wrap(model.ErrInvalidTree, "input must be the first stage")))

		return b
	}

	module, ok := b.tree.lookup.Input(kind)
	if !ok {
		b.tree.fail(stageError(kind, errors.Wrapf(ErrUnknownKind, "input %q", kind)))

		return b
	}

	key := b.tree.key(kind)

	tpl, factory, err := module.Build(key, settingsOrShorthand)
	if err != nil {
		b.tree.fail(stageError(key, err))

		return b
	}

	b.stages.add(model.NewInputPipeline(key, module, tpl, factory))

	return b
}

func (b *Builder) Transform(kind string, settingsOrShorthand any) *Builder {
	b.stages.transform(kind, settingsOrShorthand)

	return b
}

// Fork ends the stage list: every branch receives the whole stream.
func (b *Builder) Fork(branches ...model.Branch) *Builder {
	b.stages.fork(branches)

	return b
}

// Output returns a branch writing to the output kind.
func (b *Builder) Output(kind string, settingsOrShorthand any) model.Branch {
	return b.tree.output(kind, settingsOrShorthand)
}

// Child returns a nested branch built by fn.
func (b *Builder) Child(fn func(c *ChildBuilder)) model.Branch {
	return b.tree.child(fn)
}

func (b *Builder) Build() (*model.RootPipeline, error) {
	if !b.input {
		b.tree.fail(errors.Wrap(ErrConfiguration, "input must be set"))
	}

	if b.tree.err != nil {
		return nil, b.tree.err
	}

	root, err := model.NewRootPipeline(b.name, b.stages.list...)
	if err != nil {
		return nil, stageError(b.name, err)
	}

	return root, nil
}

// ChildBuilder assembles the stages of a child pipeline.
type ChildBuilder struct {
	stages stages
}

func (c *ChildBuilder) Transform(kind string, settingsOrShorthand any) *ChildBuilder {
	c.stages.transform(kind, settingsOrShorthand)

	return c
}

func (c *ChildBuilder) Fork(branches ...model.Branch) *ChildBuilder {
	c.stages.fork(branches)

	return c
}

func (c *ChildBuilder) Output(kind string, settingsOrShorthand any) model.Branch {
	return c.stages.tree.output(kind, settingsOrShorthand)
}

func (c *ChildBuilder) Child(fn func(c *ChildBuilder)) model.Branch {
	return c.stages.tree.child(fn)
}
