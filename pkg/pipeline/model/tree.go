package model

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

var ErrInvalidTree = errors.New("invalid pipeline tree")

// Stage is one node of a pipeline tree.
type Stage interface {
	StageType() StageType
	Key() string
}

// Branch is one entry of a Fork, an *OutputPipeline or a *ChildPipeline.
type Branch interface {
	Stage
}

// InputPipeline wraps the input processor of a root. It is always the first stage.
type InputPipeline struct {
	Module   processor.InputModule
	Settings settings.Expr
	Factory  processor.InputFactory
	key      string
}

func NewInputPipeline(key string, module processor.InputModule, tpl settings.Expr, factory processor.InputFactory) *InputPipeline {
	return &InputPipeline{key: key, Module: module, Settings: tpl, Factory: factory}
}

func (*InputPipeline) StageType() StageType { return InputStageType }
func (p *InputPipeline) Key() string        { return p.key }

// TransformPipeline replaces the current stream with the transformed one.
type TransformPipeline struct {
	Module   processor.TransformModule
	Settings settings.Expr
	Factory  processor.TransformFactory
	key      string
}

func NewTransformPipeline(key string, module processor.TransformModule, tpl settings.Expr, factory processor.TransformFactory) *TransformPipeline {
	return &TransformPipeline{key: key, Module: module, Settings: tpl, Factory: factory}
}

func (*TransformPipeline) StageType() StageType { return TransformStageType }
func (p *TransformPipeline) Key() string        { return p.key }

// OutputPipeline is a terminal leaf.
type OutputPipeline struct {
	Module   processor.OutputModule
	Settings settings.Expr
	Factory  processor.OutputFactory
	key      string
}

func NewOutputPipeline(key string, module processor.OutputModule, tpl settings.Expr, factory processor.OutputFactory) *OutputPipeline {
	return &OutputPipeline{key: key, Module: module, Settings: tpl, Factory: factory}
}

func (*OutputPipeline) StageType() StageType { return OutputStageType }
func (p *OutputPipeline) Key() string        { return p.key }

// Fork is a branch point: every branch receives its own view of the stream.
type Fork []Branch

func (Fork) StageType() StageType { return ForkStageType }
func (Fork) Key() string          { return "" }

// ChildPipeline is a nested group of stages fed by a fork. It has no input.
type ChildPipeline struct {
	key    string
	stages []Stage
}

func NewChildPipeline(key string, stages ...Stage) (*ChildPipeline, error) {
	err := checkStages(stages, false)
	if err != nil {
		return nil, errors.Wrapf(err, "child %s", key)
	}

	return &ChildPipeline{key: key, stages: stages}, nil
}

func (*ChildPipeline) StageType() StageType { return ChildStageType }
func (p *ChildPipeline) Key() string        { return p.key }

// Stages returns a copy of the ordered stage list.
func (p *ChildPipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// RootPipeline is the top of a tree. Its first stage is the only input.
type RootPipeline struct {
	name   string
	stages []Stage
}

func NewRootPipeline(name string, stages ...Stage) (*RootPipeline, error) {
	if len(stages) == 0 {
		return nil, errors.Wrap(ErrInvalidTree, "root has no stage")
	}

	if _, ok := stages[0].(*InputPipeline); !ok {
		return nil, errors.Wrap(ErrInvalidTree, "first stage must be an input")
	}

	err := checkStages(stages[1:], false)
	if err != nil {
		return nil, err
	}

	return &RootPipeline{name: name, stages: stages}, nil
}

func (p *RootPipeline) Name() string {
	return p.name
}

// Input returns the input stage.
func (p *RootPipeline) Input() *InputPipeline {
	input, _ := p.stages[0].(*InputPipeline)

	return input
}

// Stages returns a copy of the ordered stage list.
func (p *RootPipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Leaves returns the number of terminal outputs of the tree.
func (p *RootPipeline) Leaves() int {
	return countLeaves(p.stages)
}

func countLeaves(stages []Stage) int {
	total := 0

	for _, stage := range stages {
		fork, ok := stage.(Fork)
		if !ok {
			continue
		}

		for _, branch := range fork {
			switch b := branch.(type) {
			case *OutputPipeline:
				total++
			case *ChildPipeline:
				total += countLeaves(b.stages)
			}
		}
	}

	return total
}

// checkStages enforces that no stage follows a fork and that inputs only open a root.
func checkStages(stages []Stage, allowInput bool) error {
	for i, stage := range stages {
		if stage == nil {
			return errors.Wrapf(ErrInvalidTree, "stage %d is nil", i)
		}

		if _, ok := stage.(*InputPipeline); ok && !allowInput {
			return errors.Wrapf(ErrInvalidTree, "stage %d: unexpected input", i)
		}

		if _, ok := stage.(Fork); ok && i != len(stages)-1 {
			return errors.Wrapf(ErrInvalidTree, "stage %d: no stage may follow a fork", i+1)
		}
	}

	return nil
}
