package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/measure"
	"github.com/askiada/go-etl/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	pd.Reset()
	pd.startTime = time.Now()

	err := pd.AddStage(model.StartStage)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(model.EndStage)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parentStage, stage *model.StageInfo) error {
	err := pd.AddStage(stage)
	if err != nil {
		return err
	}

	err = pd.AddLink(parentStage.Name, stage.Name)
	if err != nil {
		return err
	}

	if stage.Type == model.OutputStageType {
		return pd.AddLink(stage.Name, model.EndStage.Name)
	}

	return nil
}

func (pd *pipelineDrawer) OnSplitterOutput(_, _ *model.StageInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterOutput(stage *model.StageInfo, totalDuration time.Duration, err error) error {
	return pd.SetOutcome(stage.Name, totalDuration, err)
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.SetTotalTime(model.EndStage.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the tree of every run. When measure is set, it must be
// registered as a pipeline option before the drawer so its metrics are
// complete when the drawer finishes.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
