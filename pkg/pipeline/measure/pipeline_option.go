package measure

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-etl/pkg/pipeline/model"
)

var ErrUnknownStage = errors.New("unknown stage")

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStage.Name, string(model.RootStageType))
	pm.AddMetric(model.EndStage.Name, string(model.RootStageType))

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	pm.AddMetric(stage.Name, string(stage.Type))

	return nil
}

func (pm *pipelineMeasure) OnSplitterOutput(parentStage, forkStage *model.StageInfo, iterationDuration, computationDuration time.Duration) error {
	mt := pm.GetMetric(forkStage.Name)
	if mt == nil {
		return errors.Wrap(ErrUnknownStage, forkStage.Name)
	}

	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(parentStage.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) AfterOutput(stage *model.StageInfo, totalDuration time.Duration, err error) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		return errors.Wrap(ErrUnknownStage, stage.Name)
	}

	mt.SetTotalDuration(totalDuration)
	mt.SetErr(err)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure records stage timings of every run into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
