package model

import "time"

// PipelineOption observes a run. Observers never change the flow of records:
// an error they return during preparation aborts the run, afterwards it is
// only reported.
type PipelineOption interface {
	// New initialises the option for a run.
	New() error

	pipelineStageOption
	pipelineSplitterOption
	pipelineOutputOption

	// Finish runs after every branch of the run completed.
	Finish() error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// PrepareStage runs when a stage is bound to the run, before anything starts.
	PrepareStage(parentStage, stage *StageInfo) error
}

// pipelineSplitterOption defines the interface for fork options at the pipeline level.
type pipelineSplitterOption interface {
	// OnSplitterOutput runs everytime a record has been handed to every branch of a fork.
	OnSplitterOutput(parentStage, forkStage *StageInfo, iterationDuration, computationDuration time.Duration) error
}

// pipelineOutputOption defines the interface for output options at the pipeline level.
type pipelineOutputOption interface {
	// AfterOutput runs once the output signalled its completion.
	AfterOutput(stage *StageInfo, totalDuration time.Duration, err error) error
}
