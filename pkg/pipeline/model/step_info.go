package model

type StageType string

const (
	RootStageType      StageType = "root"
	InputStageType     StageType = "input"
	TransformStageType StageType = "transform"
	ForkStageType      StageType = "fork"
	ChildStageType     StageType = "child"
	OutputStageType    StageType = "output"
)

// StageInfo describes a stage to run observers.
type StageInfo struct {
	Type  StageType
	Name  string
	Kind  string
	Depth int
}

var (
	StartStage = &StageInfo{Type: RootStageType, Name: "start"}
	EndStage   = &StageInfo{Type: RootStageType, Name: "end"}
)
