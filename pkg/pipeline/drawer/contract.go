package drawer

import (
	"io"
	"time"

	"github.com/askiada/go-etl/pkg/pipeline/measure"
	"github.com/askiada/go-etl/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline tree.
type Drawer interface {
	// Reset forgets every stage drawn so far.
	Reset()
	// AddStage adds a stage to the pipeline drawer.
	AddStage(stage *model.StageInfo) error
	// AddLink adds a link between a parent stage and one of its children.
	AddLink(parentStageName, childStageName string) error
	// SetOutcome marks how an output completed.
	SetOutcome(stageName string, totalDuration time.Duration, err error) error
	// SetTotalTime sets the total time of the stage.
	SetTotalTime(stageName string, startTime time.Time) error
	// AddMeasure adds a measure to the pipeline drawer.
	AddMeasure(measure measure.Measure) error
	// Render writes the graph in DOT format.
	Render(w io.Writer) error
	// Draw creates a file with the pipeline graph.
	Draw() error
}
