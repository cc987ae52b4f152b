package drawer

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-etl/internal/store"
	"github.com/askiada/go-etl/pkg/pipeline/measure"
	"github.com/askiada/go-etl/pkg/pipeline/model"
)

var shapes = map[model.StageType]string{
	model.RootStageType:      "doublecircle",
	model.InputStageType:     "cylinder",
	model.TransformStageType: "box",
	model.ForkStageType:      "diamond",
	model.ChildStageType:     "folder",
	model.OutputStageType:    "cylinder",
}

const (
	succeededColor = "#2e8b57"
	failedColor    = "#d62728"
)

// DOTDrawer is a drawer that creates a DOT file with the pipeline graph.
// Stages are listed in the order they were prepared. Render it with
// graphviz, e.g. dot -Tsvg.
type DOTDrawer struct {
	graph       graph.Graph[string, string]
	store       store.CustomStore[string, string]
	mu          sync.Mutex
	dotFileName string
}

// NewDOTDrawer creates a new DOT drawer.
func NewDOTDrawer(dotFileName string) *DOTDrawer {
	d := &DOTDrawer{dotFileName: dotFileName}
	d.reset()

	return d
}

func (d *DOTDrawer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset()
}

func (d *DOTDrawer) reset() {
	d.store = store.NewMemoryStore[string, string]()
	d.graph = graph.NewWithStore(graph.StringHash, d.store, graph.Directed())
}

// AddStage adds a stage to the pipeline graph.
func (d *DOTDrawer) AddStage(stage *model.StageInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddVertex(stage.Name, graph.VertexAttribute("shape", shapes[stage.Type]))
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", stage.Name)
	}

	return nil
}

// AddLink adds a link between parent and child stages.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddEdge(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

func (d *DOTDrawer) SetOutcome(stageName string, totalDuration time.Duration, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	updateErr := d.store.UpdateVertex(stageName, func(p *graph.VertexProperties) {
		p.Attributes["style"] = "filled"
		p.Attributes["fontcolor"] = "white"
		p.Attributes["xlabel"] = "end: " + totalDuration.Round(time.Millisecond).String()
		p.Attributes["fillcolor"] = succeededColor

		if err != nil {
			p.Attributes["fillcolor"] = failedColor
			p.Attributes["tooltip"] = strings.ReplaceAll(err.Error(), `"`, `\"`)
		}
	})
	if updateErr != nil {
		return errors.Wrapf(updateErr, "unable to set %s outcome", stageName)
	}

	return nil
}

// SetTotalTime sets the total time for the stage.
func (d *DOTDrawer) SetTotalTime(stageName string, startTime time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.store.UpdateVertex(stageName, func(p *graph.VertexProperties) {
		p.Attributes["xlabel"] = time.Since(startTime).Round(time.Millisecond).String()
	})
	if err != nil {
		return errors.Wrapf(err, "unable to set %s total time", stageName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure colours every measured link from blue (fastest) to red (slowest)
// and labels the forks with their average broadcast time.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := []time.Duration{}

	for _, metric := range msr.AllMetrics() {
		for _, info := range metric.AVGTransportDuration() {
			if info.Elapsed > 0 {
				elapsed = append(elapsed, info.Elapsed)
			}
		}
	}

	if len(elapsed) == 0 {
		return nil
	}

	minValue, maxValue := slices.Min(elapsed), slices.Max(elapsed)

	for name, metric := range msr.AllMetrics() {
		if avg := metric.AVGDuration(); avg != 0 && metric.Kind() == string(model.ForkStageType) {
			err := d.store.UpdateVertex(name, func(p *graph.VertexProperties) {
				p.Attributes["xlabel"] = avg.String()
			})
			if err != nil {
				return errors.Wrap(err, "unable to label fork")
			}
		}

		for parent, info := range metric.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			colour, err := gradient(info.Elapsed, minValue, maxValue)
			if err != nil {
				return err
			}

			err = d.graph.UpdateEdge(parent, name,
				graph.EdgeAttribute("label", info.Elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", colour),
			)
			if err != nil {
				return errors.Wrapf(err, "unable to update edge from %s to %s", parent, name)
			}
		}
	}

	return nil
}

func gradient(curr, minValue, maxValue time.Duration) (string, error) {
	fraction := 1.0
	if maxValue > minValue {
		fraction = float64(curr-minValue) / float64(maxValue-minValue)
	}

	red := math.Round(maxRGB * fraction)

	colour, err := colors.RGB(uint8(red), 0, uint8(maxRGB-red)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// Draw creates a DOT file with the pipeline graph.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.dotFileName)
	}

	err = d.Render(file)
	if err != nil {
		_ = file.Close()

		return errors.Wrapf(err, "unable to create dot file %s", d.dotFileName)
	}

	return errors.Wrapf(file.Close(), "unable to close file %s", d.dotFileName)
}

func (d *DOTDrawer) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, err := generateDOT(d.store)
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}

	return renderDOT(w, desc)
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	rankdir="LR";
{{range $s := .Statements}}	"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{end}}}
`

type description struct {
	GraphType    string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

// generateDOT lists vertices and edges in insertion order so a tree always
// renders to the same file.
func generateDOT(st store.CustomStore[string, string]) (description, error) {
	desc := description{
		GraphType:    "digraph",
		EdgeOperator: "->",
	}

	vertices, err := st.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}

	edges, err := st.ListEdges()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list edges")
	}

	for _, vertex := range vertices {
		_, sourceProperties, err := st.Vertex(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)

		if xlabel, ok := sourceProperties.Attributes["xlabel"]; ok {
			htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, xlabel)

			delete(sourceProperties.Attributes, "xlabel")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceProperties.Attributes,
			HTMLAttributes:   htmlAttributes,
		})

		for _, edge := range edges {
			if edge.Source != vertex {
				continue
			}

			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         edge.Target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
