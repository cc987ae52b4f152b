// Package registry holds the closed table of the built-in processors.
package registry

import (
	"maps"

	"github.com/askiada/go-etl/internal/processors/input"
	"github.com/askiada/go-etl/internal/processors/output"
	"github.com/askiada/go-etl/internal/processors/transform"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
)

// Registry maps processor kinds to their modules, one namespace per role.
type Registry struct {
	inputs     map[string]processor.InputModule
	transforms map[string]processor.TransformModule
	outputs    map[string]processor.OutputModule
}

var table = Registry{
	inputs: map[string]processor.InputModule{
		"file":        input.File(),
		"filePattern": input.FilePattern(),
		"directory":   input.Directory(),
	},
	transforms: map[string]processor.TransformModule{
		"json":      transform.JSON(),
		"csvToJSON": transform.CSVToJSON(),
		"jsonToCSV": transform.JSONToCSV(),
		"jsonArray": transform.JSONArray(),
		"log":       transform.Log(),
		"filter":    transform.Filter(),
		"map":       transform.Map(),
		"reduce":    transform.Reduce(),
		"groupBy":   transform.GroupBy(),
		"pick":      transform.Pick(),
		"omit":      transform.Omit(),
		"pickBy":    transform.PickBy(),
		"omitBy":    transform.OmitBy(),
		"values":    transform.Values(),
		"keys":      transform.Keys(),
	},
	outputs: map[string]processor.OutputModule{
		"stdout": output.Stdout(),
		"file":   output.File(),
		"http":   output.HTTP(),
	},
}

// Default returns the built-in table.
func Default() Registry {
	return table
}

// Inputs returns a copy of the input namespace.
func Inputs() map[string]processor.InputModule {
	return maps.Clone(table.inputs)
}

func Transforms() map[string]processor.TransformModule {
	return maps.Clone(table.transforms)
}

func Outputs() map[string]processor.OutputModule {
	return maps.Clone(table.outputs)
}

func (r Registry) Input(kind string) (processor.InputModule, bool) {
	m, ok := r.inputs[kind]

	return m, ok
}

func (r Registry) Transform(kind string) (processor.TransformModule, bool) {
	m, ok := r.transforms[kind]

	return m, ok
}

func (r Registry) Output(kind string) (processor.OutputModule, bool) {
	m, ok := r.outputs[kind]

	return m, ok
}
