// Package pipeline composes and runs declarative ETL trees.
//
// A tree starts with one input, goes through an ordered list of transforms and
// ends with a fork. Every branch of a fork receives the whole sequence of
// records, in order, and is either an output or a child pipeline with its own
// transforms and fork. Trees are assembled with a Builder, or loaded from YAML
// with the definition package:
//
//	b := pipeline.NewBuilder("events")
//	root, err := b.Input("file", "events.jsonl").
//		Transform("json", nil).
//		Fork(
//			b.Output("stdout", nil),
//			b.Child(func(c *pipeline.ChildBuilder) {
//				c.Transform("pick", []any{"id"}).Fork(c.Output("file", "ids.jsonl"))
//			}),
//		).Build()
//
// Running a tree happens in two phases. Prepare resolves the settings of every
// stage against the run's arguments and environment, builds the processors and
// wires the streams; any configuration error is returned before a single record
// is read. Start then launches the whole graph at once.
//
// Each fork branch owns a bounded buffer, so a slow branch slows its siblings
// down but never loses a record. Every output gets a Handle resolved when the
// output signals completion. A failing output never cancels its siblings: Wait
// reports every rejection once all outputs completed.
//
// Run observers implementing model.PipelineOption, such as the measure and
// drawer packages, are notified while stages are prepared and records flow.
package pipeline
