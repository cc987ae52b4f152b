// Package stream provides lazily started record streams connected by channels.
//
// A Plan gathers the goroutines of a stream graph: sources, linear transforms
// and splitters. Nothing is consumed until Plan.Start, which lets every fork of
// a Splitter be attached before the first record flows. Each fork is an
// independent bounded buffer fed with the full sequence; failures travel
// downstream and are read with Stream.Err once the channel is closed.
package stream
