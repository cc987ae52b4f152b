package measure

import "time"

// Measure collects one metric per stage of a run.
type Measure interface {
	AddMetric(name string, kind string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

type Metric interface {
	Kind() string
	AddDuration(elapsed time.Duration)
	AddTransportDuration(inputStageName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]*TransportInfo
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	SetErr(err error)
	Err() error
	Records() int64
	AllTransports() map[string]*TransportInfo
}
