// Package metrics exposes pipeline runs to Prometheus.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/go-etl/pkg/pipeline/model"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	// a run is aborted when it never started or was left before every output completed
	statusAborted = "aborted"
)

// Metrics holds all Prometheus metrics of the pipeline runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RunsActive     *prometheus.GaugeVec
	StagesPrepared *prometheus.CounterVec
	RecordsTotal   *prometheus.CounterVec
	ForkDuration   *prometheus.HistogramVec
	ForkWait       *prometheus.HistogramVec
	OutputsTotal   *prometheus.CounterVec
	OutputDuration *prometheus.HistogramVec
}

// New registers the metrics in reg. Use prometheus.DefaultRegisterer to
// expose them on the default handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_runs_total",
				Help: "Total number of finished pipeline runs",
			},
			[]string{"pipeline", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"pipeline"},
		),
		RunsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etl_runs_active",
				Help: "Number of pipeline runs in progress",
			},
			[]string{"pipeline"},
		),
		StagesPrepared: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_stages_prepared_total",
				Help: "Total number of stages bound to a run, by stage type",
			},
			[]string{"pipeline", "type"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_fork_records_total",
				Help: "Total number of records broadcast by a fork",
			},
			[]string{"pipeline", "stage"},
		),
		ForkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_fork_broadcast_seconds",
				Help:    "Time spent handing one record to every branch of a fork",
				Buckets: prometheus.ExponentialBuckets(0.000001, 10, 8),
			},
			[]string{"pipeline", "stage"},
		),
		ForkWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_fork_wait_seconds",
				Help:    "Time a fork waited for its next record",
				Buckets: prometheus.ExponentialBuckets(0.000001, 10, 8),
			},
			[]string{"pipeline", "stage"},
		),
		OutputsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_outputs_total",
				Help: "Total number of completed outputs",
			},
			[]string{"pipeline", "kind", "status"},
		),
		OutputDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_output_duration_seconds",
				Help:    "Time from the run start to the output completion",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"pipeline", "kind"},
		),
	}
}

// PipelineOption returns a run observer labelling every metric with pipeline.
func (m *Metrics) PipelineOption(pipeline string) model.PipelineOption {
	return &pipelineMetrics{m: m, pipeline: pipeline}
}

type pipelineMetrics struct {
	startTime time.Time
	m         *Metrics
	pipeline  string
	outputs   atomic.Int32
	completed atomic.Int32
	started   atomic.Bool
	failed    atomic.Bool
	mu        sync.Mutex
}

func (pm *pipelineMetrics) New() error {
	pm.mu.Lock()
	pm.startTime = time.Now()
	pm.mu.Unlock()

	pm.failed.Store(false)
	pm.started.Store(false)
	pm.outputs.Store(0)
	pm.completed.Store(0)
	pm.m.RunsActive.WithLabelValues(pm.pipeline).Inc()

	return nil
}

func (pm *pipelineMetrics) PrepareStage(_, stage *model.StageInfo) error {
	pm.started.Store(true)

	if stage.Type == model.OutputStageType {
		pm.outputs.Add(1)
	}

	pm.m.StagesPrepared.WithLabelValues(pm.pipeline, string(stage.Type)).Inc()

	return nil
}

func (pm *pipelineMetrics) OnSplitterOutput(_, forkStage *model.StageInfo, iterationDuration, computationDuration time.Duration) error {
	pm.m.RecordsTotal.WithLabelValues(pm.pipeline, forkStage.Name).Inc()
	pm.m.ForkDuration.WithLabelValues(pm.pipeline, forkStage.Name).Observe(computationDuration.Seconds())
	pm.m.ForkWait.WithLabelValues(pm.pipeline, forkStage.Name).Observe(iterationDuration.Seconds())

	return nil
}

func (pm *pipelineMetrics) AfterOutput(stage *model.StageInfo, totalDuration time.Duration, err error) error {
	status := statusSucceeded
	if err != nil {
		status = statusFailed

		pm.failed.Store(true)
	}

	pm.completed.Add(1)
	pm.m.OutputsTotal.WithLabelValues(pm.pipeline, stage.Kind, status).Inc()
	pm.m.OutputDuration.WithLabelValues(pm.pipeline, stage.Kind).Observe(totalDuration.Seconds())

	return nil
}

func (pm *pipelineMetrics) Finish() error {
	pm.mu.Lock()
	elapsed := time.Since(pm.startTime)
	pm.mu.Unlock()

	status := statusSucceeded

	switch {
	case !pm.started.Load() || pm.completed.Load() < pm.outputs.Load():
		status = statusAborted
	case pm.failed.Load():
		status = statusFailed
	}

	pm.m.RunsActive.WithLabelValues(pm.pipeline).Dec()
	pm.m.RunsTotal.WithLabelValues(pm.pipeline, status).Inc()
	pm.m.RunDuration.WithLabelValues(pm.pipeline).Observe(elapsed.Seconds())

	return nil
}
