package measure

import (
	"maps"
	"sync"
)

type DefaultMeasure struct {
	stages map[string]Metric
	mu     sync.RWMutex
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		stages: make(map[string]Metric),
	}
}

// AddMetric registers a metric for the stage. Adding a stage twice keeps the
// first metric.
func (m *DefaultMeasure) AddMetric(name string, kind string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.stages[name]; ok {
		return mt
	}

	mt := &DefaultMetric{
		allTransports: make(map[string]*TransportInfo),
		kind:          kind,
	}
	m.stages[name] = mt

	return mt
}

// GetMetric returns nil for an unknown stage.
func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt, ok := m.stages[name]
	if !ok {
		return nil
	}

	return mt
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.stages)
}

var _ Measure = (*DefaultMeasure)(nil)
