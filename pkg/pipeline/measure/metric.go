package measure

import (
	"sync"
	"time"
)

type TransportInfo struct {
	Elapsed time.Duration
	total   int64
}

type DefaultMetric struct {
	err           error
	allTransports map[string]*TransportInfo
	kind          string
	endDuration   time.Duration
	stageElapsed  time.Duration
	total         int64
	mu            sync.Mutex
}

func (mt *DefaultMetric) Kind() string {
	return mt.kind
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stageElapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.endDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.endDuration
}

func (mt *DefaultMetric) SetErr(err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.err = err
}

func (mt *DefaultMetric) Err() error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.err
}

// Records is the number of records the stage handed on.
func (mt *DefaultMetric) Records() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) AddTransportDuration(inputStageName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.allTransports[inputStageName] == nil {
		mt.allTransports[inputStageName] = &TransportInfo{}
	}

	ch := mt.allTransports[inputStageName]
	ch.Elapsed += elapsed
	ch.total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stageElapsed) / float64(mt.total)))
}

// AVGTransportDuration returns the average wait per record for every parent.
// The accumulated totals are left untouched.
func (mt *DefaultMetric) AVGTransportDuration() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	avg := make(map[string]*TransportInfo, len(mt.allTransports))

	for name, ch := range mt.allTransports {
		info := &TransportInfo{total: ch.total}
		if ch.total > 0 {
			info.Elapsed = round(time.Duration(float64(ch.Elapsed) / float64(ch.total)))
		}

		avg[name] = info
	}

	return avg
}

func (mt *DefaultMetric) AllTransports() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	all := make(map[string]*TransportInfo, len(mt.allTransports))
	for name, ch := range mt.allTransports {
		all[name] = &TransportInfo{Elapsed: ch.Elapsed, total: ch.total}
	}

	return all
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
