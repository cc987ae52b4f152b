package stream

import (
	"context"
	"sync"
	"time"
)

// Splitter broadcasts one stream to every attached fork. Each fork owns a
// bounded buffer and observes the whole sequence in order.
type Splitter[T any] struct {
	input      *Stream[T]
	plan       *Plan
	onEntry    func(iteration, computation time.Duration)
	forks      []chan T
	streams    []*Stream[T]
	mu         sync.Mutex
	bufferSize int
	sealed     bool
}

type SplitterOption func(s *splitterConfig)

type splitterConfig struct {
	onEntry    func(iteration, computation time.Duration)
	bufferSize int
}

// BufferSize sets the capacity of every fork buffer. Values below 1 are ignored.
func BufferSize(size int) SplitterOption {
	return func(s *splitterConfig) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// OnEntry is called after each record has been handed to every fork, with the
// time spent waiting for the record and the time spent broadcasting it.
func OnEntry(fn func(iteration, computation time.Duration)) SplitterOption {
	return func(s *splitterConfig) {
		s.onEntry = fn
	}
}

// Split prepares a splitter on input. Forks must be attached before the plan starts.
func Split[T any](plan *Plan, input *Stream[T], opts ...SplitterOption) (*Splitter[T], error) {
	if plan == nil {
		return nil, ErrPlanMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	cfg := &splitterConfig{bufferSize: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	splitter := &Splitter[T]{
		input:      input,
		plan:       plan,
		bufferSize: cfg.bufferSize,
		onEntry:    cfg.onEntry,
	}

	err := plan.Go(splitter.run)
	if err != nil {
		return nil, err
	}

	return splitter, nil
}

// Fork attaches a new consumption view.
func (s *Splitter[T]) Fork() (*Stream[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed || s.plan.Started() {
		return nil, ErrForkAfterStart
	}

	buf := make(chan T, s.bufferSize)
	stream := newStream[T](buf)

	s.forks = append(s.forks, buf)
	s.streams = append(s.streams, stream)

	return stream, nil
}

// Total returns the number of attached forks.
func (s *Splitter[T]) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.forks)
}

func (s *Splitter[T]) run(ctx context.Context) {
	s.mu.Lock()
	s.sealed = true
	forks := s.forks
	streams := s.streams
	s.mu.Unlock()

	var err error

	defer func() {
		if err == nil {
			err = s.input.Err()
		}

		for i, buf := range forks {
			streams[i].res.set(err)
			close(buf)
		}

		Drain(s.input)
	}()

	if len(forks) == 0 {
		return
	}

outer:
	for {
		startIter := time.Now()

		select {
		case <-ctx.Done():
			err = ctx.Err()

			break outer
		case entry, ok := <-s.input.C:
			if !ok {
				break outer
			}

			startFn := time.Now()

			for _, buf := range forks {
				select {
				case <-ctx.Done():
					err = ctx.Err()

					break outer
				case buf <- entry:
				}
			}

			if s.onEntry != nil {
				endFn := time.Since(startFn)
				s.onEntry(time.Since(startIter)-endFn, endFn)
			}
		}
	}
}
