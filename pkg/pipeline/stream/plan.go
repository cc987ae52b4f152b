package stream

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPlanMustBeSet  = errors.New("plan must be set")
	ErrInputMustBeSet = errors.New("input must be set")
	ErrPlanStarted    = errors.New("plan already started")
	ErrForkAfterStart = errors.New("fork attached after the source started")
)

// Plan collects the goroutines of a stream graph and launches them together.
// Nothing reads a record before Start, so every fork can be attached first.
type Plan struct {
	goFn    []func(ctx context.Context)
	mu      sync.Mutex
	started bool
}

func NewPlan() *Plan {
	return &Plan{}
}

// Go defers fn until Start.
func (p *Plan) Go(fn func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPlanStarted
	}

	p.goFn = append(p.goFn, fn)

	return nil
}

// Start launches every deferred goroutine. It reports false if the plan was
// already started.
func (p *Plan) Start(ctx context.Context) bool {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()

		return false
	}

	p.started = true
	goFn := p.goFn
	p.goFn = nil
	p.mu.Unlock()

	for _, fn := range goFn {
		go fn(ctx)
	}

	return true
}

func (p *Plan) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}
