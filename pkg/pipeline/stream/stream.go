package stream

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Stream is a lazily produced sequence of records with a single consumer.
// Err is meaningful once C is closed.
type Stream[T any] struct {
	C   <-chan T
	res *result
}

type result struct {
	err error
	mu  sync.Mutex
}

func (r *result) set(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err == nil {
		r.err = err
	}
}

func (r *result) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

func newStream[T any](c <-chan T) *Stream[T] {
	return &Stream[T]{C: c, res: &result{}}
}

// Err returns the failure of the stream or of any stage upstream of it.
func (s *Stream[T]) Err() error {
	if s == nil || s.res == nil {
		return nil
	}

	return s.res.get()
}

// Producer emits the records of a source. It must not close emit.
type Producer[T any] func(ctx context.Context, emit chan<- T) error

// Source returns the root stream of a plan. The producer runs once the plan starts.
func Source[T any](plan *Plan, producer Producer[T]) (*Stream[T], error) {
	if plan == nil {
		return nil, ErrPlanMustBeSet
	}

	if producer == nil {
		return nil, ErrInputMustBeSet
	}

	out := make(chan T)
	stream := newStream[T](out)

	err := plan.Go(func(ctx context.Context) {
		defer close(out)

		err := protect(func() error {
			return producer(ctx, out)
		})
		if err != nil {
			stream.res.set(errors.Wrap(err, "source"))
		}
	})
	if err != nil {
		return nil, err
	}

	return stream, nil
}

// TransformFunc reads in until it is closed and writes to out. It must not close out.
type TransformFunc[I, O any] func(ctx context.Context, in <-chan I, out chan<- O) error

// Through chains fn after input. An upstream failure is carried to the new
// stream; on a failure of fn the input is drained so upstream never blocks.
func Through[I, O any](plan *Plan, input *Stream[I], fn TransformFunc[I, O]) (*Stream[O], error) {
	if plan == nil {
		return nil, ErrPlanMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	out := make(chan O)
	stream := newStream[O](out)

	err := plan.Go(func(ctx context.Context) {
		err := protect(func() error {
			return fn(ctx, input.C, out)
		})
		if err != nil {
			stream.res.set(err)
			close(out)
			Drain(input)

			return
		}

		// fn may return before its input is exhausted
		Drain(input)
		stream.res.set(input.Err())
		close(out)
	})
	if err != nil {
		return nil, err
	}

	return stream, nil
}

// Drain discards the rest of the stream.
func Drain[T any](s *Stream[T]) {
	if s == nil || s.C == nil {
		return
	}

	for range s.C { //nolint:revive
	}
}

// Collect reads the whole stream.
func Collect[T any](s *Stream[T]) ([]T, error) {
	res := []T{}

	for elem := range s.C {
		res = append(res, elem)
	}

	return res, s.Err()
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return fn()
}
