package pipeline

import (
	"context"
	"sync"
)

// Handle is the completion of one terminal output. It is resolved once, by
// the output calling its done signal or by the output panicking.
type Handle struct {
	err  error
	done chan struct{}
	key  string
	once sync.Once
}

func newHandle(key string) *Handle {
	return &Handle{key: key, done: make(chan struct{})}
}

// Key is the key of the output stage.
func (h *Handle) Key() string {
	return h.key
}

// Done is closed once the handle is resolved.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the rejection of the handle, nil while pending or on success.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the handle is resolved or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// complete resolves the handle. Only the first call counts.
func (h *Handle) complete(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}
