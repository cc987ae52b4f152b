package stream_test

import "time"

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func isClosed[T any](c <-chan T) bool {
	select {
	case _, ok := <-c:
		return !ok
	default:
		return false
	}
}
