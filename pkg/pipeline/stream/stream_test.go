package stream_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

func produceInts(total int) stream.Producer[int] {
	return func(_ context.Context, emit chan<- int) error {
		for i := range total {
			emit <- i
		}

		return nil
	}
}

func TestSourceNilPlan(t *testing.T) {
	t.Parallel()

	_, err := stream.Source(nil, produceInts(1))
	require.ErrorIs(t, err, stream.ErrPlanMustBeSet)
}

func TestSourceDoesNotRunBeforeStart(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	called := make(chan struct{}, 1)

	_, err := stream.Source(plan, func(_ context.Context, _ chan<- int) error {
		called <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	select {
	case <-called:
		t.Fatal("producer ran before start")
	default:
	}

	assert.True(t, plan.Start(t.Context()))
	<-called
	assert.False(t, plan.Start(t.Context()))
}

func TestSourceError(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, func(_ context.Context, emit chan<- int) error {
		emit <- 1
		return assert.AnError
	})
	require.NoError(t, err)

	plan.Start(t.Context())

	got, err := stream.Collect(src)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{1}, got)
}

func TestSourcePanic(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, func(_ context.Context, _ chan<- int) error {
		panic("boom")
	})
	require.NoError(t, err)

	plan.Start(t.Context())

	_, err = stream.Collect(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestThrough(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, produceInts(5))
	require.NoError(t, err)

	doubled, err := stream.Through(plan, src, func(_ context.Context, in <-chan int, out chan<- string) error {
		for i := range in {
			out <- strconv.Itoa(i * 2)
		}

		return nil
	})
	require.NoError(t, err)

	plan.Start(t.Context())

	got, err := stream.Collect(doubled)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "4", "6", "8"}, got)
}

func TestThroughPropagatesUpstreamError(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, func(_ context.Context, emit chan<- int) error {
		emit <- 1
		return assert.AnError
	})
	require.NoError(t, err)

	same, err := stream.Through(plan, src, func(_ context.Context, in <-chan int, out chan<- int) error {
		for i := range in {
			out <- i
		}

		return nil
	})
	require.NoError(t, err)

	plan.Start(t.Context())

	_, err = stream.Collect(same)
	require.ErrorIs(t, err, assert.AnError)
}

func TestThroughErrorDrainsInput(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, produceInts(100))
	require.NoError(t, err)

	failing, err := stream.Through(plan, src, func(_ context.Context, in <-chan int, _ chan<- int) error {
		<-in
		return assert.AnError
	})
	require.NoError(t, err)

	plan.Start(t.Context())

	_, err = stream.Collect(failing)
	require.ErrorIs(t, err, assert.AnError)

	// the source must still be able to finish
	require.Eventually(t, func() bool { return isClosed(src.C) }, waitFor, tick)
}

func TestThroughAfterStart(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()
	src, err := stream.Source(plan, produceInts(0))
	require.NoError(t, err)

	plan.Start(t.Context())

	_, err = stream.Through(plan, src, func(context.Context, <-chan int, chan<- int) error { return nil })
	require.ErrorIs(t, err, stream.ErrPlanStarted)
}

func TestPlanGoConcurrent(t *testing.T) {
	t.Parallel()

	plan := stream.NewPlan()

	var (
		wg    sync.WaitGroup
		count sync.WaitGroup
	)

	count.Add(10)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, plan.Go(func(context.Context) { count.Done() }))
		}()
	}

	wg.Wait()
	plan.Start(t.Context())
	count.Wait()
}
