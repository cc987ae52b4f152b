package transform

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
)

// recordFn turns one record into zero or more records.
type recordFn func(ctx context.Context, rec processor.Record) ([]processor.Record, error)

// flow is a Transform applying fn to every record, on concurrency goroutines.
// Order is only preserved with a single goroutine.
type flow struct {
	fn          recordFn
	concurrency int
}

func (f *flow) Transform(ctx context.Context, in <-chan processor.Record, out chan<- processor.Record) error {
	if f.concurrency <= 1 {
		return sequentialFn(ctx, 1, in, out, f.fn)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(f.concurrency)

	// each consumer stops as soon as an error happens
	for goIdx := range f.concurrency {
		errGrp.Go(func() error {
			return sequentialFn(dCtx, goIdx, in, out, f.fn)
		})
	}

	return errGrp.Wait()
}

func sequentialFn(ctx context.Context, goIdx int, in <-chan processor.Record, out chan<- processor.Record, fn recordFn) error {
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case rec, ok := <-in:
			if !ok {
				return nil
			}

			res, err := fn(ctx, rec)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}

			for _, elem := range res {
				// checked again so every running go routine stops adding records
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
				case out <- elem:
				}
			}
		}
	}
}

func one(rec processor.Record) []processor.Record {
	return []processor.Record{rec}
}
