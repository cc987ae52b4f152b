package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/model"
	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

// Executor turns a pipeline tree into a running stream graph.
type Executor struct {
	logger     *zap.Logger
	lookupEnv  func(string) (string, bool)
	opts       []model.PipelineOption
	bufferSize int
}

// NewExecutor creates a new executor.
func NewExecutor(opts ...RunOption) *Executor {
	e := &Executor{
		logger:     zap.NewNop(),
		lookupEnv:  os.LookupEnv,
		bufferSize: 1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run is a prepared execution of a tree. Nothing reads a record before Start.
type Run struct {
	ctx       context.Context //nolint:containedctx
	startTime time.Time
	finishErr error
	plan      *stream.Plan
	exec      *Executor
	logger    *zap.Logger
	args      settings.Args
	id        string
	name      string
	handles   []*Handle
	opts      []model.PipelineOption
	observed  sync.WaitGroup
	finish    sync.Once
}

// Prepare binds every stage of root for a run and wires the stream graph.
// Any configuration error is returned before a single record is read.
func (e *Executor) Prepare(ctx context.Context, root *model.RootPipeline, args settings.Args) (*Run, error) {
	if root == nil {
		return nil, ErrRootMustBeSet
	}

	run, err := e.newRun(ctx, root, args)
	if err != nil {
		return nil, err
	}

	input := root.Input()
	info := run.buildInfo(input.Key())

	params, err := run.bind(input.Key(), input.Settings, input.Module)
	if err != nil {
		return nil, run.abort(err)
	}

	if input.Factory == nil {
		return nil, run.abort(stageError(input.Key(), ErrInvalidStage))
	}

	inst, err := input.Factory(info, params, run.args)
	if err != nil {
		return nil, run.abort(stageError(input.Key(), err))
	}

	return run.wire(root, inst.Run)
}

// PrepareWithSource is Prepare with the records supplied by producer. The
// input stage of root is then only a marker.
func (e *Executor) PrepareWithSource(
	ctx context.Context,
	root *model.RootPipeline,
	args settings.Args,
	producer stream.Producer[processor.Record],
) (*Run, error) {
	if root == nil {
		return nil, ErrRootMustBeSet
	}

	run, err := e.newRun(ctx, root, args)
	if err != nil {
		return nil, err
	}

	return run.wire(root, producer)
}

// Execute prepares root, starts it and waits for every output.
func Execute(ctx context.Context, root *model.RootPipeline, args settings.Args, opts ...RunOption) error {
	run, err := NewExecutor(opts...).Prepare(ctx, root, args)
	if err != nil {
		return err
	}

	run.Start()

	return run.Wait(ctx)
}

func (e *Executor) newRun(ctx context.Context, root *model.RootPipeline, args settings.Args) (*Run, error) {
	if args == nil {
		args = settings.Args{}
	}

	run := &Run{
		ctx:       ctx,
		startTime: time.Now(),
		plan:      stream.NewPlan(),
		exec:      e,
		args:      args,
		id:        uuid.NewString(),
		name:      root.Name(),
	}
	run.logger = e.logger.With(zap.String("pipeline", run.name), zap.String("run_id", run.id))

	for _, opt := range e.opts {
		err := opt.New()
		if err != nil {
			return nil, run.abort(errors.Wrap(err, "unable to apply pipeline option"))
		}

		run.opts = append(run.opts, opt)
	}

	return run, nil
}

// abort finishes the options of a run that will never start.
func (r *Run) abort(err error) error {
	return multierr.Append(err, r.finishRun())
}

func (r *Run) wire(root *model.RootPipeline, producer stream.Producer[processor.Record]) (*Run, error) {
	input := root.Input()
	inputInfo := &model.StageInfo{Type: model.InputStageType, Name: input.Key(), Kind: moduleName(input.Module)}

	err := r.prepareStage(model.StartStage, inputInfo)
	if err != nil {
		return nil, r.abort(err)
	}

	source, err := stream.Source(r.plan, producer)
	if err != nil {
		return nil, r.abort(stageError(input.Key(), err))
	}

	err = r.walk(root.Stages()[1:], source, inputInfo, 0)
	if err != nil {
		return nil, r.abort(err)
	}

	r.logger.Debug("pipeline prepared", zap.Int("outputs", len(r.handles)))

	return r, nil
}

// walk wires stages in definition order on top of current.
func (r *Run) walk(stages []model.Stage, current *stream.Stream[processor.Record], parent *model.StageInfo, depth int) error {
	for i, stage := range stages {
		switch s := stage.(type) {
		case *model.InputPipeline:
			// only the root's first stage, already wired
		case *model.TransformPipeline:
			next, info, err := r.transform(s, current, parent, depth)
			if err != nil {
				return err
			}

			current, parent = next, info
		case model.Fork:
			return r.fork(s, current, parent, depth)
		default:
			return errors.Wrapf(ErrInvalidStage, "stage %d: unexpected %T", i, stage)
		}
	}

	// nothing consumes the stream: discard it so upstream never blocks
	return r.plan.Go(func(context.Context) {
		stream.Drain(current)
	})
}

func (r *Run) transform(
	stage *model.TransformPipeline,
	current *stream.Stream[processor.Record],
	parent *model.StageInfo,
	depth int,
) (*stream.Stream[processor.Record], *model.StageInfo, error) {
	info := &model.StageInfo{Type: model.TransformStageType, Name: stage.Key(), Kind: moduleName(stage.Module), Depth: depth}

	params, err := r.bind(stage.Key(), stage.Settings, stage.Module)
	if err != nil {
		return nil, nil, err
	}

	if stage.Factory == nil {
		return nil, nil, stageError(stage.Key(), ErrInvalidStage)
	}

	inst, err := stage.Factory(r.buildInfo(stage.Key()), params, r.args)
	if err != nil {
		return nil, nil, stageError(stage.Key(), err)
	}

	err = r.prepareStage(parent, info)
	if err != nil {
		return nil, nil, err
	}

	next, err := stream.Through(r.plan, current, inst.Transform)
	if err != nil {
		return nil, nil, stageError(stage.Key(), err)
	}

	return next, info, nil
}

func (r *Run) fork(fork model.Fork, current *stream.Stream[processor.Record], parent *model.StageInfo, depth int) error {
	forkInfo := &model.StageInfo{Type: model.ForkStageType, Name: parent.Name + "/fork", Depth: depth}

	err := r.prepareStage(parent, forkInfo)
	if err != nil {
		return err
	}

	splitter, err := stream.Split(r.plan, current,
		stream.BufferSize(r.exec.bufferSize),
		stream.OnEntry(func(iteration, computation time.Duration) {
			for _, opt := range r.exec.opts {
				err := opt.OnSplitterOutput(parent, forkInfo, iteration, computation)
				if err != nil {
					r.logger.Warn("pipeline option failed", zap.String("stage", forkInfo.Name), zap.Error(err))
				}
			}
		}),
	)
	if err != nil {
		return err
	}

	for i, branch := range fork {
		switch b := branch.(type) {
		case *model.OutputPipeline:
			err = r.output(b, splitter, forkInfo, depth)
		case *model.ChildPipeline:
			err = r.child(b, splitter, forkInfo, depth)
		default:
			err = errors.Wrapf(ErrInvalidForkEntry, "entry %d: unexpected %T", i, branch)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Run) child(child *model.ChildPipeline, splitter *stream.Splitter[processor.Record], parent *model.StageInfo, depth int) error {
	if child == nil {
		return errors.Wrap(ErrInvalidForkEntry, "nil child")
	}

	info := &model.StageInfo{Type: model.ChildStageType, Name: child.Key(), Depth: depth + 1}

	err := r.prepareStage(parent, info)
	if err != nil {
		return err
	}

	view, err := splitter.Fork()
	if err != nil {
		return stageError(child.Key(), err)
	}

	return r.walk(child.Stages(), view, info, depth+1)
}

func (r *Run) output(stage *model.OutputPipeline, splitter *stream.Splitter[processor.Record], parent *model.StageInfo, depth int) error {
	if stage == nil {
		return errors.Wrap(ErrInvalidForkEntry, "nil output")
	}

	info := &model.StageInfo{Type: model.OutputStageType, Name: stage.Key(), Kind: moduleName(stage.Module), Depth: depth}

	params, err := r.bind(stage.Key(), stage.Settings, stage.Module)
	if err != nil {
		return err
	}

	if stage.Factory == nil {
		return stageError(stage.Key(), ErrInvalidStage)
	}

	inst, err := stage.Factory(r.buildInfo(stage.Key()), params, r.args)
	if err != nil {
		return stageError(stage.Key(), err)
	}

	err = r.prepareStage(parent, info)
	if err != nil {
		return err
	}

	view, err := splitter.Fork()
	if err != nil {
		return stageError(stage.Key(), err)
	}

	handle := newHandle(stage.Key())

	r.observed.Add(1)

	err = r.plan.Go(func(ctx context.Context) {
		r.write(ctx, inst, info, view, handle)
	})
	if err != nil {
		r.observed.Done()

		return stageError(stage.Key(), err)
	}

	r.handles = append(r.handles, handle)

	return nil
}

// write runs one output until it signals completion, then discards whatever
// is left on its fork.
func (r *Run) write(ctx context.Context, out processor.Output, info *model.StageInfo, view *stream.Stream[processor.Record], handle *Handle) {
	defer r.observed.Done()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				handle.complete(errors.Wrapf(ErrOutputPanic, "%v", rec))
			}
		}()

		out.Write(ctx, handle.Key(), view, handle.complete)
	}()

	<-handle.Done()

	err := handle.Err()
	if err != nil {
		r.logger.Error("output failed", zap.String("stage", info.Name), zap.Error(err))
	} else {
		r.logger.Info("output completed", zap.String("stage", info.Name))
	}

	for _, opt := range r.exec.opts {
		optErr := opt.AfterOutput(info, time.Since(r.startTime), err)
		if optErr != nil {
			r.logger.Warn("pipeline option failed", zap.String("stage", info.Name), zap.Error(optErr))
		}
	}

	stream.Drain(view)
}

// bind resolves a settings template for the run and validates the result
// against the processor's declared arguments.
func (r *Run) bind(key string, tpl settings.Expr, module processor.Module) (settings.Values, error) {
	params, err := settings.ResolveValues(tpl, r.args, settings.WithLookupEnv(r.exec.lookupEnv))
	if err != nil {
		return nil, stageError(key, err)
	}

	if module != nil {
		err = settings.Validate(params, module.DefaultArgs())
		if err != nil {
			return nil, stageError(key, err)
		}
	}

	r.logger.Debug("stage bound", zap.String("stage", key))

	return params, nil
}

func (r *Run) prepareStage(parent, stage *model.StageInfo) error {
	for _, opt := range r.exec.opts {
		err := opt.PrepareStage(parent, stage)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare stage function")
		}
	}

	return nil
}

func (r *Run) buildInfo(key string) processor.BuildInfo {
	return processor.BuildInfo{
		Logger:   r.logger.With(zap.String("stage", key)),
		Key:      key,
		Pipeline: r.name,
		RunID:    r.id,
	}
}

// ID identifies the run.
func (r *Run) ID() string {
	return r.id
}

// Handles returns one handle per terminal output, in definition order.
func (r *Run) Handles() []*Handle {
	return append([]*Handle(nil), r.handles...)
}

// Start launches the stream graph. Calling it again has no effect.
func (r *Run) Start() {
	if r.plan.Start(r.ctx) {
		r.logger.Info("pipeline started")
	}
}

// Wait starts the run if needed and waits for every output. Every rejection
// is reported; a failed output never stops its siblings. When ctx is done
// first, the run's options are finished without waiting for the outputs.
func (r *Run) Wait(ctx context.Context) error {
	r.Start()

	var err error

	for _, handle := range r.handles {
		select {
		case <-ctx.Done():
			return multierr.Append(ctx.Err(), r.finishRun())
		case <-handle.Done():
		}

		if handleErr := handle.Err(); handleErr != nil {
			err = multierr.Append(err, errors.Wrapf(handleErr, "output %s", handle.Key()))
		}
	}

	r.observed.Wait()

	return multierr.Append(err, r.finishRun())
}

func (r *Run) finishRun() error {
	r.finish.Do(func() {
		// every option is finished even when one of them fails
		for _, opt := range r.opts {
			err := opt.Finish()
			if err != nil {
				r.finishErr = multierr.Append(r.finishErr, errors.Wrap(err, "unable to finish pipeline option"))
			}
		}

		r.logger.Info("pipeline finished", zap.Duration("duration", time.Since(r.startTime)))
	})

	return r.finishErr
}

func moduleName(module processor.Module) string {
	if module == nil {
		return ""
	}

	return module.Name()
}
