package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/internal/config"
	"github.com/askiada/go-etl/internal/logging"
	"github.com/askiada/go-etl/internal/metrics"
	"github.com/askiada/go-etl/pkg/pipeline"
	"github.com/askiada/go-etl/pkg/pipeline/definition"
	"github.com/askiada/go-etl/pkg/pipeline/drawer"
	"github.com/askiada/go-etl/pkg/pipeline/measure"
	"github.com/askiada/go-etl/pkg/pipeline/model"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
)

var ErrMissingDefinition = errors.New("missing pipeline definition")

const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	var pairs []string

	cmd := &cobra.Command{
		Use:   "run [definition.yaml]",
		Short: "Run a pipeline definition",
		Example: `  etl run events.yaml --arg in=events.jsonl --arg out=ids.jsonl
  ETL_DEFINITION=events.yaml ETL_DRAW_FILE=events.dot etl run -a in=events.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if len(positional) == 1 {
				cfg.Definition = positional[0]
			}

			args, err := settings.ParseArgs(pairs)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
			if err != nil {
				return err
			}

			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, args, logger, prometheus.DefaultRegisterer)
		},
	}

	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "pipeline argument as name=value, repeatable")

	return cmd
}

// run loads the definition of cfg and executes it once.
func run(ctx context.Context, cfg *config.Config, args settings.Args, logger *zap.Logger, reg prometheus.Registerer) error {
	if cfg.Definition == "" {
		return ErrMissingDefinition
	}

	root, err := definition.LoadFile(cfg.Definition)
	if err != nil {
		return err
	}

	opts := []model.PipelineOption{}

	if cfg.MetricsAddr != "" {
		opts = append(opts, metrics.New(reg).PipelineOption(root.Name()))

		srv := serveMetrics(cfg.MetricsAddr, logger)

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				logger.Warn("unable to stop metrics server", zap.Error(err))
			}
		}()
	}

	if cfg.DrawFile != "" {
		m := measure.NewDefaultMeasure()
		opts = append(opts, measure.PipelineMeasure(m), drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.DrawFile), m))
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	return pipeline.Execute(ctx, root, args,
		pipeline.WithLogger(logger),
		pipeline.WithBufferSize(cfg.BufferSize),
		pipeline.WithPipelineOptions(opts...),
	)
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("serving metrics", zap.String("addr", addr))

	return srv
}
