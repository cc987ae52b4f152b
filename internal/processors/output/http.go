package output

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/settings"
	"github.com/askiada/go-etl/pkg/pipeline/stream"
)

var ErrRequestFailed = errors.New("http request failed")

type httpModule struct {
	processor.BaseModule
}

// HTTP sends records as JSON request bodies. With a batch size above 1 the
// body is an array of up to batchSize records.
func HTTP() processor.OutputModule {
	return &httpModule{BaseModule: processor.BaseModule{
		ModuleName:   "http",
		ModuleKind:   processor.KindOutput,
		ShorthandKey: "url",
		Args: func() map[string]settings.ArgDescriptor {
			return map[string]settings.ArgDescriptor{
				"url":       settings.NewArg("url").Required().Description("Request URL").Build(),
				"method":    settings.NewArg("method").Default(http.MethodPost).ValidValues(http.MethodPost, http.MethodPut, http.MethodPatch).Build(),
				"batchSize": settings.NewArg("batchSize").Default(1).Description("Records sent per request").Build(),
				"headers":   settings.NewArg("headers").Description("Extra request headers").Build(),
			}
		},
	}}
}

func (m *httpModule) Build(_ string, settingsOrShorthand any) (settings.Expr, processor.OutputFactory, error) {
	tpl, err := m.Template(settingsOrShorthand)
	if err != nil {
		return nil, nil, err
	}

	return tpl, newHTTP, nil
}

func newHTTP(info processor.BuildInfo, params settings.Values, _ settings.Args) (processor.Output, error) {
	url := params.String("url", "")
	if url == "" {
		return nil, errors.Wrap(ErrMissingTarget, "must pass a url")
	}

	batchSize, err := params.Int("batchSize", 1)
	if err != nil {
		return nil, err
	}

	if batchSize < 1 {
		batchSize = 1
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Pipeline-Run", info.RunID)

	if headers, ok := params.Get("headers"); ok {
		var values map[string]any

		switch h := headers.(type) {
		case settings.Values:
			values = h
		case map[string]any:
			values = h
		default:
			return nil, errors.Wrapf(settings.ErrInvalidArgument, "headers: unexpected type %T", headers)
		}

		for k, v := range values {
			client.SetHeader(k, fmt.Sprint(v))
		}
	}

	return &httpOutput{
		client:    client,
		logger:    loggerOrNop(info.Logger),
		url:       url,
		method:    params.String("method", http.MethodPost),
		batchSize: batchSize,
	}, nil
}

type httpOutput struct {
	client    *resty.Client
	logger    *zap.Logger
	url       string
	method    string
	batchSize int
}

func (o *httpOutput) Write(ctx context.Context, _ string, in *stream.Stream[processor.Record], done processor.Done) {
	batch := make([]processor.Record, 0, o.batchSize)

	err := consume(ctx, in, func(rec processor.Record) error {
		batch = append(batch, rec)
		if len(batch) < o.batchSize {
			return nil
		}

		err := o.send(ctx, batch)
		batch = batch[:0]

		return err
	})
	if err == nil && len(batch) > 0 {
		err = o.send(ctx, batch)
	}

	done(err)
}

func (o *httpOutput) send(ctx context.Context, batch []processor.Record) error {
	var body any = batch
	if o.batchSize == 1 {
		body = batch[0]
	}

	data, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "unable to encode request body")
	}

	resp, err := o.client.R().SetContext(ctx).SetBody(data).Execute(o.method, o.url)
	if err != nil {
		return errors.Wrapf(err, "%s %s", o.method, o.url)
	}

	if resp.IsError() {
		return errors.Wrapf(ErrRequestFailed, "%s %s: HTTP %d", o.method, o.url, resp.StatusCode())
	}

	o.logger.Debug("batch sent", zap.Int("records", len(batch)), zap.Int("status", resp.StatusCode()))

	return nil
}
