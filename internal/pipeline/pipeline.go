// Package pipeline sequences the snapshot stages: fetch the source document,
// flatten it into a key/value table, write the table to a columnar file and
// optionally publish the file to object storage.
//
// # Overview
//
// A run is strictly sequential and short-circuits on the first failure; a
// stage that did not produce a result stops every later stage. Each stage
// logs its own error, with the captured stack, and the pipeline only maps
// the failing stage to an Outcome.
//
// # Basic Usage
//
//	p := pipeline.NewSnapshotPipeline(url, client, flattener, dest, logger)
//	result := p.Run(ctx)
//	if !result.OK() {
//	    os.Exit(1)
//	}
package pipeline

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/destination"
	"github.com/ajitpratap0/metasnap/pkg/document"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/logger"
	"github.com/ajitpratap0/metasnap/pkg/metrics"
	"github.com/ajitpratap0/metasnap/pkg/models"
	"github.com/ajitpratap0/metasnap/pkg/observability"
)

// Fetcher retrieves the source document
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*document.Value, error)
}

// Flattener converts a document into a table
type Flattener interface {
	Flatten(doc *document.Value) (*models.Table, error)
}

// Writer persists a table
type Writer interface {
	Write(ctx context.Context, table *models.Table) error
	Path() string
}

// SnapshotPipeline runs one snapshot
type SnapshotPipeline struct {
	url       string
	fetcher   Fetcher
	flattener Flattener
	writer    Writer
	publisher destination.Publisher
	metrics   *metrics.Collector
	closers   []io.Closer
	logger    *zap.Logger
}

// Option configures a SnapshotPipeline
type Option func(*SnapshotPipeline)

// WithPublisher adds a publish stage after a successful write
func WithPublisher(p destination.Publisher) Option {
	return func(sp *SnapshotPipeline) {
		sp.publisher = p
	}
}

// WithMetrics records stage timings and the outcome on c
func WithMetrics(c *metrics.Collector) Option {
	return func(sp *SnapshotPipeline) {
		sp.metrics = c
	}
}

// WithCloser registers a resource released by Close
func WithCloser(c io.Closer) Option {
	return func(sp *SnapshotPipeline) {
		sp.closers = append(sp.closers, c)
	}
}

// NewSnapshotPipeline creates a pipeline fetching url. A nil logger uses the
// global one.
func NewSnapshotPipeline(url string, fetcher Fetcher, flattener Flattener, writer Writer, log *zap.Logger, opts ...Option) *SnapshotPipeline {
	if log == nil {
		log = logger.Get()
	}

	p := &SnapshotPipeline{
		url:       url,
		fetcher:   fetcher,
		flattener: flattener,
		writer:    writer,
		logger:    log.With(zap.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metrics returns the collector, or nil when none was configured
func (p *SnapshotPipeline) Metrics() *metrics.Collector {
	return p.metrics
}

// Run executes the stages in order and reports how the run ended. It never
// panics on stage failure and never exits the process.
func (p *SnapshotPipeline) Run(ctx context.Context) *Result {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "snapshot.run",
		attribute.String("url", p.url),
		attribute.String("output", p.writer.Path()))

	result := &Result{URL: p.url, OutputPath: p.writer.Path()}
	defer func() {
		result.Duration = time.Since(start)
		p.finish(result)
		observability.EndSpan(span, result.Err)
	}()

	p.logger.Info("snapshot started", zap.String("url", p.url), zap.String("output", p.writer.Path()))

	var doc *document.Value
	if err := p.stage(ctx, metrics.StageFetch, func(ctx context.Context) (err error) {
		doc, err = p.fetcher.FetchDocument(ctx, p.url)
		return err
	}); err != nil {
		result.fail(OutcomeFetchFailed, err)
		return result
	}

	var table *models.Table
	if err := p.stage(ctx, metrics.StageFlatten, func(context.Context) (err error) {
		table, err = p.flattener.Flatten(doc)
		return err
	}); err != nil {
		result.fail(OutcomeFlattenFailed, err)
		return result
	}

	result.Rows = table.Len()
	if table.IsEmpty() {
		result.fail(OutcomeEmptyResult, errors.New(errors.ErrorTypeValidation, "document has no top-level keys"))
		return result
	}

	if err := p.stage(ctx, metrics.StageWrite, func(ctx context.Context) error {
		return p.writer.Write(ctx, table)
	}); err != nil {
		result.fail(OutcomeWriteFailed, err)
		return result
	}

	if p.publisher != nil {
		if err := p.stage(ctx, metrics.StagePublish, func(ctx context.Context) (err error) {
			result.PublishedURI, err = p.publisher.Publish(ctx, p.writer.Path())
			return err
		}); err != nil {
			result.fail(OutcomePublishFailed, err)
			return result
		}
	}

	result.Outcome = OutcomeSucceeded
	return result
}

// Close releases the resources registered with WithCloser
func (p *SnapshotPipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *SnapshotPipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "snapshot."+name)
	timer := metrics.NewTimer()

	err := fn(ctx)

	elapsed := timer.Stop()
	if p.metrics != nil {
		p.metrics.ObserveStage(name, elapsed, err)
	}
	observability.EndSpan(span, err)
	p.logger.Debug("stage finished", zap.String("stage", name), zap.Duration("duration", elapsed), zap.Bool("ok", err == nil))
	return err
}

func (p *SnapshotPipeline) finish(r *Result) {
	if p.metrics != nil {
		p.metrics.RecordOutcome(string(r.Outcome))
		if r.OK() {
			p.metrics.SetRows(r.Rows)
			p.metrics.MarkSuccess(time.Now())
		}
	}

	if r.OK() {
		fields := []zap.Field{
			zap.String("output", r.OutputPath),
			zap.Int("rows", r.Rows),
			zap.Duration("duration", r.Duration),
		}
		if r.PublishedURI != "" {
			fields = append(fields, zap.String("published", r.PublishedURI))
		}
		p.logger.Info("snapshot succeeded", fields...)
		return
	}

	p.logger.Error("snapshot failed",
		zap.String("outcome", string(r.Outcome)),
		zap.String("error_type", string(errors.TypeOf(r.Err))),
		zap.Duration("duration", r.Duration))
}
