package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
	"github.com/couchcryptid/grid-status-etl/internal/observability"
)

// Fetcher retrieves a raw upstream payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Evaluator turns the generation dashboard script into JSON text.
type Evaluator interface {
	Evaluate(ctx context.Context, script string) (string, error)
}

// SnapshotWriter persists normalized snapshots under their epoch key.
type SnapshotWriter interface {
	WriteOutage(ctx context.Context, epoch int64, snap domain.OutageSnapshot) (domain.WriteResult, error)
	WriteGeneration(ctx context.Context, epoch int64, snap domain.GenerationSnapshot) (domain.WriteResult, error)
}

// Publisher announces persisted snapshots to downstream consumers.
type Publisher interface {
	PublishOutage(ctx context.Context, epoch int64, snap domain.OutageSnapshot) error
	PublishGeneration(ctx context.Context, epoch int64, snap domain.GenerationSnapshot) error
}

// Sources holds the upstream endpoints.
type Sources struct {
	OutageURL     string
	GenerationURL string
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithPublisher enables snapshot notifications after each successful write.
// Publish failures are logged and counted, never returned.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// Pipeline runs one ingestion pass over both upstream sources.
type Pipeline struct {
	fetcher   Fetcher
	evaluator Evaluator
	writer    SnapshotWriter
	publisher Publisher
	resolver  *domain.TimeResolver
	sources   Sources
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline with the given stages and observability. A nil
// metrics disables instrumentation and a nil logger uses slog.Default().
func New(f Fetcher, e Evaluator, w SnapshotWriter, resolver *domain.TimeResolver, sources Sources, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   f,
		evaluator: e,
		writer:    w,
		resolver:  resolver,
		sources:   sources,
		logger:    logger,
		metrics:   metrics,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the outage source and then the generation source. The first
// failure stops the run and is returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingestion started",
		"outage_url", p.sources.OutageURL,
		"generation_url", p.sources.GenerationURL,
		"timezone", p.resolver.Location().String(),
	)
	if err := p.IngestOutage(ctx); err != nil {
		return err
	}
	if err := p.IngestGeneration(ctx); err != nil {
		return err
	}
	p.logger.Info("ingestion finished")
	return nil
}

// IngestOutage fetches, normalizes and persists one outage snapshot.
func (p *Pipeline) IngestOutage(ctx context.Context) (err error) {
	const source = domain.SourceOutage
	defer p.recordOutcome(source, &err)

	var body string
	if err := p.stage(source, StageFetch, func() (e error) {
		body, e = p.fetcher.Fetch(ctx, p.sources.OutageURL)
		return e
	}); err != nil {
		return err
	}

	var snap domain.OutageSnapshot
	if err := p.stage(source, StageParse, func() (e error) {
		snap, e = domain.ParseOutage([]byte(body))
		return e
	}); err != nil {
		return err
	}

	var epoch int64
	if err := p.stage(source, StageResolveTime, func() (e error) {
		epoch, e = p.resolver.Resolve(snap.Timestamp, domain.OutageLayout)
		return e
	}); err != nil {
		return err
	}

	var res domain.WriteResult
	if err := p.stage(source, StagePersist, func() (e error) {
		res, e = p.writer.WriteOutage(ctx, epoch, snap)
		return e
	}); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.LastSuccessEpoch.WithLabelValues(string(source)).Set(float64(epoch))
	}
	p.logger.Info("outage snapshot ingested",
		"epoch", epoch,
		"regions", len(snap.Regions),
		"inserted", res.Inserted,
		"skipped", res.Skipped,
	)

	if p.publisher != nil {
		p.notify(source, epoch, p.publisher.PublishOutage(ctx, epoch, snap))
	}
	return nil
}

// IngestGeneration fetches the dashboard script, evaluates it, then
// normalizes and persists one generation snapshot.
func (p *Pipeline) IngestGeneration(ctx context.Context) (err error) {
	const source = domain.SourceGeneration
	defer p.recordOutcome(source, &err)

	var script string
	if err := p.stage(source, StageFetch, func() (e error) {
		script, e = p.fetcher.Fetch(ctx, p.sources.GenerationURL)
		return e
	}); err != nil {
		return err
	}

	var doc string
	if err := p.stage(source, StageEvaluate, func() (e error) {
		doc, e = p.evaluator.Evaluate(ctx, script)
		return e
	}); err != nil {
		return err
	}

	var snap domain.GenerationSnapshot
	if err := p.stage(source, StageParse, func() (e error) {
		snap, e = domain.ParseGeneration([]byte(doc))
		return e
	}); err != nil {
		return err
	}

	var epoch int64
	if err := p.stage(source, StageResolveTime, func() (e error) {
		epoch, e = p.resolver.Resolve(snap.DataFechaActualizado, domain.GenerationLayout)
		return e
	}); err != nil {
		return err
	}

	var res domain.WriteResult
	if err := p.stage(source, StagePersist, func() (e error) {
		res, e = p.writer.WriteGeneration(ctx, epoch, snap)
		return e
	}); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.LastSuccessEpoch.WithLabelValues(string(source)).Set(float64(epoch))
	}
	p.logger.Info("generation snapshot ingested",
		"epoch", epoch,
		"sites", len(snap.LoadPerSite),
		"units", snap.UnitCount(),
		"inserted", res.Inserted,
		"skipped", res.Skipped,
	)

	if p.publisher != nil {
		p.notify(source, epoch, p.publisher.PublishGeneration(ctx, epoch, snap))
	}
	return nil
}

// stage times fn and wraps its error with the source and stage.
func (p *Pipeline) stage(source domain.Source, stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(string(source), string(stage)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return &StageError{Source: source, Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline) recordOutcome(source domain.Source, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	if p.metrics != nil {
		p.metrics.Runs.WithLabelValues(string(source), outcome).Inc()
	}
}

func (p *Pipeline) notify(source domain.Source, epoch int64, err error) {
	if err == nil {
		return
	}
	p.logger.Warn("snapshot publish failed", "source", source, "epoch", epoch, "error", err)
	if p.metrics != nil {
		p.metrics.PublishErrors.WithLabelValues(string(source)).Inc()
	}
}
