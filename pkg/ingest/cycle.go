// Package ingest runs ingestion cycles: every configured source is fetched,
// its records unified, enriched and persisted, and the cycle's posts are
// condensed into one stored digest.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/elonfeng/hazardradar/internal/observability"
	"github.com/elonfeng/hazardradar/pkg/digest"
	"github.com/elonfeng/hazardradar/pkg/enrich"
	"github.com/elonfeng/hazardradar/pkg/post"
	"github.com/elonfeng/hazardradar/pkg/source"
	"github.com/elonfeng/hazardradar/pkg/unify"
)

var (
	// ErrSink marks failures of the post or digest store. A sink failure
	// aborts the cycle.
	ErrSink = errors.New("sink failure")
	// ErrCycleRunning is returned by TryRun while another cycle is in progress.
	ErrCycleRunning = errors.New("ingestion cycle already running")
)

// Sink is the durable store for posts and digests.
type Sink interface {
	InsertPost(ctx context.Context, p *post.Post) error
	InsertPosts(ctx context.Context, posts []post.Post) error
	InsertDigest(ctx context.Context, d *post.SummaryDigest) error
}

// Notifier is told about every stored digest.
type Notifier interface {
	NotifyDigest(ctx context.Context, d *post.SummaryDigest, posts []post.Post) error
}

// Result summarizes one cycle.
type Result struct {
	PostsBySource map[string]int      `json:"posts_by_source"`
	Total         int                 `json:"total"`
	Digest        *post.SummaryDigest `json:"digest,omitempty"`
	Duration      time.Duration       `json:"duration"`
}

// Cycle runs ingestion over a fixed set of sources. Runs are serialized.
type Cycle struct {
	sources  []source.Source
	unifier  *unify.Unifier
	enricher *enrich.Enricher
	digester *digest.Digester
	sink     Sink
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	mu sync.Mutex
}

// Option configures a Cycle.
type Option func(*Cycle)

// WithNotifier sets the digest notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Cycle) { c.notifier = n }
}

// WithClock sets the clock used to time cycles.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cycle) { c.clock = clock }
}

// New creates a Cycle. Sources must implement source.Collector or
// source.Streamer; they are processed in the given order.
func New(
	sources []source.Source,
	u *unify.Unifier,
	e *enrich.Enricher,
	d *digest.Digester,
	sink Sink,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts ...Option,
) *Cycle {
	c := &Cycle{
		sources:  sources,
		unifier:  u,
		enricher: e,
		digester: d,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetricsForTesting()
	}
	return c
}

// Sources returns the configured sources in processing order.
func (c *Cycle) Sources() []source.Source {
	return append([]source.Source(nil), c.sources...)
}

// TryRun runs a cycle unless one is already in progress.
func (c *Cycle) TryRun(ctx context.Context) (Result, error) {
	if !c.mu.TryLock() {
		return Result{}, ErrCycleRunning
	}
	defer c.mu.Unlock()
	return c.run(ctx)
}

// Run runs one ingestion cycle, waiting for a running one to finish first.
//
// Source failures and empty sources are logged and skipped. Sink failures
// abort the cycle and wrap ErrSink. A digest failure is returned after all
// posts were persisted. Notification failures are only logged.
func (c *Cycle) Run(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx)
}

func (c *Cycle) run(ctx context.Context) (Result, error) {
	start := c.clock.Now()
	res := Result{PostsBySource: make(map[string]int)}

	err := c.ingest(ctx, &res)

	res.Duration = c.clock.Since(start)
	c.metrics.CycleDuration.Observe(res.Duration.Seconds())
	if err != nil {
		c.metrics.CyclesTotal.WithLabelValues("error").Inc()
		c.logger.Error("ingestion cycle failed", "error", err, "total", res.Total)
		return res, err
	}
	c.metrics.CyclesTotal.WithLabelValues("success").Inc()
	c.logger.Info("ingestion cycle complete", "total", res.Total, "digest", res.Digest != nil, "duration", res.Duration)
	return res, nil
}

func (c *Cycle) ingest(ctx context.Context, res *Result) error {
	var all []post.Post

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		posts, err := c.ingestSource(ctx, src)
		all = append(all, posts...)
		res.PostsBySource[src.Name()] += len(posts)
		res.Total += len(posts)
		if err != nil {
			return err
		}
	}

	if len(all) == 0 {
		c.logger.Info("no posts collected in this cycle, skipping digest")
		return nil
	}

	d, err := c.digester.Digest(ctx, all)
	if err != nil {
		c.metrics.DigestErrors.Inc()
		return fmt.Errorf("generate digest: %w", err)
	}
	if err := c.sink.InsertDigest(ctx, d); err != nil {
		return fmt.Errorf("%w: %w", ErrSink, err)
	}
	c.metrics.DigestsGenerated.Inc()
	res.Digest = d

	if c.notifier != nil {
		if err := c.notifier.NotifyDigest(ctx, d, all); err != nil {
			c.metrics.NotifyErrors.WithLabelValues("digest").Inc()
			c.logger.Warn("digest notification failed", "digest_id", d.ID, "error", err)
		}
	}
	return nil
}

// ingestSource returns the posts persisted for src. A non-nil error is
// fatal for the cycle; adapter failures are handled here.
func (c *Cycle) ingestSource(ctx context.Context, src source.Source) ([]post.Post, error) {
	var (
		posts []post.Post
		err   error
	)

	switch s := src.(type) {
	case source.Collector:
		posts, err = c.collect(ctx, s)
	case source.Streamer:
		posts, err = c.stream(ctx, s)
	default:
		c.logger.Warn("source has no fetch method, skipping", "source", src.Name())
		return nil, nil
	}

	if err != nil {
		if errors.Is(err, ErrSink) || ctx.Err() != nil {
			return posts, err
		}
		c.metrics.SourceErrors.WithLabelValues(src.Name()).Inc()
		c.logger.Warn("source failed, skipping", "source", src.Name(), "error", err, "persisted", len(posts))
		return posts, nil
	}

	if len(posts) == 0 {
		c.metrics.EmptySources.WithLabelValues(src.Name()).Inc()
		c.logger.Info("no posts found", "source", src.Name(), "platform", src.Platform())
		return nil, nil
	}

	c.metrics.PostsIngested.WithLabelValues(string(src.Platform())).Add(float64(len(posts)))
	c.logger.Info("source ingested", "source", src.Name(), "platform", src.Platform(), "posts", len(posts))
	return posts, nil
}

func (c *Cycle) collect(ctx context.Context, src source.Collector) ([]post.Post, error) {
	raws, err := src.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}

	posts := make([]post.Post, 0, len(raws))
	for _, raw := range raws {
		posts = append(posts, c.build(raw, src))
	}
	if err := c.sink.InsertPosts(ctx, posts); err != nil {
		return nil, fmt.Errorf("%w: store %s posts: %w", ErrSink, src.Name(), err)
	}
	return posts, nil
}

// stream persists each record as it arrives.
func (c *Cycle) stream(ctx context.Context, src source.Streamer) ([]post.Post, error) {
	var posts []post.Post
	err := src.Stream(ctx, func(raw post.RawRecord) error {
		p := c.build(raw, src)
		if err := c.sink.InsertPost(ctx, &p); err != nil {
			return fmt.Errorf("%w: store %s post: %w", ErrSink, src.Name(), err)
		}
		posts = append(posts, p)
		return nil
	})
	return posts, err
}

func (c *Cycle) build(raw post.RawRecord, src source.Source) post.Post {
	p := c.enricher.Enrich(c.unifier.Unify(raw, src.Platform()), src.Name())
	if !p.HazardMatched {
		c.metrics.EnrichmentFallbacks.WithLabelValues("hazard").Inc()
	}
	if !p.LocationMatched {
		c.metrics.EnrichmentFallbacks.WithLabelValues("location").Inc()
	}
	return p
}

// Preview fetches, unifies and enriches one source without persisting.
func (c *Cycle) Preview(ctx context.Context, src source.Source) ([]post.Post, error) {
	raws, err := source.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name(), err)
	}
	posts := make([]post.Post, 0, len(raws))
	for _, raw := range raws {
		posts = append(posts, c.build(raw, src))
	}
	return posts, nil
}
