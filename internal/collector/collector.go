// Package collector drives the paginated post search for a query: it fetches
// pages until the target count or the attempt budget is reached, maps records
// defensively, filters, deduplicates and caps the result. Collect never
// returns an error; a failing source degrades to whatever was accumulated so
// the chart overlay stays usable.
package collector

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/bakkerme/chartbuzz/internal/dedupe"
	"github.com/bakkerme/chartbuzz/internal/filter"
	"github.com/bakkerme/chartbuzz/internal/twitter"
)

type Config struct {
	TargetCount int
	PageSize    int
	MaxAttempts int
	// PageDelay paces consecutive page fetches to stay under the source's
	// rate limits. Tunable, not correctness-critical.
	PageDelay time.Duration
	// PageTimeout bounds a single page fetch. Zero disables it.
	PageTimeout         time.Duration
	SimilarityThreshold float64
}

// DefaultConfig mirrors the production tuning: up to 5000 posts, 100 per
// page, at most 50 fetches, 300ms between pages.
func DefaultConfig() Config {
	return Config{
		TargetCount:         5000,
		PageSize:            100,
		MaxAttempts:         50,
		PageDelay:           300 * time.Millisecond,
		SimilarityThreshold: dedupe.DefaultThreshold,
	}
}

type Collector struct {
	source twitter.SearchClient
	rules  *filter.Chain
	unique *dedupe.Filter
	logger *slog.Logger
	tracer trace.Tracer
	cfg    Config
	now    func() time.Time
}

// New builds a Collector over the given search source. rules may be nil.
// Out-of-range config values fall back to the defaults.
func New(source twitter.SearchClient, rules *filter.Chain, logger *slog.Logger, cfg Config) *Collector {
	def := DefaultConfig()
	if cfg.TargetCount <= 0 {
		cfg.TargetCount = def.TargetCount
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source: source,
		rules:  rules,
		unique: dedupe.New(cfg.SimilarityThreshold),
		logger: logger,
		tracer: otel.Tracer("chartbuzz/collector"),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Collect returns up to TargetCount deduplicated posts for query, in fetch
// order. All collection state is local to the call, so concurrent Collects
// are independent.
func (c *Collector) Collect(ctx context.Context, query string) []twitter.Post {
	ctx, span := c.tracer.Start(ctx, "collector.Collect",
		trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	accumulated := c.paginate(ctx, span, query)

	kept := accumulated
	if c.rules != nil {
		kept = c.rules.Apply(kept)
	}
	unique := c.unique.Dedupe(kept)
	if len(unique) > c.cfg.TargetCount {
		unique = unique[:c.cfg.TargetCount]
	}

	span.SetAttributes(
		attribute.Int("posts.fetched", len(accumulated)),
		attribute.Int("posts.filtered", len(kept)),
		attribute.Int("posts.returned", len(unique)),
	)
	c.logger.Info("collection finished",
		slog.String("query", query),
		slog.Int("fetched", len(accumulated)),
		slog.Int("duplicates_removed", len(kept)-len(unique)),
		slog.Int("returned", len(unique)),
	)
	return unique
}

// paginate runs the fetch loop. Termination conditions, in order of checking:
// enough posts accumulated, attempt budget spent, cancellation, source error,
// malformed page, empty page, missing continuation cursor.
func (c *Collector) paginate(ctx context.Context, span trace.Span, query string) []twitter.Post {
	accumulated := []twitter.Post{}
	cursor := ""
	attempts := 0

	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.cfg.PageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.cfg.PageDelay), 1)
	}

	for len(accumulated) < c.cfg.TargetCount && attempts < c.cfg.MaxAttempts {
		select {
		case <-ctx.Done():
			c.logger.Info("collection canceled", slog.String("query", query))
			return accumulated
		default:
		}
		if err := limiter.Wait(ctx); err != nil {
			return accumulated
		}

		page, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			// Degrade to what we have; the failure is reported
			// out-of-band so the caller still gets a usable chart.
			span.AddEvent("source.degraded", trace.WithAttributes(attribute.String("error", err.Error())))
			c.logger.Warn("post source unavailable, returning accumulated posts",
				slog.String("query", query),
				slog.Int("accumulated", len(accumulated)),
				slog.String("error", err.Error()),
			)
			return accumulated
		}
		if page == nil || page.Posts == nil {
			span.AddEvent("source.malformed_page")
			c.logger.Warn("malformed page from source, stopping early",
				slog.String("query", query),
				slog.Int("accumulated", len(accumulated)),
			)
			return accumulated
		}

		now := c.now()
		for _, raw := range page.Posts {
			accumulated = append(accumulated, twitter.FromRaw(raw, now))
		}
		c.logger.Debug("fetched page",
			slog.String("query", query),
			slog.Int("new", len(page.Posts)),
			slog.Int("total", len(accumulated)),
		)

		if len(page.Posts) == 0 {
			break
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		attempts++
	}

	return accumulated
}

func (c *Collector) fetchPage(ctx context.Context, query, cursor string) (*twitter.Page, error) {
	if c.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PageTimeout)
		defer cancel()
	}
	return c.source.FetchPage(ctx, query, c.cfg.PageSize, cursor)
}
