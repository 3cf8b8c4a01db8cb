// Package poller drives periodic fetch-classify cycles against the content
// feed, deduplicating posts across cycles.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/feed"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/metrics"
)

// Config controls poller timing and fetch sizes.
type Config struct {
	// Interval between continuous-mode cycles.
	Interval time.Duration
	// Backoff delay after a failed fetch before retrying.
	Backoff time.Duration
	// FetchLimit is the per-cycle fetch size in continuous mode.
	FetchLimit int
}

// BatchHandler consumes one cycle's worth of classified posts.
type BatchHandler func(ctx context.Context, posts []classifier.ClassifiedPost)

// Poller fetches posts from the feed, filters them through the scan
// vocabulary, and classifies the matches.
type Poller struct {
	feed    feed.Client
	cls     *classifier.Classifier
	dedup   *Deduplicator
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a Poller. metrics may be nil.
func New(client feed.Client, cls *classifier.Classifier, dedup *Deduplicator, cfg Config, m *metrics.Metrics) *Poller {
	return &Poller{
		feed:    client,
		cls:     cls,
		dedup:   dedup,
		cfg:     cfg,
		metrics: m,
	}
}

// FetchOnce performs a single fetch-classify pass of up to limit posts
// without cross-cycle deduplication, so repeated calls re-report unchanged
// matching posts. Fetch errors propagate to the caller.
func (p *Poller) FetchOnce(ctx context.Context, limit int) ([]classifier.ClassifiedPost, error) {
	start := time.Now()
	posts, err := p.feed.FetchRecent(ctx, limit)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FetchErrorsTotal.Inc()
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}

	return p.classify(posts, nil), nil
}

// RunCycle performs one continuous-mode cycle: fetch up to the configured
// limit, skip posts seen in earlier cycles, classify the rest.
func (p *Poller) RunCycle(ctx context.Context) ([]classifier.ClassifiedPost, error) {
	start := time.Now()
	posts, err := p.feed.FetchRecent(ctx, p.cfg.FetchLimit)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FetchErrorsTotal.Inc()
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		p.metrics.CyclesTotal.Inc()
	}

	return p.classify(posts, p.dedup), nil
}

// classify filters posts through the scan vocabulary and annotates matches.
// A non-nil dedup drops posts whose ids were already seen.
func (p *Poller) classify(posts []feed.Post, dedup *Deduplicator) []classifier.ClassifiedPost {
	var classified []classifier.ClassifiedPost
	for _, post := range posts {
		if dedup != nil && !dedup.IsNew(post.ID) {
			continue
		}

		cp, ok := p.cls.Classify(post)
		if !ok {
			continue
		}
		classified = append(classified, cp)

		if p.metrics != nil {
			p.metrics.PostsMatchedTotal.WithLabelValues(string(cp.IncidentType)).Inc()
		}
	}
	return classified
}

// Run repeats RunCycle on the configured interval until the context is
// cancelled, handing each non-empty batch to handle. Fetch failures are
// logged and retried after the backoff delay; no error stops the loop.
func (p *Poller) Run(ctx context.Context, handle BatchHandler) {
	slog.Info("poller started",
		"interval", p.cfg.Interval,
		"fetch_limit", p.cfg.FetchLimit,
	)

	for {
		cycleID := uuid.NewString()

		posts, err := p.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("fetch cycle failed, backing off",
				"cycle_id", cycleID,
				"error", err,
				"backoff", p.cfg.Backoff,
			)
			if !sleep(ctx, p.cfg.Backoff) {
				return
			}
			continue
		}

		if len(posts) > 0 {
			slog.Info("cycle classified posts",
				"cycle_id", cycleID,
				"count", len(posts),
				"seen_total", p.dedup.Len(),
			)
			handle(ctx, posts)
		} else {
			slog.Debug("cycle found no new matching posts", "cycle_id", cycleID)
		}

		if !sleep(ctx, p.cfg.Interval) {
			return
		}
	}
}

// sleep waits for d or until ctx is cancelled, returning false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
