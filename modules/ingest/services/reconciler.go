package services

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/analytics"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
	"github.com/iota-uz/export-ingest/pkg/repo"
	"github.com/iota-uz/export-ingest/pkg/tracing"
)

// MergePolicy decides how an incoming record is combined with the stored
// one.
type MergePolicy string

const (
	// PolicyMax keeps the pointwise maximum of every counter.
	PolicyMax MergePolicy = "max"
	// PolicyNew overwrites with the incoming values.
	PolicyNew MergePolicy = "new"
)

func ParseMergePolicy(s string) MergePolicy {
	if MergePolicy(s) == PolicyNew {
		return PolicyNew
	}
	return PolicyMax
}

const (
	lookupChunkSize   = 1000
	writeBatchSize    = 100
	snapshotBatchSize = 200
)

// Counts summarizes one Reconcile call.
type Counts struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	Snapshots int `json:"snapshots"`

	// Sent is every record handed to the store, after merging.
	Sent []*post.Post `json:"-"`
}

type ReconcilerConfig struct {
	CompanyName    string
	HistoryEnabled bool
	Now            func() time.Time
}

type Reconciler struct {
	posts     post.Repository
	analytics analytics.Repository
	followers demographic.Repository
	cfg       ReconcilerConfig
}

func NewReconciler(posts post.Repository, analytics analytics.Repository, followers demographic.Repository, cfg ReconcilerConfig) *Reconciler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{posts: posts, analytics: analytics, followers: followers, cfg: cfg}
}

// Reconcile writes one normalized batch for a company. Only a failed baseline
// lookup aborts the call; every later failure is logged and the batch
// skipped.
func (r *Reconciler) Reconcile(ctx context.Context, companyID string, records []*post.Post, policy MergePolicy) (Counts, error) {
	var counts Counts
	if len(records) == 0 {
		return counts, nil
	}
	ctx, span := tracing.Start(ctx, "reconcile",
		attribute.String("company_id", companyID),
		attribute.Int("records", len(records)),
		attribute.String("policy", string(policy)),
	)
	defer span.End()

	incoming := collapse(companyID, records, policy)

	baseline, err := r.baseline(ctx, incoming)
	if err != nil {
		span.RecordError(err)
		return counts, err
	}

	var fresh, existing []*post.Post
	for _, p := range incoming {
		stored, ok := baseline[p.PostID]
		if !ok {
			fresh = append(fresh, p)
			continue
		}
		if policy == PolicyMax {
			p = mergeMax(p, stored)
		}
		existing = append(existing, p)
	}

	counts.Inserted, counts.Failed = r.writeBatches(ctx, "post_analytics.insert", fresh, r.posts.Insert)
	updated, failed := r.writeBatches(ctx, "post_analytics.upsert", existing, r.posts.Upsert)
	counts.Updated = updated
	counts.Failed += failed
	counts.Sent = append(append(counts.Sent, fresh...), existing...)

	counts.Snapshots = r.snapshot(ctx, companyID, incoming)
	r.rollup(ctx, companyID, incoming)

	logWithFields(ctx, logrus.InfoLevel, "reconciled posts", logrus.Fields{
		"company_id": companyID,
		"policy":     string(policy),
		"inserted":   counts.Inserted,
		"updated":    counts.Updated,
		"failed":     counts.Failed,
		"snapshots":  counts.Snapshots,
	})
	return counts, nil
}

// collapse stamps the company on copies of the records and folds repeated
// ids within the batch: pointwise max under PolicyMax, last row otherwise.
func collapse(companyID string, records []*post.Post, policy MergePolicy) []*post.Post {
	out := make([]*post.Post, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		p := rec.Clone()
		p.CompanyID = companyID
		i, seen := index[p.PostID]
		if !seen {
			index[p.PostID] = len(out)
			out = append(out, p)
			continue
		}
		if policy == PolicyMax {
			p = mergeMax(p, out[i].Metrics)
		}
		out[i] = p
	}
	return out
}

// mergeMax returns p with counters raised to at least stored and the rates
// recomputed from the merged counters.
func mergeMax(p *post.Post, stored post.Metrics) *post.Post {
	merged := p.Clone()
	merged.Metrics = p.Metrics.Max(stored)
	merged.CTR = capRate(ComputeCTR(merged.Clicks, merged.Impressions))
	merged.EngagementRate = capRate(ComputeEngagementRate(merged.Likes, merged.Comments, merged.Shares, merged.Clicks, merged.Impressions))
	return merged
}

func (r *Reconciler) baseline(ctx context.Context, posts []*post.Post) (map[string]post.Metrics, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	out := make(map[string]post.Metrics, len(ids))
	for _, w := range repo.Chunk(len(ids), lookupChunkSize) {
		found, err := r.posts.FindMetrics(ctx, ids[w[0]:w[1]])
		if err != nil {
			return nil, ingesterr.New(ingesterr.KindPersistence, "baseline", gerrors.Wrap(err, "find stored metrics"))
		}
		for id, m := range found {
			out[id] = m
		}
	}
	return out, nil
}

func (r *Reconciler) writeBatches(ctx context.Context, table string, posts []*post.Post, write func(context.Context, []*post.Post) error) (ok, failed int) {
	for i, w := range repo.Chunk(len(posts), writeBatchSize) {
		batch := posts[w[0]:w[1]]
		if err := write(ctx, batch); err != nil {
			failed += len(batch)
			recordFailedBatch(table)
			logIssue(ctx, logrus.ErrorLevel, "write batch failed",
				ingesterr.New(ingesterr.KindPersistence, table, err),
				logrus.Fields{"table": table, "batch": i, "size": len(batch)})
			continue
		}
		ok += len(batch)
	}
	recordRecords(table, "ok", ok)
	recordRecords(table, "failed", failed)
	return ok, failed
}

// snapshot records today's counters for every incoming post, independent of
// the merge policy.
func (r *Reconciler) snapshot(ctx context.Context, companyID string, posts []*post.Post) int {
	now := r.cfg.Now().UTC()
	day := now.Truncate(24 * time.Hour)
	snaps := make([]*analytics.PostMetricsSnapshot, len(posts))
	for i, p := range posts {
		snaps[i] = &analytics.PostMetricsSnapshot{
			CompanyID:      companyID,
			PostID:         p.PostID,
			ObservedAt:     now,
			ObservedDate:   day,
			PostDate:       p.PostDate,
			Impressions:    p.Impressions,
			Clicks:         p.Clicks,
			Likes:          p.Likes,
			Comments:       p.Comments,
			Shares:         p.Shares,
			Reach:          p.Reach,
			CTR:            p.CTR,
			EngagementRate: p.EngagementRate,
		}
	}
	written := 0
	for i, w := range repo.Chunk(len(snaps), snapshotBatchSize) {
		batch := snaps[w[0]:w[1]]
		if err := r.analytics.UpsertPostSnapshots(ctx, batch); err != nil {
			recordFailedBatch("post_metrics_history")
			logIssue(ctx, logrus.WarnLevel, "snapshot batch failed",
				ingesterr.New(ingesterr.KindPersistence, "post_metrics_history", err),
				logrus.Fields{"batch": i, "size": len(batch)})
			continue
		}
		written += len(batch)
	}
	recordRecords("post_metrics_history", "ok", written)
	return written
}

// rollup replaces the company summary with totals of this batch and appends
// it to the history when enabled.
func (r *Reconciler) rollup(ctx context.Context, companyID string, posts []*post.Post) {
	summary := Summarize(companyID, r.cfg.CompanyName, posts, r.cfg.Now().UTC())
	summary.FollowersCount = r.currentFollowers(ctx, companyID)

	if err := r.analytics.UpsertSummary(ctx, summary); err != nil {
		recordFailedBatch("company_analytics")
		logIssue(ctx, logrus.WarnLevel, "company rollup failed",
			ingesterr.New(ingesterr.KindPersistence, "company_analytics", err), nil)
	}
	if !r.cfg.HistoryEnabled {
		return
	}
	if err := r.analytics.InsertHistory(ctx, summary); err != nil {
		recordFailedBatch("analytics_history")
		logIssue(ctx, logrus.WarnLevel, "history append failed",
			ingesterr.New(ingesterr.KindPersistence, "analytics_history", err), nil)
	}
}

// Summarize totals a batch of posts. Average engagement is rounded to 4
// places.
func Summarize(companyID, companyName string, posts []*post.Post, at time.Time) *analytics.CompanySummary {
	s := &analytics.CompanySummary{
		CompanyID:     companyID,
		CompanyName:   companyName,
		TotalPosts:    len(posts),
		DateCollected: at,
	}
	var er float64
	for _, p := range posts {
		s.Impressions += p.Impressions
		s.Clicks += p.Clicks
		er += p.EngagementRate
	}
	if len(posts) > 0 {
		s.EngagementRate = round4(er / float64(len(posts)))
	}
	s.UniqueImpressions = s.Impressions
	s.Reach = s.Impressions
	s.AvgPostEngagement = s.EngagementRate
	return s
}

// currentFollowers prefers the latest demographics total, then the latest
// rollup, then 0.
func (r *Reconciler) currentFollowers(ctx context.Context, companyID string) int64 {
	if r.followers != nil {
		n, err := r.followers.LatestTotalFollowers(ctx, companyID)
		if err == nil && n > 0 {
			return n
		}
		if err != nil {
			logIssue(ctx, logrus.DebugLevel, "follower lookup failed", err, nil)
		}
	}
	n, err := r.analytics.LatestFollowersCount(ctx, companyID)
	if err != nil {
		logIssue(ctx, logrus.DebugLevel, "rollup follower lookup failed", err, nil)
		return 0
	}
	return n
}

// CurrentFollowers is exposed for the demographics path.
func (r *Reconciler) CurrentFollowers(ctx context.Context, companyID string) int64 {
	return r.currentFollowers(ctx, companyID)
}
