package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/analytics"
	"github.com/iota-uz/export-ingest/pkg/composables"
)

const (
	companyColumns = `company_id, company_name, followers_count, impressions, unique_impressions,
			clicks, engagement_rate, reach, total_posts, avg_post_engagement, date_collected`

	upsertCompanyQuery = `
		INSERT INTO company_analytics (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (company_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			followers_count = EXCLUDED.followers_count,
			impressions = EXCLUDED.impressions,
			unique_impressions = EXCLUDED.unique_impressions,
			clicks = EXCLUDED.clicks,
			engagement_rate = EXCLUDED.engagement_rate,
			reach = EXCLUDED.reach,
			total_posts = EXCLUDED.total_posts,
			avg_post_engagement = EXCLUDED.avg_post_engagement,
			date_collected = EXCLUDED.date_collected,
			updated_at = NOW()`

	insertHistoryQuery = `
		INSERT INTO analytics_history (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	latestFollowersCountQuery = `SELECT followers_count FROM company_analytics WHERE company_id = $1`

	upsertSnapshotQuery = `
		INSERT INTO post_metrics_history (
			company_id, post_id, observed_at, observed_date, post_date,
			impressions, clicks, likes, comments, shares, reach, ctr, engagement_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (company_id, post_id, observed_date) DO UPDATE SET
			observed_at = EXCLUDED.observed_at,
			post_date = EXCLUDED.post_date,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			reach = EXCLUDED.reach,
			ctr = EXCLUDED.ctr,
			engagement_rate = EXCLUDED.engagement_rate`
)

type pgAnalyticsRepository struct{}

func NewAnalyticsRepository() analytics.Repository {
	return &pgAnalyticsRepository{}
}

func (r *pgAnalyticsRepository) UpsertSummary(ctx context.Context, summary *analytics.CompanySummary) error {
	return r.execSummary(ctx, upsertCompanyQuery, summary, "failed to upsert company analytics")
}

func (r *pgAnalyticsRepository) InsertHistory(ctx context.Context, summary *analytics.CompanySummary) error {
	return r.execSummary(ctx, insertHistoryQuery, summary, "failed to insert analytics history")
}

func (r *pgAnalyticsRepository) execSummary(ctx context.Context, query string, summary *analytics.CompanySummary, msg string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	row := toDBCompany(summary)
	if _, err := tx.Exec(ctx, query,
		row.CompanyID, row.CompanyName, row.FollowersCount, row.Impressions, row.UniqueImpressions,
		row.Clicks, row.EngagementRate, row.Reach, row.TotalPosts, row.AvgPostEngagement, row.DateCollected,
	); err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}

func (r *pgAnalyticsRepository) LatestFollowersCount(ctx context.Context, companyID string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var n int64
	if err := tx.QueryRow(ctx, latestFollowersCountQuery, companyID).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to query followers count")
	}
	return n, nil
}

func (r *pgAnalyticsRepository) UpsertPostSnapshots(ctx context.Context, snapshots []*analytics.PostMetricsSnapshot) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	b := &pgx.Batch{}
	for _, s := range snapshots {
		row := toDBSnapshot(s)
		b.Queue(upsertSnapshotQuery,
			row.CompanyID, row.PostID, row.ObservedAt, row.ObservedDate, row.PostDate,
			row.Impressions, row.Clicks, row.Likes, row.Comments, row.Shares, row.Reach, row.CTR, row.EngagementRate,
		)
	}
	return errors.Wrap(sendBatch(ctx, tx, b), "failed to upsert post snapshots")
}
