package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/persistence/models"
	"github.com/iota-uz/export-ingest/pkg/composables"
)

const (
	selectPostMetricsQuery = `
		SELECT post_id, impressions, clicks, likes, comments, shares, reach
		FROM post_analytics
		WHERE post_id = ANY($1)`

	insertPostQuery = `
		INSERT INTO post_analytics (
			post_id, company_id, post_content, post_title, post_url, post_date, post_type,
			impressions, clicks, likes, comments, shares, reach, ctr, engagement_rate,
			hashtags, mentions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	// date_collected is left untouched on conflict so it keeps the first-seen time.
	upsertPostQuery = insertPostQuery + `
		ON CONFLICT (post_id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			post_content = EXCLUDED.post_content,
			post_title = EXCLUDED.post_title,
			post_url = EXCLUDED.post_url,
			post_date = EXCLUDED.post_date,
			post_type = EXCLUDED.post_type,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			reach = EXCLUDED.reach,
			ctr = EXCLUDED.ctr,
			engagement_rate = EXCLUDED.engagement_rate,
			hashtags = EXCLUDED.hashtags,
			mentions = EXCLUDED.mentions,
			updated_at = NOW()`

	selectPostsByCompanyQuery = `
		SELECT post_id, company_id, post_content, post_title, post_url, post_date, post_type,
			impressions, clicks, likes, comments, shares, reach, ctr, engagement_rate,
			hashtags, mentions, date_collected
		FROM post_analytics
		WHERE company_id = $1
		ORDER BY post_date DESC, post_id`

	updatePostTypeQuery = `UPDATE post_analytics SET post_type = $1, updated_at = NOW() WHERE post_id = $2`
)

type pgPostRepository struct{}

func NewPostRepository() post.Repository {
	return &pgPostRepository{}
}

func (r *pgPostRepository) FindMetrics(ctx context.Context, postIDs []string) (map[string]post.Metrics, error) {
	out := make(map[string]post.Metrics, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, selectPostMetricsQuery, postIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query post metrics")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var m post.Metrics
		if err := rows.Scan(&id, &m.Impressions, &m.Clicks, &m.Likes, &m.Comments, &m.Shares, &m.Reach); err != nil {
			return nil, errors.Wrap(err, "failed to scan post metrics")
		}
		out[id] = m
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating post metrics")
	}
	return out, nil
}

func (r *pgPostRepository) Insert(ctx context.Context, posts []*post.Post) error {
	return r.write(ctx, insertPostQuery, posts)
}

func (r *pgPostRepository) Upsert(ctx context.Context, posts []*post.Post) error {
	return r.write(ctx, upsertPostQuery, posts)
}

func (r *pgPostRepository) write(ctx context.Context, query string, posts []*post.Post) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	b := &pgx.Batch{}
	for _, p := range posts {
		row := toDBPost(p)
		b.Queue(query,
			row.PostID, row.CompanyID, row.PostContent, row.PostTitle, row.PostURL, row.PostDate, row.PostType,
			row.Impressions, row.Clicks, row.Likes, row.Comments, row.Shares, row.Reach, row.CTR, row.EngagementRate,
			row.Hashtags, row.Mentions,
		)
	}
	return errors.Wrap(sendBatch(ctx, tx, b), "failed to write posts")
}

func (r *pgPostRepository) ListByCompany(ctx context.Context, companyID string) ([]*post.Post, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, selectPostsByCompanyQuery, companyID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query posts")
	}
	defer rows.Close()

	var out []*post.Post
	for rows.Next() {
		var row models.PostAnalytics
		if err := rows.Scan(
			&row.PostID, &row.CompanyID, &row.PostContent, &row.PostTitle, &row.PostURL, &row.PostDate, &row.PostType,
			&row.Impressions, &row.Clicks, &row.Likes, &row.Comments, &row.Shares, &row.Reach, &row.CTR, &row.EngagementRate,
			&row.Hashtags, &row.Mentions, &row.DateCollected,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan post")
		}
		out = append(out, toDomainPost(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating posts")
	}
	return out, nil
}

func (r *pgPostRepository) UpdateTypes(ctx context.Context, types map[string]post.Type) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	b := &pgx.Batch{}
	for id, t := range types {
		b.Queue(updatePostTypeQuery, string(t), id)
	}
	return errors.Wrap(sendBatch(ctx, tx, b), "failed to update post types")
}
