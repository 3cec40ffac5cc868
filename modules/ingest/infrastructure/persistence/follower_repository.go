package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/pkg/composables"
)

const (
	upsertFollowerQuery = `
		INSERT INTO follower_analytics (
			company_id, date_collected, total_followers, new_followers,
			demographic_type, demographic_value, count, percentage
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, demographic_type, demographic_value, date_collected) DO UPDATE SET
			total_followers = EXCLUDED.total_followers,
			new_followers = EXCLUDED.new_followers,
			count = EXCLUDED.count,
			percentage = EXCLUDED.percentage`

	latestTotalFollowersQuery = `
		SELECT total_followers FROM follower_analytics
		WHERE company_id = $1
		ORDER BY date_collected DESC, id DESC
		LIMIT 1`
)

type pgFollowerRepository struct{}

func NewFollowerRepository() demographic.Repository {
	return &pgFollowerRepository{}
}

func (r *pgFollowerRepository) Upsert(ctx context.Context, records []*demographic.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	b := &pgx.Batch{}
	for _, rec := range records {
		row := toDBFollower(rec)
		b.Queue(upsertFollowerQuery,
			row.CompanyID, row.DateCollected, row.TotalFollowers, row.NewFollowers,
			row.DemographicType, row.DemographicValue, row.Count, row.Percentage,
		)
	}
	return errors.Wrap(sendBatch(ctx, tx, b), "failed to upsert follower analytics")
}

func (r *pgFollowerRepository) LatestTotalFollowers(ctx context.Context, companyID string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var total int64
	if err := tx.QueryRow(ctx, latestTotalFollowersQuery, companyID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to query latest follower total")
	}
	return total, nil
}
