package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/export-ingest/pkg/repo"
)

// sendBatch executes every queued statement and stops at the first failure.
func sendBatch(ctx context.Context, tx repo.Tx, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "batch statement %d", i)
		}
	}
	return errors.Wrap(br.Close(), "failed to close batch")
}
