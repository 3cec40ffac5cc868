package services

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
	"github.com/iota-uz/export-ingest/pkg/repo"
)

// Reclassifier repairs stored posts whose type is a distribution label
// ("Sponsored", "Organic", ...) or empty.
type Reclassifier struct {
	posts post.Repository
	rules *Rules
}

func NewReclassifier(posts post.Repository, rules *Rules) *Reclassifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Reclassifier{posts: posts, rules: rules}
}

// Run returns the number of posts updated.
func (r *Reclassifier) Run(ctx context.Context, companyID string) (int, error) {
	stored, err := r.posts.ListByCompany(ctx, companyID)
	if err != nil {
		return 0, gerrors.Wrap(err, "list posts")
	}

	ids := make([]string, 0, len(stored))
	updates := map[string]post.Type{}
	for _, p := range stored {
		if !r.rules.IsDistributionLabel(string(p.PostType)) {
			continue
		}
		updates[p.PostID] = r.rules.ClassifyPostType(string(p.PostType), p.Content, p.URL, p.Title)
		ids = append(ids, p.PostID)
	}

	updated := 0
	for i, w := range repo.Chunk(len(ids), writeBatchSize) {
		batch := make(map[string]post.Type, w[1]-w[0])
		for _, id := range ids[w[0]:w[1]] {
			batch[id] = updates[id]
		}
		if err := r.posts.UpdateTypes(ctx, batch); err != nil {
			recordFailedBatch("post_analytics.reclassify")
			logWithFields(ctx, logrus.ErrorLevel, "reclassify batch failed", logrus.Fields{
				"batch": i, "size": len(batch), "error": err.Error(),
			})
			continue
		}
		updated += len(batch)
	}
	logWithFields(ctx, logrus.InfoLevel, "reclassified posts", logrus.Fields{
		"company_id": companyID, "candidates": len(ids), "updated": updated,
	})
	return updated, nil
}
