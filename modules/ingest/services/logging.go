package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
	"github.com/iota-uz/export-ingest/pkg/logging"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logging.FromContext(ctx).WithFields(fields).Log(level, msg)
}

// logIssue logs a non-fatal ingestion error with its kind and stage.
func logIssue(ctx context.Context, level logrus.Level, msg string, err error, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["kind"] = string(ingesterr.KindOf(err))
	fields["error"] = err.Error()
	logWithFields(ctx, level, msg, fields)
}
