package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/loader"
	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/persistence"
	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/report"
	"github.com/iota-uz/export-ingest/modules/ingest/services"
	"github.com/iota-uz/export-ingest/pkg/composables"
	"github.com/iota-uz/export-ingest/pkg/configuration"
	"github.com/iota-uz/export-ingest/pkg/logging"
	"github.com/iota-uz/export-ingest/pkg/tracing"
)

// app holds what every command needs: configuration, a context logger and
// the classification rules. The pool is opened only by commands that touch
// the database.
type app struct {
	conf     *configuration.Configuration
	logger   *logrus.Entry
	rules    *services.Rules
	pool     *pgxpool.Pool
	shutdown func(context.Context) error
	now      func() time.Time
}

func newApp(ctx context.Context, opts *rootOptions, command string) (*app, context.Context, error) {
	conf, err := configuration.Load(opts.envFiles)
	if err != nil {
		return nil, ctx, withCode(exitUsage, err)
	}
	a := &app{conf: conf, now: time.Now}
	a.logger = conf.Logger().WithFields(logrus.Fields{
		"command": command,
		"company": conf.Ingest.CompanyID,
	})
	ctx = logging.WithLogger(ctx, a.logger)

	a.rules, err = services.LoadRules(conf.Ingest.RulesPath)
	if err != nil {
		conf.Unload()
		return nil, ctx, withCode(exitRules, fmt.Errorf("load rules: %w", err))
	}

	if conf.OpenTelemetry.Enabled {
		shutdown, err := tracing.Setup(ctx, conf.OpenTelemetry.TempoURL, conf.OpenTelemetry.ServiceName)
		if err != nil {
			a.logger.WithError(err).Warn("tracing disabled")
		} else {
			a.shutdown = shutdown
			a.logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.TempoURL)
		}
	}
	return a, ctx, nil
}

func (a *app) connect(ctx context.Context) (context.Context, error) {
	pool, err := connectDB(ctx, a.conf.Database.Opts)
	if err != nil {
		return ctx, err
	}
	a.pool = pool
	return composables.WithPool(ctx, pool), nil
}

func (a *app) close(ctx context.Context) {
	if err := services.WriteMetrics(a.conf.Prometheus.TextfilePath); err != nil {
		a.logger.WithError(err).Warn("failed to write metrics textfile")
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("tracing shutdown failed")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	a.conf.Unload()
}

func (a *app) ingestor(policy services.MergePolicy) *services.Ingestor {
	ing := a.conf.Ingest
	posts := persistence.NewPostRepository()
	followers := persistence.NewFollowerRepository()
	reconciler := services.NewReconciler(posts, persistence.NewAnalyticsRepository(), followers, services.ReconcilerConfig{
		CompanyName:    ing.CompanyName,
		HistoryEnabled: ing.HistoryEnabled,
		Now:            a.now,
	})
	resolver := services.NewDateResolver(a.rules)
	resolver.Now = a.now
	return services.NewIngestor(
		services.IngestorConfig{
			CompanyID:   ing.CompanyID,
			DataPath:    ing.DataPath,
			MergePolicy: policy,
			Now:         a.now,
		},
		loader.New(loader.WithLogger(a.logger.WithField("component", "loader"))),
		services.NewPostNormalizer(ing.CompanyID, a.rules, services.DateOptions{DayFirst: ing.DayFirst, Now: a.now}),
		services.NewDemographicsNormalizer(ing.CompanyID, a.rules),
		reconciler,
		followers,
		report.NewWriter(ing.ReportsPath).WithClock(a.now),
		resolver,
	)
}
