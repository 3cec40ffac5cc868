package services

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
	"github.com/iota-uz/export-ingest/pkg/repo"
	"github.com/iota-uz/export-ingest/pkg/tracing"
)

const (
	RoutePosts        = "posts"
	RouteDemographics = "demographics"

	processedDir       = "processed"
	archiveStampLayout = "20060102_150405"
	demographicsBatch  = 200
)

var (
	ingestExtensions   = []string{".csv", ".xls", ".xlsx", ".zip"}
	postsTokens        = []string{"post", "content", "update", "overview"}
	demographicsTokens = []string{"demographic", "audience", "follower"}
)

// GridLoader is implemented by infrastructure/loader.
type GridLoader interface {
	Load(path string) (*grid.Grid, error)
	LoadSheets(path string) ([]*grid.Grid, error)
}

type IngestorConfig struct {
	CompanyID   string
	DataPath    string
	MergePolicy MergePolicy
	Now         func() time.Time
}

// Ingestor drives one scan of the export folder: load, normalize, reconcile,
// report and archive each file.
type Ingestor struct {
	cfg          IngestorConfig
	loader       GridLoader
	posts        *PostNormalizer
	demographics *DemographicsNormalizer
	reconciler   *Reconciler
	followers    demographic.Repository
	reports      ReportWriter
	dates        *DateResolver
}

func NewIngestor(
	cfg IngestorConfig,
	loader GridLoader,
	posts *PostNormalizer,
	demographics *DemographicsNormalizer,
	reconciler *Reconciler,
	followers demographic.Repository,
	reports ReportWriter,
	dates *DateResolver,
) *Ingestor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ingestor{
		cfg:          cfg,
		loader:       loader,
		posts:        posts,
		demographics: demographics,
		reconciler:   reconciler,
		followers:    followers,
		reports:      reports,
		dates:        dates,
	}
}

type FileResult struct {
	Name    string `json:"name"`
	Route   string `json:"route"`
	Records int    `json:"records"`
	// Archived is the new path, empty when the file was left in place.
	Archived string `json:"archived,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ScanResult struct {
	Posts        int          `json:"posts"`
	Demographics int          `json:"demographics"`
	Files        []FileResult `json:"files"`
}

// Route picks the processing path from the file name.
func Route(name string) string {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case containsAny(lower, postsTokens):
		return RoutePosts
	case containsAny(lower, demographicsTokens):
		return RouteDemographics
	default:
		return RoutePosts
	}
}

// ListExports returns the ingestible files directly under dir, sorted.
// Subdirectories, including processed/, are never entered.
func ListExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(name, ".ds_store") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !slices.Contains(ingestExtensions, ext) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ScanFolder processes every export in the data folder. A missing folder is
// created and yields an empty result. Files whose processing fails are left
// in place for the next scan.
func (s *Ingestor) ScanFolder(ctx context.Context) (*ScanResult, error) {
	res := &ScanResult{}
	if _, err := os.Stat(s.cfg.DataPath); os.IsNotExist(err) {
		if err := os.MkdirAll(s.cfg.DataPath, 0o755); err != nil {
			return nil, gerrors.Wrap(err, "create data folder")
		}
		logWithFields(ctx, logrus.InfoLevel, "created data folder", logrus.Fields{"path": s.cfg.DataPath})
		return res, nil
	}
	files, err := ListExports(s.cfg.DataPath)
	if err != nil {
		return nil, gerrors.Wrap(err, "list data folder")
	}
	if len(files) == 0 {
		logWithFields(ctx, logrus.InfoLevel, "no files to process", logrus.Fields{"path": s.cfg.DataPath})
		return res, nil
	}

	for _, path := range files {
		fr := FileResult{Name: filepath.Base(path), Route: Route(path)}
		var n int
		var err error
		if fr.Route == RouteDemographics {
			n, err = s.ProcessDemographicsFile(ctx, path)
			res.Demographics += n
		} else {
			n, err = s.ProcessPostsFile(ctx, path)
			res.Posts += n
		}
		fr.Records = n
		recordFile(fr.Route, err)
		if err != nil {
			fr.Error = err.Error()
			logIssue(ctx, logrus.ErrorLevel, "file not processed", err, logrus.Fields{"file": fr.Name})
			res.Files = append(res.Files, fr)
			continue
		}
		archived, err := s.archive(path)
		if err != nil {
			recordIssue(ingesterr.KindArchival)
			logIssue(ctx, logrus.WarnLevel, "archive failed", err, logrus.Fields{"file": fr.Name})
		}
		fr.Archived = archived
		res.Files = append(res.Files, fr)
	}
	return res, nil
}

// ProcessPostsFile loads, normalizes and reconciles one posts export and
// writes its audit report. It returns the number of records sent.
func (s *Ingestor) ProcessPostsFile(ctx context.Context, path string) (int, error) {
	name := filepath.Base(path)
	ctx, span := tracing.Start(ctx, "ingest.posts_file", attribute.String("file", name))
	defer span.End()

	g, err := s.loader.Load(path)
	if err != nil {
		recordIssue(ingesterr.KindOf(err))
		logIssue(ctx, logrus.WarnLevel, "no data in posts file", err, logrus.Fields{"file": name, "stage": "load"})
		return 0, nil
	}
	res := s.posts.Normalize(g)
	recordIssues(res.IssueCounts)
	for _, issue := range res.Issues {
		logIssue(ctx, logrus.DebugLevel, "normalize issue", issue, logrus.Fields{"file": name})
	}
	if len(res.Posts) == 0 {
		logWithFields(ctx, logrus.WarnLevel, "no posts in file", logrus.Fields{
			"file": name, "rows": len(g.Rows), "skipped": res.Skipped,
		})
		return 0, nil
	}

	counts, err := s.reconciler.Reconcile(ctx, s.cfg.CompanyID, res.Posts, s.cfg.MergePolicy)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if s.reports != nil {
		header, rows := PostAuditRows(counts.Sent)
		if out, err := s.reports.WriteValidation(name, header, rows); err != nil {
			logWithFields(ctx, logrus.DebugLevel, "validation report failed", logrus.Fields{"file": name, "error": err.Error()})
		} else {
			logWithFields(ctx, logrus.DebugLevel, "validation report written", logrus.Fields{"file": name, "report": out})
		}
	}
	logWithFields(ctx, logrus.InfoLevel, "posts file processed", logrus.Fields{
		"file":     name,
		"posts":    len(res.Posts),
		"inserted": counts.Inserted,
		"updated":  counts.Updated,
		"failed":   counts.Failed,
	})
	return len(res.Posts), nil
}

// ProcessDemographicsFile maps every sheet of a workbook, or the single table
// of a text/zip export, to demographic records for today.
func (s *Ingestor) ProcessDemographicsFile(ctx context.Context, path string) (int, error) {
	name := filepath.Base(path)
	ctx, span := tracing.Start(ctx, "ingest.demographics_file", attribute.String("file", name))
	defer span.End()

	sheets, err := s.loader.LoadSheets(path)
	if err != nil {
		recordIssue(ingesterr.KindOf(err))
		logIssue(ctx, logrus.WarnLevel, "no data in demographics file", err, logrus.Fields{"file": name, "stage": "load"})
		return 0, nil
	}
	workbook := isWorkbook(name)
	day := s.cfg.Now().UTC()
	followers := s.currentFollowers(ctx)

	var records []*demographic.Record
	for _, g := range sheets {
		sheet := RouteDemographics
		if workbook {
			sheet = g.Name
		}
		records = append(records, s.demographics.Normalize(sheet, g, day, followers)...)
	}

	written := 0
	for i, w := range repo.Chunk(len(records), demographicsBatch) {
		batch := records[w[0]:w[1]]
		if err := s.followers.Upsert(ctx, batch); err != nil {
			recordFailedBatch("follower_analytics")
			logIssue(ctx, logrus.ErrorLevel, "write batch failed",
				ingesterr.New(ingesterr.KindPersistence, "follower_analytics", err),
				logrus.Fields{"file": name, "batch": i, "size": len(batch)})
			continue
		}
		written += len(batch)
	}
	recordRecords("follower_analytics", "ok", written)
	logWithFields(ctx, logrus.InfoLevel, "demographics file processed", logrus.Fields{
		"file": name, "records": len(records), "written": written,
	})
	return len(records), nil
}

func (s *Ingestor) currentFollowers(ctx context.Context) int64 {
	if s.reconciler != nil {
		return s.reconciler.CurrentFollowers(ctx, s.cfg.CompanyID)
	}
	n, err := s.followers.LatestTotalFollowers(ctx, s.cfg.CompanyID)
	if err != nil {
		return 0
	}
	return n
}

// CheckDates scans the given exports for ambiguous created dates and writes
// one discrepancy report covering all of them.
func (s *Ingestor) CheckDates(ctx context.Context, paths []string) ([]DateDecision, string, error) {
	var all []DateDecision
	for _, path := range paths {
		g, err := s.loader.Load(path)
		if err != nil {
			logIssue(ctx, logrus.WarnLevel, "skipping unreadable file", err, logrus.Fields{"file": filepath.Base(path)})
			continue
		}
		found := s.dates.Scan(g)
		logWithFields(ctx, logrus.InfoLevel, "analyzed dates", logrus.Fields{
			"file": filepath.Base(path), "rows": len(g.Rows), "ambiguous": len(found),
		})
		all = append(all, found...)
	}
	if len(all) == 0 || s.reports == nil {
		return all, "", nil
	}
	header, rows := DecisionRows(all)
	out, err := s.reports.WriteDateDiscrepancies(header, rows)
	if err != nil {
		return all, "", gerrors.Wrap(err, "write discrepancy report")
	}
	return all, out, nil
}

// archive moves path to <data>/processed/<ts>_<name>.
func (s *Ingestor) archive(path string) (string, error) {
	dir := filepath.Join(s.cfg.DataPath, processedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ingesterr.New(ingesterr.KindArchival, "mkdir", err)
	}
	ts := s.cfg.Now().UTC().Format(archiveStampLayout)
	dst := filepath.Join(dir, ts+"_"+filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return "", ingesterr.New(ingesterr.KindArchival, "rename", err)
	}
	return dst, nil
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}
