package services

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/loader"
)

const postsQ1 = "Post Title,Post Link,Impressions,Clicks,Likes,Comments,Reposts,Created Date\n" +
	"Launch day #go,https://www.linkedin.com/feed/update/urn:li:activity:111/,1000,20,30,5,5,2025-06-01\n" +
	",,5,,,,,\n" +
	"Behind the scenes,,200,2,8,0,0,2025-06-02\n"

type ingestFixture struct {
	dir       string
	posts     *memPosts
	analytics *memAnalytics
	followers *memFollowers
	reports   *memReports
	ing       *Ingestor
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		dir:       t.TempDir(),
		posts:     newMemPosts(),
		analytics: newMemAnalytics(),
		followers: newMemFollowers(),
		reports:   &memReports{},
	}
	rules := DefaultRules()
	rec := NewReconciler(f.posts, f.analytics, f.followers, ReconcilerConfig{CompanyName: "Acme", Now: fixedNow})
	resolver := NewDateResolver(rules)
	resolver.Now = fixedNow
	f.ing = NewIngestor(
		IngestorConfig{CompanyID: "acme", DataPath: f.dir, MergePolicy: PolicyMax, Now: fixedNow},
		loader.New(),
		NewPostNormalizer("acme", rules, DateOptions{Now: fixedNow}),
		NewDemographicsNormalizer("acme", rules),
		rec,
		f.followers,
		f.reports,
		resolver,
	)
	return f
}

func (f *ingestFixture) write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func zipOf(t *testing.T, members ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(m[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestIngestor_ZipArchiveEndToEnd(t *testing.T) {
	f := newIngestFixture(t)
	f.write(t, "linkedin_export.zip", zipOf(t,
		[2]string{"Notes.txt", "nothing to see"},
		[2]string{"Posts_Q1.csv", postsQ1},
	))

	res, err := f.ing.ScanFolder(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Posts)
	require.Len(t, res.Files, 1)
	assert.Equal(t, RoutePosts, res.Files[0].Route)
	assert.Equal(t, filepath.Join(f.dir, "processed", "20250609_100000_linkedin_export.zip"), res.Files[0].Archived)
	assert.FileExists(t, res.Files[0].Archived)
	assert.NoFileExists(t, filepath.Join(f.dir, "linkedin_export.zip"))

	require.Len(t, f.posts.rows, 2)
	launch := f.posts.rows[MakePostID("urn:li:activity:111", "", fixedNow())]
	require.NotNil(t, launch)
	assert.Equal(t, int64(1000), launch.Impressions)
	assert.InDelta(t, 2.0, launch.CTR, 1e-9)
	assert.InDelta(t, 6.0, launch.EngagementRate, 1e-9)
	assert.Equal(t, post.TypeArticle, launch.PostType)
	assert.Equal(t, []string{"#go"}, launch.Hashtags)

	for _, p := range f.posts.rows {
		if p.URL == "" {
			assert.Equal(t, post.TypeText, p.PostType)
			assert.InDelta(t, 5.0, p.EngagementRate, 1e-9)
		}
	}

	require.Contains(t, f.reports.validations, "linkedin_export.zip")
	require.Len(t, f.reports.validations["linkedin_export.zip"], 2)
	require.Contains(t, f.analytics.summaries, "acme")
}

func TestIngestor_RoutesDemographicsAndSkipsOthers(t *testing.T) {
	f := newIngestFixture(t)
	f.followers.latest = 900
	f.write(t, "follower_demographics.csv", []byte("Location,Followers,Percentage\nBerlin,120,12%\nParis,0,0\n"))
	f.write(t, "readme.txt", []byte("ignored"))
	f.write(t, ".DS_Store", []byte{0})
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "processed"), 0o755))
	f.write(t, filepath.Join("processed", "old_posts.csv"), []byte(postsQ1))

	res, err := f.ing.ScanFolder(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Demographics)
	require.Zero(t, res.Posts)
	require.Len(t, res.Files, 1)
	require.Len(t, f.followers.rows, 1)
	for _, r := range f.followers.rows {
		assert.Equal(t, "demographics", r.Type)
		assert.Equal(t, "Berlin", r.Value)
		assert.Equal(t, int64(900), r.TotalFollowers)
	}
	assert.FileExists(t, filepath.Join(f.dir, "readme.txt"))
	assert.Empty(t, f.posts.rows, "processed/ is never re-read")
}

func TestIngestor_UnreadableFileIsArchivedWithoutRecords(t *testing.T) {
	f := newIngestFixture(t)
	f.write(t, "posts.xlsx", []byte{})

	res, err := f.ing.ScanFolder(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Posts)
	require.Len(t, res.Files, 1)
	require.NotEmpty(t, res.Files[0].Archived)
}

func TestIngestor_PersistenceFailureLeavesFileInPlace(t *testing.T) {
	f := newIngestFixture(t)
	f.posts.failLookup = true
	path := f.write(t, "posts.csv", []byte(postsQ1))

	res, err := f.ing.ScanFolder(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.NotEmpty(t, res.Files[0].Error)
	require.Empty(t, res.Files[0].Archived)
	require.FileExists(t, path)
}

func TestIngestor_MissingFolderIsCreated(t *testing.T) {
	f := newIngestFixture(t)
	f.ing.cfg.DataPath = filepath.Join(f.dir, "nested", "exports")
	res, err := f.ing.ScanFolder(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.DirExists(t, f.ing.cfg.DataPath)
}

func TestIngestor_CheckDates(t *testing.T) {
	f := newIngestFixture(t)
	path := f.write(t, "posts.csv", []byte(
		"Post Title,Post Link,Created Date,Campaign start date\n"+
			"A,https://a,08/06/2025,2025-06-09\n"+
			"B,https://b,2025-06-02,\n"))

	decisions, out, err := f.ing.CheckDates(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.Equal(t, ChoiceDayFirst, decisions[0].Chosen)
	require.Equal(t, "date_discrepancies.csv", out)
	require.Len(t, f.reports.dates, 1)
	require.FileExists(t, path, "checking dates never moves files")
}

func TestRoute(t *testing.T) {
	assert.Equal(t, RoutePosts, Route("/x/Content_2025.xlsx"))
	assert.Equal(t, RoutePosts, Route("company_overview.xls"))
	assert.Equal(t, RouteDemographics, Route("Follower_export.xlsx"))
	assert.Equal(t, RouteDemographics, Route("audience.csv"))
	assert.Equal(t, RoutePosts, Route("random.csv"))
}
