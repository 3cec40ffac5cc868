package loader

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
)

const postsCSV = "Post Title,Post Link,Impressions,Clicks,Likes,Comments,Reposts,Created Date\n" +
	"Launch day #go,https://www.linkedin.com/feed/update/urn:li:activity:7101,1000,20,30,4,2,2025-01-15\n" +
	",,,,,,,\n" +
	"Second post,https://www.linkedin.com/feed/update/urn:li:activity:7102,500,5,10,1,0,2025-02-01\n"

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func zipBytes(t *testing.T, members map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(members[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xlsxBytes(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(name, axis, &vals))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoad_CSV(t *testing.T) {
	p := writeFile(t, t.TempDir(), "posts.csv", []byte(postsCSV))

	g, err := New().Load(p)
	require.NoError(t, err)
	require.Equal(t, []string{"Post Title", "Post Link", "Impressions", "Clicks", "Likes", "Comments", "Reposts", "Created Date"}, g.Header)
	require.Len(t, g.Rows, 2)
	require.Equal(t, "Launch day #go", g.Rows[0][0])
}

func TestLoad_ZipPrefersPostsMember(t *testing.T) {
	data := zipBytes(t, map[string][]byte{
		"Notes.txt":          []byte("not a table"),
		"Followers.csv":      []byte("Location,Followers\nBerlin,10\n"),
		"export/Posts_Q1.csv": []byte(postsCSV),
	}, []string{"Notes.txt", "Followers.csv", "export/Posts_Q1.csv"})
	p := writeFile(t, t.TempDir(), "export.zip", data)

	g, err := New().Load(p)
	require.NoError(t, err)
	require.Equal(t, "Posts_Q1.csv", g.Name)
	require.Len(t, g.Rows, 2)
}

func TestLoad_ZipFallsBackToFirstTabularMember(t *testing.T) {
	data := zipBytes(t, map[string][]byte{
		"Notes.txt":     []byte("not a table"),
		"Followers.csv": []byte("Location,Followers\nBerlin,10\n"),
	}, []string{"Notes.txt", "Followers.csv"})

	g, err := New().LoadBytes("export.zip", data)
	require.NoError(t, err)
	require.Equal(t, "Followers.csv", g.Name)
	require.Equal(t, []string{"Location", "Followers"}, g.Header)
}

func TestLoad_ZipWithoutTabularMemberIsEmpty(t *testing.T) {
	data := zipBytes(t, map[string][]byte{"Notes.txt": []byte("x")}, []string{"Notes.txt"})

	g, err := New().LoadBytes("export.zip", data)
	require.NotNil(t, g)
	require.True(t, g.Empty())
	require.ErrorIs(t, err, ingesterr.Format)
}

func TestLoad_XLSXPicksPostsSheetAndKeepsDates(t *testing.T) {
	created := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	data := xlsxBytes(t, map[string][][]any{
		"Metrics": {
			{"Date", "Impressions"},
			{"x", 1},
		},
		"All posts": {
			{"Showing data for Q2"},
			{"Post title", "Created date", "Impressions"},
			{"Hello", created, 120},
		},
	}, []string{"Metrics", "All posts"})

	g, err := New().LoadBytes("content.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, "All posts", g.Name)
	require.Equal(t, []string{"Post title", "Created date", "Impressions"}, g.Header)
	require.Len(t, g.Rows, 1)

	got, ok := g.Rows[0][1].(time.Time)
	require.True(t, ok, "date cell should be a timestamp, got %T", g.Rows[0][1])
	require.True(t, got.Equal(created))
	require.Equal(t, float64(120), g.Rows[0][2])
}

func TestLoad_XLSXNumbersKeepStoredValue(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetName("Sheet1", "All posts"))
	require.NoError(t, f.SetSheetRow("All posts", "A1", &[]any{"Post title", "CTR", "Clicks", "Post ID"}))
	require.NoError(t, f.SetSheetRow("All posts", "A2", &[]any{"Hello", 0.0356, 12.6, "00123"}))
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	require.NoError(t, err)
	whole, err := f.NewStyle(&excelize.Style{NumFmt: 1})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("All posts", "B2", "B2", percent))
	require.NoError(t, f.SetCellStyle("All posts", "C2", "C2", whole))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	g, err := New().LoadBytes("content.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)
	require.Equal(t, 0.0356, g.Rows[0][1])
	require.Equal(t, 12.6, g.Rows[0][2])
	require.Equal(t, "00123", g.Rows[0][3])
}

func TestLoadSheets_XLSXReturnsEverySheet(t *testing.T) {
	data := xlsxBytes(t, map[string][][]any{
		"Location": {{"Location", "Total followers"}, {"Berlin", 10}},
		"Seniority": {{"Seniority", "Total followers"}, {"Senior", 4}},
	}, []string{"Location", "Seniority"})

	sheets, err := New().LoadSheetsBytes("followers.xlsx", data)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	require.Equal(t, "Location", sheets[0].Name)
	require.Equal(t, "Seniority", sheets[1].Name)
}

func TestLoad_MisnamedXLSXFallsBackToText(t *testing.T) {
	g, err := New().LoadBytes("posts.xlsx", []byte(postsCSV))
	require.NoError(t, err)
	require.Len(t, g.Rows, 2)
}

func TestLoad_CorruptXLSIsEmptyFormatError(t *testing.T) {
	g, err := New().LoadBytes("posts.xls", []byte("definitely not an OLE container"))
	require.True(t, g.Empty())
	require.Equal(t, ingesterr.KindFormat, ingesterr.KindOf(err))
}

func TestLoad_MissingFile(t *testing.T) {
	g, err := New().Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.True(t, g.Empty())
	require.ErrorIs(t, err, ingesterr.Format)
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "empty.csv", nil)
	g, err := New().Load(p)
	require.True(t, g.Empty())
	require.ErrorIs(t, err, ingesterr.Format)
}

func TestCustomDateFormat(t *testing.T) {
	require.True(t, customDateFormat("dd/mm/yyyy"))
	require.True(t, customDateFormat("[$-409]mmm d, yyyy"))
	require.False(t, customDateFormat("#,##0.00"))
	require.False(t, customDateFormat(`0.00"d"`))
	require.False(t, customDateFormat("0%"))
}
