package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

func newTestResolver() *DateResolver {
	r := NewDateResolver(nil)
	r.Now = fixedNow
	return r
}

func TestResolve_ReferenceCloserToDayFirst(t *testing.T) {
	ref := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	d, ok := newTestResolver().Resolve("08/06/2025", &ref)
	require.True(t, ok)
	require.Equal(t, ChoiceDayFirst, d.Chosen)
	require.Equal(t, time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC), d.ChosenTime())
	require.Equal(t, time.Date(2025, time.August, 6, 0, 0, 0, 0, time.UTC), d.MonthFirst)
}

func TestResolve_ReferenceCloserToMonthFirst(t *testing.T) {
	ref := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	d, ok := newTestResolver().Resolve("08/06/2025", &ref)
	require.True(t, ok)
	require.Equal(t, ChoiceMonthFirst, d.Chosen)
}

func TestResolve_TieGoesToDayFirst(t *testing.T) {
	// 5 March and 3 May are both 29.5 days from this reference.
	ref := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	d, ok := newTestResolver().Resolve("05/03/2025", &ref)
	require.True(t, ok)
	require.Equal(t, ChoiceDayFirst, d.Chosen)
}

func TestResolve_WindowWithoutReference(t *testing.T) {
	r := newTestResolver()
	// Both readings inside the window: default day-first.
	d, ok := r.Resolve("01/02/2024", nil)
	require.True(t, ok)
	assert.Equal(t, ChoiceDayFirst, d.Chosen)

	// Both readings before 2015.
	d, ok = r.Resolve("01/02/14", nil)
	require.True(t, ok)
	assert.Equal(t, ChoiceDayFirst, d.Chosen, "neither qualifies")
}

func TestResolve_NotAmbiguous(t *testing.T) {
	r := newTestResolver()
	for _, in := range []string{"25/06/2025", "06/25/2025", "2025-06-08", "June 8, 2025", ""} {
		_, ok := r.Resolve(in, nil)
		assert.False(t, ok, in)
	}
}

func TestScan_EmitsAmbiguousRowsOnly(t *testing.T) {
	g := &grid.Grid{
		Header: []string{"Post link", "Created date", "Campaign start date"},
		Rows: [][]grid.Cell{
			{"https://a", "08/06/2025", "2025-06-09"},
			{"https://b", "25/06/2025", "2025-06-09"},
			{"https://c", time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), ""},
			{"https://d", "03/04/2025", ""},
		},
	}
	got := newTestResolver().Scan(g)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a", got[0].PostURL)
	assert.Equal(t, ChoiceDayFirst, got[0].Chosen)
	require.NotNil(t, got[0].Reference)
	assert.Equal(t, "https://d", got[1].PostURL)
	assert.Nil(t, got[1].Reference)

	header, rows := DecisionRows(got)
	require.Equal(t, []string{"post_url", "raw_created", "dmy", "mdy", "campaign_start", "chosen"}, header)
	require.Equal(t, []string{"https://a", "08/06/2025", "2025-06-08 00:00:00", "2025-08-06 00:00:00", "2025-06-09", "dmy"}, rows[0])
}
