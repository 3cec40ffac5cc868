package services

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
)

// DateOptions selects which interpretation of "a/b/yyyy" is tried first.
type DateOptions struct {
	DayFirst bool
	// Now is used for the fallback value; defaults to time.Now.
	Now func() time.Time
}

func (o DateOptions) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	dayFirstLayouts   = []string{"2/1/2006", "2/1/06", "2-1-2006", "2-1-06"}
	monthFirstLayouts = []string{"1/2/2006", "1/2/06", "1-2-2006", "1-2-06"}
	commonLayouts     = []string{
		"2006-01-02",
		"2006/01/02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
)

func (o DateOptions) layouts() []string {
	first, second := monthFirstLayouts, dayFirstLayouts
	if o.DayFirst {
		first, second = dayFirstLayouts, monthFirstLayouts
	}
	out := make([]string, 0, len(first)+len(second)+len(commonLayouts))
	out = append(out, first...)
	out = append(out, second...)
	return append(out, commonLayouts...)
}

// ParseDate reads a post date. Native timestamps pass through unchanged.
// Text is tried against the preferred slash/dash group, the other group, the
// common layouts and finally a free-form parser. When all fail the current
// time is returned with a ValueCoercionError.
func ParseDate(c grid.Cell, opts DateOptions) (time.Time, *ingesterr.Error) {
	if t, ok := c.(time.Time); ok && !t.IsZero() {
		return t, nil
	}
	s := strings.TrimSpace(grid.Text(c))
	if s == "" {
		return opts.now(), ingesterr.Newf(ingesterr.KindCoercion, "date", "empty date")
	}
	for _, layout := range opts.layouts() {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(!opts.DayFirst)); err == nil {
		return t.UTC(), nil
	}
	return opts.now(), ingesterr.Newf(ingesterr.KindCoercion, "date", "unparseable date %q", s)
}
