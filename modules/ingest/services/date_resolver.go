package services

import (
	"regexp"
	"strconv"
	"time"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

const (
	ChoiceDayFirst   = "dmy"
	ChoiceMonthFirst = "mdy"
)

var ambiguousDate = regexp.MustCompile(`^\s*(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?`)

// DateDecision records how one ambiguous slash date was read. It is
// diagnostic only; stored records are never rewritten from it.
type DateDecision struct {
	PostURL    string
	Raw        string
	DayFirst   time.Time
	MonthFirst time.Time
	Reference  *time.Time
	Chosen     string
}

// ChosenTime is the interpretation the decision picked.
func (d DateDecision) ChosenTime() time.Time {
	if d.Chosen == ChoiceMonthFirst {
		return d.MonthFirst
	}
	return d.DayFirst
}

type DateResolver struct {
	Rules *Rules
	Now   func() time.Time
}

func NewDateResolver(rules *Rules) *DateResolver {
	if rules == nil {
		rules = DefaultRules()
	}
	return &DateResolver{Rules: rules, Now: time.Now}
}

// Resolve decides between the day-first and month-first readings of raw. It
// reports false when raw is not of the form a/b/yyyy with a and b both at most
// 12. Closest to the reference wins, ties going to day-first; without a
// reference the reading inside the plausible window wins; otherwise
// day-first.
func (r *DateResolver) Resolve(raw string, reference *time.Time) (DateDecision, bool) {
	m := ambiguousDate.FindStringSubmatch(raw)
	if m == nil {
		return DateDecision{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if a > 12 || b > 12 {
		return DateDecision{}, false
	}
	year := expandYear(m[3])
	hh, mm, ss := atoiOr0(m[4]), atoiOr0(m[5]), atoiOr0(m[6])

	dmy, okD := civilDate(year, b, a, hh, mm, ss)
	mdy, okM := civilDate(year, a, b, hh, mm, ss)
	if !okD || !okM {
		return DateDecision{}, false
	}
	d := DateDecision{Raw: raw, DayFirst: dmy, MonthFirst: mdy, Reference: reference, Chosen: ChoiceDayFirst}

	switch {
	case reference != nil:
		if absDuration(dmy.Sub(*reference)) > absDuration(mdy.Sub(*reference)) {
			d.Chosen = ChoiceMonthFirst
		}
	default:
		lo, hi := r.window()
		inD := !dmy.Before(lo) && !dmy.After(hi)
		inM := !mdy.Before(lo) && !mdy.After(hi)
		if inM && !inD {
			d.Chosen = ChoiceMonthFirst
		}
	}
	recordDateDecision(d.Chosen)
	return d, true
}

// window is 2015-01-01 through Dec 31 of next year.
func (r *DateResolver) window() (time.Time, time.Time) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	next := now().UTC().Year() + 1
	return time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(next, 12, 31, 23, 59, 59, 0, time.UTC)
}

// Scan returns a decision for every ambiguous created date in g. Native
// timestamps are not ambiguous and are skipped.
func (r *DateResolver) Scan(g *grid.Grid) []DateDecision {
	if g.Empty() {
		return nil
	}
	cols := mapColumns(g, map[string][]string{
		ColCreated:       r.Rules.Columns(ColCreated),
		ColLink:          r.Rules.Columns(ColLink),
		ColCampaignStart: r.Rules.Columns(ColCampaignStart),
	})
	if !cols.has(ColCreated) {
		return nil
	}
	var out []DateDecision
	for i := range g.Rows {
		c := cols.cell(g, i, ColCreated)
		if _, native := c.(time.Time); native || grid.IsBlank(c) {
			continue
		}
		var ref *time.Time
		if cols.has(ColCampaignStart) && cols[ColCampaignStart] != cols[ColCreated] {
			ref = referenceDate(cols.cell(g, i, ColCampaignStart))
		}
		d, ok := r.Resolve(grid.Text(c), ref)
		if !ok {
			continue
		}
		d.PostURL = cols.text(g, i, ColLink)
		out = append(out, d)
	}
	return out
}

func referenceDate(c grid.Cell) *time.Time {
	if t, ok := c.(time.Time); ok && !t.IsZero() {
		return &t
	}
	if grid.IsBlank(c) {
		return nil
	}
	t, err := ParseDate(c, DateOptions{DayFirst: true})
	if err != nil {
		return nil
	}
	return &t
}

func civilDate(year, month, day, hh, mm, ss int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// expandYear maps two-digit years into 2000-2099.
func expandYear(s string) int {
	y, _ := strconv.Atoi(s)
	if len(s) <= 2 {
		y += 2000
	}
	return y
}

func atoiOr0(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
