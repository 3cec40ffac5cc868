package services

import (
	"strings"
	"time"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

const maxDemographicValueRunes = 255

type DemographicsNormalizer struct {
	CompanyID string
	Rules     *Rules
}

func NewDemographicsNormalizer(companyID string, rules *Rules) *DemographicsNormalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &DemographicsNormalizer{CompanyID: companyID, Rules: rules}
}

// DemographicType buckets a sheet by keywords in its name. Unknown sheets
// use their own name, lower-cased with spaces as underscores.
func (r *Rules) DemographicType(sheetName string) string {
	name := strings.ToLower(strings.TrimSpace(sheetName))
	for _, b := range r.DemographicTypes {
		if containsAny(name, b.Keywords) {
			return b.Type
		}
	}
	if name == "" {
		return demographic.TypeGeneral
	}
	return strings.Join(strings.Fields(name), "_")
}

// Normalize maps one sheet to demographic records for the given day. A row
// is kept only when its count or percentage is positive.
func (n *DemographicsNormalizer) Normalize(sheetName string, g *grid.Grid, day time.Time, totalFollowers int64) []*demographic.Record {
	if g.Empty() {
		return nil
	}
	kind := n.Rules.DemographicType(sheetName)
	valueCol, countCol, pctCol := n.columns(g)
	day = day.UTC().Truncate(24 * time.Hour)

	var out []*demographic.Record
	for i := range g.Rows {
		value := grid.Text(g.Value(i, valueCol))
		if value == "" {
			continue
		}
		count := int64(0)
		if countCol >= 0 {
			count = ToInt(g.Value(i, countCol))
		}
		pct := 0.0
		if pctCol >= 0 {
			pct = ToFloat(g.Value(i, pctCol))
		}
		if count <= 0 && pct <= 0 {
			continue
		}
		out = append(out, &demographic.Record{
			CompanyID:      n.CompanyID,
			DateCollected:  day,
			Type:           kind,
			Value:          truncateRunes(value, maxDemographicValueRunes),
			Count:          max(count, 0),
			Percentage:     capRate(pct),
			TotalFollowers: totalFollowers,
		})
	}
	return out
}

// columns locates value, count and percentage columns by keyword, falling
// back to the first two columns for value and count. -1 means absent.
func (n *DemographicsNormalizer) columns(g *grid.Grid) (value, count, pct int) {
	value, count, pct = -1, -1, -1
	lower := make([]string, len(g.Header))
	for i, h := range g.Header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for i, h := range lower {
		if value < 0 && containsAny(h, n.Rules.DemographicColumns[DemoValue]) {
			value = i
		}
		if count < 0 && containsAny(h, n.Rules.DemographicColumns[DemoCount]) {
			count = i
		}
		if pct < 0 && containsAny(h, n.Rules.DemographicColumns[DemoPercentage]) {
			pct = i
		}
	}
	if value < 0 {
		value = 0
	}
	if count < 0 && g.Width() > 1 {
		count = 1
	}
	return value, count, pct
}
