package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

var numberToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ToFloat reads a numeric cell. Percent signs, thousands separators and
// surrounding text are ignored; the first numeric token is used. Anything
// unreadable is 0.
func ToFloat(c grid.Cell) float64 {
	switch v := c.(type) {
	case nil, time.Time:
		return 0
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	s := strings.NewReplacer("%", "", ",", "").Replace(grid.Text(c))
	tok := numberToken.FindString(s)
	if tok == "" {
		return 0
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0
	}
	return f
}

// ToInt is ToFloat truncated toward zero.
func ToInt(c grid.Cell) int64 {
	f := ToFloat(c)
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

// CleanRate reads a rate as a percentage. A "%" suffix means the value is
// already a percentage; a bare value strictly between 0 and 1 is a fraction
// and is scaled by 100. Result rounded to 6 places.
func CleanRate(c grid.Cell) float64 {
	if v, ok := c.(float64); ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return scaleFraction(v)
	}
	s := strings.TrimSpace(grid.Text(c))
	if s == "" {
		return 0
	}
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.NewReplacer("%", "", ",", "").Replace(s)), 64)
		if err != nil {
			return 0
		}
		return round6(f)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return scaleFraction(f)
}

func scaleFraction(f float64) float64 {
	if f > 0 && f < 1 {
		return round6(f * 100)
	}
	return round6(f)
}

func round6(f float64) float64 {
	return decimal.NewFromFloat(f).Round(6).InexactFloat64()
}

func round4(f float64) float64 {
	return decimal.NewFromFloat(f).Round(4).InexactFloat64()
}

// ComputeCTR is clicks/impressions as a percentage, 0 without impressions.
func ComputeCTR(clicks, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return round6(float64(clicks) / float64(impressions) * 100)
}

// ComputeEngagementRate is (likes+comments+shares+clicks)/impressions as a
// percentage, 0 without impressions.
func ComputeEngagementRate(likes, comments, shares, clicks, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return round6(float64(likes+comments+shares+clicks) / float64(impressions) * 100)
}

func capRate(f float64) float64 {
	return math.Max(0, math.Min(f, 100))
}
