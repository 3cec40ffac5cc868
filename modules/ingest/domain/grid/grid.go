// Package grid holds the transient row/column view of one loaded export.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cell is one of: nil, string, float64, time.Time.
type Cell = any

// Grid is produced fresh per file and discarded after normalization.
type Grid struct {
	// Name is the sheet or member the grid came from.
	Name   string
	Header []string
	Rows   [][]Cell
}

func (g *Grid) Empty() bool {
	return g == nil || len(g.Header) == 0 || len(g.Rows) == 0
}

func (g *Grid) Width() int {
	if g == nil {
		return 0
	}
	return len(g.Header)
}

// Value returns the cell at (row, col), or nil when out of range.
func (g *Grid) Value(row, col int) Cell {
	if g == nil || row < 0 || row >= len(g.Rows) || col < 0 {
		return nil
	}
	r := g.Rows[row]
	if col >= len(r) {
		return nil
	}
	return r[col]
}

// FindColumn returns the header index of the first candidate found. For each
// candidate, in order, an exact case-insensitive match wins over the first
// header containing it.
func (g *Grid) FindColumn(candidates ...string) (int, bool) {
	if g == nil {
		return -1, false
	}
	return FindColumn(g.Header, candidates...)
}

func FindColumn(headers []string, candidates ...string) (int, bool) {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		for i, h := range norm {
			if h == c {
				return i, true
			}
		}
		for i, h := range norm {
			if strings.Contains(h, c) {
				return i, true
			}
		}
	}
	return -1, false
}

// Text renders a cell as trimmed text. Whole floats render without a
// fraction so "1234" read from a spreadsheet stays "1234".
func Text(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02T15:04:05")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func IsBlank(c Cell) bool {
	return Text(c) == ""
}
