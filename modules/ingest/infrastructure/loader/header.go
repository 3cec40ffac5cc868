package loader

import (
	"fmt"
	"strings"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

// headerHints are tokens that show up in export header rows.
var headerHints = []string{
	"post", "title", "link", "impressions", "views", "click", "ctr",
	"likes", "comments", "repost", "share", "engagement", "content type",
	"created", "date", "published",
}

const headerScanRows = 10

// guessHeaderIndex scores each of the first rows by hint matches plus
// non-empty cells and returns the best; the earliest row wins ties.
func guessHeaderIndex(rows [][]grid.Cell) int {
	bestIdx, bestScore := 0, -1
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		score := 0
		for _, c := range rows[i] {
			t := strings.ToLower(grid.Text(c))
			if t == "" {
				continue
			}
			score++
			for _, h := range headerHints {
				if strings.Contains(t, h) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return bestIdx
}

// buildGrid turns raw rows into a Grid: guesses the header row, pads or
// truncates data rows to the header width and drops empty rows as well as
// unnamed columns that carry no data.
func buildGrid(name string, rows [][]grid.Cell) *grid.Grid {
	g := &grid.Grid{Name: name}
	if len(rows) == 0 {
		return g
	}

	hi := guessHeaderIndex(rows)
	width := len(rows[hi])
	header := make([]string, width)
	named := make([]bool, width)
	for i, c := range rows[hi] {
		t := grid.Text(c)
		if t == "" {
			t = fmt.Sprintf("Column_%d", i)
		} else {
			named[i] = true
		}
		header[i] = t
	}

	data := make([][]grid.Cell, 0, len(rows)-hi-1)
	for _, r := range rows[hi+1:] {
		if blankRow(r) {
			continue
		}
		fixed := make([]grid.Cell, width)
		copy(fixed, r)
		data = append(data, fixed)
	}

	keep := make([]int, 0, width)
	for col := 0; col < width; col++ {
		if named[col] || columnHasData(data, col) {
			keep = append(keep, col)
		}
	}
	if len(keep) == width {
		g.Header, g.Rows = header, data
		return g
	}

	g.Header = make([]string, len(keep))
	for i, col := range keep {
		g.Header[i] = header[col]
	}
	g.Rows = make([][]grid.Cell, len(data))
	for ri, r := range data {
		out := make([]grid.Cell, len(keep))
		for i, col := range keep {
			out[i] = r[col]
		}
		g.Rows[ri] = out
	}
	return g
}

func blankRow(r []grid.Cell) bool {
	for _, c := range r {
		if !grid.IsBlank(c) {
			return false
		}
	}
	return true
}

func columnHasData(rows [][]grid.Cell, col int) bool {
	for _, r := range rows {
		if !grid.IsBlank(r[col]) {
			return true
		}
	}
	return false
}
