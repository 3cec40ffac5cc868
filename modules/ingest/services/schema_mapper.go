package services

import (
	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

// FindColumn resolves a semantic column against bare headers; see
// grid.FindColumn.
func FindColumn(headers []string, candidates ...string) (int, bool) {
	return grid.FindColumn(headers, candidates...)
}

// columnMap is the resolved semantic -> index mapping for one grid.
type columnMap map[string]int

func mapColumns(g *grid.Grid, columns map[string][]string) columnMap {
	m := columnMap{}
	for name, candidates := range columns {
		if idx, ok := g.FindColumn(candidates...); ok {
			m[name] = idx
		}
	}
	return m
}

func (m columnMap) has(name string) bool {
	_, ok := m[name]
	return ok
}

// cell returns the mapped cell of row, or nil when the column is absent.
func (m columnMap) cell(g *grid.Grid, row int, name string) grid.Cell {
	idx, ok := m[name]
	if !ok {
		return nil
	}
	return g.Value(row, idx)
}

func (m columnMap) text(g *grid.Grid, row int, name string) string {
	return grid.Text(m.cell(g, row, name))
}
