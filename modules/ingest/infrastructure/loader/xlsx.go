package loader

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

type xlsxStrategy struct{}

func (xlsxStrategy) Name() string { return "xlsx" }

func (xlsxStrategy) Accepts(f *file) bool {
	return f.ext == ".xlsx" || f.ext == ".xlsm" || f.isXLSX()
}

func (xlsxStrategy) Sheets(f *file) ([]*grid.Grid, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(f.data))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = wb.Close() }()

	cells := &xlsxCells{wb: wb, dateStyle: map[int]bool{}}
	if props, err := wb.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cells.use1904 = *props.Date1904
	}

	var out []*grid.Grid
	for _, sheet := range wb.GetSheetList() {
		formatted, err := wb.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %q", sheet)
		}
		raw, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %q", sheet)
		}

		rows := make([][]grid.Cell, len(formatted))
		for r, vals := range formatted {
			row := make([]grid.Cell, len(vals))
			for c, v := range vals {
				row[c] = cells.value(sheet, raw, r, c, v)
			}
			rows[r] = row
		}
		out = append(out, buildGrid(sheet, rows))
	}
	if len(out) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return out, nil
}

// xlsxCells types cells from their stored values rather than the display
// text, so a rate shown as "4%" still reads as 0.0356.
type xlsxCells struct {
	wb        *excelize.File
	use1904   bool
	dateStyle map[int]bool
}

// value returns float64 for numeric cells, time.Time for date-formatted
// numeric cells and the display text for everything else.
func (d *xlsxCells) value(sheet string, raw [][]string, r, c int, text string) grid.Cell {
	if r >= len(raw) || c >= len(raw[r]) {
		return text
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(raw[r][c]), 64)
	if err != nil {
		return text
	}
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return text
	}
	typ, err := d.wb.GetCellType(sheet, axis)
	if err != nil || (typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber) {
		return text
	}
	if num > 0 {
		if styleID, err := d.wb.GetCellStyle(sheet, axis); err == nil && d.isDate(styleID) {
			if t, err := excelize.ExcelDateToTime(num, d.use1904); err == nil {
				return t
			}
		}
	}
	return num
}

func (d *xlsxCells) isDate(styleID int) bool {
	if v, ok := d.dateStyle[styleID]; ok {
		return v
	}
	v := false
	if style, err := d.wb.GetStyle(styleID); err == nil && style != nil {
		v = builtinDateFormat(style.NumFmt)
		if style.CustomNumFmt != nil {
			v = customDateFormat(*style.CustomNumFmt)
		}
	}
	d.dateStyle[styleID] = v
	return v
}

func builtinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// customDateFormat reports whether a number format code renders a date:
// literals and bracketed sections are ignored, then y/d or h:mm must remain.
func customDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(ch)
		}
	}
	s := b.String()
	return strings.ContainsAny(s, "yd") || strings.Contains(s, "h:mm") || strings.Contains(s, "mmm")
}
