package loader

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

// BIFF8 record ids.
const (
	recFormula    uint16 = 0x0006
	recEOF        uint16 = 0x000A
	recDateMode   uint16 = 0x0022
	recContinue   uint16 = 0x003C
	recBoundSheet uint16 = 0x0085
	recMulRK      uint16 = 0x00BD
	recXF         uint16 = 0x00E0
	recSST        uint16 = 0x00FC
	recLabelSST   uint16 = 0x00FD
	recNumber     uint16 = 0x0203
	recLabel      uint16 = 0x0204
	recBoolErr    uint16 = 0x0205
	recString     uint16 = 0x0207
	recRK         uint16 = 0x027E
	recFormat     uint16 = 0x041E
	recBOF        uint16 = 0x0809
)

const (
	biff8Version   = 0x0600
	bofGlobals     = 0x0005
	sheetWorksheet = 0
	maxBIFFColumns = 16384
)

var le = binary.LittleEndian

type boundSheet struct {
	name   string
	offset uint32
}

// biffWorkbook holds the workbook globals needed to type cell values.
type biffWorkbook struct {
	date1904 bool
	sst      []string
	xfFormat []uint16
	formats  map[uint16]string
	sheets   []boundSheet
}

// parseWorkbook reads every worksheet of a BIFF8 workbook stream. Numbers stay
// float64 unless their cell format renders a date, labels stay strings.
func parseWorkbook(stream []byte) ([]*grid.Grid, error) {
	wb, err := parseGlobals(stream)
	if err != nil {
		return nil, err
	}
	var out []*grid.Grid
	for _, bs := range wb.sheets {
		rows, err := wb.parseSheet(stream, bs)
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %q", bs.name)
		}
		out = append(out, buildGrid(bs.name, rows))
	}
	if len(out) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return out, nil
}

type recordReader struct {
	buf []byte
	pos int
}

func (r *recordReader) next() (uint16, []byte, bool) {
	if r.pos+4 > len(r.buf) {
		return 0, nil, false
	}
	id := le.Uint16(r.buf[r.pos:])
	start := r.pos + 4
	end := start + int(le.Uint16(r.buf[r.pos+2:]))
	if end > len(r.buf) {
		return 0, nil, false
	}
	r.pos = end
	return id, r.buf[start:end], true
}

func (r *recordReader) peek() uint16 {
	if r.pos+4 > len(r.buf) {
		return 0
	}
	return le.Uint16(r.buf[r.pos:])
}

func parseGlobals(stream []byte) (*biffWorkbook, error) {
	rr := &recordReader{buf: stream}
	id, data, ok := rr.next()
	if !ok || id != recBOF || len(data) < 4 {
		return nil, errors.New("missing workbook BOF record")
	}
	if v := le.Uint16(data); v != biff8Version || le.Uint16(data[2:]) != bofGlobals {
		return nil, errors.Errorf("unsupported BIFF version %#04x", v)
	}

	wb := &biffWorkbook{formats: map[uint16]string{}}
	for {
		id, data, ok := rr.next()
		if !ok {
			return nil, errors.New("workbook globals truncated")
		}
		switch id {
		case recEOF:
			return wb, nil
		case recDateMode:
			if len(data) >= 2 {
				wb.date1904 = le.Uint16(data) == 1
			}
		case recXF:
			if len(data) >= 4 {
				wb.xfFormat = append(wb.xfFormat, le.Uint16(data[2:]))
			}
		case recFormat:
			if len(data) < 2 {
				continue
			}
			code, err := readString(data[2:], true)
			if err != nil {
				return nil, errors.Wrap(err, "read number format")
			}
			wb.formats[le.Uint16(data)] = code
		case recBoundSheet:
			if len(data) < 8 || data[5] != sheetWorksheet {
				continue
			}
			name, err := readString(data[6:], false)
			if err != nil {
				return nil, errors.Wrap(err, "read sheet name")
			}
			wb.sheets = append(wb.sheets, boundSheet{name: name, offset: le.Uint32(data)})
		case recSST:
			segs := [][]byte{data}
			for rr.peek() == recContinue {
				_, more, _ := rr.next()
				segs = append(segs, more)
			}
			sst, err := readSST(segs)
			if err != nil {
				return nil, errors.Wrap(err, "read shared strings")
			}
			wb.sst = sst
		}
	}
}

type sheetCells struct {
	rows [][]grid.Cell
}

func (s *sheetCells) set(r, c int, v grid.Cell) {
	if c >= maxBIFFColumns {
		return
	}
	for len(s.rows) <= r {
		s.rows = append(s.rows, nil)
	}
	for len(s.rows[r]) <= c {
		s.rows[r] = append(s.rows[r], nil)
	}
	s.rows[r][c] = v
}

func (wb *biffWorkbook) parseSheet(stream []byte, bs boundSheet) ([][]grid.Cell, error) {
	rr := &recordReader{buf: stream, pos: int(bs.offset)}
	if id, _, ok := rr.next(); !ok || id != recBOF {
		return nil, errors.New("missing sheet BOF record")
	}

	var cells sheetCells
	// Embedded chart substreams carry their own BOF/EOF pair.
	depth := 0
	pendingRow, pendingCol := -1, -1
	for {
		id, data, ok := rr.next()
		if !ok {
			return cells.rows, nil
		}
		if id == recBOF {
			depth++
			continue
		}
		if id == recEOF {
			if depth == 0 {
				return cells.rows, nil
			}
			depth--
			continue
		}
		if depth > 0 {
			continue
		}
		// STRING carries no cell address; it belongs to the formula before it.
		if id == recString {
			if pendingRow >= 0 {
				if s, err := readString(data, true); err == nil {
					cells.set(pendingRow, pendingCol, s)
				}
			}
			pendingRow, pendingCol = -1, -1
			continue
		}
		if len(data) < 6 {
			continue
		}
		row, col, xf := int(le.Uint16(data)), int(le.Uint16(data[2:])), le.Uint16(data[4:])

		switch id {
		case recLabelSST:
			if len(data) >= 10 {
				if i := int(le.Uint32(data[6:])); i < len(wb.sst) {
					cells.set(row, col, wb.sst[i])
				}
			}
		case recLabel:
			if s, err := readString(data[6:], true); err == nil {
				cells.set(row, col, s)
			}
		case recNumber:
			if len(data) >= 14 {
				cells.set(row, col, wb.number(xf, math.Float64frombits(le.Uint64(data[6:]))))
			}
		case recRK:
			if len(data) >= 10 {
				cells.set(row, col, wb.number(xf, rkValue(le.Uint32(data[6:]))))
			}
		case recMulRK:
			// row, first column, then (xf, rk) pairs and the last column.
			for i, p := 0, 4; p+6 <= len(data)-2; i, p = i+1, p+6 {
				cells.set(row, col+i, wb.number(le.Uint16(data[p:]), rkValue(le.Uint32(data[p+2:]))))
			}
		case recFormula:
			if len(data) < 14 {
				continue
			}
			res := data[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				cells.set(row, col, wb.number(xf, math.Float64frombits(le.Uint64(res))))
				continue
			}
			switch res[0] {
			case 0:
				pendingRow, pendingCol = row, col
			case 1:
				cells.set(row, col, boolText(res[2]))
			}
		case recBoolErr:
			if len(data) >= 8 && data[7] == 0 {
				cells.set(row, col, boolText(data[6]))
			}
		}
	}
}

// number types a numeric cell by its format: a date format yields a UTC
// timestamp, anything else the raw float.
func (wb *biffWorkbook) number(xf uint16, v float64) grid.Cell {
	if v > 0 && wb.isDateXF(xf) {
		if t, err := excelize.ExcelDateToTime(v, wb.date1904); err == nil {
			return t
		}
	}
	return v
}

func (wb *biffWorkbook) isDateXF(xf uint16) bool {
	if int(xf) >= len(wb.xfFormat) {
		return false
	}
	id := wb.xfFormat[xf]
	if code, ok := wb.formats[id]; ok {
		return customDateFormat(code)
	}
	return builtinDateFormat(int(id))
}

func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func boolText(b byte) string {
	if b != 0 {
		return "TRUE"
	}
	return "FALSE"
}

// readString decodes an unsplit BIFF8 string: a 16-bit (wideLen) or 8-bit
// character count, an option byte, then the characters.
func readString(b []byte, wideLen bool) (string, error) {
	n, off := 0, 1
	if wideLen {
		if len(b) < 3 {
			return "", errors.New("short string header")
		}
		n, off = int(le.Uint16(b)), 2
	} else if len(b) >= 2 {
		n = int(b[0])
	} else {
		return "", errors.New("short string header")
	}
	return decodeChars(b[off+1:], n, b[off]&0x01 != 0)
}

func decodeChars(b []byte, n int, wide bool) (string, error) {
	if wide {
		if len(b) < 2*n {
			return "", errors.New("string shorter than its length")
		}
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b[:2*n])
		return string(out), err
	}
	if len(b) < n {
		return "", errors.New("string shorter than its length")
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b[:n])
	return string(out), err
}

// continueReader reads a record body split over CONTINUE records. Character
// runs that cross a boundary restart with a fresh option byte.
type continueReader struct {
	segs [][]byte
	seg  int
	pos  int
}

var errShortSST = errors.New("shared string table truncated")

func (r *continueReader) raw(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if r.seg >= len(r.segs) {
			return nil, errShortSST
		}
		cur := r.segs[r.seg]
		if r.pos >= len(cur) {
			r.seg, r.pos = r.seg+1, 0
			continue
		}
		take := min(n-len(out), len(cur)-r.pos)
		out = append(out, cur[r.pos:r.pos+take]...)
		r.pos += take
	}
	return out, nil
}

func (r *continueReader) chars(n int, wide bool) (string, error) {
	var b strings.Builder
	for n > 0 {
		if r.seg >= len(r.segs) {
			return "", errShortSST
		}
		cur := r.segs[r.seg]
		if r.pos >= len(cur) {
			r.seg++
			if r.seg >= len(r.segs) || len(r.segs[r.seg]) == 0 {
				return "", errShortSST
			}
			wide, r.pos = r.segs[r.seg][0]&0x01 != 0, 1
			continue
		}
		width := 1
		if wide {
			width = 2
		}
		take := min(n, (len(cur)-r.pos)/width)
		if take == 0 {
			return "", errors.New("character split across records")
		}
		s, err := decodeChars(cur[r.pos:], take, wide)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		r.pos += take * width
		n -= take
	}
	return b.String(), nil
}

func readSST(segs [][]byte) ([]string, error) {
	r := &continueReader{segs: segs}
	head, err := r.raw(8)
	if err != nil {
		return nil, err
	}
	unique := int(le.Uint32(head[4:]))
	out := make([]string, 0, min(unique, 1<<16))
	for i := 0; i < unique; i++ {
		h, err := r.raw(3)
		if err != nil {
			return nil, err
		}
		n, flags := int(le.Uint16(h)), h[2]
		runs, ext := 0, 0
		if flags&0x08 != 0 {
			b, err := r.raw(2)
			if err != nil {
				return nil, err
			}
			runs = int(le.Uint16(b))
		}
		if flags&0x04 != 0 {
			b, err := r.raw(4)
			if err != nil {
				return nil, err
			}
			ext = int(le.Uint32(b))
		}
		s, err := r.chars(n, flags&0x01 != 0)
		if err != nil {
			return nil, err
		}
		if _, err := r.raw(4*runs + ext); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
