package loader

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

type textEncoding struct {
	name string
	enc  encoding.Encoding
}

// textEncodings are tried in order until one decodes and parses.
var textEncodings = []textEncoding{
	{"utf-8", nil},
	{"cp1252", charmap.Windows1252},
	{"latin-1", charmap.ISO8859_1},
	{"iso-8859-1", charmap.ISO8859_1},
	{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

type textStrategy struct{}

func (textStrategy) Name() string { return "text" }

// Accepts everything except archives and legacy workbooks; a misnamed .xlsx
// that failed to open as a workbook lands here.
func (textStrategy) Accepts(f *file) bool {
	switch f.ext {
	case ".zip", ".xls":
		return false
	}
	return !f.isZip()
}

func (textStrategy) Sheets(f *file) ([]*grid.Grid, error) {
	var errs []error
	for _, te := range textEncodings {
		text, err := decodeText(f.data, te)
		if err != nil {
			errs = append(errs, errors.Wrap(err, te.name))
			continue
		}
		rows, err := parseDelimited(text)
		if err != nil {
			errs = append(errs, errors.Wrap(err, te.name))
			continue
		}
		g := buildGrid(f.name, rows)
		if g.Width() == 0 {
			errs = append(errs, errors.Errorf("%s: no header", te.name))
			continue
		}
		return []*grid.Grid{g}, nil
	}
	return nil, errors.Wrap(joinErrors(errs), "no text encoding produced a table")
}

func decodeText(data []byte, te textEncoding) (string, error) {
	var text string
	if te.enc == nil {
		b := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(b) {
			return "", errors.New("invalid utf-8")
		}
		text = string(b)
	} else {
		b, _, err := transform.Bytes(te.enc.NewDecoder(), data)
		if err != nil {
			return "", err
		}
		text = string(b)
	}
	text = strings.TrimPrefix(text, "\ufeff")
	// NUL bytes mean the bytes were decoded with the wrong width.
	if strings.ContainsRune(text, 0) {
		return "", errors.New("decoded text contains NUL bytes")
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty")
	}
	return text, nil
}

func parseDelimited(text string) ([][]grid.Cell, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]grid.Cell
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		row := make([]grid.Cell, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}
	return rows, nil
}

// sniffDelimiter picks the candidate that occurs most often outside quotes in
// the first lines; ',' wins when nothing else is more frequent.
func sniffDelimiter(text string) rune {
	lines := strings.SplitN(text, "\n", headerScanRows+1)
	if len(lines) > headerScanRows {
		lines = lines[:headerScanRows]
	}
	counts := make(map[rune]int, len(candidateDelimiters))
	for _, line := range lines {
		inQuotes := false
		for _, ch := range line {
			if ch == '"' {
				inQuotes = !inQuotes
				continue
			}
			if inQuotes {
				continue
			}
			for _, d := range candidateDelimiters {
				if ch == d {
					counts[d]++
				}
			}
		}
	}
	best := ','
	for _, d := range candidateDelimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
