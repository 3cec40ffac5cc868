// Package report writes the audit CSVs of an ingestion run: the records sent
// to the store per source file, and the ambiguous-date diagnostics.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
)

const timestampLayout = "20060102_150405"

type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// WithClock returns a copy of w using now for file names.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	c := *w
	c.now = now
	return &c
}

// WriteValidation writes validation_<ts>_<source>.csv with dots in the source
// name replaced by underscores.
func (w *Writer) WriteValidation(source string, header []string, rows [][]string) (string, error) {
	ts := w.now().UTC().Format(timestampLayout)
	name := fmt.Sprintf("validation_%s_%s.csv", ts, safeName(source))
	return w.write(name, header, rows)
}

// WriteDateDiscrepancies writes date_discrepancies_<ts>.csv.
func (w *Writer) WriteDateDiscrepancies(header []string, rows [][]string) (string, error) {
	ts := w.now().UTC().Format(timestampLayout)
	return w.write(fmt.Sprintf("date_discrepancies_%s.csv", ts), header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", gerrors.Wrap(err, "create reports dir")
	}
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", gerrors.Wrap(err, "create report")
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		return "", gerrors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		_ = f.Close()
		return "", gerrors.Wrap(err, "write rows")
	}
	if err := f.Close(); err != nil {
		return "", gerrors.Wrap(err, "close report")
	}
	return path, nil
}

func safeName(source string) string {
	base := filepath.Base(source)
	if base == "." || base == string(filepath.Separator) {
		base = "input"
	}
	return strings.ReplaceAll(base, ".", "_")
}
