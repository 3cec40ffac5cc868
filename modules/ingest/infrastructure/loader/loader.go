// Package loader turns an export file of any supported container into a
// grid.Grid. Loading never fails hard: a file that yields no table comes back
// as an empty grid together with a FormatError describing why.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gerrors "github.com/go-faster/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
)

const (
	// postsToken selects the posts sheet or archive member.
	postsToken = "post"
	maxNesting = 3
)

// Strategy loads every sheet of a file it accepts.
type Strategy interface {
	Name() string
	Accepts(f *file) bool
	Sheets(f *file) ([]*grid.Grid, error)
}

type file struct {
	name  string
	ext   string
	data  []byte
	mime  *mimetype.MIME
	depth int
}

func newFile(name string, data []byte) *file {
	return &file{
		name: name,
		ext:  strings.ToLower(filepath.Ext(name)),
		data: data,
		mime: mimetype.Detect(data),
	}
}

func (f *file) isZip() bool {
	for m := f.mime; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func (f *file) isXLSX() bool {
	return f.mime.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (f *file) isOLE() bool {
	return f.mime.Is("application/vnd.ms-excel")
}

// Loader runs its strategies in order; the first one that accepts the file
// and produces at least one sheet wins.
type Loader struct {
	strategies []Strategy
	logger     *logrus.Entry
}

type Option func(*Loader)

func WithLogger(logger *logrus.Entry) Option {
	return func(l *Loader) { l.logger = logger }
}

func New(opts ...Option) *Loader {
	l := &Loader{}
	l.strategies = []Strategy{
		zipStrategy{l: l},
		xlsxStrategy{},
		xlsStrategy{},
		textStrategy{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the posts grid of the file at path. The grid is never nil; on
// failure it is empty and err is a FormatError.
func (l *Loader) Load(path string) (*grid.Grid, error) {
	sheets, err := l.LoadSheets(path)
	return pickPostsSheet(sheets, filepath.Base(path)), err
}

// LoadBytes is Load for callers that already hold the file contents.
func (l *Loader) LoadBytes(name string, data []byte) (*grid.Grid, error) {
	sheets, err := l.LoadSheetsBytes(name, data)
	return pickPostsSheet(sheets, name), err
}

// LoadSheets returns every sheet of the file, or a single grid for flat text.
func (l *Loader) LoadSheets(path string) ([]*grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindFormat, "read", err)
	}
	return l.LoadSheetsBytes(filepath.Base(path), data)
}

func (l *Loader) LoadSheetsBytes(name string, data []byte) ([]*grid.Grid, error) {
	if len(data) == 0 {
		return nil, ingesterr.Newf(ingesterr.KindFormat, "read", "%s is empty", name)
	}
	sheets, err := l.sheets(newFile(name, data))
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindFormat, "load", gerrors.Wrap(err, name))
	}
	return sheets, nil
}

func (l *Loader) sheets(f *file) ([]*grid.Grid, error) {
	var errs []error
	tried := 0
	for _, s := range l.strategies {
		if !s.Accepts(f) {
			continue
		}
		tried++
		sheets, err := runStrategy(s, f)
		if err == nil && len(sheets) > 0 {
			l.debug(f, s, "loaded")
			return sheets, nil
		}
		if err == nil {
			err = gerrors.New("no sheets")
		}
		l.debug(f, s, err.Error())
		errs = append(errs, gerrors.Wrap(err, s.Name()))
	}
	if tried == 0 {
		return nil, gerrors.Errorf("unsupported container %q (%s)", f.ext, f.mime.String())
	}
	return nil, joinErrors(errs)
}

// runStrategy converts panics from third-party readers on corrupt input into
// errors.
func runStrategy(s Strategy, f *file) (sheets []*grid.Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("%s reader panicked: %v", s.Name(), r)
		}
	}()
	return s.Sheets(f)
}

func (l *Loader) debug(f *file, s Strategy, msg string) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(logrus.Fields{
		"file":     f.name,
		"strategy": s.Name(),
		"mime":     f.mime.String(),
	}).Debug(msg)
}

// pickPostsSheet returns the first sheet whose name carries the posts token,
// else the first sheet, else an empty grid.
func pickPostsSheet(sheets []*grid.Grid, name string) *grid.Grid {
	for _, g := range sheets {
		if strings.Contains(strings.ToLower(g.Name), postsToken) {
			return g
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return &grid.Grid{Name: name}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return gerrors.New("no strategy succeeded")
	}
	return errors.Join(errs...)
}
