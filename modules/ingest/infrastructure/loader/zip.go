package loader

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

// maxMemberSize bounds how much of a single archive member is read.
const maxMemberSize = 256 << 20

var tabularExts = []string{".csv", ".xls", ".xlsx"}

type zipStrategy struct {
	l *Loader
}

func (zipStrategy) Name() string { return "zip" }

func (zipStrategy) Accepts(f *file) bool {
	if f.ext == ".zip" {
		return true
	}
	return f.ext != ".xlsx" && f.ext != ".xlsm" && f.isZip() && !f.isXLSX()
}

func (s zipStrategy) Sheets(f *file) ([]*grid.Grid, error) {
	if f.depth >= maxNesting {
		return nil, errors.Errorf("archive nested deeper than %d levels", maxNesting)
	}
	zr, err := zip.NewReader(bytes.NewReader(f.data), int64(len(f.data)))
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}

	member := pickMember(zr.File)
	if member == nil {
		return nil, errors.New("archive has no tabular member")
	}
	rc, err := member.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open member %q", member.Name)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read member %q", member.Name)
	}
	if len(data) > maxMemberSize {
		return nil, errors.Errorf("member %q exceeds %d bytes", member.Name, maxMemberSize)
	}

	inner := newFile(path.Base(member.Name), data)
	inner.depth = f.depth + 1
	return s.l.sheets(inner)
}

// pickMember prefers a tabular member whose name carries the posts token,
// else the first tabular member. Directories and other files are ignored.
func pickMember(files []*zip.File) *zip.File {
	var first *zip.File
	for _, zf := range files {
		if zf.FileInfo().IsDir() || !isTabular(zf.Name) {
			continue
		}
		if first == nil {
			first = zf
		}
		if strings.Contains(strings.ToLower(path.Base(zf.Name)), postsToken) {
			return zf
		}
	}
	return first
}

func isTabular(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range tabularExts {
		if ext == e {
			return true
		}
	}
	return false
}
