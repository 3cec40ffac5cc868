package loader

import (
	"bytes"
	"io"

	"github.com/extrame/ole2"
	"github.com/go-faster/errors"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
)

// miniStreamCutoff is the compound document size below which a stream lives
// in the mini stream.
const miniStreamCutoff = 4096

type xlsStrategy struct{}

func (xlsStrategy) Name() string { return "xls" }

func (xlsStrategy) Accepts(f *file) bool {
	return f.ext == ".xls" || f.isOLE()
}

func (xlsStrategy) Sheets(f *file) ([]*grid.Grid, error) {
	stream, err := workbookStream(f.data)
	if err != nil {
		return nil, err
	}
	return parseWorkbook(stream)
}

// workbookStream extracts the BIFF stream from an OLE2 compound document.
func workbookStream(data []byte) ([]byte, error) {
	doc, err := ole2.Open(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open ole2 container")
	}
	dir, err := doc.ListDir()
	if err != nil {
		return nil, errors.Wrap(err, "list ole2 directory")
	}
	var book, root *ole2.File
	for _, entry := range dir {
		switch entry.Name() {
		case "Workbook", "Book":
			book = entry
		case "Root Entry":
			root = entry
		}
	}
	if book == nil || root == nil {
		return nil, errors.New("no workbook stream in container")
	}
	ok := chainOK(doc.SecID, book.Sstart)
	if book.Size < miniStreamCutoff {
		ok = chainOK(doc.SSecID, book.Sstart) && chainOK(doc.SecID, root.Sstart)
	}
	if !ok {
		return nil, errors.New("broken sector chain in container")
	}
	stream, err := io.ReadAll(doc.OpenFile(book, root))
	if err != nil {
		return nil, errors.Wrap(err, "read workbook stream")
	}
	if int(book.Size) < len(stream) {
		stream = stream[:book.Size]
	}
	return stream, nil
}

// chainOK reports whether a sector chain ends inside the allocation table.
// The stream reader exits the process on one that does not.
func chainOK(sat []uint32, sid uint32) bool {
	for steps := 0; sid != ole2.ENDOFCHAIN; steps++ {
		if int(sid) >= len(sat) || steps > len(sat) {
			return false
		}
		sid = sat[sid]
	}
	return true
}
