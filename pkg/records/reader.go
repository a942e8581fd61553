// Package records parses source file content into row documents.
//
// Readers are lazy, finite, single-pass: call Next until it returns io.EOF.
// Malformed individual records are skipped with a logged error; malformed
// top-level content fails reader construction so the file counts zero rows.
package records

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/source"
)

// Document is one row destined for the store. Values are strings, numbers,
// booleans, or nil. A non-empty "id" field becomes the destination document
// identifier.
type Document map[string]any

// ID returns the document's explicit identifier, if present.
func (d Document) ID() (string, bool) {
	v, ok := d["id"]
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, id != ""
	default:
		return fmt.Sprintf("%v", id), true
	}
}

// Reader yields Documents one at a time. Next returns io.EOF after the
// last document.
type Reader interface {
	Next() (Document, error)
}

// Open builds a Reader for the given content and declared type.
//
// JSON content is parsed eagerly here: a malformed top-level document is a
// construction error and the whole file fails with zero rows read.
func Open(r io.Reader, typ source.FileType, logger *zap.Logger) (Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch typ {
	case source.TypeCSV:
		return newCSVReader(r, logger), nil
	case source.TypeJSON:
		return newJSONReader(r, logger)
	default:
		return nil, fmt.Errorf("%w: %s", source.ErrUnsupportedType, typ)
	}
}
