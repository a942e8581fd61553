package records

import (
	"encoding/csv"
	"errors"
	"io"

	"go.uber.org/zap"
)

// csvReader parses tabular content. The first line is the field-name
// header; each subsequent line becomes one Document. Values are kept as
// read; empty cells map to nil.
type csvReader struct {
	r      *csv.Reader
	header []string
	logger *zap.Logger
	row    int
	done   bool
}

func newCSVReader(r io.Reader, logger *zap.Logger) *csvReader {
	cr := csv.NewReader(r)
	// Rows with the wrong field count are malformed records, not fatal
	// errors; they are detected and skipped in Next.
	cr.FieldsPerRecord = -1
	return &csvReader{r: cr, logger: logger}
}

func (c *csvReader) Next() (Document, error) {
	if c.done {
		return nil, io.EOF
	}

	if c.header == nil {
		header, err := c.r.Read()
		if err != nil {
			c.done = true
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		c.header = header
	}

	for {
		record, err := c.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.done = true
				return nil, io.EOF
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.row++
				c.logger.Error("Skipping malformed row",
					zap.Int("row", c.row),
					zap.Error(err))
				continue
			}
			c.done = true
			return nil, err
		}

		c.row++
		if len(record) != len(c.header) {
			c.logger.Error("Skipping row with wrong field count",
				zap.Int("row", c.row),
				zap.Int("fields", len(record)),
				zap.Int("expected", len(c.header)))
			continue
		}

		doc := make(Document, len(c.header))
		for i, field := range c.header {
			if record[i] == "" {
				doc[field] = nil
				continue
			}
			doc[field] = record[i]
		}
		return doc, nil
	}
}
