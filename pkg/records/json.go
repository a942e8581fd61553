package records

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// jsonReader parses JSON content: a single object yields one Document, an
// array yields one Document per object element. Non-object array elements
// are skipped with a logged error.
type jsonReader struct {
	docs []Document
	pos  int
}

func newJSONReader(r io.Reader, logger *zap.Logger) (*jsonReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json content: %w", err)
	}

	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse json content: %w", err)
	}

	switch v := top.(type) {
	case map[string]any:
		return &jsonReader{docs: []Document{Document(v)}}, nil
	case []any:
		docs := make([]Document, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				logger.Error("Skipping non-object array element",
					zap.Int("element", i))
				continue
			}
			docs = append(docs, Document(obj))
		}
		return &jsonReader{docs: docs}, nil
	default:
		return nil, fmt.Errorf("parse json content: top-level value must be an object or array of objects")
	}
}

func (j *jsonReader) Next() (Document, error) {
	if j.pos >= len(j.docs) {
		return nil, io.EOF
	}
	doc := j.docs[j.pos]
	j.pos++
	return doc, nil
}
