package records

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/source"
)

func readAll(t *testing.T, r Reader) []Document {
	t.Helper()
	var docs []Document
	for {
		doc, err := r.Next()
		if err == io.EOF {
			return docs
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}
}

func TestCSVReader(t *testing.T) {
	input := "id,name,price\n1,widget,9.99\n2,gadget,19.99\n"
	r, err := Open(strings.NewReader(input), source.TypeCSV, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0]["id"])
	assert.Equal(t, "widget", docs[0]["name"])
	assert.Equal(t, "19.99", docs[1]["price"])
}

func TestCSVReaderEmptyCellsAreNull(t *testing.T) {
	input := "id,name\n1,\n"
	r, err := Open(strings.NewReader(input), source.TypeCSV, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	require.Len(t, docs, 1)
	assert.Nil(t, docs[0]["name"])
}

func TestCSVReaderSkipsWrongFieldCount(t *testing.T) {
	input := "id,name\n1,widget\n2\n3,gadget,extra\n4,doohickey\n"
	r, err := Open(strings.NewReader(input), source.TypeCSV, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	require.Len(t, docs, 2)
	assert.Equal(t, "widget", docs[0]["name"])
	assert.Equal(t, "doohickey", docs[1]["name"])
}

func TestCSVReaderHeaderOnly(t *testing.T) {
	r, err := Open(strings.NewReader("id,name\n"), source.TypeCSV, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}

func TestCSVReaderEmptyInput(t *testing.T) {
	r, err := Open(strings.NewReader(""), source.TypeCSV, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}

func TestJSONReaderObject(t *testing.T) {
	r, err := Open(strings.NewReader(`{"id": "a", "name": "widget"}`), source.TypeJSON, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["id"])
}

func TestJSONReaderArray(t *testing.T) {
	input := `[{"id": "a"}, {"id": "b"}, {"id": "c"}]`
	r, err := Open(strings.NewReader(input), source.TypeJSON, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	assert.Len(t, docs, 3)
}

func TestJSONReaderSkipsNonObjectElements(t *testing.T) {
	input := `[{"id": "a"}, 42, "nope", {"id": "b"}]`
	r, err := Open(strings.NewReader(input), source.TypeJSON, zap.NewNop())
	require.NoError(t, err)

	docs := readAll(t, r)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0]["id"])
	assert.Equal(t, "b", docs[1]["id"])
}

func TestJSONReaderMalformedInput(t *testing.T) {
	_, err := Open(strings.NewReader(`{"id": `), source.TypeJSON, zap.NewNop())
	assert.Error(t, err)
}

func TestJSONReaderScalarTopLevel(t *testing.T) {
	_, err := Open(strings.NewReader(`"just a string"`), source.TypeJSON, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := Open(strings.NewReader("data"), source.FileType("parquet"), zap.NewNop())
	assert.Error(t, err)
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name   string
		doc    Document
		want   string
		wantOK bool
	}{
		{"string id", Document{"id": "abc"}, "abc", true},
		{"missing id", Document{"name": "widget"}, "", false},
		{"empty id", Document{"id": ""}, "", false},
		{"numeric id", Document{"id": 42}, "42", true},
		{"nil id", Document{"id": nil}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.doc.ID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}
