// Package source discovers and opens ingestion source files.
//
// A source file is either local (Path set) or remote in object storage
// (Bucket/Key set). Discovery enumerates candidate files from a local
// folder, an explicit file list, and an S3 bucket prefix, keeping only
// supported record formats.
package source

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// FileType classifies a source file by record format.
type FileType string

const (
	TypeCSV  FileType = "csv"
	TypeJSON FileType = "json"
)

// Sentinel errors for discovery outcomes.
var (
	// ErrNoFiles indicates discovery found no supported files. Callers
	// treat this as a warning, not a failure.
	ErrNoFiles = errors.New("no supported source files found")

	// ErrUnsupportedType indicates a file extension outside csv/json.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// File describes one discovered source file. Exactly one of Path or
// Bucket/Key is set. Immutable once discovered.
type File struct {
	// Path is the local filesystem path, empty for remote files.
	Path string

	// Bucket and Key locate a remote object, empty for local files.
	Bucket string
	Key    string

	// Type is the declared record format.
	Type FileType

	// Size in bytes when known, zero otherwise.
	Size int64
}

// Remote reports whether the file lives in object storage.
func (f File) Remote() bool {
	return f.Bucket != ""
}

// ID returns the stable identifier used for progress tracking and logs:
// the local path, or "bucket/key" for remote files.
func (f File) ID() string {
	if f.Remote() {
		return f.Bucket + "/" + f.Key
	}
	return f.Path
}

// classify maps a file name to its record format by extension,
// case-insensitively. Returns ErrUnsupportedType for anything else.
func classify(name string) (FileType, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return TypeCSV, nil
	case ".json":
		return TypeJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
}
