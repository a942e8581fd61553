// Package manifest provides loading and validation of searchload job
// manifests.
//
// A job manifest is a YAML or JSON file that configures one ingestion job:
// the destination collection, the source files, and load behavior.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	index: products-v2
//	source:
//	  bucket: my-data-bucket
//	  prefix: exports/2026-08/
//	  includes:
//	    - "**/*.csv"
//	load:
//	  batch_size: 1000
//	  workers: 4
package manifest

// Manifest represents a validated load-job manifest.
//
// Required fields are Version, Index, and Source. Load is optional; a
// zero tunable means the field was not set in the file.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Index is the destination collection name.
	Index string `json:"index" yaml:"index"`

	// Source configures where input files come from.
	Source SourceConfig `json:"source" yaml:"source"`

	// Load configures ingestion behavior (optional).
	Load LoadConfig `json:"load,omitempty" yaml:"load,omitempty"`
}

// SourceConfig configures the input file locations. Exactly one of
// Bucket, Folder, or Files must be set; Bucket may combine with Prefix.
type SourceConfig struct {
	// Bucket is the object-store bucket to scan.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix narrows the bucket scan. Optional.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Folder is a local directory to scan (non-recursive).
	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`

	// Files is an explicit list of local file paths.
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`

	// Includes is a list of glob patterns for files to include. Optional.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`

	// Excludes is a list of glob patterns for files to exclude. Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// LoadConfig configures ingestion behavior.
//
// All fields are optional; loading leaves omitted fields zero.
type LoadConfig struct {
	// BatchSize is the maximum documents per bulk request.
	// Range: 1-10000. Default: 1000.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	// Workers is the number of concurrent bulk dispatchers.
	// Range: 1-32. Default: 4.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// RateLimit is the maximum bulk requests per second (0 = unlimited).
	// Default: 0.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// SkipCleanup leaves the destination index untouched before loading.
	// Default: false.
	SkipCleanup bool `json:"skip_cleanup,omitempty" yaml:"skip_cleanup,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultBatchSize is the default documents per bulk request.
	DefaultBatchSize = 1000

	// DefaultWorkers is the default number of concurrent dispatchers.
	DefaultWorkers = 4

	// MaxBatchSize caps batch_size.
	MaxBatchSize = 10000

	// MaxWorkers caps workers.
	MaxWorkers = 32
)

// ApplyDefaults fills the load tunables left at zero. Loading does not
// call this: a zero tunable in a loaded manifest means "not set", which
// lets callers layer manifest values over their own configuration.
func (m *Manifest) ApplyDefaults() {
	if m.Load.BatchSize == 0 {
		m.Load.BatchSize = DefaultBatchSize
	}
	if m.Load.Workers == 0 {
		m.Load.Workers = DefaultWorkers
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed
}
