package manifest

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate checks structural correctness of a manifest.
//
// Validation covers required fields, value ranges, and glob syntax. It
// does not touch the network: index existence and source reachability
// are checked at execution time.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return errors.New("manifest version is required")
	}
	if m.Version != DefaultVersion {
		return fmt.Errorf("unsupported manifest version %q (expected %q)", m.Version, DefaultVersion)
	}
	if m.Index == "" {
		return errors.New("manifest index is required")
	}

	if err := m.Source.validate(); err != nil {
		return err
	}
	return m.Load.validate()
}

func (s *SourceConfig) validate() error {
	if s.Bucket == "" && s.Folder == "" && len(s.Files) == 0 {
		return errors.New("manifest source must set bucket, folder, or files")
	}
	if s.Prefix != "" && s.Bucket == "" {
		return errors.New("manifest source prefix requires a bucket")
	}

	for _, pattern := range append(append([]string{}, s.Includes...), s.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern: %q", pattern)
		}
	}
	return nil
}

func (l *LoadConfig) validate() error {
	if l.BatchSize < 0 || l.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d", MaxBatchSize)
	}
	if l.Workers < 0 || l.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", MaxWorkers)
	}
	if l.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	return nil
}
