package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a manifest from disk. The file extension
// selects the codec; see LoadFromBytes.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("manifest file not found: %s", path)
	case err != nil:
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes decodes and validates manifest bytes. path only selects
// the codec (.json, .yaml, .yml) and may be empty; any other extension
// is decoded as YAML with a JSON retry.
//
// Omitted load tunables stay zero so callers can tell them apart from
// explicit manifest values; ApplyDefaults fills them on request.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errors.New("manifest file is empty")
	}

	var m Manifest
	if err := decode(data, path, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// LoadFromReader decodes and validates a manifest from r.
func LoadFromReader(r io.Reader, path string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return LoadFromBytes(data, path)
}

func decode(data []byte, path string, m *Manifest) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, m); err != nil {
			return fmt.Errorf("invalid JSON in manifest: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return fmt.Errorf("invalid YAML in manifest: %w", err)
		}
		return nil
	}

	// YAML accepts most JSON documents, so try it first and keep its
	// error when the JSON retry fails as well.
	yamlErr := yaml.Unmarshal(data, m)
	if yamlErr == nil {
		return nil
	}
	*m = Manifest{}
	if json.Unmarshal(data, m) == nil {
		return nil
	}
	return fmt.Errorf("parse manifest: %w", yamlErr)
}
