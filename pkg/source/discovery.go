package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Spec describes where to look for source files. Any combination of the
// three sources may be set; all are enumerated and combined local-first.
type Spec struct {
	// Folder is a local directory scanned non-recursively.
	Folder string

	// Files is an explicit list of local file paths.
	Files []string

	// Bucket/Prefix select objects in an object store. Requires an
	// ObjectStore on the Discovery.
	Bucket string
	Prefix string

	// Includes/Excludes filter candidate identifiers with doublestar
	// glob patterns. Empty Includes admits everything.
	Includes []string
	Excludes []string
}

// Validate checks pattern syntax and that at least one source is set.
func (s Spec) Validate() error {
	if s.Folder == "" && len(s.Files) == 0 && s.Bucket == "" {
		return fmt.Errorf("at least one of folder, files, or bucket must be set")
	}
	for _, p := range append(append([]string{}, s.Includes...), s.Excludes...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %s", p)
		}
	}
	return nil
}

// Discovery enumerates source files. The ObjectStore may be nil when no
// remote source is used.
type Discovery struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewDiscovery builds a Discovery. A nil logger disables logging.
func NewDiscovery(store ObjectStore, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{store: store, logger: logger}
}

// Discover returns the deduplicated combined list of supported source
// files: local folder files and explicit files first, then remote objects.
// Unsupported extensions are skipped with a warning. Returns ErrNoFiles
// when every source came up empty, and a hard error when a source is
// unreachable.
func (d *Discovery) Discover(ctx context.Context, spec Spec) ([]File, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var files []File
	seen := make(map[string]struct{})

	add := func(f File) {
		id := f.ID()
		if _, dup := seen[id]; dup {
			d.logger.Debug("Skipping duplicate source file", zap.String("file", id))
			return
		}
		if !d.admit(spec, id) {
			d.logger.Debug("Source file filtered out", zap.String("file", id))
			return
		}
		seen[id] = struct{}{}
		files = append(files, f)
	}

	if spec.Folder != "" {
		local, err := d.scanFolder(spec.Folder)
		if err != nil {
			return nil, err
		}
		for _, f := range local {
			add(f)
		}
	}

	for _, p := range spec.Files {
		f, ok := d.classifyLocal(p)
		if ok {
			add(f)
		}
	}

	if spec.Bucket != "" {
		remote, err := d.scanBucket(ctx, spec.Bucket, spec.Prefix)
		if err != nil {
			return nil, err
		}
		for _, f := range remote {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	d.logger.Info("Source discovery complete",
		zap.Int("files", len(files)),
		zap.String("folder", spec.Folder),
		zap.String("bucket", spec.Bucket),
		zap.String("prefix", spec.Prefix))
	return files, nil
}

// admit applies include/exclude glob filters to a file identifier.
func (d *Discovery) admit(spec Spec, id string) bool {
	if len(spec.Includes) > 0 {
		matched := false
		for _, p := range spec.Includes {
			if ok, _ := doublestar.Match(p, id); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, p := range spec.Excludes {
		if ok, _ := doublestar.Match(p, id); ok {
			return false
		}
	}
	return true
}

// scanFolder lists supported files directly under a local directory.
func (d *Discovery) scanFolder(folder string) ([]File, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve folder %s: %w", folder, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("scan folder %s: %w", abs, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(abs, entry.Name())
		f, ok := d.classifyLocal(full)
		if !ok {
			continue
		}
		if info, err := entry.Info(); err == nil {
			f.Size = info.Size()
		}
		files = append(files, f)
	}
	return files, nil
}

// classifyLocal builds a local File, logging and skipping unsupported types.
func (d *Discovery) classifyLocal(path string) (File, bool) {
	typ, err := classify(path)
	if err != nil {
		d.logger.Warn("Skipping unsupported file", zap.String("file", path))
		return File{}, false
	}
	return File{Path: path, Type: typ}, true
}

// scanBucket pages through an object listing collecting supported objects.
func (d *Discovery) scanBucket(ctx context.Context, bucket, prefix string) ([]File, error) {
	if d.store == nil {
		return nil, fmt.Errorf("bucket %s requested but no object store configured", bucket)
	}

	var files []File
	token := ""
	for {
		page, err := d.store.ListPage(ctx, bucket, prefix, token)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			typ, err := classify(obj.Key)
			if err != nil {
				d.logger.Warn("Skipping unsupported object",
					zap.String("bucket", bucket),
					zap.String("key", obj.Key))
				continue
			}
			files = append(files, File{Bucket: bucket, Key: obj.Key, Type: typ, Size: obj.Size})
		}
		if page.ContinuationToken == "" {
			return files, nil
		}
		token = page.ContinuationToken
	}
}

// Open returns the content of a source file. The caller must close the
// reader.
func (d *Discovery) Open(ctx context.Context, f File) (io.ReadCloser, error) {
	if f.Remote() {
		if d.store == nil {
			return nil, fmt.Errorf("remote file %s requested but no object store configured", f.ID())
		}
		return d.store.Get(ctx, f.Bucket, f.Key)
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	return file, nil
}
