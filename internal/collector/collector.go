package collector

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/semdexhq/semdex/pkg/types"
)

// Directories never worth indexing
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

// Collector enumerates workspace files under a total size budget
type Collector struct {
	logger *slog.Logger
}

// New creates a Collector
func New(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger}
}

// Collect walks the given roots in order and returns files until adding
// one would exceed sizeBudgetBytes. Overflowing files are excluded whole,
// never truncated. Unreadable entries are logged and skipped; the walk
// never aborts because of them.
func (c *Collector) Collect(ctx context.Context, roots []string, sizeBudgetBytes int64) ([]types.FileDescriptor, error) {
	if len(roots) == 0 {
		return nil, types.ErrNoWorkspaceRoots
	}

	files := make([]types.FileDescriptor, 0, 256)
	var total int64

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				c.logger.Warn("skipping unreadable entry", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if path != root && (skipDirs[name] || isHidden(name)) {
					return fs.SkipDir
				}
				return nil
			}

			if isHidden(name) || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				c.logger.Warn("skipping file without metadata", "path", path, "error", err)
				return nil
			}

			size := info.Size()
			if total+size > sizeBudgetBytes {
				c.logger.Debug("file exceeds remaining budget, excluded",
					"path", path, "size", size, "remaining", sizeBudgetBytes-total)
				return nil
			}

			total += size
			files = append(files, types.FileDescriptor{Path: path, SizeBytes: size})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	c.logger.Info("workspace collection complete",
		"roots", len(roots), "files", len(files), "totalBytes", total)

	return files, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
