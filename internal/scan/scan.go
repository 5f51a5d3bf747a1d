// Package scan discovers candidate video files beneath the configured
// library roots.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/sidecar"
)

// File is one discovered library entry with the signature fields the
// reprocess-changed policy compares against stored records.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Walker enumerates video files under a set of library roots. Companion
// directories (@eaDir) and the DSM recycle bin are pruned so renditions
// and thumbnails never show up as sources in their own right.
type Walker struct {
	roots  []string
	logger *slog.Logger
}

// NewWalker builds a walker over the given roots. A nil logger is replaced
// with a no-op one.
func NewWalker(roots []string, logger *slog.Logger) *Walker {
	return &Walker{
		roots:  slices.Clone(roots),
		logger: logging.NewComponentLogger(logger, "scan"),
	}
}

// Discover walks every root and returns the video files found, sorted by
// path and deduplicated across overlapping roots. A root that cannot be
// walked is logged and skipped so one unmounted share does not starve the
// others; only context cancellation aborts the walk.
func (w *Walker) Discover(ctx context.Context) ([]File, error) {
	seen := make(map[string]struct{})
	var files []File

	for _, root := range w.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				w.logger.Warn("skipping unreadable path",
					logging.String("path", path),
					logging.Error(err))
				if entry != nil && entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				if sidecar.Skip(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !entry.Type().IsRegular() || !media.IsVideoPath(path) {
				return nil
			}
			if strings.HasPrefix(entry.Name(), ".") {
				return nil
			}
			info, infoErr := entry.Info()
			if infoErr != nil {
				w.logger.Warn("skipping unreadable file",
					logging.String("path", path),
					logging.Error(infoErr))
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, File{Path: path, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if walkErr != nil {
			if ctx.Err() != nil {
				return nil, walkErr
			}
			w.logger.Warn("library root not walkable",
				logging.String("root", root),
				logging.Error(walkErr))
		}
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})
	w.logger.Debug("library scan finished",
		logging.Int("roots", len(w.roots)),
		logging.Int("files", len(files)))
	return files, nil
}

// Stat refreshes the signature of a single file, used when a path is
// handed to the pipeline outside a scheduled walk.
func Stat(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return File{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}
