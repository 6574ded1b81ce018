package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/finddupes/internal/event"
	"github.com/bamsammich/finddupes/internal/filter"
	"github.com/bamsammich/finddupes/internal/stats"
)

// Root is one user-supplied path.
type Root struct {
	Path    string
	Recurse bool // descend into subdirectories of a directory root
}

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Stats          stats.Writer
	Filter         *filter.Chain
	Events         chan<- event.Event
	Roots          []Root
	FollowSymlinks bool
	ExcludeEmpty   bool
}

// Scanner walks the roots in order and emits one FileRecord per regular
// file (and per symlink to a regular file when following symlinks).
// Directory entries are visited in lexical order, so discovery order is
// stable across runs.
type Scanner struct {
	records   chan *FileRecord
	errs      chan error
	seenPaths map[string]struct{}
	ancestors map[DevIno]struct{} // directories on the current descent
	cfg       ScannerConfig
	seq       int
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	return &Scanner{
		cfg:       cfg,
		records:   make(chan *FileRecord, 256),
		errs:      make(chan error, 64),
		seenPaths: make(map[string]struct{}),
		ancestors: make(map[DevIno]struct{}),
	}
}

// Scan starts the scanner and returns channels for records and errors.
// The caller must consume from both channels until they close. Errors are
// per-path and never stop the walk.
func (s *Scanner) Scan(ctx context.Context) (<-chan *FileRecord, <-chan error) {
	go func() {
		defer close(s.records)
		defer close(s.errs)
		for _, root := range s.cfg.Roots {
			if ctx.Err() != nil {
				return
			}
			s.scanRoot(ctx, root)
		}
	}()
	return s.records, s.errs
}

func (s *Scanner) scanRoot(ctx context.Context, root Root) {
	linfo, err := os.Lstat(root.Path)
	if err != nil {
		s.sendErr(ctx, fmt.Errorf("lstat %s: %w", root.Path, err))
		return
	}
	if linfo.Mode()&os.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
		slog.Debug("skipping symlink", "path", root.Path)
		return
	}

	info, err := os.Stat(root.Path)
	if err != nil {
		s.sendErr(ctx, fmt.Errorf("stat %s: %w", root.Path, err))
		return
	}
	if info.IsDir() {
		dir := normalizeDir(root.Path)
		s.scanDir(ctx, dir, dir, root.Recurse)
		return
	}
	s.processFile(ctx, root.Path, filepath.Base(root.Path), info)
}

func (s *Scanner) scanDir(ctx context.Context, rootDir, dir string, recurse bool) {
	if s.cfg.FollowSymlinks {
		// A followed directory link pointing at one of its own ancestors
		// would recurse forever. Links to anywhere else are walked again
		// under their own name.
		if info, err := os.Stat(dir); err == nil {
			if id, ok := devInoFromInfo(info); ok {
				if _, cycle := s.ancestors[id]; cycle {
					slog.Debug("directory link cycle", "path", dir)
					return
				}
				s.ancestors[id] = struct{}{}
				defer delete(s.ancestors, id)
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.sendErr(ctx, fmt.Errorf("readdir %s: %w", dir, err))
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
			slog.Debug("skipping symlink", "path", path)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			s.sendErr(ctx, fmt.Errorf("stat %s: %w", path, err))
			continue
		}
		if info.IsDir() {
			if recurse && s.included(relPath(rootDir, path), true, 0) {
				s.scanDir(ctx, rootDir, path, recurse)
			}
			continue
		}
		s.processFile(ctx, path, relPath(rootDir, path), info)
	}
}

// processFile turns one non-directory path into a record. info comes from
// stat (links followed), so size and inode describe the link target.
func (s *Scanner) processFile(ctx context.Context, path, rel string, info os.FileInfo) {
	linfo, err := os.Lstat(path)
	if err != nil {
		s.sendErr(ctx, fmt.Errorf("lstat %s: %w", path, err))
		return
	}

	var kind Kind
	switch {
	case linfo.Mode().IsRegular():
		kind = Regular
	case linfo.Mode()&os.ModeSymlink != 0 && s.cfg.FollowSymlinks && info.Mode().IsRegular():
		kind = Symlink
	default:
		slog.Debug("skipping non-regular file", "path", path, "mode", linfo.Mode().String())
		return
	}

	if info.Size() == 0 && s.cfg.ExcludeEmpty {
		slog.Debug("skipping empty file", "path", path)
		s.skip()
		return
	}
	if !s.included(rel, false, info.Size()) {
		slog.Debug("skipping filtered file", "path", path)
		s.skip()
		return
	}

	clean := filepath.Clean(path)
	if _, dup := s.seenPaths[clean]; dup {
		slog.Debug("path already scanned", "path", path)
		return
	}
	s.seenPaths[clean] = struct{}{}

	id, ok := devInoFromInfo(info)
	if !ok {
		s.sendErr(ctx, fmt.Errorf("unsupported stat type for %s", path))
		return
	}

	rec := &FileRecord{
		Path:   path,
		Size:   info.Size(),
		DevIno: id,
		Kind:   kind,
		Seq:    s.seq,
	}
	s.seq++

	if s.cfg.Stats != nil {
		s.cfg.Stats.AddFilesScanned(1)
		s.cfg.Stats.AddBytesScanned(rec.Size)
	}
	event.Emit(s.cfg.Events, event.Event{Type: event.FileFound, Path: path, Size: rec.Size})

	select {
	case s.records <- rec:
	case <-ctx.Done():
	}
}

// included applies the filter chain to a path relative to its root.
func (s *Scanner) included(rel string, isDir bool, size int64) bool {
	if s.cfg.Filter == nil {
		return true
	}
	return s.cfg.Filter.Match(rel, isDir, size)
}

func (s *Scanner) skip() {
	if s.cfg.Stats != nil {
		s.cfg.Stats.AddFilesSkipped(1)
	}
}

func (s *Scanner) sendErr(ctx context.Context, err error) {
	if s.cfg.Stats != nil {
		s.cfg.Stats.AddFilesFailed(1)
	}
	select {
	case s.errs <- err:
	case <-ctx.Done():
	}
}

// normalizeDir strips trailing separators so relative paths computed
// against the root are clean.
func normalizeDir(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, string(filepath.Separator))
		if path == "" {
			return string(filepath.Separator)
		}
	}
	return path
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
