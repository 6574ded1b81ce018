package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bamsammich/finddupes/internal/event"
)

// DeleteConfig controls the delete pass.
type DeleteConfig struct {
	Events chan<- event.Event
	Groups []Group
	DryRun bool
}

// DeleteDuplicates keeps the first path of every duplicate group and
// removes the rest. Unique groups are never touched, and a path that
// resolves to the kept file's inode (a hardlink, a symlink, or the same
// file named twice) is left alone since removing it frees nothing and
// may break the kept path. A failed removal is
// logged and the pass continues; the returned error joins every failure.
// It returns the number of paths deleted (or, in a dry run, that would be).
func DeleteDuplicates(ctx context.Context, cfg DeleteConfig) (int, error) {
	deleted := 0
	var errs []error

	for _, g := range cfg.Groups {
		if g.Unique || g.Len() < 2 {
			continue
		}
		kept, err := os.Stat(g.Paths[0])
		if err != nil {
			slog.Warn("kept file vanished, leaving group untouched", "path", g.Paths[0], "error", err)
			errs = append(errs, fmt.Errorf("stat %s: %w", g.Paths[0], err))
			continue
		}
		for _, path := range g.Paths[1:] {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}
			if info, err := os.Stat(path); err == nil && os.SameFile(kept, info) {
				slog.Debug("not deleting link to kept file", "path", path, "kept", g.Paths[0])
				continue
			}
			if !cfg.DryRun {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					slog.Warn("delete failed", "path", path, "error", err)
					errs = append(errs, fmt.Errorf("delete %s: %w", path, err))
					continue
				}
			}
			slog.Debug("deleted duplicate", "path", path, "kept", g.Paths[0], "dry_run", cfg.DryRun)
			deleted++
			if err := event.Send(ctx, cfg.Events, event.Event{Type: event.DeleteFile, Path: path, Size: g.Size}); err != nil {
				return deleted, err
			}
		}
	}

	return deleted, errors.Join(errs...)
}
