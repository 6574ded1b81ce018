package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bamsammich/finddupes/internal/event"
	"github.com/bamsammich/finddupes/internal/filter"
	"github.com/bamsammich/finddupes/internal/stats"
)

// ErrNoPaths is returned when Run is given nothing to scan.
var ErrNoPaths = errors.New("no paths specified")

// Config describes a duplicate search.
type Config struct {
	Filter            *filter.Chain
	Events            chan<- event.Event
	Stats             *stats.Collector
	Roots             []Root
	Workers           int
	BWLimit           int64 // bytes/sec across all content reads; 0 = unlimited
	FollowSymlinks    bool
	ConsiderHardlinks bool // report hardlinks to one inode as duplicates
	ExcludeEmpty      bool
	Unique            bool // report files without duplicates instead of groups
	Verify            bool // byte-compare group members before reporting
}

// Group is one reported set of paths. Paths are in discovery order. A
// Unique group holds a single file that has no duplicate.
type Group struct {
	Paths  []string
	Size   int64
	Unique bool
}

// Len returns the number of members.
func (g Group) Len() int { return len(g.Paths) }

// Result is the outcome of a duplicate search.
type Result struct {
	Err    error
	Groups []Group
	Stats  stats.Snapshot
}

// Run scans cfg.Roots and refines the discovered files by size, then by
// partial content, then by full content, blocking until complete.
// Per-file failures are logged and counted; only cancellation or an empty
// root list produce Result.Err.
func Run(ctx context.Context, cfg Config) Result {
	if len(cfg.Roots) == 0 {
		return Result{Err: ErrNoPaths}
	}
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	var uniques []*FileRecord
	refiner := NewRefiner(cfg.Workers, collector, cfg.Events)
	if limiter != nil {
		refiner.Throttle(ctx, limiter)
	}
	if cfg.Unique {
		refiner.Resolved = func(rec *FileRecord) { uniques = append(uniques, rec) }
	}

	ix, err := scanSizes(ctx, cfg, collector)
	if err != nil {
		return Result{Err: err, Stats: collector.Snapshot()}
	}
	ix.Prune(refiner.Resolved)

	for _, level := range []Level{LevelPartial, LevelFull} {
		ix, err = refiner.Refine(ctx, ix, level)
		if err != nil {
			return Result{Err: err, Stats: collector.Snapshot()}
		}
	}

	if !cfg.ConsiderHardlinks {
		for _, b := range ix.Buckets() {
			FilterHardlinks(b, cfg.FollowSymlinks)
		}
		ix.Prune(refiner.Resolved)
	}

	if cfg.Verify {
		if err := verifyIndex(ctx, ix, cfg, collector, limiter); err != nil {
			return Result{Err: err, Stats: collector.Snapshot()}
		}
		ix.Prune(refiner.Resolved)
	}

	var groups []Group
	if cfg.Unique {
		groups = uniqueGroups(uniques)
	} else {
		groups = duplicateGroups(ix, cfg.Events, collector)
	}

	return Result{
		Groups: groups,
		Stats:  collector.Snapshot(),
	}
}

// scanSizes runs the scanner and keys every discovered file by its
// size-level signature.
func scanSizes(ctx context.Context, cfg Config, collector *stats.Collector) (*Index, error) {
	event.Emit(cfg.Events, event.Event{Type: event.ScanStarted})

	scanner := NewScanner(ScannerConfig{
		Roots:          cfg.Roots,
		FollowSymlinks: cfg.FollowSymlinks,
		ExcludeEmpty:   cfg.ExcludeEmpty,
		Filter:         cfg.Filter,
		Stats:          collector,
		Events:         cfg.Events,
	})
	records, scanErrs := scanner.Scan(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range scanErrs {
			slog.Warn("skipping path", "error", err)
		}
	}()

	ix := NewIndex()
	var found, bytes int64
	for rec := range records {
		sig, err := ComputeSignature(rec, LevelSize)
		if err == nil {
			rec.Signature = sig
			err = ix.Insert(rec)
		}
		if err != nil {
			slog.Warn("dropping file", "path", rec.Path, "stage", LevelSize, "error", err)
			collector.AddFilesDropped(1)
			continue
		}
		found++
		bytes += rec.Size
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	event.Emit(cfg.Events, event.Event{Type: event.ScanComplete, Total: found, TotalSize: bytes})
	slog.Debug("scan complete", "files", found, "bytes", bytes, "sizes", ix.Len())
	return ix, nil
}

func verifyIndex(
	ctx context.Context,
	ix *Index,
	cfg Config,
	collector *stats.Collector,
	limiter *rate.Limiter,
) error {
	for _, b := range ix.Buckets() {
		mismatches, err := VerifyBucket(ctx, b, cfg.Workers, limiter)
		if err != nil {
			return err
		}
		for _, m := range mismatches {
			slog.Warn("dropping file that failed verification", "path", m.Record.Path, "error", m.Err)
			collector.AddFilesDropped(1)
			event.Emit(cfg.Events, event.Event{
				Type:  event.VerifyFailed,
				Path:  m.Record.Path,
				Size:  m.Record.Size,
				Error: m.Err,
			})
		}
	}
	return nil
}

// duplicateGroups converts the final index into groups ordered by the
// discovery order of each group's first member.
func duplicateGroups(ix *Index, events chan<- event.Event, collector *stats.Collector) []Group {
	buckets := ix.Buckets()
	slices.SortStableFunc(buckets, func(a, b *Bucket) int {
		return a.First().Seq - b.First().Seq
	})

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		g := Group{Size: b.First().Size}
		for _, rec := range b.Records() {
			g.Paths = append(g.Paths, rec.Path)
		}
		groups = append(groups, g)
		collector.AddGroup(g.Len(), g.Size)
		event.Emit(events, event.Event{
			Type:  event.GroupFound,
			Path:  g.Paths[0],
			Size:  g.Size,
			Total: int64(g.Len()),
		})
	}
	return groups
}

func uniqueGroups(recs []*FileRecord) []Group {
	slices.SortFunc(recs, func(a, b *FileRecord) int { return a.Seq - b.Seq })
	groups := make([]Group, 0, len(recs))
	for _, rec := range recs {
		groups = append(groups, Group{Paths: []string{rec.Path}, Size: rec.Size, Unique: true})
	}
	return groups
}
