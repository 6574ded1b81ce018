package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bamsammich/finddupes/internal/event"
	"github.com/bamsammich/finddupes/internal/stats"
)

// Refiner moves records from coarse buckets into finer ones, one level at
// a time. Hashing within a stage fans out to Workers goroutines; every
// index write happens on the calling goroutine.
type Refiner struct {
	Stats  stats.Writer
	Events chan<- event.Event

	// Resolved receives records proven unique at some stage, i.e. the
	// sole member of a sub-bucket. May be nil.
	Resolved func(*FileRecord)

	// hash is ComputeSignature unless a test swaps it.
	hash    func(*FileRecord, Level) (Signature, error)
	Workers int
}

// NewRefiner creates a Refiner hashing on the given number of workers.
func NewRefiner(workers int, collector stats.Writer, events chan<- event.Event) *Refiner {
	return &Refiner{
		Workers: workers,
		Stats:   collector,
		Events:  events,
		hash:    ComputeSignature,
	}
}

// Throttle routes every later content read through limiter.
func (r *Refiner) Throttle(ctx context.Context, limiter *rate.Limiter) {
	wrap := throttle(ctx, limiter)
	r.hash = func(rec *FileRecord, level Level) (Signature, error) {
		return computeSignature(rec, level, wrap)
	}
}

// Refine runs one stage over every multi-member bucket of ix and returns
// the index for the next stage; ix is consumed. Singleton sub-buckets are
// resolved, sub-buckets of two or more are merged into the result, and a
// refined key that collides with a bucket already in the result is dropped.
func (r *Refiner) Refine(ctx context.Context, ix *Index, level Level) (*Index, error) {
	next := NewIndex()

	var work []*Bucket
	candidates := 0
	for _, b := range ix.Buckets() {
		if b.Len() < 2 {
			r.resolve(b.Take())
			continue
		}
		if r.resident(b, level) {
			next.Adopt(b)
			continue
		}
		work = append(work, b)
		candidates += b.Len()
	}

	event.Emit(r.Events, event.Event{
		Type:  event.StageStarted,
		Stage: level.String(),
		Total: int64(candidates),
	})
	slog.Debug("refine stage", "stage", level, "buckets", len(work), "files", candidates)

	// Hash every candidate of the stage in one pool so that many small
	// buckets still keep all workers busy.
	var members []*FileRecord
	for _, b := range work {
		members = append(members, b.Records()...)
	}
	sigs, errs, err := r.hashAll(ctx, members, level)
	if err != nil {
		return nil, err
	}

	var staged []*Bucket
	offset := 0
	for _, b := range work {
		n := b.Len()
		staged = append(staged, r.partition(b, level, sigs[offset:offset+n], errs[offset:offset+n])...)
		offset += n
	}
	r.Merge(next, staged)

	next.Prune(r.Resolved)
	event.Emit(r.Events, event.Event{
		Type:  event.StageComplete,
		Stage: level.String(),
		Total: int64(next.Records()),
	})
	return next, nil
}

// Split recomputes the signature of every member of b at level and
// partitions b by the new signature. Only sub-buckets with two or more
// members are returned; b is left empty.
func (r *Refiner) Split(ctx context.Context, b *Bucket, level Level) ([]*Bucket, error) {
	if b.Len() < 2 {
		r.resolve(b.Take())
		return nil, nil
	}
	sigs, errs, err := r.hashAll(ctx, b.Records(), level)
	if err != nil {
		return nil, err
	}
	return r.partition(b, level, sigs, errs), nil
}

// Merge moves refined buckets into dst. A refined key that already exists
// in dst belongs to an unrelated bucket; merging would join files that
// were never compared, so the refined bucket is dropped instead. It
// returns the number of collisions.
func (r *Refiner) Merge(dst *Index, refined []*Bucket) int {
	collisions := 0
	for _, b := range refined {
		if dst.Adopt(b) {
			continue
		}
		dropped := b.Take()
		if len(dropped) == 0 {
			continue
		}
		collisions++
		slog.Error("signature collision between unrelated buckets; dropping refined bucket",
			"signature", b.Key, "files", len(dropped), "first", dropped[0].Path)
		if r.Stats != nil {
			r.Stats.AddCollisions(1)
			r.Stats.AddFilesDropped(int64(len(dropped)))
		}
		for _, rec := range dropped {
			event.Emit(r.Events, event.Event{
				Type:  event.FileDropped,
				Path:  rec.Path,
				Size:  rec.Size,
				Error: ErrCollision,
			})
		}
	}
	return collisions
}

// resident reports whether b can skip the stage. Members of a bucket share
// a size, and a partial signature of a file no larger than PartialSize
// already covers the whole content, so reading it again cannot split it.
func (*Refiner) resident(b *Bucket, level Level) bool {
	first := b.First()
	return level == LevelFull && first != nil && first.Size <= PartialSize
}

// partition empties b into sub-buckets keyed by sigs, in member order.
// Records whose hash failed are dropped.
func (r *Refiner) partition(b *Bucket, level Level, sigs []Signature, errs []error) []*Bucket {
	sub := NewIndex()
	for i, rec := range b.Take() {
		if errs[i] != nil {
			r.drop(rec, level, errs[i])
			continue
		}
		rec.Signature = sigs[i]
		if err := sub.Insert(rec); err != nil {
			r.drop(rec, level, err)
		}
	}

	var out []*Bucket
	for _, nb := range sub.Buckets() {
		if nb.Len() < 2 {
			r.resolve(nb.Take())
			continue
		}
		out = append(out, nb)
	}
	return out
}

// hashAll computes the level signature for every record. Per-record
// failures are reported in errs; err is set only if ctx was cancelled.
func (r *Refiner) hashAll(
	ctx context.Context,
	recs []*FileRecord,
	level Level,
) (sigs []Signature, errs []error, err error) {
	sigs = make([]Signature, len(recs))
	errs = make([]error, len(recs))

	hash := r.hash
	if hash == nil {
		hash = ComputeSignature
	}

	one := func(i int) {
		sigs[i], errs[i] = hash(recs[i], level)
		if errs[i] == nil {
			r.countHash(recs[i], level)
		}
	}

	if r.Workers <= 1 {
		for i := range recs {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			one(i)
		}
		return sigs, errs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			one(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return sigs, errs, nil
}

func (r *Refiner) countHash(rec *FileRecord, level Level) {
	if r.Stats == nil {
		return
	}
	switch level {
	case LevelPartial:
		r.Stats.AddPartialHashes(1)
		r.Stats.AddBytesHashed(min(rec.Size, PartialSize))
	case LevelFull:
		r.Stats.AddFullHashes(1)
		r.Stats.AddBytesHashed(rec.Size)
	}
}

func (r *Refiner) drop(rec *FileRecord, level Level, err error) {
	slog.Warn("dropping file", "path", rec.Path, "stage", level, "error", err)
	if r.Stats != nil {
		r.Stats.AddFilesDropped(1)
	}
	event.Emit(r.Events, event.Event{
		Type:  event.FileDropped,
		Path:  rec.Path,
		Size:  rec.Size,
		Stage: level.String(),
		Error: err,
	})
}

func (r *Refiner) resolve(recs []*FileRecord) {
	if r.Resolved == nil {
		return
	}
	for _, rec := range recs {
		r.Resolved(rec)
	}
}
