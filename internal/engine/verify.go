package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrContentMismatch is reported for a group member whose bytes differ from
// the group's first member despite an equal signature.
var ErrContentMismatch = errors.New("content differs from first file in group")

// Mismatch is a member removed from a group by VerifyBucket.
type Mismatch struct {
	Record *FileRecord
	Err    error
}

// VerifyBucket byte-compares every member of b against its first member
// and removes those that differ or cannot be read. Members sharing the
// first member's inode are identical by construction and are not read.
// Comparisons fan out to workers goroutines and share limiter, if any.
func VerifyBucket(ctx context.Context, b *Bucket, workers int, limiter *rate.Limiter) ([]Mismatch, error) {
	recs := b.Records()
	if len(recs) < 2 {
		return nil, nil
	}
	first := recs[0]
	wrap := throttle(ctx, limiter)
	errs := make([]error, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := 1; i < len(recs); i++ {
		if recs[i].DevIno == first.DevIno {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs[i] = compareFiles(first.Path, recs[i].Path, first.Size, wrap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	kept := make([]*FileRecord, 0, len(recs))
	for i, rec := range b.Take() {
		if errs[i] != nil {
			mismatches = append(mismatches, Mismatch{Record: rec, Err: errs[i]})
			continue
		}
		kept = append(kept, rec)
	}
	b.replace(kept)
	return mismatches, nil
}

// compareFiles reports nil when the first size bytes of a and b are equal.
func compareFiles(a, b string, size int64, wrap func(io.Reader) io.Reader) error {
	fa, err := openForRead(a)
	if err != nil {
		return fmt.Errorf("open %s: %w", a, err)
	}
	defer fa.Close()

	fb, err := openForRead(b)
	if err != nil {
		return fmt.Errorf("open %s: %w", b, err)
	}
	defer fb.Close()

	var ra, rb io.Reader = fa, fb
	if wrap != nil {
		ra, rb = wrap(fa), wrap(fb)
	}

	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for remaining := size; remaining > 0; {
		n := min(remaining, chunkSize)
		if _, err := io.ReadFull(ra, bufA[:n]); err != nil {
			return fmt.Errorf("read %s: %w", a, err)
		}
		if _, err := io.ReadFull(rb, bufB[:n]); err != nil {
			return fmt.Errorf("read %s: %w", b, err)
		}
		if !bytes.Equal(bufA[:n], bufB[:n]) {
			return fmt.Errorf("%s: %w", b, ErrContentMismatch)
		}
		remaining -= n
	}
	return nil
}
