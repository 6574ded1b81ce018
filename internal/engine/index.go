package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord is returned when a record cannot be keyed into an index.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrCollision marks records dropped because their refined signature
	// matched a bucket they were never compared against.
	ErrCollision = errors.New("signature collision")
)

// Bucket is an ordered set of records sharing one signature. Member order
// is insertion order, which decides the "first" file of a group.
type Bucket struct {
	Key     Signature
	records []*FileRecord
}

// Len returns the number of members.
func (b *Bucket) Len() int { return len(b.records) }

// Records returns the members in insertion order. The slice is owned by
// the bucket and must not be modified.
func (b *Bucket) Records() []*FileRecord { return b.records }

// First returns the first member, or nil for an empty bucket.
func (b *Bucket) First() *FileRecord {
	if len(b.records) == 0 {
		return nil
	}
	return b.records[0]
}

// Take moves every member out of the bucket. The bucket is left empty and
// keeps no reference to the returned records.
func (b *Bucket) Take() []*FileRecord {
	recs := b.records
	b.records = nil
	return recs
}

func (b *Bucket) replace(recs []*FileRecord) {
	b.records = recs
}

// Index maps signatures to buckets. Iteration follows the order in which
// keys were first inserted, never Go map order.
type Index struct {
	buckets map[Signature]*Bucket
	order   []Signature
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{buckets: make(map[Signature]*Bucket)}
}

// Insert appends rec to the bucket keyed by rec.Signature, creating a
// singleton bucket when the key is new.
func (ix *Index) Insert(rec *FileRecord) error {
	if rec == nil || rec.Signature == "" || rec.Size < 0 {
		return ErrInvalidRecord
	}
	b, ok := ix.buckets[rec.Signature]
	if !ok {
		b = &Bucket{Key: rec.Signature}
		ix.buckets[rec.Signature] = b
		ix.order = append(ix.order, rec.Signature)
	}
	b.records = append(b.records, rec)
	return nil
}

// Adopt moves a whole bucket into the index. It reports false, leaving
// both the index and b untouched, when the key is already present.
func (ix *Index) Adopt(b *Bucket) bool {
	if _, exists := ix.buckets[b.Key]; exists {
		return false
	}
	ix.buckets[b.Key] = b
	ix.order = append(ix.order, b.Key)
	return true
}

// Get returns the bucket for sig.
func (ix *Index) Get(sig Signature) (*Bucket, bool) {
	b, ok := ix.buckets[sig]
	return b, ok
}

// Len returns the number of buckets.
func (ix *Index) Len() int { return len(ix.buckets) }

// Buckets returns the buckets in key insertion order.
func (ix *Index) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(ix.order))
	for _, key := range ix.order {
		out = append(out, ix.buckets[key])
	}
	return out
}

// Prune removes every bucket with fewer than two members. Members of
// removed singleton buckets are handed to resolved (which may be nil).
// It returns the number of buckets removed.
func (ix *Index) Prune(resolved func(*FileRecord)) int {
	removed := 0
	kept := ix.order[:0]
	for _, key := range ix.order {
		b := ix.buckets[key]
		if b.Len() >= 2 {
			kept = append(kept, key)
			continue
		}
		if resolved != nil {
			for _, rec := range b.Take() {
				resolved(rec)
			}
		}
		delete(ix.buckets, key)
		removed++
	}
	clear(ix.order[len(kept):])
	ix.order = kept
	return removed
}

// Records returns the number of records across all buckets.
func (ix *Index) Records() int {
	n := 0
	for _, b := range ix.buckets {
		n += b.Len()
	}
	return n
}

func (ix *Index) String() string {
	return fmt.Sprintf("index(buckets=%d records=%d)", ix.Len(), ix.Records())
}
