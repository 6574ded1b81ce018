package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/finddupes/internal/event"
)

// writeFile creates path (and its parents) holding data.
func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// createDupTree populates root with a tree holding one duplicate pair per
// refinement level:
//
//	a.txt, sub/b.txt    "hello" (5 bytes, duplicates)
//	c.txt               "world" (5 bytes, same size as a/b)
//	big1.bin, big2.bin  8 KiB, identical
//	big3.bin            8 KiB, same first 4 KiB, differs after
//	head1.bin           8 KiB, differs from big1 in the first byte
//	lone.dat            unique size
func createDupTree(t *testing.T, root string) {
	t.Helper()

	writeFile(t, filepath.Join(root, "a.txt"), []byte("hello"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"), []byte("hello"))
	writeFile(t, filepath.Join(root, "c.txt"), []byte("world"))

	big := bytes.Repeat([]byte("0123456789abcdef"), 512)
	writeFile(t, filepath.Join(root, "big1.bin"), big)
	writeFile(t, filepath.Join(root, "big2.bin"), big)

	tail := bytes.Clone(big)
	tail[len(tail)-1] = 'X'
	writeFile(t, filepath.Join(root, "big3.bin"), tail)

	head := bytes.Clone(big)
	head[0] = 'X'
	writeFile(t, filepath.Join(root, "head1.bin"), head)

	writeFile(t, filepath.Join(root, "lone.dat"), []byte("nothing else is this long"))
}

// drainEvents creates a buffered event channel, spawns a goroutine to drain
// it, and registers cleanup. Returns the channel for use in Config.
func drainEvents(t *testing.T) chan<- event.Event {
	t.Helper()
	ch := make(chan event.Event, 1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		//nolint:revive // empty-block: intentionally draining event channel
		for range ch {
		}
	}()
	t.Cleanup(func() {
		close(ch)
		<-done
	})
	return ch
}

// scanAll runs a scanner to completion and returns what it emitted.
func scanAll(t *testing.T, cfg ScannerConfig) ([]*FileRecord, []error) {
	t.Helper()
	records, errs := NewScanner(cfg).Scan(context.Background())

	var recs []*FileRecord
	var errList []error
	done := make(chan struct{})
	go func() {
		for rec := range records {
			recs = append(recs, rec)
		}
		close(done)
	}()
	for err := range errs {
		errList = append(errList, err)
	}
	<-done
	return recs, errList
}

// record builds a record for an existing file, keyed at LevelSize.
func record(t *testing.T, path string, seq int) *FileRecord {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	id, ok := devInoFromInfo(info)
	require.True(t, ok)
	rec := &FileRecord{Path: path, Size: info.Size(), DevIno: id, Seq: seq}
	rec.Signature, err = ComputeSignature(rec, LevelSize)
	require.NoError(t, err)
	return rec
}

// indexOf keys recs into a fresh index.
func indexOf(t *testing.T, recs ...*FileRecord) *Index {
	t.Helper()
	ix := NewIndex()
	for _, rec := range recs {
		require.NoError(t, ix.Insert(rec))
	}
	return ix
}

// groupPaths returns each group's paths relative to root.
func groupPaths(t *testing.T, root string, groups []Group) [][]string {
	t.Helper()
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		var rels []string
		for _, p := range g.Paths {
			rel, err := filepath.Rel(root, p)
			require.NoError(t, err)
			rels = append(rels, filepath.ToSlash(rel))
		}
		out = append(out, rels)
	}
	return out
}

// bucketPaths returns the member paths of every bucket of ix, in order.
func bucketPaths(ix *Index) [][]string {
	var out [][]string
	for _, b := range ix.Buckets() {
		var ps []string
		for _, rec := range b.Records() {
			ps = append(ps, filepath.Base(rec.Path))
		}
		out = append(out, ps)
	}
	return out
}
