package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyBucket_AllMatch(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("v"), 3*chunkSize+17)
	b := &Bucket{Key: "k", records: []*FileRecord{
		record(t, writeFile(t, filepath.Join(dir, "a"), data), 0),
		record(t, writeFile(t, filepath.Join(dir, "b"), data), 1),
		record(t, writeFile(t, filepath.Join(dir, "c"), data), 2),
	}}

	mismatches, err := VerifyBucket(context.Background(), b, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, 3, b.Len())
}

func TestVerifyBucket_RemovesMismatch(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("v"), 2*chunkSize)
	odd := bytes.Clone(data)
	odd[chunkSize+5] = 'w'

	b := &Bucket{Key: "k", records: []*FileRecord{
		record(t, writeFile(t, filepath.Join(dir, "a"), data), 0),
		record(t, writeFile(t, filepath.Join(dir, "b"), odd), 1),
		record(t, writeFile(t, filepath.Join(dir, "c"), data), 2),
	}}

	mismatches, err := VerifyBucket(context.Background(), b, 1, NewBWLimiter(1<<30))
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, filepath.Join(dir, "b"), mismatches[0].Record.Path)
	assert.ErrorIs(t, mismatches[0].Err, ErrContentMismatch)
	assert.Equal(t, []string{filepath.Join(dir, "a"), filepath.Join(dir, "c")}, paths(b))
}

func TestVerifyBucket_UnreadableMember(t *testing.T) {
	dir := t.TempDir()
	a := record(t, writeFile(t, filepath.Join(dir, "a"), []byte("same")), 0)
	gone := record(t, writeFile(t, filepath.Join(dir, "gone"), []byte("same")), 1)
	require.NoError(t, os.Remove(gone.Path))

	b := &Bucket{Key: "k", records: []*FileRecord{a, gone}}
	mismatches, err := VerifyBucket(context.Background(), b, 2, nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.ErrorIs(t, mismatches[0].Err, os.ErrNotExist)
	assert.Equal(t, 1, b.Len())
}

func TestVerifyBucket_SameInodeNotRead(t *testing.T) {
	// Two records for one inode are equal without reading; the path is
	// deliberately unreadable to prove no comparison happens.
	a := &FileRecord{Path: "/nonexistent/a", Size: 4, DevIno: DevIno{Dev: 1, Ino: 9}}
	l := &FileRecord{Path: "/nonexistent/l", Size: 4, DevIno: DevIno{Dev: 1, Ino: 9}, Kind: Symlink}
	b := &Bucket{Key: "k", records: []*FileRecord{a, l}}

	mismatches, err := VerifyBucket(context.Background(), b, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, 2, b.Len())
}

func TestVerifyBucket_Cancelled(t *testing.T) {
	dir := t.TempDir()
	b := &Bucket{Key: "k", records: []*FileRecord{
		record(t, writeFile(t, filepath.Join(dir, "a"), []byte("x")), 0),
		record(t, writeFile(t, filepath.Join(dir, "b"), []byte("x")), 1),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := VerifyBucket(ctx, b, 2, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
