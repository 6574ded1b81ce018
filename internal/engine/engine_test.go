package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/finddupes/internal/event"
	"github.com/bamsammich/finddupes/internal/stats"
)

func TestRun_Recursive(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)

	collector := stats.NewCollector()
	result := Run(context.Background(), Config{
		Roots:   []Root{{Path: dir, Recurse: true}},
		Workers: 4,
		Stats:   collector,
		Events:  drainEvents(t),
	})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{
		{"a.txt", "sub/b.txt"},
		{"big1.bin", "big2.bin"},
	}, groupPaths(t, dir, result.Groups))

	assert.Equal(t, int64(5), result.Groups[0].Size)
	assert.Equal(t, int64(8192), result.Groups[1].Size)
	assert.Equal(t, int64(2), result.Stats.Groups)
	assert.Equal(t, int64(2), result.Stats.Duplicates)
	assert.Equal(t, int64(5+8192), result.Stats.WastedBytes)
	assert.Equal(t, int64(8), result.Stats.FilesScanned)
	// big1, big2 and big3 share their first 4 KiB; nothing else is read in full.
	assert.Equal(t, int64(3), result.Stats.FullHashes)
}

func TestRun_NotRecursive(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}, Workers: 1})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"big1.bin", "big2.bin"}}, groupPaths(t, dir, result.Groups))
}

func TestRun_DifferentLengthsNeverGroup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), []byte("abcd"))
	writeFile(t, filepath.Join(dir, "b"), []byte("abcd"))
	writeFile(t, filepath.Join(dir, "c"), []byte("abcde"))

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}, Workers: 2})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"a", "b"}}, groupPaths(t, dir, result.Groups))
}

func TestRun_Unique(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)

	result := Run(context.Background(), Config{
		Roots:   []Root{{Path: dir, Recurse: true}},
		Workers: 2,
		Unique:  true,
	})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{
		{"big3.bin"}, {"c.txt"}, {"head1.bin"}, {"lone.dat"},
	}, groupPaths(t, dir, result.Groups))
	for _, g := range result.Groups {
		assert.True(t, g.Unique)
	}
}

func TestRun_Hardlinks(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "A"), []byte("linked data"))
	require.NoError(t, os.Link(a, filepath.Join(dir, "B")))
	writeFile(t, filepath.Join(dir, "C"), []byte("linked data"))

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"A", "C"}}, groupPaths(t, dir, result.Groups))

	result = Run(context.Background(), Config{Roots: []Root{{Path: dir}}, ConsiderHardlinks: true})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, groupPaths(t, dir, result.Groups))
}

func TestRun_HardlinksOnlyAreUnique(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "A"), []byte("linked data"))
	require.NoError(t, os.Link(a, filepath.Join(dir, "B")))

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Groups)

	result = Run(context.Background(), Config{Roots: []Root{{Path: dir}}, Unique: true})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"A"}}, groupPaths(t, dir, result.Groups))
}

func TestRun_Symlinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("target"))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(dir, "s.lnk")))

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Groups)

	result = Run(context.Background(), Config{Roots: []Root{{Path: dir}}, FollowSymlinks: true})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"a.txt", "s.lnk"}}, groupPaths(t, dir, result.Groups))
}

func TestRun_SymlinkedDirectoryRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "a"), []byte("same"))
	writeFile(t, filepath.Join(dir, "real", "b"), []byte("same"))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("real", link))

	result := Run(context.Background(), Config{Roots: []Root{{Path: link}}})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Groups)

	result = Run(context.Background(), Config{Roots: []Root{{Path: link}}, FollowSymlinks: true})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"a", "b"}}, groupPaths(t, link, result.Groups))
}

func TestRun_DirectoryAliasWithHardlinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "f"), []byte("content"))
	require.NoError(t, os.Symlink("real", filepath.Join(dir, "alias")))
	roots := []Root{{Path: dir, Recurse: true}}

	result := Run(context.Background(), Config{Roots: roots, FollowSymlinks: true, ConsiderHardlinks: true})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"alias/f", "real/f"}}, groupPaths(t, dir, result.Groups))

	// Without -H both paths are one inode and collapse to a single file.
	result = Run(context.Background(), Config{Roots: roots, FollowSymlinks: true})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Groups)
}

func TestRun_EmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "e1"), nil)
	writeFile(t, filepath.Join(dir, "e2"), nil)

	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}})
	require.NoError(t, result.Err)
	assert.Equal(t, [][]string{{"e1", "e2"}}, groupPaths(t, dir, result.Groups))

	result = Run(context.Background(), Config{Roots: []Root{{Path: dir}}, ExcludeEmpty: true})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Groups)
}

func TestRun_Verify(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)

	result := Run(context.Background(), Config{
		Roots:   []Root{{Path: dir, Recurse: true}},
		Workers: 2,
		Verify:  true,
		BWLimit: 1 << 30,
	})
	require.NoError(t, result.Err)
	assert.Len(t, result.Groups, 2)
	assert.Zero(t, result.Stats.FilesDropped)
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)
	cfg := Config{Roots: []Root{{Path: dir, Recurse: true}}, Workers: 3}

	first := Run(context.Background(), cfg)
	second := Run(context.Background(), cfg)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Groups, second.Groups)
}

func TestRun_NoPaths(t *testing.T) {
	result := Run(context.Background(), Config{})
	assert.ErrorIs(t, result.Err, ErrNoPaths)
}

func TestRun_MissingRootIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), []byte("x"))
	writeFile(t, filepath.Join(dir, "b"), []byte("x"))

	result := Run(context.Background(), Config{Roots: []Root{
		{Path: filepath.Join(dir, "missing")},
		{Path: dir},
	}})
	require.NoError(t, result.Err)
	assert.Len(t, result.Groups, 1)
	assert.Equal(t, int64(1), result.Stats.FilesFailed)
}

func TestRun_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	createDupTree(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Run(ctx, Config{Roots: []Root{{Path: dir}}})
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestRun_EventSequence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), []byte("hello"))
	writeFile(t, filepath.Join(dir, "b"), []byte("hello"))

	events := make(chan event.Event, 64)
	result := Run(context.Background(), Config{Roots: []Root{{Path: dir}}, Events: events})
	require.NoError(t, result.Err)

	var types []event.Type
	for _, ev := range drained(events) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []event.Type{
		event.ScanStarted,
		event.FileFound,
		event.FileFound,
		event.ScanComplete,
		event.StageStarted,
		event.StageComplete,
		event.StageStarted,
		event.StageComplete,
		event.GroupFound,
	}, types)
}
