package placeholder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "placeholder.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	sha := "0000000000000000000000000000000000000000"
	require.NoError(t, c.AddFile(ctx, "a/b.txt", sha))
	require.NoError(t, c.AddPartialFolder(ctx, "a"))
	require.NoError(t, c.AddExpandedFolder(ctx, "a"))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	paths, err := c.GetAllFilePaths(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"a/b.txt": {}}, paths)

	files, folders, err := c.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, folders, 1)
	require.Equal(t, "a", folders[0].Path)
	require.Equal(t, ExpandedFolder, folders[0].PathType)
	require.Nil(t, folders[0].SHA)
}

func TestCatalogReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	shaA := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	shaB := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	require.NoError(t, c.AddFile(ctx, "p", shaA))
	require.NoError(t, c.AddFile(ctx, "p", shaB))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	files, _, err := c.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NotNil(t, files[0].SHA)
	require.Equal(t, shaB, *files[0].SHA)
}

func TestCatalogFolderSHAAlwaysNull(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	// Even if a folder entry is constructed with a non-nil SHA, Add must
	// store it as null (spec.md §4.2).
	sha := "cccccccccccccccccccccccccccccccccccccccc"
	require.NoError(t, c.Add(ctx, Entry{Path: "dir", PathType: PartialFolder, SHA: &sha}))

	_, folders, err := c.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	require.Nil(t, folders[0].SHA)
}

func TestCatalogRemoveIsSilentWhenAbsent(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)
	require.NoError(t, c.Remove(ctx, "never/existed"))
}

func TestCatalogRemove(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	require.NoError(t, c.AddFile(ctx, "x", "1111111111111111111111111111111111111111"))
	count, err := c.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.NoError(t, c.Remove(ctx, "x"))
	count, err = c.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestCatalogStats(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	require.NoError(t, c.AddFile(ctx, "a", "2222222222222222222222222222222222222222"))
	require.NoError(t, c.AddFile(ctx, "b", "3333333333333333333333333333333333333333"))
	require.NoError(t, c.AddPartialFolder(ctx, "p1"))
	require.NoError(t, c.AddExpandedFolder(ctx, "p2"))
	require.NoError(t, c.AddPossibleTombstoneFolder(ctx, "p3"))

	stats, err := c.ComputeStats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{
		FileCount:              2,
		PartialFolderCount:     1,
		ExpandedFolderCount:    1,
		PossibleTombstoneCount: 1,
	}, stats)
}

func TestPathEqual(t *testing.T) {
	if isCaseInsensitiveHost() {
		require.True(t, PathEqual("A/B", "a/b"))
	} else {
		require.False(t, PathEqual("A/B", "a/b"))
	}
	require.True(t, PathEqual("same/path", "same/path"))
}
