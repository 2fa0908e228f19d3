package refrepair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupEnlistment(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "refs", "heads"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "logs", "refs", "heads"), 0o755))
	return root
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestIsValidRefContents(t *testing.T) {
	require.True(t, IsValidRefContents("ref: refs/heads/main\n"))
	require.True(t, IsValidRefContents("REF: refs/heads/main\n"))
	require.True(t, IsValidRefContents("deadbeef00000000000000000000000000000000"))
	require.False(t, IsValidRefContents("garbage"))
	require.False(t, IsValidRefContents(""))
	require.False(t, IsValidRefContents("DEADBEEF00000000000000000000000000000000")) // uppercase hex invalid
}

func TestHasIssueNoneWhenAllRefsValid(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	e := New(root)
	issue, _, err := e.HasIssue(HeadFamily{})
	require.NoError(t, err)
	require.Equal(t, NoIssue, issue)
}

func TestHasIssueBlockedByMerge(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "garbage")
	writeFile(t, filepath.Join(root, ".git", "MERGE_HEAD"), "deadbeef00000000000000000000000000000000\n")

	e := New(root)
	issue, messages, err := e.HasIssue(LocalBranchFamily{})
	require.NoError(t, err)
	require.Equal(t, CantFix, issue)
	require.Contains(t, messages, "Can't repair while a merge operation is in progress")
}

func TestHasIssueFixableAndTryFixFromReflog(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "garbage")
	reflogLine := "0000000000000000000000000000000000000000 deadbeef000000000000000000000000deadbeef committer@example.com 1700000000 +0000\tcommit\n"
	writeFile(t, filepath.Join(root, ".git", "logs", "refs", "heads", "main"), reflogLine)

	e := New(root)
	issue, _, err := e.HasIssue(LocalBranchFamily{})
	require.NoError(t, err)
	require.Equal(t, Fixable, issue)

	result, _, err := e.TryFix(LocalBranchFamily{})
	require.NoError(t, err)
	require.Equal(t, Success, result)

	data, err := os.ReadFile(filepath.Join(root, ".git", "refs", "heads", "main"))
	require.NoError(t, err)
	require.Equal(t, "deadbeef000000000000000000000000deadbeef\n", string(data))
}

func TestTryFixFailsWhenReflogMissing(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "garbage")
	// no reflog written

	e := New(root)
	result, messages, err := e.TryFix(LocalBranchFamily{})
	require.NoError(t, err)
	require.Equal(t, Failure, result)
	require.Contains(t, messages[len(messages)-1], "Failed to fix 1 references")
}

func TestTryFixIsIdempotent(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "garbage")
	reflogLine := "0000000000000000000000000000000000000000 deadbeef000000000000000000000000deadbeef committer@example.com 1700000000 +0000\tcommit\n"
	writeFile(t, filepath.Join(root, ".git", "logs", "refs", "heads", "main"), reflogLine)

	e := New(root)
	_, _, err := e.TryFix(LocalBranchFamily{})
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(root, ".git", "refs", "heads", "main"))
	require.NoError(t, err)

	result, _, err := e.TryFix(LocalBranchFamily{})
	require.NoError(t, err)
	require.Equal(t, Success, result)
	second, err := os.ReadFile(filepath.Join(root, ".git", "refs", "heads", "main"))
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestLocalBranchFamilyEnumeratesNested(t *testing.T) {
	root := setupEnlistment(t)
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "feature", "topic"), "deadbeef00000000000000000000000000000000\n")
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "deadbeef00000000000000000000000000000000\n")

	refs, err := LocalBranchFamily{}.EnumerateRefs(root)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"refs/heads/main", "refs/heads/feature/topic"}, refs)
}

func TestLocalBranchFamilyEmptyWhenNoHeadsDir(t *testing.T) {
	root := t.TempDir()
	refs, err := LocalBranchFamily{}.EnumerateRefs(root)
	require.NoError(t, err)
	require.Empty(t, refs)
}
