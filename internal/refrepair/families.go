package refrepair

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// HeadFamily yields the single symbolic ref "HEAD" (spec.md §4.4).
type HeadFamily struct{}

// EnumerateRefs implements RefFamily.
func (HeadFamily) EnumerateRefs(enlistmentRoot string) ([]string, error) {
	return []string{"HEAD"}, nil
}

// LocalBranchFamily recursively enumerates .git/refs/heads/** (spec.md
// §4.4), yielding each file's path as the full symbolic ref
// "refs/heads/<relative>".
type LocalBranchFamily struct{}

// EnumerateRefs implements RefFamily.
func (LocalBranchFamily) EnumerateRefs(enlistmentRoot string) ([]string, error) {
	headsDir := filepath.Join(enlistmentRoot, ".git", "refs", "heads")

	var refs []string
	err := filepath.Walk(headsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == headsDir {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(headsDir, path)
		if relErr != nil {
			return relErr
		}
		refs = append(refs, "refs/heads/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to walk refs/heads")
	}
	return refs, nil
}
