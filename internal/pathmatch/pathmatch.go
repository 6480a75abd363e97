// Package pathmatch answers directory-tree membership questions for configured paths.
package pathmatch

import (
	"io/fs"
	"path/filepath"

	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// Matcher tests candidates against the file trees of configured paths. Each tree is
// enumerated once and reused, so a Matcher should live for a single run.
type Matcher struct {
	trees map[string]map[string]struct{}
}

// NewMatcher returns an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{trees: make(map[string]map[string]struct{})}
}

// MatchesAny reports whether candidate is one of paths or lies in the tree of any of them.
func (m *Matcher) MatchesAny(candidate string, paths []string) bool {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	for _, p := range paths {
		if _, ok := m.tree(p)[abs]; ok {
			return true
		}
	}
	return false
}

// tree returns every entry beneath root, root included. A root that is a file is a
// tree of one, a root that does not exist is an empty tree.
func (m *Matcher) tree(root string) map[string]struct{} {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	if t, ok := m.trees[abs]; ok {
		return t
	}

	t := make(map[string]struct{})
	_ = filepath.WalkDir(abs, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees contribute nothing
			return nil
		}
		t[path] = struct{}{}
		return nil
	})
	m.trees[abs] = t
	return t
}

// MatchesAny is a one-shot form of Matcher.MatchesAny.
func MatchesAny(candidate string, paths []string) bool {
	return NewMatcher().MatchesAny(candidate, paths)
}

// IsUnder reports whether candidate is root or a descendant of it, compared by path
// components rather than string prefix.
func IsUnder(candidate, root string) bool {
	return files.IsWithinRoot(root, candidate)
}
