// Package changeset supplies the files touched by a pending change and their patches.
package changeset

import (
	"context"
	"path/filepath"

	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// FileDiff is the unified-diff text of one file in the change.
type FileDiff struct {
	Path  string
	Patch string
}

// Provider describes a pending change. Paths are absolute.
type Provider interface {
	ModifiedFiles(ctx context.Context) ([]string, error)
	AddedFiles(ctx context.Context) ([]string, error)
	DeletedFiles(ctx context.Context) ([]string, error)
	// DiffForFile returns the patch for path, or an empty patch when the file is not
	// part of the change.
	DiffForFile(ctx context.Context, path string) (FileDiff, error)
}

// Candidates returns the modified files that were not deleted followed by the added
// files. Some providers list deleted files as modified too.
func Candidates(ctx context.Context, p Provider) ([]string, error) {
	modified, err := p.ModifiedFiles(ctx)
	if err != nil {
		return nil, err
	}
	added, err := p.AddedFiles(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := p.DeletedFiles(ctx)
	if err != nil {
		return nil, err
	}

	gone := make(map[string]struct{}, len(deleted))
	for _, d := range deleted {
		gone[d] = struct{}{}
	}

	out := make([]string, 0, len(modified)+len(added))
	for _, m := range modified {
		if _, ok := gone[m]; !ok {
			out = append(out, m)
		}
	}
	return append(out, added...), nil
}

// StaticProvider is an in-memory Provider. Patches is keyed by the same paths the
// file lists use.
type StaticProvider struct {
	Modified []string
	Added    []string
	Deleted  []string
	Patches  map[string]string
}

func (s *StaticProvider) ModifiedFiles(context.Context) ([]string, error) { return s.Modified, nil }
func (s *StaticProvider) AddedFiles(context.Context) ([]string, error)    { return s.Added, nil }
func (s *StaticProvider) DeletedFiles(context.Context) ([]string, error)  { return s.Deleted, nil }

func (s *StaticProvider) DiffForFile(_ context.Context, path string) (FileDiff, error) {
	return FileDiff{Path: path, Patch: s.Patches[path]}, nil
}

// resolve turns repository-relative names into absolute paths under root.
func resolve(root, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	abs, err := files.AbsPath(filepath.FromSlash(name), root)
	if err != nil {
		return filepath.Join(root, filepath.FromSlash(name))
	}
	return abs
}
