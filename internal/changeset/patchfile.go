package changeset

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// PatchFileProvider reads the change from a multi-file unified diff, such as the
// output of `git diff base...head` saved by a CI job.
type PatchFileProvider struct {
	root     string
	patches  map[string]*diff.FileDiff
	added    []string
	modified []string
	deleted  []string
}

// NewPatchFileProvider parses the diff at path. File names in the diff are resolved
// against root.
func NewPatchFileProvider(path, root string) (*PatchFileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch file %q: %w", path, err)
	}
	return ParsePatch(data, root)
}

// ParsePatch builds a provider from unified diff text.
func ParsePatch(data []byte, root string) (*PatchFileProvider, error) {
	parsed, err := diff.ParseMultiFileDiff(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	p := &PatchFileProvider{root: root, patches: make(map[string]*diff.FileDiff)}
	for _, fd := range parsed {
		if fd == nil {
			continue
		}
		switch {
		case fd.OrigName == devNull:
			path := resolve(root, stripPrefix(fd.NewName))
			p.added = append(p.added, path)
			p.patches[path] = fd
		case fd.NewName == devNull:
			p.deleted = append(p.deleted, resolve(root, stripPrefix(fd.OrigName)))
		default:
			path := resolve(root, stripPrefix(fd.NewName))
			p.modified = append(p.modified, path)
			p.patches[path] = fd
		}
	}
	return p, nil
}

func (p *PatchFileProvider) ModifiedFiles(context.Context) ([]string, error) { return p.modified, nil }
func (p *PatchFileProvider) AddedFiles(context.Context) ([]string, error)    { return p.added, nil }
func (p *PatchFileProvider) DeletedFiles(context.Context) ([]string, error)  { return p.deleted, nil }

// DiffForFile re-renders the file's section of the diff.
func (p *PatchFileProvider) DiffForFile(_ context.Context, path string) (FileDiff, error) {
	abs := resolve(p.root, path)
	fd, ok := p.patches[abs]
	if !ok {
		return FileDiff{Path: abs}, nil
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return FileDiff{}, fmt.Errorf("failed to render diff for %q: %w", abs, err)
	}
	return FileDiff{Path: abs, Patch: string(out)}, nil
}

// stripPrefix drops the a/ or b/ prefix git puts on file names.
func stripPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}
