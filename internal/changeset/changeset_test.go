package changeset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesDropsDeleted(t *testing.T) {
	p := &StaticProvider{
		Modified: []string{"/r/A.swift", "/r/Gone.swift", "/r/B.swift"},
		Added:    []string{"/r/New.swift"},
		Deleted:  []string{"/r/Gone.swift"},
	}

	got, err := Candidates(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/A.swift", "/r/B.swift", "/r/New.swift"}, got)
}

const multiFileDiff = `diff --git a/App/A.swift b/App/A.swift
index 1111111..2222222 100644
--- a/App/A.swift
+++ b/App/A.swift
@@ -1,3 +1,4 @@
 import UIKit
+let x = y as! Int
 class A {}
 // end
diff --git a/App/New.swift b/App/New.swift
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/App/New.swift
@@ -0,0 +1,2 @@
+let a = 1
+let b = 2
diff --git a/App/Old.swift b/App/Old.swift
deleted file mode 100644
index 4444444..0000000
--- a/App/Old.swift
+++ /dev/null
@@ -1,1 +0,0 @@
-let gone = true
`

func TestParsePatch(t *testing.T) {
	root := "/work/repo"
	p, err := ParsePatch([]byte(multiFileDiff), root)
	require.NoError(t, err)

	ctx := context.Background()
	modified, _ := p.ModifiedFiles(ctx)
	added, _ := p.AddedFiles(ctx)
	deleted, _ := p.DeletedFiles(ctx)

	assert.Equal(t, []string{filepath.Join(root, "App", "A.swift")}, modified)
	assert.Equal(t, []string{filepath.Join(root, "App", "New.swift")}, added)
	assert.Equal(t, []string{filepath.Join(root, "App", "Old.swift")}, deleted)

	fd, err := p.DiffForFile(ctx, filepath.Join(root, "App", "A.swift"))
	require.NoError(t, err)
	assert.Contains(t, fd.Patch, "@@ -1,3 +1,4 @@")
	assert.Contains(t, fd.Patch, "+let x = y as! Int")

	fd, err = p.DiffForFile(ctx, "App/Unknown.swift")
	require.NoError(t, err)
	assert.Empty(t, fd.Patch)
}

func commitAll(t *testing.T, repo *git.Repository, msg string) string {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		All:    true,
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGitProvider(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	write(t, filepath.Join(root, "A.swift"), "import UIKit\nclass A {}\n")
	write(t, filepath.Join(root, "B.swift"), "let b = 1\n")
	base := commitAll(t, repo, "base")

	write(t, filepath.Join(root, "A.swift"), "import UIKit\nlet x = y as! Int\nclass A {}\n")
	require.NoError(t, os.Remove(filepath.Join(root, "B.swift")))
	write(t, filepath.Join(root, "C.swift"), "let c = 1\n")
	head := commitAll(t, repo, "head")

	p, err := NewGitProvider(root, base, head, GitOptions{}, hclog.NewNullLogger())
	require.NoError(t, err)

	ctx := context.Background()
	wtRoot := p.Root()

	modified, err := p.ModifiedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wtRoot, "A.swift")}, modified)

	added, err := p.AddedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wtRoot, "C.swift")}, added)

	deleted, err := p.DeletedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wtRoot, "B.swift")}, deleted)

	fd, err := p.DiffForFile(ctx, filepath.Join(wtRoot, "A.swift"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(fd.Patch, "+let x = y as! Int"), fd.Patch)
}

func TestGitProviderRequiresBase(t *testing.T) {
	_, err := NewGitProvider(t.TempDir(), "", "", GitOptions{}, hclog.NewNullLogger())
	assert.Error(t, err)
}
