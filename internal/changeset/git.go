package changeset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/hashicorp/go-hclog"
)

const (
	originRemote = "origin"
	tmpRefPrefix = "refs/scanio-lint/tmp/"
)

// GitOptions configures how a GitProvider reaches missing commits.
type GitOptions struct {
	Username string
	Token    string
	Timeout  time.Duration
}

// GitProvider computes the change between two revisions of a local repository.
type GitProvider struct {
	repo    *git.Repository
	root    string
	base    string
	head    string
	auth    transport.AuthMethod
	timeout time.Duration
	logger  hclog.Logger

	loaded   bool
	added    []string
	modified []string
	deleted  []string
	changes  map[string]*object.Change
}

// NewGitProvider opens the repository containing path. head defaults to HEAD.
func NewGitProvider(path, base, head string, opts GitOptions, logger hclog.Logger) (*GitProvider, error) {
	if base == "" {
		return nil, fmt.Errorf("base revision is required to compute the change set")
	}
	if head == "" {
		head = "HEAD"
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree of %q: %w", path, err)
	}

	p := &GitProvider{
		repo:    repo,
		root:    wt.Filesystem.Root(),
		base:    base,
		head:    head,
		timeout: opts.Timeout,
		logger:  logger,
	}
	if opts.Token != "" {
		username := opts.Username
		if username == "" {
			username = "git"
		}
		p.auth = &http.BasicAuth{Username: username, Password: opts.Token}
	}
	if p.timeout == 0 {
		p.timeout = 2 * time.Minute
	}
	return p, nil
}

// Root is the worktree root that change paths are resolved against.
func (p *GitProvider) Root() string {
	return p.root
}

func (p *GitProvider) ModifiedFiles(ctx context.Context) ([]string, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return p.modified, nil
}

func (p *GitProvider) AddedFiles(ctx context.Context) ([]string, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return p.added, nil
}

func (p *GitProvider) DeletedFiles(ctx context.Context) ([]string, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return p.deleted, nil
}

func (p *GitProvider) DiffForFile(ctx context.Context, path string) (FileDiff, error) {
	if err := p.load(ctx); err != nil {
		return FileDiff{}, err
	}

	abs := resolve(p.root, path)
	change, ok := p.changes[abs]
	if !ok {
		return FileDiff{Path: abs}, nil
	}
	patch, err := change.PatchContext(ctx)
	if err != nil {
		return FileDiff{}, fmt.Errorf("failed to compute patch for %q: %w", abs, err)
	}
	return FileDiff{Path: abs, Patch: patch.String()}, nil
}

func (p *GitProvider) load(ctx context.Context) error {
	if p.loaded {
		return nil
	}

	baseTree, err := p.tree(ctx, p.base)
	if err != nil {
		return fmt.Errorf("failed to resolve base %q: %w", p.base, err)
	}
	headTree, err := p.tree(ctx, p.head)
	if err != nil {
		return fmt.Errorf("failed to resolve head %q: %w", p.head, err)
	}

	changes, err := baseTree.DiffContext(ctx, headTree)
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}

	p.changes = make(map[string]*object.Change, len(changes))
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return fmt.Errorf("failed to classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			path := resolve(p.root, change.To.Name)
			p.added = append(p.added, path)
			p.changes[path] = change
		case merkletrie.Delete:
			p.deleted = append(p.deleted, resolve(p.root, change.From.Name))
		case merkletrie.Modify:
			path := resolve(p.root, change.To.Name)
			p.modified = append(p.modified, path)
			p.changes[path] = change
		}
	}

	p.logger.Debug("change set loaded", "base", p.base, "head", p.head,
		"added", len(p.added), "modified", len(p.modified), "deleted", len(p.deleted))
	p.loaded = true
	return nil
}

func (p *GitProvider) tree(ctx context.Context, rev string) (*object.Tree, error) {
	hash, err := p.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if !plumbing.IsHash(rev) {
			return nil, err
		}
		h := plumbing.NewHash(rev)
		if err := p.fetchCommit(ctx, h); err != nil {
			return nil, err
		}
		hash = &h
	}

	commit, err := p.repo.CommitObject(*hash)
	if err != nil {
		if err := p.fetchCommit(ctx, *hash); err != nil {
			return nil, err
		}
		if commit, err = p.repo.CommitObject(*hash); err != nil {
			return nil, err
		}
	}
	return commit.Tree()
}

// fetchCommit pulls a single commit into the local store. Shallow CI clones often
// lack the merge base.
func (p *GitProvider) fetchCommit(ctx context.Context, hash plumbing.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	remoteName := originRemote
	if _, err := p.repo.Remote(remoteName); err != nil {
		remotes, rErr := p.repo.Remotes()
		if rErr != nil || len(remotes) == 0 {
			return fmt.Errorf("no remotes available to fetch commit %s", hash.String())
		}
		remoteName = remotes[0].Config().Name
	}

	tmpRef := plumbing.ReferenceName(tmpRefPrefix + hash.String())
	refspec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", hash.String(), tmpRef.String()))
	defer func() {
		_ = p.repo.Storer.RemoveReference(tmpRef)
	}()

	p.logger.Debug("fetching commit", "remote", remoteName, "hash", hash.String())
	err := p.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		Auth:       p.auth,
		Depth:      1,
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		p.logger.Warn("fetch commit failed", "hash", hash.String(), "error", err)
		return err
	}
	return nil
}

// OriginURL returns the first URL of the origin remote, or "" when there is none.
func OriginURL(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	remote, err := repo.Remote(originRemote)
	if err != nil || len(remote.Config().URLs) == 0 {
		return ""
	}
	return remote.Config().URLs[0]
}
