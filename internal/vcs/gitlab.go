package vcs

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/xanzy/go-gitlab"

	"github.com/scan-io-git/scanio-lint/internal/report"
)

// MergeRequest identifies where GitLab notes go. Project is an ID or a
// "group/project" path.
type MergeRequest struct {
	Project string
	IID     int
}

// GitLabSink posts markdown as a merge request note and annotations as diff
// discussions.
type GitLabSink struct {
	client     *gitlab.Client
	mr         MergeRequest
	diffRefs   *diffRefs
	maxRetries uint64
	logger     hclog.Logger
}

// NewGitLabSink creates a sink. baseURL defaults to gitlab.com.
func NewGitLabSink(token, baseURL string, mr MergeRequest, logger hclog.Logger) (*GitLabSink, error) {
	if mr.Project == "" || mr.IID == 0 {
		return nil, fmt.Errorf("project and merge request IID must be provided")
	}

	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &GitLabSink{client: client, mr: mr, maxRetries: DefaultMaxRetries, logger: logger}, nil
}

func (g *GitLabSink) Markdown(ctx context.Context, text string) error {
	return g.note(ctx, text)
}

// Annotate opens a discussion on the annotated line of the merge request diff. A
// position GitLab refuses falls back to a plain note.
func (g *GitLabSink) Annotate(ctx context.Context, a report.Annotation) error {
	if !a.Anchored() {
		return g.note(ctx, body(a))
	}

	refs, err := g.loadDiffRefs(ctx)
	if err != nil {
		return err
	}

	opts := &gitlab.CreateMergeRequestDiscussionOptions{
		Body: gitlab.Ptr(body(a)),
		Position: &gitlab.PositionOptions{
			BaseSHA:      gitlab.Ptr(refs.BaseSha),
			StartSHA:     gitlab.Ptr(refs.StartSha),
			HeadSHA:      gitlab.Ptr(refs.HeadSha),
			PositionType: gitlab.Ptr("text"),
			NewPath:      gitlab.Ptr(a.File),
			OldPath:      gitlab.Ptr(a.File),
			NewLine:      gitlab.Ptr(a.Line),
		},
	}
	err = retry(ctx, g.maxRetries, func() error {
		_, resp, err := g.client.Discussions.CreateMergeRequestDiscussion(g.mr.Project, g.mr.IID, opts, gitlab.WithContext(ctx))
		return classify(gitlabStatus(resp), err)
	})
	if err == nil {
		return nil
	}

	g.logger.Debug("diff discussion rejected, posting as note", "path", a.File, "line", a.Line, "error", err)
	return g.note(ctx, detachedBody(a))
}

func (g *GitLabSink) Flush(context.Context) error { return nil }

func (g *GitLabSink) note(ctx context.Context, text string) error {
	opts := &gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(text)}
	err := retry(ctx, g.maxRetries, func() error {
		_, resp, err := g.client.Notes.CreateMergeRequestNote(g.mr.Project, g.mr.IID, opts, gitlab.WithContext(ctx))
		return classify(gitlabStatus(resp), err)
	})
	if err != nil {
		return fmt.Errorf("failed to create note on %s!%d: %w", g.mr.Project, g.mr.IID, err)
	}
	return nil
}

// diffRefs are the commits a diff position is expressed against.
type diffRefs struct {
	BaseSha  string
	StartSha string
	HeadSha  string
}

func (g *GitLabSink) loadDiffRefs(ctx context.Context) (*diffRefs, error) {
	if g.diffRefs != nil {
		return g.diffRefs, nil
	}
	mr, _, err := g.client.MergeRequests.GetMergeRequest(g.mr.Project, g.mr.IID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get merge request %s!%d: %w", g.mr.Project, g.mr.IID, err)
	}
	g.diffRefs = &diffRefs{
		BaseSha:  mr.DiffRefs.BaseSha,
		StartSha: mr.DiffRefs.StartSha,
		HeadSha:  mr.DiffRefs.HeadSha,
	}
	return g.diffRefs, nil
}

func gitlabStatus(resp *gitlab.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
