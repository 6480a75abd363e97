package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/scan-io-git/scanio-lint/internal/report"
)

// PullRequest identifies where comments go.
type PullRequest struct {
	Owner   string
	Repo    string
	Number  int
	HeadSHA string
}

// GitHubSink posts markdown as an issue comment and annotations as review comments.
type GitHubSink struct {
	client     *github.Client
	pr         PullRequest
	maxRetries uint64
	logger     hclog.Logger
}

// NewGitHubSink creates a sink authenticated with a static token. baseURL selects a
// GitHub Enterprise API endpoint.
func NewGitHubSink(token, baseURL string, pr PullRequest, logger hclog.Logger) (*GitHubSink, error) {
	if pr.Owner == "" || pr.Repo == "" || pr.Number == 0 {
		return nil, fmt.Errorf("owner, repo and pull request number must be provided")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = 30 * time.Second

	client := github.NewClient(tc)
	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		client, err = github.NewEnterpriseClient(baseURL, baseURL, tc)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub Enterprise client: %w", err)
		}
	}

	return &GitHubSink{client: client, pr: pr, maxRetries: DefaultMaxRetries, logger: logger}, nil
}

func (g *GitHubSink) Markdown(ctx context.Context, text string) error {
	return g.issueComment(ctx, text)
}

// Annotate places anchored annotations on the head commit. When GitHub refuses the
// position, usually because the line is outside the diff, the message is posted as
// a plain comment instead.
func (g *GitHubSink) Annotate(ctx context.Context, a report.Annotation) error {
	if !a.Anchored() {
		return g.issueComment(ctx, body(a))
	}

	if err := g.ensureHeadSHA(ctx); err != nil {
		return err
	}

	comment := &github.PullRequestComment{
		Body:     github.String(body(a)),
		CommitID: github.String(g.pr.HeadSHA),
		Path:     github.String(a.File),
		Line:     github.Int(a.Line),
		Side:     github.String("RIGHT"),
	}
	err := retry(ctx, g.maxRetries, func() error {
		_, resp, err := g.client.PullRequests.CreateComment(ctx, g.pr.Owner, g.pr.Repo, g.pr.Number, comment)
		return classify(statusOf(resp), err)
	})
	if err == nil {
		return nil
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == 422 {
		g.logger.Debug("review comment rejected, posting as issue comment", "path", a.File, "line", a.Line)
		return g.issueComment(ctx, detachedBody(a))
	}
	return fmt.Errorf("failed to create review comment on %s:%d: %w", a.File, a.Line, err)
}

func (g *GitHubSink) Flush(context.Context) error { return nil }

func (g *GitHubSink) issueComment(ctx context.Context, text string) error {
	comment := &github.IssueComment{Body: github.String(text)}
	err := retry(ctx, g.maxRetries, func() error {
		_, resp, err := g.client.Issues.CreateComment(ctx, g.pr.Owner, g.pr.Repo, g.pr.Number, comment)
		return classify(statusOf(resp), err)
	})
	if err != nil {
		return fmt.Errorf("failed to create comment on %s/%s#%d: %w", g.pr.Owner, g.pr.Repo, g.pr.Number, err)
	}
	return nil
}

func (g *GitHubSink) ensureHeadSHA(ctx context.Context) error {
	if g.pr.HeadSHA != "" {
		return nil
	}
	pr, _, err := g.client.PullRequests.Get(ctx, g.pr.Owner, g.pr.Repo, g.pr.Number)
	if err != nil {
		return fmt.Errorf("failed to get pull request details: %w", err)
	}
	if pr.GetHead().GetSHA() == "" {
		return fmt.Errorf("unable to determine head commit SHA for PR #%d", g.pr.Number)
	}
	g.pr.HeadSHA = pr.GetHead().GetSHA()
	return nil
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
