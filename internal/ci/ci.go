// Package ci provides helpers for discovering CI metadata.
package ci

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	// CIGitHub identifies GitHub Actions.
	CIGitHub
	// CIGitLab identifies GitLab CI.
	CIGitLab
	// CIBitbucket identifies Bitbucket Pipelines.
	CIBitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// CIEnvironment captures canonical CI metadata derived from environment variables.
type CIEnvironment struct {
	Kind         CIKind // Kind identifies the CI provider.
	CI           bool   // CI reports whether the execution runs inside a CI environment.
	CommitHash   string // CommitHash is the commit the job runs against.
	ServerURL    string // ServerURL is the scheme and host of the VCS server.
	APIURL       string // APIURL is the REST endpoint of the VCS server, when exposed.
	Reference    string // Reference is the fully qualified git reference.
	Namespace    string // Namespace is the owner, group or workspace.
	Repository   string // Repository is the repository slug without namespace.
	FullName     string // FullName is the namespace-qualified repository name.
	ChangeNumber int    // ChangeNumber is the pull or merge request number, zero outside one.
	BaseRef      string // BaseRef is the revision the change request is compared against.
	BaseSHA      string // BaseSHA is the exact merge base when the CI exposes one.
}

// String returns the human-readable string representation of a CIKind.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	case CIBitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// ParseCIKind converts a string identifier into a CIKind value.
func ParseCIKind(raw string) (CIKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "github":
		return CIGitHub, nil
	case "gitlab":
		return CIGitLab, nil
	case "bitbucket":
		return CIBitbucket, nil
	default:
		return CIUnknown, fmt.Errorf("unsupported ci kind %q", raw)
	}
}

// DetectCIKind attempts to infer the CI provider from well-known environment variables.
func DetectCIKind(lookup LookupFunc) CIKind {
	if lookup == nil {
		lookup = os.Getenv
	}

	if lookup("GITHUB_ACTIONS") != "" || lookup("GITHUB_REPOSITORY") != "" {
		return CIGitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return CIGitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return CIBitbucket
	}

	return CIUnknown
}

// Environment resolves CI variables for kind with the supplied lookup function.
func Environment(kind CIKind, lookup LookupFunc) (CIEnvironment, error) {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch kind {
	case CIGitHub:
		return extractGitHubVariables(lookup), nil
	case CIGitLab:
		return extractGitLabVariables(lookup), nil
	case CIBitbucket:
		return extractBitbucketVariables(lookup), nil
	default:
		return CIEnvironment{}, fmt.Errorf("unsupported ci kind: %s", kind)
	}
}

// extractGitHubVariables builds the CIEnvironment from GitHub Actions variables.
// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func extractGitHubVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	fullName := lookup("GITHUB_REPOSITORY")
	owner, repo := splitFullName(fullName)
	if o := lookup("GITHUB_REPOSITORY_OWNER"); o != "" {
		owner = o
	}

	var baseRef string
	if b := lookup("GITHUB_BASE_REF"); b != "" {
		baseRef = "origin/" + b
	}

	return CIEnvironment{
		Kind:         CIGitHub,
		CI:           ci,
		CommitHash:   lookup("GITHUB_SHA"),
		ServerURL:    lookup("GITHUB_SERVER_URL"),
		APIURL:       lookup("GITHUB_API_URL"),
		Reference:    lookup("GITHUB_REF"), // refs/pull/<n>/merge on pull_request events
		Namespace:    owner,
		Repository:   repo,
		FullName:     fullName,
		ChangeNumber: changeNumberFromRef(lookup("GITHUB_REF")),
		BaseRef:      baseRef,
	}
}

// extractGitLabVariables builds the CIEnvironment from GitLab CI variables.
// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func extractGitLabVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	var reference string
	if mrRef := lookup("CI_MERGE_REQUEST_REF_PATH"); mrRef != "" {
		reference = mrRef
	} else if branch := lookup("CI_COMMIT_REF_NAME"); branch != "" {
		reference = "refs/heads/" + branch
	}

	iid, _ := strconv.Atoi(lookup("CI_MERGE_REQUEST_IID"))

	var baseRef string
	if b := lookup("CI_MERGE_REQUEST_TARGET_BRANCH_NAME"); b != "" {
		baseRef = "origin/" + b
	}

	return CIEnvironment{
		Kind:         CIGitLab,
		CI:           ci,
		CommitHash:   lookup("CI_COMMIT_SHA"),
		ServerURL:    lookup("CI_SERVER_URL"),
		APIURL:       lookup("CI_API_V4_URL"),
		Reference:    reference,
		Namespace:    lookup("CI_PROJECT_NAMESPACE"),
		Repository:   lookup("CI_PROJECT_NAME"),
		FullName:     lookup("CI_PROJECT_PATH"),
		ChangeNumber: iid,
		BaseRef:      baseRef,
		BaseSHA:      lookup("CI_MERGE_REQUEST_DIFF_BASE_SHA"),
	}
}

// extractBitbucketVariables builds the CIEnvironment from Bitbucket Pipelines variables.
// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func extractBitbucketVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	var reference string
	if branch := lookup("BITBUCKET_BRANCH"); branch != "" {
		reference = "refs/heads/" + branch
	}

	origin := lookup("BITBUCKET_GIT_HTTP_ORIGIN")
	var serverURL string
	if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = u.Scheme + "://" + u.Host
	}

	pr, _ := strconv.Atoi(lookup("BITBUCKET_PR_ID"))

	var baseRef string
	if b := lookup("BITBUCKET_PR_DESTINATION_BRANCH"); b != "" {
		baseRef = "origin/" + b
	}

	return CIEnvironment{
		Kind:         CIBitbucket,
		CI:           ci,
		CommitHash:   lookup("BITBUCKET_COMMIT"),
		ServerURL:    serverURL,
		Reference:    reference,
		Namespace:    lookup("BITBUCKET_WORKSPACE"),
		Repository:   lookup("BITBUCKET_REPO_SLUG"),
		FullName:     lookup("BITBUCKET_REPO_FULL_NAME"),
		ChangeNumber: pr,
		BaseRef:      baseRef,
	}
}

// changeNumberFromRef extracts N from refs/pull/N/... or refs/merge-requests/N/....
func changeNumberFromRef(ref string) int {
	parts := strings.Split(ref, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "pull" || parts[i] == "merge-requests" {
			if n, err := strconv.Atoi(parts[i+1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func splitFullName(fullName string) (string, string) {
	i := strings.LastIndex(fullName, "/")
	if i < 0 {
		return "", fullName
	}
	return fullName[:i], fullName[i+1:]
}
