package ci

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/hashicorp/go-hclog"
)

// ErrNoChangeRequest is returned when neither the environment nor the explicit
// options identify a pull or merge request.
var ErrNoChangeRequest = errors.New("no pull or merge request detected")

// Resolution is the change request the run reports to.
type Resolution struct {
	Kind         CIKind
	Namespace    string
	Repository   string
	FullName     string
	ChangeNumber int
	BaseRef      string
	HeadRef      string
	APIURL       string
	Hydrated     bool
}

// Options carries values supplied on the command line. Set fields win over the environment.
type Options struct {
	Platform     string
	Repository   string
	ChangeNumber int
	BaseRef      string
	HeadRef      string
	RemoteURL    string
}

// Resolve merges explicit options with CI metadata. When no repository is known it
// falls back to parsing the remote URL of the checkout.
func Resolve(log hclog.Logger, opts Options, lookup LookupFunc) (Resolution, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	var res Resolution
	providedKind := CIUnknown
	if p := strings.TrimSpace(opts.Platform); p != "" {
		kind, err := ParseCIKind(p)
		if err != nil {
			return Resolution{}, err
		}
		providedKind = kind
	}

	detectedKind := DetectCIKind(lookup)
	if providedKind != CIUnknown && detectedKind != CIUnknown && providedKind != detectedKind {
		log.Warn("provided platform differs from detected CI environment",
			"detected", detectedKind.String(), "provided", providedKind.String())
	}

	if detectedKind != CIUnknown {
		env, err := Environment(detectedKind, lookup)
		if err != nil {
			return Resolution{}, err
		}
		res = Resolution{
			Kind:         env.Kind,
			Namespace:    env.Namespace,
			Repository:   env.Repository,
			FullName:     env.FullName,
			ChangeNumber: env.ChangeNumber,
			BaseRef:      firstNonEmpty(env.BaseSHA, env.BaseRef),
			HeadRef:      env.CommitHash,
			APIURL:       env.APIURL,
			Hydrated:     true,
		}
		log.Debug("hydrated change request from CI environment",
			"kind", env.Kind.String(), "repository", env.FullName, "number", env.ChangeNumber)
	}
	if providedKind != CIUnknown {
		res.Kind = providedKind
	}

	if opts.Repository != "" {
		res.FullName = opts.Repository
		res.Namespace, res.Repository = splitFullName(opts.Repository)
	}
	if opts.ChangeNumber > 0 {
		res.ChangeNumber = opts.ChangeNumber
	}
	res.BaseRef = firstNonEmpty(opts.BaseRef, res.BaseRef)
	res.HeadRef = firstNonEmpty(opts.HeadRef, res.HeadRef)

	if res.FullName == "" && opts.RemoteURL != "" {
		if err := res.fromRemote(opts.RemoteURL); err != nil {
			log.Debug("unable to parse remote URL", "url", opts.RemoteURL, "error", err)
		}
	}

	if res.Kind == CIUnknown {
		return res, fmt.Errorf("ci: unable to detect platform; specify --platform")
	}
	if res.FullName == "" || res.ChangeNumber == 0 {
		return res, ErrNoChangeRequest
	}
	return res, nil
}

func (r *Resolution) fromRemote(raw string) error {
	info, err := vcsurl.Parse(raw)
	if err != nil {
		return err
	}
	r.FullName = info.FullName
	r.Namespace = info.Username
	r.Repository = info.Name
	if r.Kind == CIUnknown {
		switch {
		case strings.Contains(string(info.Host), "github"):
			r.Kind = CIGitHub
		case strings.Contains(string(info.Host), "gitlab"):
			r.Kind = CIGitLab
		case strings.Contains(string(info.Host), "bitbucket"):
			r.Kind = CIBitbucket
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
