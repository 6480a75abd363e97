// Package selector decides which source files are handed to the linter.
package selector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
	"github.com/scan-io-git/scanio-lint/internal/pathmatch"
	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// DefaultLanguage is the language whose extensions are used when none are configured.
const DefaultLanguage = "Swift"

// Options are the selection inputs for one run.
type Options struct {
	// Patterns are explicit globs. When empty the change set is used.
	Patterns []string
	// Directory limits selection to one tree. Defaults to the working directory.
	Directory  string
	Extensions []string
	Language   string
	// Excluded and Included are resolved absolute paths.
	Excluded []string
	Included []string
}

// Extensions returns the configured extensions, or the ones go-enry knows for language.
func Extensions(configured []string, language string) []string {
	if len(configured) > 0 {
		return configured
	}
	if language == "" {
		language = DefaultLanguage
	}
	return enry.GetLanguageExtensions(language)
}

// Select returns the candidate files in first-seen order. An empty result is valid.
func Select(ctx context.Context, opts Options, provider changeset.Provider, logger hclog.Logger) ([]string, error) {
	raw, err := sourceFiles(ctx, opts.Patterns, provider)
	if err != nil {
		return nil, err
	}

	dir := opts.Directory
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
	}

	exts := Extensions(opts.Extensions, opts.Language)
	matcher := pathmatch.NewMatcher()
	seen := make(map[string]struct{}, len(raw))
	var selected []string

	for _, f := range raw {
		if !hasExtension(f, exts) {
			continue
		}
		abs, err := files.AbsPath(f, "")
		if err != nil {
			logger.Debug("skipping unresolvable path", "path", f, "error", err)
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		if !pathmatch.IsUnder(abs, dir) {
			continue
		}
		if matcher.MatchesAny(abs, opts.Excluded) {
			logger.Debug("file excluded by rule config", "path", abs)
			continue
		}
		if len(opts.Included) > 0 && !matcher.MatchesAny(abs, opts.Included) {
			logger.Debug("file not in included paths", "path", abs)
			continue
		}
		selected = append(selected, abs)
	}

	return selected, nil
}

func sourceFiles(ctx context.Context, patterns []string, provider changeset.Provider) ([]string, error) {
	if len(patterns) > 0 {
		var out []string
		for _, pattern := range patterns {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
			}
			out = append(out, matches...)
		}
		return out, nil
	}

	if provider == nil {
		return nil, nil
	}
	candidates, err := changeset.Candidates(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to read change set: %w", err)
	}
	return candidates, nil
}

func hasExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
