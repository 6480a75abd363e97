// Package difflines maps unified-diff patches to the line numbers they add.
package difflines

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
)

// AddedLines returns the 1-based new-file line numbers added by patch, ascending.
// The patch may carry file headers or start directly at the first hunk.
func AddedLines(patch string) ([]int, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}

	hunks, err := parseHunks([]byte(patch))
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	for _, h := range hunks {
		if h == nil {
			continue
		}
		lineNo := int(h.NewStartLine)
		if lineNo <= 0 {
			lineNo = 1
		}
		for _, bodyLine := range bytes.Split(h.Body, []byte("\n")) {
			if len(bodyLine) == 0 {
				continue
			}
			switch bodyLine[0] {
			case '+':
				seen[lineNo] = struct{}{}
				lineNo++
			case '-':
				// removal; the new file does not have this line
			case '\\':
				// "\ No newline at end of file"
			default:
				lineNo++
			}
		}
	}

	lines := make([]int, 0, len(seen))
	for l := range seen {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines, nil
}

func parseHunks(patch []byte) ([]*diff.Hunk, error) {
	trimmed := bytes.TrimLeft(patch, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("@@")) {
		hunks, err := diff.ParseHunks(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse hunks: %w", err)
		}
		return hunks, nil
	}

	fd, err := diff.ParseFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file diff: %w", err)
	}
	return fd.Hunks, nil
}

// LineSet maps absolute file paths to the lines a change added to them.
type LineSet map[string]map[int]struct{}

// Contains implements issues.LineFilter.
func (s LineSet) Contains(file string, line int) bool {
	_, ok := s[file][line]
	return ok
}

// Lines returns the added lines of file in ascending order.
func (s LineSet) Lines(file string) []int {
	lines := make([]int, 0, len(s[file]))
	for l := range s[file] {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// BuildLineSet collects added lines for every file in the change that was not deleted.
// A file whose patch cannot be read or parsed contributes no lines.
func BuildLineSet(ctx context.Context, provider changeset.Provider, logger hclog.Logger) (LineSet, error) {
	candidates, err := changeset.Candidates(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to read change set: %w", err)
	}

	set := make(LineSet, len(candidates))
	for _, path := range candidates {
		fd, err := provider.DiffForFile(ctx, path)
		if err != nil {
			logger.Warn("failed to get diff for file", "path", path, "error", err)
			continue
		}
		lines, err := AddedLines(fd.Patch)
		if err != nil {
			logger.Warn("failed to parse diff for file", "path", path, "error", err)
			continue
		}
		if len(lines) == 0 {
			continue
		}
		m := make(map[int]struct{}, len(lines))
		for _, l := range lines {
			m[l] = struct{}{}
		}
		set[path] = m
		logger.Debug("changed lines", "path", path, "count", len(lines))
	}
	return set, nil
}
