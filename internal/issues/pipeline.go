package issues

import (
	"path/filepath"
)

// LineFilter reports whether a file line belongs to the pending change.
type LineFilter interface {
	Contains(file string, line int) bool
}

// Predicate accepts or rejects a single issue.
type Predicate func(Issue) bool

// Pipeline turns the raw output of one or more linter invocations into a Result.
type Pipeline struct {
	// Lines restricts issues to changed lines when set.
	Lines     LineFilter
	Predicate Predicate
	// Max caps the combined number of issues when set.
	Max *int
	// NoComment keeps every issue, skipping Predicate and Max.
	NoComment bool
	// Directory resolves relative issue paths before line filtering.
	Directory string
}

// Result is the bounded, classified outcome of a pipeline run.
type Result struct {
	Issues   []Issue
	Warnings []Issue
	Errors   []Issue
	Overflow int
}

// Apply is pure: the same batches always give the same Result.
func (p Pipeline) Apply(batches [][]Issue) Result {
	var all []Issue
	for _, b := range batches {
		all = append(all, b...)
	}

	if p.Lines != nil {
		all = filter(all, func(i Issue) bool {
			return p.Lines.Contains(p.absolute(i.File), i.Line)
		})
	}

	var res Result
	if !p.NoComment {
		if p.Predicate != nil {
			all = filter(all, p.Predicate)
		}
		if p.Max != nil {
			max := *p.Max
			if max < 0 {
				max = 0
			}
			if len(all) > max {
				res.Overflow = len(all) - max
				all = all[:max]
			}
		}
	}

	res.Issues = all
	for _, i := range all {
		switch i.Severity {
		case Error:
			res.Errors = append(res.Errors, i)
		case Warning:
			res.Warnings = append(res.Warnings, i)
		}
	}
	return res
}

func (p Pipeline) absolute(file string) string {
	if filepath.IsAbs(file) || p.Directory == "" {
		return filepath.Clean(file)
	}
	return filepath.Join(p.Directory, file)
}

func filter(in []Issue, keep func(Issue) bool) []Issue {
	out := make([]Issue, 0, len(in))
	for _, i := range in {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
