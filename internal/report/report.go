// Package report renders pipeline results and decides whether a run failed.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scan-io-git/scanio-lint/internal/issues"
)

// Mode selects how a result is rendered.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeInline  Mode = "inline"
)

// Policy controls rendering and the verdict.
type Policy struct {
	Mode        Mode
	Strict      bool
	FailOnError bool
	NoComment   bool
	// ToolName appears in headings and messages.
	ToolName string
	// WorkDir is stripped from annotation paths.
	WorkDir string
}

// Failed is the verdict for a result.
func Failed(res issues.Result, strict, failOnError bool) bool {
	hasErrors := len(res.Errors) > 0
	hasWarnings := len(res.Warnings) > 0
	return (hasErrors && failOnError) || (strict && (hasErrors || hasWarnings))
}

// Summary renders the markdown report. It is empty when there is nothing to report.
func Summary(toolName string, res issues.Result) string {
	if len(res.Warnings) == 0 && len(res.Errors) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %s found issues\n\n", toolName)
	if len(res.Warnings) > 0 {
		writeTable(&b, "Warnings", res.Warnings)
	}
	if len(res.Errors) > 0 {
		writeTable(&b, "Errors", res.Errors)
	}
	if res.Overflow > 0 {
		b.WriteString(OverflowMessage(toolName, res.Overflow))
		b.WriteString("\n")
	}
	return b.String()
}

func writeTable(b *strings.Builder, heading string, list []issues.Issue) {
	fmt.Fprintf(b, "#### %s\n\n", heading)
	b.WriteString("File | Line | Reason |\n")
	b.WriteString("| --- | ----- | ----- |\n")
	for _, i := range list {
		fmt.Fprintf(b, "%s | %d | %s (%s)\n", filepath.Base(i.File), i.Line, i.Reason, i.RuleID)
	}
	b.WriteString("\n")
}

// OverflowMessage reports the issues dropped by the cap.
func OverflowMessage(toolName string, count int) string {
	noun := "violations"
	if count == 1 {
		noun = "violation"
	}
	return fmt.Sprintf("%s also found %d more %s with this PR.", toolName, count, noun)
}

// InlineMessage is the annotation text for one issue.
func InlineMessage(i issues.Issue) string {
	return fmt.Sprintf("%s\n`%s` `%s:%d`", i.Reason, i.RuleID, filepath.Base(i.File), i.Line)
}

// Annotations renders one annotation per issue, warnings first, plus an unanchored
// overflow notice.
func Annotations(res issues.Result, p Policy) []Annotation {
	warnLevel := LevelWarn
	if p.Strict {
		warnLevel = LevelFail
	}
	errLevel := LevelWarn
	if p.FailOnError || p.Strict {
		errLevel = LevelFail
	}

	out := make([]Annotation, 0, len(res.Warnings)+len(res.Errors)+1)
	for _, i := range res.Warnings {
		out = append(out, annotationFor(i, warnLevel, p.WorkDir))
	}
	for _, i := range res.Errors {
		out = append(out, annotationFor(i, errLevel, p.WorkDir))
	}
	if res.Overflow > 0 {
		out = append(out, Annotation{Message: OverflowMessage(p.ToolName, res.Overflow), Level: LevelWarn})
	}
	return out
}

func annotationFor(i issues.Issue, level Level, workDir string) Annotation {
	return Annotation{
		Message:  InlineMessage(i),
		File:     relativeTo(workDir, i.File),
		Line:     i.Line,
		Level:    level,
		RuleID:   i.RuleID,
		Reason:   i.Reason,
		Severity: i.Severity,
	}
}

func relativeTo(dir, file string) string {
	if dir == "" || !filepath.IsAbs(file) {
		return file
	}
	rel, err := filepath.Rel(dir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}
	return filepath.ToSlash(rel)
}

// Publish sends the rendered result to sink and flushes it. Nothing is sent in
// no-comment mode.
func Publish(ctx context.Context, sink Sink, res issues.Result, p Policy) error {
	if p.NoComment {
		return nil
	}

	switch p.Mode {
	case ModeInline:
		for _, a := range Annotations(res, p) {
			if err := sink.Annotate(ctx, a); err != nil {
				return fmt.Errorf("failed to publish annotation: %w", err)
			}
		}
	default:
		if md := Summary(p.ToolName, res); md != "" {
			if err := sink.Markdown(ctx, md); err != nil {
				return fmt.Errorf("failed to publish summary: %w", err)
			}
			if Failed(res, p.Strict, p.FailOnError) {
				msg := Annotation{Message: fmt.Sprintf("Failed due to %s errors", p.ToolName), Level: LevelFail}
				if err := sink.Annotate(ctx, msg); err != nil {
					return fmt.Errorf("failed to publish verdict: %w", err)
				}
			}
		}
	}

	return sink.Flush(ctx)
}
