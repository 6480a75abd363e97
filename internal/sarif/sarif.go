// Package sarif writes annotations as a SARIF 2.1.0 log.
package sarif

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/scanio-lint/internal/report"
	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// Sink collects anchored annotations and writes them to a file on Flush. Markdown
// and unanchored messages have no place in SARIF and are dropped.
type Sink struct {
	mu       sync.Mutex
	output   string
	toolName string
	infoURI  string
	results  []report.Annotation
	logger   hclog.Logger
}

// NewSink returns a sink that writes to output.
func NewSink(output, toolName, infoURI string, logger hclog.Logger) *Sink {
	return &Sink{output: output, toolName: toolName, infoURI: infoURI, logger: logger}
}

func (s *Sink) Markdown(context.Context, string) error { return nil }

func (s *Sink) Annotate(_ context.Context, a report.Annotation) error {
	if !a.Anchored() || a.RuleID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, a)
	return nil
}

// Flush writes the log, including when there are no results.
func (s *Sink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.build()
	if err != nil {
		return err
	}
	if err := files.CreateFolderIfNotExists(filepath.Dir(s.output)); err != nil {
		return err
	}
	if err := rep.WriteFile(s.output); err != nil {
		return fmt.Errorf("failed to write SARIF report %q: %w", s.output, err)
	}
	s.logger.Info("SARIF report written", "path", s.output, "results", len(s.results))
	return nil
}

func (s *Sink) build() (*sarif.Report, error) {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(s.toolName, s.infoURI)
	for _, a := range s.results {
		rule := run.AddRule(a.RuleID)
		if rule.ShortDescription == nil && a.Reason != "" {
			rule.ShortDescription = sarif.NewMultiformatMessageString(a.Reason)
		}

		location := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewSimpleArtifactLocation(filepath.ToSlash(a.File))).
			WithRegion(sarif.NewSimpleRegion(a.Line, a.Line))

		run.CreateResultForRule(a.RuleID).
			WithLevel(level(a.Level)).
			WithMessage(sarif.NewTextMessage(message(a))).
			AddLocation(sarif.NewLocationWithPhysicalLocation(location))
	}
	rep.AddRun(run)
	return rep, nil
}

func level(l report.Level) string {
	if l == report.LevelFail {
		return "error"
	}
	return "warning"
}

func message(a report.Annotation) string {
	if a.Reason != "" {
		return a.Reason
	}
	return a.Message
}
