// Package issues parses linter findings and narrows them to what a run reports.
package issues

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when the linter prints something that is not a JSON
// report.
var ErrMalformedOutput = errors.New("malformed linter output")

// Severity is the bucket an issue is reported in.
type Severity string

const (
	Warning Severity = "Warning"
	Error   Severity = "Error"
)

// UnmarshalJSON accepts the two known severities in any letter case.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(raw) {
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown severity %q", raw)
	}
	return nil
}

// Issue is one finding from the linter's JSON reporter.
type Issue struct {
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Character int      `json:"character,omitempty"`
	RuleID    string   `json:"rule_id"`
	Reason    string   `json:"reason"`
	Severity  Severity `json:"severity"`
	Type      string   `json:"type,omitempty"`
}

// ParseReport decodes the linter's stdout. Blank output means no issues.
func ParseReport(out []byte) ([]Issue, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var parsed []Issue
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	for _, i := range parsed {
		if i.Severity != Warning && i.Severity != Error {
			return nil, fmt.Errorf("%w: missing severity for %s:%d", ErrMalformedOutput, i.File, i.Line)
		}
	}
	return parsed, nil
}
