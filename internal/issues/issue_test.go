package issues

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forceCastReport = `[{ "rule_id" : "force_cast", "reason" : "Force casts should be avoided.", "character" : 19, "file" : "/Users/me/this_repo/Tests/Fixtures/SwiftFile.swift", "severity" : "Error", "type" : "Force Cast", "line" : 13 }]`

func TestParseReport(t *testing.T) {
	got, err := ParseReport([]byte(forceCastReport))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, Issue{
		File:      "/Users/me/this_repo/Tests/Fixtures/SwiftFile.swift",
		Line:      13,
		Character: 19,
		RuleID:    "force_cast",
		Reason:    "Force casts should be avoided.",
		Severity:  Error,
		Type:      "Force Cast",
	}, got[0])
}

func TestParseReportEmpty(t *testing.T) {
	for _, in := range []string{"", "  \n", "[]"} {
		got, err := ParseReport([]byte(in))
		if err != nil {
			t.Fatalf("ParseReport(%q) unexpected error: %v", in, err)
		}
		if len(got) != 0 {
			t.Fatalf("ParseReport(%q) = %v, want no issues", in, got)
		}
	}
}

func TestParseReportMalformed(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{name: "plain text", in: "Linting Swift files in current working directory"},
		{name: "truncated", in: `[{"rule_id": "force_cast"`},
		{name: "unknown severity", in: `[{"file": "a.swift", "line": 1, "severity": "Info"}]`},
		{name: "missing severity", in: `[{"file": "/r/A.swift", "line": 3, "rule_id": "force_cast"}]`},
		{name: "empty severity", in: `[{"file": "/r/A.swift", "line": 3, "severity": ""}]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReport([]byte(tc.in))
			if !errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("expected ErrMalformedOutput, got %v", err)
			}
		})
	}
}

func TestSeverityCaseInsensitive(t *testing.T) {
	got, err := ParseReport([]byte(`[{"file": "a.swift", "line": 1, "severity": "warning"}]`))
	require.NoError(t, err)
	assert.Equal(t, Warning, got[0].Severity)
}
