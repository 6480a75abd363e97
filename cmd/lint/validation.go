package lint

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/linter"
)

var knownSinks = map[string]struct{}{
	"console": {},
	"github":  {},
	"gitlab":  {},
	"sarif":   {},
	"webhook": {},
}

// validateLintArgs validates flag combinations. changed reports whether a flag was set.
func validateLintArgs(options *RunOptionsLint, changed func(string) bool) error {
	var issues []string

	if changed("max-violations") && options.MaxViolations < 0 {
		issues = append(issues, "'max-violations' cannot be negative")
	}

	switch linter.Strategy(options.Invocation) {
	case "", linter.StrategyAll, linter.StrategyScriptInput, linter.StrategyPerFile:
	default:
		issues = append(issues, fmt.Sprintf("invalid invocation %q: use script-input, per-file or all", options.Invocation))
	}
	if options.LintAllFiles && options.Invocation != "" && options.Invocation != string(linter.StrategyAll) {
		issues = append(issues, "'lint-all-files' cannot be combined with a different invocation")
	}

	for _, ext := range options.Extensions {
		if !strings.HasPrefix(ext, ".") {
			issues = append(issues, fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}

	if options.PatchFile != "" && (options.BaseRef != "" || options.HeadRef != "") {
		issues = append(issues, "'patch-file' cannot be combined with 'base' or 'head'")
	}
	if options.HeadRef != "" && options.BaseRef == "" {
		issues = append(issues, "'head' requires 'base'")
	}

	if options.ChangeNumber < 0 {
		issues = append(issues, "'change-number' cannot be negative")
	}

	for _, s := range options.Sinks {
		name := strings.ToLower(strings.TrimSpace(s))
		if _, ok := knownSinks[name]; !ok {
			issues = append(issues, fmt.Sprintf("unknown sink %q", s))
			continue
		}
		if name == "sarif" && options.SarifOutput == "" && !configured(func(r *config.Report) string { return r.SarifOutput }) {
			issues = append(issues, "'sarif' sink requires 'sarif-output'")
		}
		if name == "webhook" && options.WebhookURL == "" && !configured(func(r *config.Report) string { return r.WebhookURL }) {
			issues = append(issues, "'webhook' sink requires 'webhook-url'")
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("%s", strings.Join(issues, "; "))
	}
	return nil
}

// configured reports whether the app config sets the value get reads.
func configured(get func(*config.Report) string) bool {
	if AppConfig == nil {
		return false
	}
	return strings.TrimSpace(get(&AppConfig.Report)) != ""
}
