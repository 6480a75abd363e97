package linter

import (
	"fmt"
	"strings"
)

// DefaultReporter is the reporter whose output issues.ParseReport understands.
const DefaultReporter = "json"

// Options are the recognised `lint` flags. Tri-state flags render as --flag when true,
// --no-flag when false and are omitted when nil.
type Options struct {
	Config              string
	Reporter            string
	Quiet               *bool
	ForceExclude        *bool
	Path                string
	UseScriptInputFiles *bool
}

// Args renders the options as argv elements following the lint subcommand.
func (o Options) Args() ([]string, error) {
	args := []string{"lint"}

	if o.Config != "" {
		if err := validatePathValue("config", o.Config); err != nil {
			return nil, err
		}
		args = append(args, "--config", o.Config)
	}
	if o.Reporter != "" {
		args = append(args, "--reporter", o.Reporter)
	}
	args = appendBool(args, "quiet", o.Quiet)
	args = appendBool(args, "force-exclude", o.ForceExclude)
	if o.Path != "" {
		if err := validatePathValue("path", o.Path); err != nil {
			return nil, err
		}
		args = append(args, "--path", o.Path)
	}
	args = appendBool(args, "use-script-input-files", o.UseScriptInputFiles)

	return args, nil
}

func appendBool(args []string, name string, value *bool) []string {
	switch {
	case value == nil:
		return args
	case *value:
		return append(args, "--"+name)
	default:
		return append(args, "--no-"+name)
	}
}

func validatePathValue(flag, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("--%s must not be blank", flag)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("--%s contains a NUL byte", flag)
	}
	return nil
}
