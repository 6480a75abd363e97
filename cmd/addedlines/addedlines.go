package addedlines

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/scanio-lint/internal/changeset"
	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/difflines"
	"github.com/scan-io-git/scanio-lint/pkg/shared/errors"
	"github.com/scan-io-git/scanio-lint/pkg/shared/files"
)

// RunOptionsAddedLines holds the added-lines command flags.
type RunOptionsAddedLines struct {
	Directory string
	BaseRef   string
	HeadRef   string
	PatchFile string
}

var (
	AppConfig *config.Config
	logger    hclog.Logger
	options   RunOptionsAddedLines

	AddedLinesCmd = &cobra.Command{
		Use:                   "added-lines (--base REV [--head REV] | --patch-file PATH) [--directory DIR]",
		Short:                 "Print the lines added by a change as JSON",
		Example:               "  scanio-lint added-lines --base origin/main\n  scanio-lint added-lines --patch-file changes.diff",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runAddedLines,
	}
)

// Init wires config and logger into the command package.
func Init(cfg *config.Config, l hclog.Logger) {
	AppConfig = cfg
	logger = l
}

func runAddedLines(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !hasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	if err := validateAddedLinesArgs(&options, args); err != nil {
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitFailure)
	}

	dir, err := files.AbsPath(options.Directory, "")
	if err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	var provider changeset.Provider
	if options.PatchFile != "" {
		provider, err = changeset.NewPatchFileProvider(options.PatchFile, dir)
	} else {
		provider, err = changeset.NewGitProvider(dir, options.BaseRef, options.HeadRef, changeset.GitOptions{
			Token:   AppConfig.GitClient.Token,
			Timeout: AppConfig.GitClient.Timeout,
		}, logger)
	}
	if err != nil {
		return errors.NewCommandError(fmt.Errorf("failed to prepare change set: %w", err), errors.ExitFailure)
	}

	set, err := difflines.BuildLineSet(cmd.Context(), provider, logger)
	if err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	out, err := json.MarshalIndent(relative(set, dir), "", "  ")
	if err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// relative keys the set by paths relative to dir, keeping absolute paths outside it.
func relative(set difflines.LineSet, dir string) map[string][]int {
	out := make(map[string][]int, len(set))
	for path := range set {
		key := path
		if rel, err := filepath.Rel(dir, path); err == nil && files.IsWithinRoot(dir, path) {
			key = filepath.ToSlash(rel)
		}
		out[key] = set.Lines(path)
	}
	return out
}

// hasFlags reports whether any flag was set on the command line.
func hasFlags(flags *pflag.FlagSet) bool {
	set := false
	flags.Visit(func(*pflag.Flag) { set = true })
	return set
}

func validateAddedLinesArgs(o *RunOptionsAddedLines, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %v", args)
	}
	if o.PatchFile == "" && o.BaseRef == "" {
		return fmt.Errorf("either 'base' or 'patch-file' is required")
	}
	if o.PatchFile != "" && o.BaseRef != "" {
		return fmt.Errorf("'patch-file' cannot be combined with 'base'")
	}
	return nil
}

func init() {
	AddedLinesCmd.Flags().StringVarP(&options.Directory, "directory", "d", ".", "Repository directory")
	AddedLinesCmd.Flags().StringVar(&options.BaseRef, "base", "", "Base revision of the change set")
	AddedLinesCmd.Flags().StringVar(&options.HeadRef, "head", "", "Head revision of the change set (default: HEAD)")
	AddedLinesCmd.Flags().StringVar(&options.PatchFile, "patch-file", "", "Unified diff describing the change set")
	AddedLinesCmd.Flags().BoolP("help", "h", false, "Show help for added-lines command.")
}
