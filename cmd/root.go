package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-lint/cmd/addedlines"
	"github.com/scan-io-git/scanio-lint/cmd/lint"
	"github.com/scan-io-git/scanio-lint/cmd/version"
	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/logger"
	"github.com/scan-io-git/scanio-lint/pkg/shared/errors"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	AppConfig *config.Config
	Logger    hclog.Logger
	rootCmd   = &cobra.Command{
		Use:                   "scanio-lint [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Scanio-lint runs a linter on the files of a pending change and reports the findings.",
		Long: `Scanio-lint runs an external linter (SwiftLint by default) on the files touched by a pull or merge request,
	narrows the findings to the added lines when asked, and reports them as a summary or as inline annotations.
	`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "app-config", "", "Path to the scanio-lint YAML config")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(lint.LintCmd)
	rootCmd.AddCommand(addedlines.AddedLinesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	}
	return errors.ExitCode(err)
}

func initConfig(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return errors.NewCommandError(fmt.Errorf("failed to load env file %q: %w", envFile, err), errors.ExitFailure)
		}
	}

	var err error
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		return errors.NewCommandError(fmt.Errorf("initializing config failed: %w", err), errors.ExitFailure)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	Logger = logger.NewLogger(AppConfig, "scanio-lint")
	if verbose {
		Logger.SetLevel(hclog.Debug)
	}

	lint.Init(AppConfig, Logger.Named("lint"))
	addedlines.Init(AppConfig, Logger.Named("added-lines"))
	version.Init(AppConfig)
	return nil
}
