package version

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-lint/internal/config"
	"github.com/scan-io-git/scanio-lint/internal/linter"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Versions holds version information for the application and the configured linter.
type Versions struct {
	Version       string
	GolangVersion string
	BuildTime     string
	Linter        LinterMeta
}

// LinterMeta describes the linter binary the app config points at.
type LinterMeta struct {
	Name    string
	Path    string
	Version string
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the linter",
		Run: func(cmd *cobra.Command, args []string) {
			printVersionInfo(Versions{
				Version:       CoreVersion,
				GolangVersion: GolangVersion,
				BuildTime:     BuildTime,
				Linter:        linterMeta(AppConfig),
			})
		},
	}
}

// linterMeta asks the configured binary for its version. A missing binary is reported
// as "not installed" rather than failing the command.
func linterMeta(cfg *config.Config) LinterMeta {
	name, binary := config.DefaultLinterName, config.DefaultLinterBinary
	if cfg != nil {
		name = config.SetThen(cfg.Linter.Name, name)
		binary = config.SetThen(cfg.Linter.Binary, binary)
	}

	meta := LinterMeta{Name: name, Version: "not installed"}
	path, err := linter.Locate(binary)
	if err != nil {
		return meta
	}
	meta.Path = path

	out, err := exec.Command(path, "version").Output()
	if err != nil {
		meta.Version = "unknown"
		return meta
	}
	meta.Version = strings.TrimSpace(string(out))
	return meta
}

// printVersionInfo prints the version information for the application and the linter.
func printVersionInfo(v Versions) {
	fmt.Printf("Core Version: v%s\n", v.Version)
	fmt.Printf("Linter: %s %s\n", v.Linter.Name, v.Linter.Version)
	if v.Linter.Path != "" {
		fmt.Printf("  Path: %s\n", v.Linter.Path)
	}
	fmt.Printf("Go Version: %s\n", v.GolangVersion)
	fmt.Printf("Build Time: %s\n", v.BuildTime)
}
