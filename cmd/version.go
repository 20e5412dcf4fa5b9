package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/grievance/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	versionShort bool
	versionFlags *StandardFlags
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for grievance including:

- Version and git commit
- Build timestamp
- Go version and target platform

Examples:
  grievance version               # Show version
  grievance version --short       # Version only
  grievance version --format json # Output as JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionFlags = AddStandardFlags(versionCmd, "output")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	if err := versionFlags.ValidateFlags(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	info := version.GetBuildInfo()

	switch versionFlags.OutputFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		return yaml.NewEncoder(out).Encode(info)
	}

	if versionShort {
		fmt.Fprintln(out, version.GetShortVersion())
		return nil
	}
	return outputVersionText(out, info)
}

func outputVersionText(out io.Writer, info version.BuildInfo) error {
	fmt.Fprintf(out, "grievance %s", info.Version)

	if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
		fmt.Fprintf(out, " (%s)", info.GitCommit[:7])
	}

	if info.Dirty {
		fmt.Fprint(out, " (dirty)")
	}

	fmt.Fprintln(out)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}

	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)

	if version.IsRelease() {
		fmt.Fprintln(out, "Build type: release")
	} else {
		fmt.Fprintln(out, "Build type: development")
	}

	return nil
}
