package cmd

import (
	"fmt"

	"github.com/conneroisu/grievance/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration grievance would run with, as YAML, after
applying defaults, the config file, .env and GRIEVANCE_* variables.

The output is a valid .grievance.yml. With --check the configuration is
reviewed instead and settings that are probably unintended are listed.

Examples:
  grievance config                         # Show the effective configuration
  grievance config > .grievance.yml        # Start a config file from it
  grievance config --check                 # Review the configuration
  GRIEVANCE_SERVER_PORT=9000 grievance config`,
	RunE: runConfigShow,
}

var configCheck bool

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().BoolVar(&configCheck, "check", false, "Review the configuration instead of printing it")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configCheck {
		result := config.ValidateConfigWithDetails(cfg)
		if !result.HasWarnings() {
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration looks good")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), result.String())
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
