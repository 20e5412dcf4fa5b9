package cmd

import (
	"fmt"
	"os"

	"github.com/conneroisu/grievance/internal/config"
	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigName = ".grievance"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grievance",
	Short: "A contact form that forwards grievances to a mail endpoint",
	Long: `grievance serves a single-page contact form. Each submission is forwarded
to a mail delivery endpoint; the form shows the outcome and celebrates a
successful send with a confetti burst.

Quick Start:
  grievance serve --stub-delivery   Serve the page with a local stand-in endpoint
  grievance send -n Ada -e ada@example.com -m "..."
  grievance compose                 Fill in the form in the terminal
  grievance config                  Print the effective configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .grievance.yml, can also use GRIEVANCE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig picks the config file and enables environment overrides.
func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(defaultConfigName)
	}

	config.BindEnv(viper.GetViper())

	// A missing or unreadable file falls back to defaults; config.Load
	// reports anything that fails validation.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigName + ".yml"
}

// loadConfig loads the effective configuration, attaching suggestions when
// it does not validate.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		path := configPath()
		return nil, errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err.Error(), path, &errors.SuggestionContext{ConfigPath: path}),
		)
	}
	return cfg, nil
}

func newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	format := viper.GetString("log-format")
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown log format %q (supported: text, json)", format)
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	}), nil
}
