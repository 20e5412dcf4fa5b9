package cmd

import (
	"os"
	"os/signal"

	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/delivery"
	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/tui"
	"github.com/spf13/cobra"
)

var composeDelivery *StandardFlags

var composeCmd = &cobra.Command{
	Use:     "compose",
	Aliases: []string{"c"},
	Short:   "Fill in the grievance form in the terminal",
	Long: `Fill in the grievance form in the terminal. Tab moves between fields,
enter sends, esc quits. The form can be sent again after each outcome.

Examples:
  grievance compose
  grievance compose --endpoint https://mail.example/api/send`,
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
	composeDelivery = AddStandardFlags(composeCmd, "delivery")
}

func runCompose(cmd *cobra.Command, args []string) error {
	if err := composeDelivery.ValidateFlags(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	composeDelivery.ApplyDelivery(cmd, cfg)

	// The form owns the terminal; log lines would tear it.
	logger := logging.Discard()

	client := delivery.NewClient(cfg.DeliveryEndpoint(),
		delivery.WithTimeout(cfg.Delivery.Timeout),
		delivery.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return tui.Run(ctx, client, tui.Options{
		Title:    cfg.Page.Title,
		Subtitle: cfg.Page.Subtitle,
		Effect:   celebration.FromConfig(cfg.Celebration),
		Logger:   logger,
	})
}
