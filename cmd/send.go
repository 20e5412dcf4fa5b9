package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/delivery"
	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/feedback"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/spf13/cobra"
)

var (
	sendName     string
	sendEmail    string
	sendMessage  string
	sendQuiet    bool
	sendDelivery *StandardFlags
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one grievance from the command line",
	Long: `Send one grievance to the delivery endpoint and report the outcome.

The same constraints as the page apply: all three fields are required and
the email must be an address. Pass --message - to read the message from
standard input.

Examples:
  grievance send -n Ada -e ada@example.com -m "The printer is on fire"
  echo "It is still on fire" | grievance send -n Ada -e ada@example.com -m -
  grievance send --endpoint https://mail.example/api/send -n Ada -e ada@example.com -m hi`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendName, "name", "n", "", "Your name")
	sendCmd.Flags().StringVarP(&sendEmail, "email", "e", "", "Your email address")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "The grievance, or - to read standard input")
	sendCmd.Flags().BoolVarP(&sendQuiet, "quiet", "q", false, "Skip the celebration")
	sendDelivery = AddStandardFlags(sendCmd, "delivery")
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := sendDelivery.ValidateFlags(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sendDelivery.ApplyDelivery(cmd, cfg)

	logger, err := newLogger()
	if err != nil {
		return err
	}

	message := sendMessage
	if message == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		message = strings.TrimRight(string(data), "\r\n")
	}

	input := widget.FormInput{
		Name:    strings.TrimSpace(sendName),
		Email:   strings.TrimSpace(sendEmail),
		Message: message,
	}
	if err := input.Validate(); err != nil {
		return fmt.Errorf("invalid submission: %w", err)
	}

	out := cmd.OutOrStdout()
	endpoint := cfg.DeliveryEndpoint()
	client := delivery.NewClient(endpoint,
		delivery.WithTimeout(cfg.Delivery.Timeout),
		delivery.WithLogger(logger))

	opts := []widget.Option{
		widget.WithLogger(logger),
		widget.WithObserver(func(s widget.Snapshot) {
			if s.State == widget.StateSending {
				fmt.Fprintf(out, "%s (%s)\n", feedback.Render(s.Model).SubmitLabel, endpoint)
			}
		}),
	}
	if !sendQuiet {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		opts = append(opts, widget.WithCelebrator(celebration.Func(func(_ context.Context, effect celebration.Effect) {
			fmt.Fprintln(out, celebration.Burst(effect, 48, 8, rng))
		}), celebration.FromConfig(cfg.Celebration)))
	}
	w := widget.New(client, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	err = w.Submit(ctx, input)
	fb := feedback.Render(w.Snapshot().Model)
	if err != nil {
		return errors.NewEnhancedError(fb.Message, err,
			errors.DeliveryError(err, &errors.SuggestionContext{Endpoint: endpoint}))
	}

	fmt.Fprintln(out, fb.Message)
	return nil
}
