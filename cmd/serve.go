package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/conneroisu/grievance/internal/config"
	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the grievance page",
	Long: `Serve the grievance page. Every page load gets its own form; submissions
are forwarded to the delivery endpoint and the outcome is pushed back to the
page over a websocket.

Examples:
  grievance serve                              # Forward to http://localhost:8080/api/send
  grievance serve --stub-delivery              # Answer /api/send locally
  grievance serve --endpoint https://mail.example/api/send
  grievance serve --assets-dir internal/page/static --hot-reload`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	AddStandardFlags(serveCmd, "server", "delivery")
	serveCmd.Flags().Bool("stub-delivery", false, "Mount a stand-in /api/send that accepts every submission")
	serveCmd.Flags().String("assets-dir", "", "Serve /static from this directory instead of the embedded copy")
	serveCmd.Flags().Bool("hot-reload", false, "Reload open pages when files in --assets-dir change")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("delivery.endpoint", serveCmd.Flags().Lookup("endpoint"))
	viper.BindPFlag("delivery.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("development.stub_delivery", serveCmd.Flags().Lookup("stub-delivery"))
	viper.BindPFlag("development.assets_dir", serveCmd.Flags().Lookup("assets-dir"))
	viper.BindPFlag("development.hot_reload", serveCmd.Flags().Lookup("hot-reload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	for _, warning := range config.ValidateConfigWithDetails(cfg).Warnings {
		logger.Warn(context.Background(), nil, warning.Message, "field", warning.Field)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info(context.Background(), "Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error(shutdownCtx, shutdownErr, "Error during server shutdown")
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving grievance at http://%s\n", cfg.Address())

	if err := srv.Start(ctx); err != nil {
		if strings.Contains(err.Error(), "address already in use") || strings.Contains(err.Error(), "bind") ||
			strings.Contains(err.Error(), "permission denied") {
			return errors.NewEnhancedError(
				fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
				err,
				errors.ServerStartError(err, cfg.Server.Port, &errors.SuggestionContext{ConfigPath: configPath()}),
			)
		}
		return err
	}

	return nil
}
