package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/internal/observability"
	"github.com/datamolt/searchload/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run state over HTTP",
	Long: `Start a local HTTP server exposing a health probe and the latest
run report.

Example:
  searchload serve
  searchload serve --listen 0.0.0.0:8080`,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	listen := cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}

	srv := server.New(listen, cfg.ReportPath, versionInfo.Version, observability.CLILogger)
	if err := srv.Run(ctx); err != nil {
		observability.CLILogger.Error("Ops server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Ops server failed", err)
	}
	return nil
}
