// Package cmd implements the searchload command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/datamolt/searchload/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "searchload",
	Short: "Bulk-load tabular and JSON data into a search store",
	Long: `searchload ingests CSV and JSON files from local disk or object
storage into a search collection via batched bulk writes, with guarded
index cleanup, resumable progress, failure dead-lettering, and
drift-validated alias cutover.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger(rootLogLevel, rootLogJSON)
	},
}

var (
	rootLogLevel   string
	rootLogJSON    bool
	rootConfigFile string
)

// versionInfo holds build-time version metadata.
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&rootLogJSON, "log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&rootConfigFile, "config", "", "Path to config file")
}

// SetVersionInfo records build metadata injected via ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

// cliError carries the process exit code alongside the error chain.
type cliError struct {
	code    int
	message string
	err     error
}

func (e *cliError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

func (e *cliError) Unwrap() error { return e.err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &cliError{code: code, message: message, err: err}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	observability.Sync()
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return foundry.ExitInvalidArgument
}
