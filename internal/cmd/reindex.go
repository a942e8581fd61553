package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/internal/observability"
	"github.com/datamolt/searchload/pkg/indexsafety"
	"github.com/datamolt/searchload/pkg/reindex"
	"github.com/datamolt/searchload/pkg/storeclient"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Copy one index into another server-side",
	Long: `Copy all documents from a source index into a target index using a
server-side reindex. The target is emptied first with the same guarded
cleanup a load run uses.

Example:
  searchload reindex --from products-v1 --to products-v2`,
	RunE: runReindex,
}

var (
	reindexFrom string
	reindexTo   string
)

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().StringVar(&reindexFrom, "from", "", "Source index (required)")
	reindexCmd.Flags().StringVar(&reindexTo, "to", "", "Target index (required)")

	_ = reindexCmd.MarkFlagRequired("from")
	_ = reindexCmd.MarkFlagRequired("to")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	store, err := storeclient.New(storeclient.Config{
		Endpoint:           cfg.Store.Endpoint,
		Username:           cfg.Store.Username,
		Password:           cfg.Store.Password,
		InsecureSkipVerify: !cfg.Store.VerifySSL,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to create store client", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid store configuration", err)
	}

	cleaner := indexsafety.NewManager(store, indexsafety.Config{
		RecreateThreshold: cfg.Safety.CleanupThreshold,
	}, observability.CLILogger)

	runner := reindex.NewRunner(store, cleaner, observability.CLILogger)
	result, err := runner.Run(ctx, reindexFrom, reindexTo)
	if err != nil {
		switch {
		case errors.Is(err, reindex.ErrSourceMissing), errors.Is(err, reindex.ErrSourceEmpty):
			return exitError(foundry.ExitInvalidArgument, "Reindex validation failed", err)
		case errors.Is(err, indexsafety.ErrIndexAliased):
			return exitError(foundry.ExitInvalidArgument, "Target index is bound to an alias", err)
		default:
			return exitError(foundry.ExitExternalServiceUnavailable, "Reindex failed", err)
		}
	}

	fmt.Printf("Reindexed %s -> %s: total=%d created=%d failed=%d in %s\n",
		result.Source, result.Target, result.Total, result.Created, result.Failed, result.Elapsed)
	return nil
}
