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
	"github.com/datamolt/searchload/pkg/storeclient"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index lifecycle operations",
}

var indexCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Empty an index ahead of a full load",
	Long: `Empty the named index. Small indices are purged in place with a
delete-by-query and force merge; indices above the configured threshold
are dropped and recreated with their settings and mappings. An index
bound to an alias is refused.

Example:
  searchload index cleanup --index products-v2
  searchload index cleanup --index products-v2 --threshold 500000`,
	RunE: runIndexCleanup,
}

var (
	cleanupIndex     string
	cleanupThreshold int64
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexCleanupCmd)

	indexCleanupCmd.Flags().StringVarP(&cleanupIndex, "index", "i", "", "Index to clean (required)")
	indexCleanupCmd.Flags().Int64Var(&cleanupThreshold, "threshold", 0, "Document count above which the index is recreated (default from config)")

	_ = indexCleanupCmd.MarkFlagRequired("index")
}

func runIndexCleanup(cmd *cobra.Command, args []string) error {
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

	threshold := cfg.Safety.CleanupThreshold
	if cleanupThreshold > 0 {
		threshold = cleanupThreshold
	}

	manager := indexsafety.NewManager(store, indexsafety.Config{RecreateThreshold: threshold}, observability.CLILogger)
	result, err := manager.ValidateAndCleanup(ctx, cleanupIndex)
	if err != nil {
		if errors.Is(err, indexsafety.ErrIndexAliased) {
			return exitError(foundry.ExitInvalidArgument, "Index is bound to an alias", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Index cleanup failed", err)
	}

	switch result.Action {
	case indexsafety.ActionNone:
		fmt.Printf("Index %s does not exist, nothing to clean.\n", result.Index)
	case indexsafety.ActionPurged:
		fmt.Printf("Purged %d documents from %s in place.\n", result.Deleted, result.Index)
	case indexsafety.ActionRecreate:
		fmt.Printf("Recreated %s (previously %d documents).\n", result.Index, result.Count)
	}
	return nil
}
