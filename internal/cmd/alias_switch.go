package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/internal/observability"
	"github.com/datamolt/searchload/pkg/aliascut"
	"github.com/datamolt/searchload/pkg/storeclient"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Alias cutover operations",
}

var aliasSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Atomically repoint an alias to a new index",
	Long: `Move a read alias from its current index to a freshly loaded one in
a single atomic alias update.

The cutover is refused when the target is empty while the source holds
documents, or when the document counts differ by more than the drift
threshold.

Example:
  searchload alias switch --alias products --from products-v1 --to products-v2
  searchload alias switch --alias products --from products-v1 --to products-v2 --drift-threshold 5`,
	RunE: runAliasSwitch,
}

var (
	switchAlias string
	switchFrom  string
	switchTo    string
	switchDrift float64
)

func init() {
	rootCmd.AddCommand(aliasCmd)
	aliasCmd.AddCommand(aliasSwitchCmd)

	aliasSwitchCmd.Flags().StringVar(&switchAlias, "alias", "", "Alias to move (required)")
	aliasSwitchCmd.Flags().StringVar(&switchFrom, "from", "", "Index the alias currently points at (required)")
	aliasSwitchCmd.Flags().StringVar(&switchTo, "to", "", "Index to move the alias to (required)")
	aliasSwitchCmd.Flags().Float64Var(&switchDrift, "drift-threshold", 0, "Max percentage count difference (default from config)")

	_ = aliasSwitchCmd.MarkFlagRequired("alias")
	_ = aliasSwitchCmd.MarkFlagRequired("from")
	_ = aliasSwitchCmd.MarkFlagRequired("to")
}

func runAliasSwitch(cmd *cobra.Command, args []string) error {
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

	drift := cfg.Safety.DriftThreshold
	if switchDrift > 0 {
		drift = switchDrift
	}

	switcher := aliascut.NewSwitcher(store, aliascut.Config{DriftThreshold: drift}, observability.CLILogger)
	result, err := switcher.Switch(ctx, switchAlias, switchFrom, switchTo)
	if err != nil {
		switch {
		case errors.Is(err, aliascut.ErrAliasUnresolved),
			errors.Is(err, aliascut.ErrIndexMissing):
			return exitError(foundry.ExitInvalidArgument, "Cutover validation failed", err)
		case errors.Is(err, aliascut.ErrEmptyTarget),
			errors.Is(err, aliascut.ErrDriftExceeded):
			return exitError(foundry.ExitInvalidArgument, "Cutover refused", err)
		default:
			return exitError(foundry.ExitExternalServiceUnavailable, "Cutover failed", err)
		}
	}

	fmt.Printf("Alias %s now points at %s (was %s).\n", result.Alias, result.Target, result.Source)
	fmt.Printf("Counts: source=%d target=%d drift=%.2f%%\n", result.SourceCount, result.TargetCount, result.DriftPct)
	return nil
}
