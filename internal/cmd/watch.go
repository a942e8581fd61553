package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/internal/observability"
	"github.com/datamolt/searchload/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the dead-letter queue",
	Long: `Long-poll the dead-letter queue and print each payload as indented
JSON. Printed messages are deleted from the queue.

Example:
  searchload watch
  searchload watch --queue-url https://sqs.us-east-1.amazonaws.com/123/searchload-dlq`,
	RunE: runWatch,
}

var watchQueueURL string

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchQueueURL, "queue-url", "", "Queue URL (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	queueURL := cfg.DeadLetter.QueueURL
	if watchQueueURL != "" {
		queueURL = watchQueueURL
	}
	if queueURL == "" {
		return exitError(foundry.ExitInvalidArgument, "Missing queue", errors.New("--queue-url is required (or set dead_letter.queue_url)"))
	}

	client, err := newQueueClient(ctx, cfg)
	if err != nil {
		observability.CLILogger.Error("Failed to create queue client", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to queue", err)
	}

	watcher := watch.New(client, watch.Config{QueueURL: queueURL}, printPayload, observability.CLILogger)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return exitError(foundry.ExitExternalServiceUnavailable, "Watch failed", err)
	}
	return nil
}

// printPayload renders a message body as indented JSON, falling back to
// the raw body when it is not JSON.
func printPayload(body string) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "  "); err != nil {
		fmt.Println(body)
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
