package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/internal/observability"
	"github.com/datamolt/searchload/pkg/deadletter"
	"github.com/datamolt/searchload/pkg/indexsafety"
	"github.com/datamolt/searchload/pkg/ingest"
	"github.com/datamolt/searchload/pkg/ledger"
	"github.com/datamolt/searchload/pkg/manifest"
	"github.com/datamolt/searchload/pkg/reconcile"
	"github.com/datamolt/searchload/pkg/source"
	"github.com/datamolt/searchload/pkg/storeclient"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load files into a search collection",
	Long: `Discover CSV and JSON files from local disk or object storage and
bulk-load them into the destination collection.

Unless --resume or --skip-cleanup is given, the destination index is
emptied first: purged in place when small, dropped and recreated when
large. An aliased index is never cleaned.

Example:
  searchload load --index products-v2 --bucket my-data --prefix exports/
  searchload load --index products-v2 --folder ./exports --resume
  searchload load --job load.yaml`,
	RunE: runLoad,
}

var (
	loadIndex       string
	loadBucket      string
	loadPrefix      string
	loadFolder      string
	loadFiles       []string
	loadIncludes    []string
	loadExcludes    []string
	loadBatchSize   int
	loadWorkers     int
	loadRateLimit   float64
	loadResume      bool
	loadFreshLoad   bool
	loadSkipCleanup bool
	loadJobPath     string
)

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVarP(&loadIndex, "index", "i", "", "Destination collection name")
	loadCmd.Flags().StringVar(&loadBucket, "bucket", "", "Object-store bucket to scan")
	loadCmd.Flags().StringVar(&loadPrefix, "prefix", "", "Key prefix within the bucket")
	loadCmd.Flags().StringVar(&loadFolder, "folder", "", "Local directory to scan")
	loadCmd.Flags().StringSliceVar(&loadFiles, "files", nil, "Explicit local file paths")
	loadCmd.Flags().StringSliceVar(&loadIncludes, "include", nil, "Glob patterns for files to include")
	loadCmd.Flags().StringSliceVar(&loadExcludes, "exclude", nil, "Glob patterns for files to exclude")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0, "Documents per bulk request (default from config)")
	loadCmd.Flags().IntVar(&loadWorkers, "workers", 0, "Concurrent bulk dispatchers (default from config)")
	loadCmd.Flags().Float64Var(&loadRateLimit, "rate-limit", 0, "Max bulk requests per second (0 = unlimited)")
	loadCmd.Flags().BoolVar(&loadResume, "resume", false, "Skip files the progress ledger marks complete")
	loadCmd.Flags().BoolVar(&loadFreshLoad, "fresh-load", false, "Clear the progress ledger before loading")
	loadCmd.Flags().BoolVar(&loadSkipCleanup, "skip-cleanup", false, "Leave the destination index untouched before loading")
	loadCmd.Flags().StringVarP(&loadJobPath, "job", "j", "", "Path to job manifest")
}

// runReport is the JSON document written after every run.
type runReport struct {
	Summary *ingest.Summary `json:"summary"`

	// Ingested compares rows read against rows the store accepted.
	Ingested *reconcile.Result `json:"ingested,omitempty"`

	// Reconcile compares rows read against the live document count.
	Reconcile *reconcile.Result `json:"reconcile,omitempty"`

	Cleanup     *indexsafety.Result `json:"cleanup,omitempty"`
	Warning     string              `json:"warning,omitempty"`
	CompletedAt time.Time           `json:"completed_at"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if loadResume && loadFreshLoad {
		return exitError(foundry.ExitInvalidArgument, "Invalid flags", errors.New("--resume and --fresh-load are mutually exclusive"))
	}

	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	spec, loadCfg, err := resolveJob(cfg)
	if err != nil {
		return err
	}
	if loadIndex == "" {
		return exitError(foundry.ExitInvalidArgument, "Missing destination", errors.New("--index is required (or set index in the job manifest)"))
	}
	if err := spec.Validate(); err != nil {
		observability.CLILogger.Error("Invalid source specification", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid source specification", err)
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

	var objectStore source.ObjectStore
	if spec.Bucket != "" {
		s3Store, err := source.NewS3Store(ctx, source.S3Config{
			Region:   cfg.AWS.Region,
			Endpoint: cfg.AWS.Endpoint,
			Profile:  cfg.AWS.Profile,
		})
		if err != nil {
			observability.CLILogger.Error("Failed to create object store client", zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to object storage", err)
		}
		objectStore = s3Store
	}

	runID := uuid.New().String()

	discovery := source.NewDiscovery(objectStore, observability.CLILogger)
	files, err := discovery.Discover(ctx, spec)
	if err != nil {
		if errors.Is(err, source.ErrNoFiles) {
			// An empty source is a warning, not a failure: report it and
			// finish cleanly.
			observability.CLILogger.Warn("No loadable files found", zap.Error(err))
			writeReport(cfg.ReportPath, &runReport{
				Summary:     &ingest.Summary{RunID: runID, Collection: loadIndex},
				Warning:     "no loadable files found",
				CompletedAt: time.Now(),
			})
			return nil
		}
		observability.CLILogger.Error("File discovery failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "File discovery failed", err)
	}

	observability.CLILogger.Info("Starting load",
		zap.String("run_id", runID),
		zap.String("index", loadIndex),
		zap.Int("files", len(files)),
		zap.Int("batch_size", loadCfg.BatchSize),
		zap.Int("workers", loadCfg.Workers))

	var cleanup *indexsafety.Result
	if !loadResume && !loadSkipCleanup {
		manager := indexsafety.NewManager(store, indexsafety.Config{
			RecreateThreshold: cfg.Safety.CleanupThreshold,
		}, observability.CLILogger)
		cleanup, err = manager.ValidateAndCleanup(ctx, loadIndex)
		if err != nil {
			if errors.Is(err, indexsafety.ErrIndexAliased) {
				observability.CLILogger.Error("Destination index is aliased", zap.Error(err))
				return exitError(foundry.ExitInvalidArgument, "Destination index is bound to an alias", err)
			}
			observability.CLILogger.Error("Index cleanup failed", zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Index cleanup failed", err)
		}
	}

	reporter, err := buildReporter(ctx, cfg)
	if err != nil {
		observability.CLILogger.Error("Failed to create dead-letter reporter", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to dead-letter queue", err)
	}

	dispatcher := ingest.NewDispatcher(store, loadIndex, *loadCfg, observability.CLILogger)
	runner := ingest.NewRunner(dispatcher, discovery, ledger.New(cfg.LedgerPath), reporter, loadIndex, runID, observability.CLILogger)

	summary, err := runner.Run(ctx, files, ingest.Options{Resume: loadResume, FreshLoad: loadFreshLoad})
	if err != nil {
		observability.CLILogger.Error("Load failed", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Load failed", err)
	}
	if ctx.Err() != nil {
		writeReport(cfg.ReportPath, &runReport{Summary: summary, Cleanup: cleanup, CompletedAt: time.Now()})
		return exitError(foundry.ExitSignalInt, "Load cancelled", ctx.Err())
	}

	report := &runReport{Summary: summary, Cleanup: cleanup, CompletedAt: time.Now()}
	attachVerdicts(ctx, store, loadIndex, report, !loadResume && !loadSkipCleanup, reconcile.DefaultConfig())
	writeReport(cfg.ReportPath, report)

	// Count mismatches are advisory: they land in the report and the log,
	// but a completed run exits clean.
	if report.Reconcile != nil && report.Reconcile.Status == reconcile.StatusMismatch {
		observability.CLILogger.Warn("Document count mismatch after load",
			zap.Int64("expected", report.Reconcile.Expected),
			zap.Int64("actual", report.Reconcile.Actual))
	}
	return nil
}

// attachVerdicts records the run's count checks on the report: rows read
// versus rows the store accepted always, and rows read versus the live
// document count when the run started from an empty index. The expected
// side is rows read, so bulk failures surface as a mismatch instead of
// reconciling against their own shortfall.
func attachVerdicts(ctx context.Context, counter reconcile.Counter, index string, report *runReport, checkLive bool, cfg reconcile.Config) {
	summary := report.Summary
	ingested := reconcile.Verify(summary.RowsRead, summary.RowsAccepted)
	report.Ingested = &ingested

	if !checkLive {
		return
	}
	live, err := reconcile.VerifyLive(ctx, counter, index, summary.RowsRead, cfg, observability.CLILogger)
	report.Reconcile = &live
	if err != nil {
		observability.CLILogger.Warn("Count reconciliation inconclusive", zap.Error(err))
	}
}

// resolveJob merges flag values with an optional job manifest. Flags win
// over manifest values.
func resolveJob(cfg *config.Config) (source.Spec, *ingest.Config, error) {
	loadCfg := ingest.Config{
		BatchSize: cfg.Load.BatchSize,
		Workers:   cfg.Load.Workers,
		RateLimit: cfg.Load.RateLimit,
	}

	if loadJobPath != "" {
		m, err := manifest.Load(loadJobPath)
		if err != nil {
			observability.CLILogger.Error("Failed to load manifest",
				zap.String("path", loadJobPath),
				zap.Error(err))
			return source.Spec{}, nil, exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
		}
		if loadIndex == "" {
			loadIndex = m.Index
		}
		if loadBucket == "" {
			loadBucket = m.Source.Bucket
		}
		if loadPrefix == "" {
			loadPrefix = m.Source.Prefix
		}
		if loadFolder == "" {
			loadFolder = m.Source.Folder
		}
		if len(loadFiles) == 0 {
			loadFiles = m.Source.Files
		}
		if len(loadIncludes) == 0 {
			loadIncludes = m.Source.Includes
		}
		if len(loadExcludes) == 0 {
			loadExcludes = m.Source.Excludes
		}
		if m.Load.BatchSize > 0 {
			loadCfg.BatchSize = m.Load.BatchSize
		}
		if m.Load.Workers > 0 {
			loadCfg.Workers = m.Load.Workers
		}
		if m.Load.RateLimit > 0 {
			loadCfg.RateLimit = m.Load.RateLimit
		}
		if m.Load.SkipCleanup {
			loadSkipCleanup = true
		}
	}

	if loadBatchSize > 0 {
		loadCfg.BatchSize = loadBatchSize
	}
	if loadWorkers > 0 {
		loadCfg.Workers = loadWorkers
	}
	if loadRateLimit > 0 {
		loadCfg.RateLimit = loadRateLimit
	}

	spec := source.Spec{
		Folder:   loadFolder,
		Files:    loadFiles,
		Bucket:   loadBucket,
		Prefix:   loadPrefix,
		Includes: loadIncludes,
		Excludes: loadExcludes,
	}
	return spec, &loadCfg, nil
}

// buildReporter wires the dead-letter queue when enabled.
func buildReporter(ctx context.Context, cfg *config.Config) (*deadletter.Reporter, error) {
	dlCfg := deadletter.Config{QueueURL: cfg.DeadLetter.QueueURL, Enabled: cfg.DeadLetter.Enabled}
	if !cfg.DeadLetter.Enabled {
		return deadletter.NewReporter(nil, dlCfg, observability.CLILogger), nil
	}

	client, err := newQueueClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return deadletter.NewReporter(client, dlCfg, observability.CLILogger), nil
}

// writeReport persists the run report; failures are logged, never fatal.
func writeReport(path string, report *runReport) {
	if path == "" {
		return
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			observability.CLILogger.Warn("Failed to create report directory", zap.Error(err))
			return
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		observability.CLILogger.Warn("Failed to encode run report", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		observability.CLILogger.Warn("Failed to write run report",
			zap.String("path", path),
			zap.Error(err))
		return
	}
	observability.CLILogger.Info("Wrote run report", zap.String("path", path))
}
