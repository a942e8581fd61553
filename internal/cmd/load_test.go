package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamolt/searchload/internal/config"
	"github.com/datamolt/searchload/pkg/ingest"
	"github.com/datamolt/searchload/pkg/reconcile"
)

// resetLoadFlags restores the load command's package-level flag state.
func resetLoadFlags() {
	loadIndex, loadBucket, loadPrefix, loadFolder = "", "", "", ""
	loadFiles, loadIncludes, loadExcludes = nil, nil, nil
	loadBatchSize, loadWorkers = 0, 0
	loadRateLimit = 0
	loadResume, loadFreshLoad, loadSkipCleanup = false, false, false
	loadJobPath = ""
}

type fixedCounter struct{ count int64 }

func (c fixedCounter) Count(ctx context.Context, index string) (int64, error) {
	return c.count, nil
}

func TestAttachVerdictsAllBatchesFailed(t *testing.T) {
	// Every bulk request failed: rows were read but none accepted, and
	// nothing is live. Both verdicts must flag the shortfall.
	report := &runReport{Summary: &ingest.Summary{RowsRead: 100}}
	attachVerdicts(context.Background(), fixedCounter{}, "things", report, true,
		reconcile.Config{Attempts: 1})

	require.NotNil(t, report.Ingested)
	assert.Equal(t, reconcile.StatusMismatch, report.Ingested.Status)

	require.NotNil(t, report.Reconcile)
	assert.Equal(t, reconcile.StatusMismatch, report.Reconcile.Status)
	assert.Equal(t, int64(100), report.Reconcile.Expected)
	assert.Equal(t, int64(0), report.Reconcile.Actual)
}

func TestAttachVerdictsCleanRun(t *testing.T) {
	report := &runReport{Summary: &ingest.Summary{RowsRead: 5, RowsAccepted: 5}}
	attachVerdicts(context.Background(), fixedCounter{count: 5}, "things", report, true,
		reconcile.Config{Attempts: 1})

	assert.Equal(t, reconcile.StatusMatch, report.Ingested.Status)
	assert.Equal(t, reconcile.StatusMatch, report.Reconcile.Status)
}

func TestAttachVerdictsSkipsLiveCheckOnResume(t *testing.T) {
	report := &runReport{Summary: &ingest.Summary{RowsRead: 5, RowsAccepted: 5}}
	attachVerdicts(context.Background(), fixedCounter{count: 99}, "things", report, false,
		reconcile.Config{Attempts: 1})

	assert.NotNil(t, report.Ingested)
	assert.Nil(t, report.Reconcile)
}

func TestRunLoadEmptySourceExitsClean(t *testing.T) {
	resetLoadFlags()
	stateDir := t.TempDir()
	reportPath := filepath.Join(stateDir, "report.json")
	t.Setenv("SEARCHLOAD_REPORT_PATH", reportPath)
	t.Setenv("SEARCHLOAD_LEDGER_PATH", filepath.Join(stateDir, "ledger.json"))

	loadIndex = "things"
	loadFolder = t.TempDir() // no files to discover

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runLoad(cmd, nil))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "no loadable files found")
}

func TestResolveJobKeepsConfigTunables(t *testing.T) {
	resetLoadFlags()
	path := filepath.Join(t.TempDir(), "job.yaml")
	job := `version: "1.0"
index: things
source:
  folder: ./data
`
	require.NoError(t, os.WriteFile(path, []byte(job), 0o644))
	loadJobPath = path

	cfg := &config.Config{Load: config.LoadConfig{BatchSize: 250, Workers: 2, RateLimit: 1.5}}
	spec, loadCfg, err := resolveJob(cfg)
	require.NoError(t, err)

	assert.Equal(t, "./data", spec.Folder)
	assert.Equal(t, 250, loadCfg.BatchSize)
	assert.Equal(t, 2, loadCfg.Workers)
	assert.Equal(t, 1.5, loadCfg.RateLimit)
}

func TestResolveJobManifestTunablesOverrideConfig(t *testing.T) {
	resetLoadFlags()
	path := filepath.Join(t.TempDir(), "job.yaml")
	job := `version: "1.0"
index: things
source:
  folder: ./data
load:
  batch_size: 500
  workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(job), 0o644))
	loadJobPath = path
	loadWorkers = 16 // flags still win over the manifest

	cfg := &config.Config{Load: config.LoadConfig{BatchSize: 250, Workers: 2}}
	_, loadCfg, err := resolveJob(cfg)
	require.NoError(t, err)

	assert.Equal(t, 500, loadCfg.BatchSize)
	assert.Equal(t, 16, loadCfg.Workers)
}
