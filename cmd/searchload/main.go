package main

import (
	"os"

	"github.com/datamolt/searchload/internal/cmd"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Execute())
}
