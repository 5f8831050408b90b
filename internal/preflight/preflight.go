package preflight

import (
	"context"
	"fmt"

	"xritd/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	for _, folder := range cfg.Folders {
		results = append(results,
			CheckDirectoryAccess(fmt.Sprintf("Folder %s", folder.Name), folder.Path),
			CheckDirectoryAccess(fmt.Sprintf("Output %s", folder.Name), folder.OutputDir),
			CheckFreeSpace(fmt.Sprintf("Output %s space", folder.Name), folder.OutputDir, MinFreeBytes),
		)
	}

	if cfg.Publish.NATSURL != "" {
		results = append(results, CheckNATS(ctx, cfg.Publish.NATSURL, cfg.Publish.Timeout()))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
