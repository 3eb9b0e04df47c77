package preflight

import (
	"context"

	"followup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the slower checks.
type Options struct {
	// Network enables checks that call remote APIs.
	Network bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	results = append(results, CheckCache(cfg))
	results = append(results, CheckGranolaAuth(ctx, cfg, opts.Network))

	if opts.Network {
		results = append(results, CheckLLM(ctx, "Draft LLM", cfg.LLM))
	} else {
		results = append(results, CheckLLMKey("Draft LLM", cfg.LLM))
	}

	results = append(results, CheckGmail(cfg))

	if cfg.Notifications.Desktop {
		results = append(results, CheckNotifierBinary(cfg))
	}

	return results
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
