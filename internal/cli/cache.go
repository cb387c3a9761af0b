package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dapseq/internal/cache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the artifact cache",
	}
	cmd.AddCommand(newCacheStatsCommand(rootOpts))
	cmd.AddCommand(newCachePruneCommand(rootOpts))
	return cmd
}

// CacheStats is the JSON payload of cache stats.
type CacheStats struct {
	Outcomes   map[string]int64 `json:"outcomes"`
	Artifacts  int              `json:"artifacts"`
	TotalBytes int64            `json:"total_bytes"`
}

func newCacheStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize cache outcomes recorded in the ledger",
		Long: `Print how often each outcome (cached, not_cached, corrupt, skipped) was
recorded, and how many artifacts the ledger tracks. Requires store.path.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(rootOpts, cmd)
		},
	}
}

func runCacheStats(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, err := openArtifacts(opts, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer a.Close()
	if a.store == nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, errNoStore.Error(), nil)
	}

	ctx := cmd.Context()
	counts, err := a.store.OutcomeCounts(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	arts, err := a.store.Artifacts(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}

	stats := CacheStats{Outcomes: counts, Artifacts: len(arts)}
	for _, art := range arts {
		stats.TotalBytes += art.SizeBytes
	}

	if formatter.JSON() {
		return formatter.Success(stats)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Artifacts: %d (%d bytes)\n", stats.Artifacts, stats.TotalBytes)
	fmt.Fprintln(w, "Outcomes:")
	for _, outcome := range []string{cache.OutcomeCached, cache.OutcomeNotCached, cache.OutcomeCorrupt, cache.OutcomeSkipped} {
		fmt.Fprintf(w, "  %-10s %d\n", outcome, counts[outcome])
	}
	if formatter.Verbose {
		for _, art := range arts {
			fmt.Fprintf(w, "  %s  %s  %d bytes  touched %s\n",
				art.Key, art.Path, art.SizeBytes, art.TouchedAt.Format(time.RFC3339))
		}
	}
	return nil
}

// PruneOptions holds flags for cache prune.
type PruneOptions struct {
	*RootOptions
	OlderThan time.Duration
	CacheDir  string
}

// PruneResult is the JSON payload of cache prune.
type PruneResult struct {
	Removed       []string `json:"removed"`
	LedgerRemoved int64    `json:"ledger_removed"`
	OlderThan     string   `json:"older_than"`
}

func newCachePruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete artifacts not used recently",
		Long: `Delete cached artifacts whose last use is older than --older-than, and
drop their ledger rows when a store is configured. Cache hits refresh an
artifact's modification time, so only unused artifacts are removed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePrune(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.OlderThan, "older-than", 30*24*time.Hour, "remove artifacts unused for this long")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "override cache.dir")

	return cmd
}

func runCachePrune(opts *PruneOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.OlderThan < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--older-than must not be negative", nil)
	}

	a, err := openArtifacts(opts.RootOptions, opts.CacheDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer a.Close()
	if a.cache.Dir() == "" {
		return formatter.Fail(ExitCommandError, ErrCodeCache, "cache.dir is not configured", nil)
	}

	ctx := cmd.Context()
	removed, err := a.cache.Prune(ctx, opts.OlderThan)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	slices.Sort(removed)

	result := PruneResult{Removed: removed, OlderThan: opts.OlderThan.String()}
	if result.Removed == nil {
		result.Removed = []string{}
	}
	if a.store != nil && len(removed) > 0 {
		n, err := a.store.DeleteArtifactsByPath(ctx, removed)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
		}
		result.LedgerRemoved = n
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Pruned %d artifact(s) older than %s\n", len(removed), result.OlderThan)
	for _, p := range removed {
		formatter.VerboseLog("  removed %s", p)
	}
	return nil
}
