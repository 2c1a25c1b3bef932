package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"votewallet/internal/usage"
)

var (
	syncQueries   []string
	syncRegion    string
	syncNoImages  bool
	syncBatchSize int
	syncTarget    int
	syncTestMode  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync: fetch, dedupe, categorize, align, image",
	Long: `Fans each query out across the enabled data sources, deduplicates
the results against the directory, persists new and enriched records, and
runs the post-processing passes (categorization, alignment aggregation,
image backfill) over everything the run touched.

Interrupting with Ctrl-C finishes the in-flight batch before stopping.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVarP(&syncQueries, "query", "q", nil, "business name or keyword to sync (repeatable)")
	syncCmd.Flags().StringVarP(&syncRegion, "region", "r", "", "region to scope the sync (default: configured region)")
	syncCmd.Flags().BoolVar(&syncNoImages, "no-post-process", false, "persist records only, skip categorization/alignment/images")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "work items per batch, 1-100 (default: configured batch size)")
	syncCmd.Flags().IntVar(&syncTarget, "target", 0, "max candidates to process this run (default: configured target)")
	syncCmd.Flags().BoolVar(&syncTestMode, "test-mode", false, "run the full pipeline without writing to the store")
}

func runSync(cmd *cobra.Command, args []string) error {
	if len(syncQueries) == 0 {
		return fmt.Errorf("at least one --query is required")
	}
	region := syncRegion
	if region == "" {
		region = cfg.Sync.Region
	}
	if syncBatchSize > 0 {
		cfg.Sync.BatchSize = syncBatchSize
	}
	if syncTarget > 0 {
		cfg.Sync.TargetCount = syncTarget
	}
	if syncTestMode {
		cfg.Sync.TestMode = true
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tracker := usage.NewTracker(workspace)
	defer tracker.Close()

	orch, closer, err := buildOrchestrator(s, tracker, syncNoImages)
	if err != nil {
		return err
	}
	defer closer()

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("starting sync",
		zap.Int("queries", len(syncQueries)),
		zap.String("region", region),
		zap.Int("batch_size", cfg.Sync.BatchSize))

	result, err := orch.Sync(ctx, syncQueries, region)
	if saveErr := tracker.Save(); saveErr != nil {
		logger.Warn("persist usage snapshot", zap.Error(saveErr))
	}
	if result != nil {
		if cfg.Sync.TestMode {
			fmt.Println("Test mode: nothing was written to the store.")
		}
		fmt.Printf("Run %s finished in %v\n", result.RunID, result.Duration.Round(time.Millisecond))
		fmt.Printf("  processed: %d\n", result.RecordsProcessed)
		fmt.Printf("  added:     %d\n", result.RecordsAdded)
		fmt.Printf("  updated:   %d\n", result.RecordsUpdated)
		fmt.Printf("  failed:    %d\n", result.RecordsFailed)
		fmt.Printf("  success:   %.0f%%\n", result.SuccessRate()*100)
		if len(result.Errors) > 0 {
			fmt.Printf("  errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("    - %s\n", e)
			}
		}
	}
	return err
}
