package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show directory statistics and recent sync runs",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n\n", s.Path())
	fmt.Printf("  Businesses:    %d (%d active, %d uncategorized)\n",
		stats.Businesses, stats.ActiveBusinesses, stats.UncategorizedHint)
	fmt.Printf("  Logos:         %d with, %d without\n", stats.WithLogo, stats.WithoutLogo)
	fmt.Printf("  Alignments:    %d\n", stats.Alignments)
	fmt.Printf("  Activities:    %d\n", stats.Activities)
	fmt.Printf("  Taxonomy:      %d categories, %d tags\n", stats.Categories, stats.Tags)
	fmt.Printf("  Sync runs:     %d\n", stats.SyncRuns)

	logs, err := s.ListRecentSyncLogs(5)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}

	fmt.Println("\nRecent syncs:")
	for _, l := range logs {
		duration := "-"
		if !l.FinishedAt.IsZero() {
			duration = l.FinishedAt.Sub(l.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("  [%s] %-10s %s  processed=%d added=%d updated=%d failed=%d  (%s)\n",
			l.StartedAt.Local().Format("2006-01-02 15:04"), l.Status, l.RunID,
			l.Processed, l.Added, l.Updated, l.Failed, duration)
		for _, e := range l.Errors {
			fmt.Printf("      error: %s\n", e)
		}
	}
	return nil
}
