package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"votewallet/internal/usage"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show configured data sources and their usage",
	RunE:  runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tracker := usage.NewTracker(workspace)
	defer tracker.Close()
	stats := tracker.Stats()

	// The limiter carries each enabled source's enforced pacing.
	_, limiter, err := buildRegistry(tracker)
	if err != nil {
		return err
	}
	pacing := limiter.Snapshot()

	lastSync := map[string]time.Time{}
	rows, err := s.ListDataSources()
	if err != nil {
		return err
	}
	for _, d := range rows {
		lastSync[d.Name] = d.LastSyncedAt
	}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-12s %-8s %10s %10s %14s %10s %10s  %s\n",
		"SOURCE", "ENABLED", "REQ/HOUR", "INTERVAL", "REQUESTS", "FAILURES", "BYTES", "LAST SYNC")
	for _, name := range names {
		sc := cfg.Sources[name]
		enabled := "no"
		if sc.Enabled {
			enabled = "yes"
		}
		interval := "-"
		if p, ok := pacing[name]; ok && p.Interval > 0 {
			interval = p.Interval.Round(time.Millisecond).String()
		}
		u := stats[name]
		last := "never"
		if t := lastSync[name]; !t.IsZero() {
			last = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-12s %-8s %10d %10s %14d %10d %10s  %s\n",
			name, enabled, sc.RequestsPerHour, interval, u.Requests, u.Failures,
			humanBytes(u.BytesReceived), last)
	}
	return nil
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
