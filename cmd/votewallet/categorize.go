package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"votewallet/internal/store"
	"votewallet/internal/taxonomy"
)

var (
	taxonomyFile  string
	watchTaxonomy bool
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Recategorize the directory against the taxonomy",
	Long: `Runs the lexical categorizer over every active business. With --seed
the taxonomy vocabulary is (re)loaded from a YAML file first; with --watch
the command keeps running and recategorizes whenever the file changes.`,
	RunE: runCategorize,
}

func init() {
	categorizeCmd.Flags().StringVar(&taxonomyFile, "seed", "", "taxonomy YAML file to load before categorizing")
	categorizeCmd.Flags().BoolVar(&watchTaxonomy, "watch", false, "watch the seed file and recategorize on change")
}

func runCategorize(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if taxonomyFile != "" {
		nc, nt, err := taxonomy.Seed(s, taxonomyFile)
		if err != nil {
			return err
		}
		logger.Info("taxonomy seeded", zap.Int("categories", nc), zap.Int("tags", nt))
	}

	if err := categorizeAll(s); err != nil {
		return err
	}

	if !watchTaxonomy {
		return nil
	}
	if taxonomyFile == "" {
		return fmt.Errorf("--watch requires --seed")
	}

	watcher, err := taxonomy.NewWatcher(taxonomyFile, func(path string) {
		if _, _, err := taxonomy.Seed(s, path); err != nil {
			logger.Warn("taxonomy reload failed", zap.Error(err))
			return
		}
		if err := categorizeAll(s); err != nil {
			logger.Warn("recategorization failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	logger.Info("watching taxonomy file, Ctrl-C to stop", zap.String("file", taxonomyFile))
	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()
	return nil
}

func categorizeAll(s *store.Store) error {
	categories, err := s.ListCategories()
	if err != nil {
		return err
	}
	tags, err := s.ListTags()
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return fmt.Errorf("no categories in the taxonomy; seed it first with --seed")
	}
	engine := taxonomy.NewEngine(categories, tags)

	businesses, err := s.ListBusinesses(0)
	if err != nil {
		return err
	}

	changed := 0
	for _, b := range businesses {
		before := b.Category
		result := engine.Categorize(b)
		taxonomy.Apply(b, result)
		if err := s.SetBusinessTags(b.ID, b.Tags); err != nil {
			return fmt.Errorf("set tags for %s: %w", b.Name, err)
		}
		if err := s.UpdateBusiness(b); err != nil {
			return fmt.Errorf("update %s: %w", b.Name, err)
		}
		if b.Category != before {
			changed++
		}
	}

	fmt.Printf("Categorized %d businesses (%d changed primary category)\n", len(businesses), changed)
	return nil
}
