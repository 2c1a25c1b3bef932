package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var imagesLimit int

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Backfill logos for businesses that have none",
	RunE:  runImages,
}

func init() {
	imagesCmd.Flags().IntVar(&imagesLimit, "limit", 0, "max businesses to process (0 = config default)")
}

func runImages(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	engine, closer, err := buildImageEngine(s)
	if err != nil {
		return err
	}
	defer closer()
	if engine == nil {
		return fmt.Errorf("no image providers enabled in configuration")
	}

	limit := imagesLimit
	if limit <= 0 {
		limit = cfg.Images.MaxPerRun
	}
	businesses, err := s.ListBusinessesWithoutLogo(limit)
	if err != nil {
		return err
	}
	if len(businesses) == 0 {
		fmt.Println("Every active business already has a logo.")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := engine.Run(ctx, businesses)
	fmt.Printf("Processed %d businesses: %d found, %d downloaded, %d failed (%.0f%% success)\n",
		stats.Processed, stats.Found, stats.Downloaded, stats.Failed, stats.SuccessRate()*100)
	return err
}
