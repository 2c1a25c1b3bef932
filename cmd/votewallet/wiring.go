package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"votewallet/internal/alignment"
	"votewallet/internal/images"
	"votewallet/internal/pipeline"
	"votewallet/internal/ratelimit"
	"votewallet/internal/sources"
	"votewallet/internal/store"
	"votewallet/internal/types"
	"votewallet/internal/usage"
)

// openStore opens the configured database and mirrors the source
// configuration into it.
func openStore() (*store.Store, error) {
	s, err := store.Open(databasePath())
	if err != nil {
		return nil, err
	}
	for name, sc := range cfg.Sources {
		row := &types.DataSource{
			Name:            name,
			RequestsPerHour: sc.RequestsPerHour,
			APIKeyEnv:       sc.APIKeyEnv,
			Active:          sc.Enabled,
		}
		if err := s.UpsertDataSource(row); err != nil {
			s.Close()
			return nil, fmt.Errorf("register source %s: %w", name, err)
		}
	}
	return s, nil
}

// buildRegistry assembles the enabled source adapters behind a shared
// throttled client.
func buildRegistry(tracker *usage.Tracker) (*sources.Registry, *ratelimit.Limiter, error) {
	limiter := ratelimit.New()
	client := sources.NewClient(cfg.GetRequestTimeout(), limiter, tracker)
	registry := sources.NewRegistry()

	for name, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}
		if err := limiter.SetLimit(name, sc.RequestsPerHour); err != nil {
			return nil, nil, err
		}

		switch name {
		case "overpass":
			registry.Register(sources.NewOverpassAdapter(client, sc.BaseURL))
		case "wikipedia":
			registry.Register(sources.NewWikipediaAdapter(client, sc.BaseURL))
		case "donations":
			registry.Register(sources.NewDonationsAdapter(client, sc.BaseURL, cfg.SourceAPIKey(name)))
		case "news":
			registry.Register(sources.NewNewsAdapter(client, sc.BaseURL))
		default:
			logger.Warn("unknown source in configuration, skipping", zap.String("source", name))
		}
	}
	return registry, limiter, nil
}

// buildPolicy selects the configured aggregation policy, falling back to
// the keyword policy if the scripted one cannot load.
func buildPolicy() alignment.AggregationPolicy {
	if cfg.Alignment.Policy == "scripted" && cfg.Alignment.ScriptPath != "" {
		p, err := alignment.NewScriptedPolicy(cfg.Alignment.ScriptPath)
		if err != nil {
			logger.Warn("scripted policy unavailable, using keyword policy", zap.Error(err))
			return alignment.NewKeywordPolicy()
		}
		return p
	}
	return alignment.NewKeywordPolicy()
}

// buildImageEngine assembles the enabled image provider chain. Returns nil
// when no provider is enabled. The returned closer reaps the headless
// browser if webshot is on.
func buildImageEngine(s *store.Store) (*images.Engine, func(), error) {
	httpClient := &http.Client{Timeout: cfg.GetImageTimeout()}
	closer := func() {}

	var providers []images.Provider
	p := cfg.Images.Providers
	if p.LogoCDN {
		providers = append(providers, images.NewLogoCDNProvider(httpClient, ""))
	}
	if p.Wikimedia {
		providers = append(providers, images.NewWikimediaProvider(httpClient, ""))
	}
	if p.PhotoSearch {
		providers = append(providers, images.NewPhotoSearchProvider(httpClient, "", cfg.SourceAPIKey("photosearch")))
	}
	if p.Webshot {
		ws, err := images.NewWebshotProvider()
		if err != nil {
			return nil, nil, fmt.Errorf("webshot provider: %w", err)
		}
		providers = append(providers, ws)
		closer = func() { _ = ws.Close() }
	}
	if p.Placeholder {
		providers = append(providers, images.NewPlaceholderProvider(""))
	}

	if len(providers) == 0 {
		return nil, closer, nil
	}
	return images.NewEngine(providers, s, cfg.GetImageTimeout(), cfg.Images.MinByteSize), closer, nil
}

// buildOrchestrator wires the full pipeline for a sync run.
func buildOrchestrator(s *store.Store, tracker *usage.Tracker, skipPostProcess bool) (*pipeline.Orchestrator, func(), error) {
	registry, _, err := buildRegistry(tracker)
	if err != nil {
		return nil, nil, err
	}

	imgEngine, imgCloser, err := buildImageEngine(s)
	if err != nil {
		return nil, nil, err
	}

	opts := pipeline.Options{
		BatchSize:       cfg.Sync.BatchSize,
		InterBatchDelay: cfg.GetInterBatchDelay(),
		QueryTimeout:    3 * cfg.GetRequestTimeout(),
		SkipPostProcess: skipPostProcess,
		TestMode:        cfg.Sync.TestMode,
		TargetCount:     cfg.Sync.TargetCount,
		MaxImagesPerRun: cfg.Images.MaxPerRun,
	}

	var backfiller pipeline.ImageBackfiller
	if imgEngine != nil {
		backfiller = imgEngine
	}
	orch := pipeline.New(s, registry, buildPolicy(), backfiller, opts)

	if cfg.Alignment.UseEmbeddings {
		scorer, err := alignment.NewRelevanceScorer(context.Background(),
			os.Getenv("GEMINI_API_KEY"), cfg.Alignment.EmbeddingModel)
		if err != nil {
			logger.Warn("relevance scoring unavailable", zap.Error(err))
		} else if scorer != nil {
			orch.SetRelevanceScorer(scorer)
		}
	}
	return orch, imgCloser, nil
}
