// Package pipeline orchestrates batch sync runs: fan queries out across
// source adapters, dedupe and persist the candidates, then run the
// post-processing passes (categorization, alignment, images) over the
// touched records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"votewallet/internal/alignment"
	"votewallet/internal/dedupe"
	"votewallet/internal/images"
	"votewallet/internal/logging"
	"votewallet/internal/taxonomy"
	"votewallet/internal/types"
)

// Phase is the run lifecycle state, visible in logs and the status
// command while a run is active.
type Phase string

const (
	PhaseInitializing    Phase = "initializing"
	PhaseProcessingBatch Phase = "processing_batch"
	PhasePostProcessing  Phase = "post_processing"
	PhaseReporting       Phase = "reporting"
	PhaseDone            Phase = "done"
)

// maxConsecutivePersistFailures aborts a run that keeps failing to write:
// a broken database would otherwise burn the whole API budget for nothing.
const maxConsecutivePersistFailures = 3

// Store is the persistence surface the orchestrator needs. *store.Store
// satisfies it; tests substitute failing fakes.
type Store interface {
	GetBusinessByNameCity(name, city string) (*types.Business, error)
	InsertBusiness(b *types.Business) (string, error)
	UpdateBusiness(b *types.Business) error
	ListBusinesses(limit int) ([]*types.Business, error)
	ListBusinessesWithoutLogo(limit int) ([]*types.Business, error)
	InsertActivity(a *types.PoliticalActivity) (int64, error)
	ListActivitiesByBusiness(businessID string) ([]types.PoliticalActivity, error)
	UpsertBusinessAlignment(a *types.BusinessAlignment) error
	ListCategories() ([]types.Category, error)
	ListTags() ([]types.Tag, error)
	SetBusinessTags(businessID string, tagNames []string) error
	InsertSyncLog(l *types.SyncLog) (int64, error)
	UpdateSyncLog(l *types.SyncLog) error
	TouchDataSource(name string, at time.Time) error
}

// Searcher fans one query out across the source adapters. *sources.Registry
// satisfies it.
type Searcher interface {
	SearchAll(ctx context.Context, query, region string) (map[string][]types.Candidate, map[string]error)
	Names() []string
}

// ImageBackfiller sources images for businesses missing one.
type ImageBackfiller interface {
	Run(ctx context.Context, businesses []*types.Business) (images.EngineStats, error)
}

// RelevanceScorer judges whether an activity is actually about the
// business it was attributed to. *alignment.RelevanceScorer satisfies it.
type RelevanceScorer interface {
	Score(ctx context.Context, b *types.Business, activity *types.PoliticalActivity) (float64, error)
}

// Statements scoring below this are dropped from aggregation.
const minStatementRelevance = 0.35

// Options tunes a sync run.
type Options struct {
	BatchSize       int
	InterBatchDelay time.Duration
	QueryTimeout    time.Duration
	MaxConcurrent   int
	SkipPostProcess bool
	// TestMode runs the full fetch/validate/dedupe path without writing
	// businesses or activities.
	TestMode bool
	// TargetCount caps candidates processed per run. 0 means unlimited.
	TargetCount int
	// MaxImagesPerRun caps how many businesses the post-sync image
	// backfill touches. 0 means unlimited.
	MaxImagesPerRun int
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.BatchSize > 100 {
		o.BatchSize = 100
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 60 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
}

// Orchestrator drives sync runs end to end.
type Orchestrator struct {
	store     Store
	searcher  Searcher
	policy    alignment.AggregationPolicy
	images    ImageBackfiller
	relevance RelevanceScorer
	opts      Options

	mu    sync.Mutex
	phase Phase
	runID string
}

// New builds an orchestrator. images may be nil to skip the image pass.
func New(store Store, searcher Searcher, policy alignment.AggregationPolicy, imgs ImageBackfiller, opts Options) *Orchestrator {
	opts.applyDefaults()
	if policy == nil {
		policy = alignment.NewKeywordPolicy()
	}
	return &Orchestrator{
		store:    store,
		searcher: searcher,
		policy:   policy,
		images:   imgs,
		opts:     opts,
		phase:    PhaseDone,
	}
}

// SetRelevanceScorer enables embedding-based filtering of news-derived
// statements during post-processing. A nil scorer is a no-op.
func (o *Orchestrator) SetRelevanceScorer(r RelevanceScorer) {
	o.relevance = r
}

// Phase reports the current run phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	runID := o.runID
	o.mu.Unlock()
	logging.Sync("[run:%s] phase -> %s", runID, p)
}

// queryResult is what one query task hands back to the collector.
type queryResult struct {
	query      string
	candidates []types.Candidate
	errs       map[string]error
}

// Sync runs the full pipeline over the given queries. The returned result
// always satisfies processed == added + updated + failed. Cancellation is
// honored between batches; an in-flight batch is allowed to finish so its
// records are not half-persisted.
func (o *Orchestrator) Sync(ctx context.Context, queries []string, region string) (*types.SyncResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	o.mu.Lock()
	o.runID = runID
	o.mu.Unlock()
	o.setPhase(PhaseInitializing)
	defer o.setPhase(PhaseDone)

	syncLog := &types.SyncLog{
		RunID:  runID,
		Source: "all",
		Region: region,
	}
	if !o.opts.TestMode {
		if _, err := o.store.InsertSyncLog(syncLog); err != nil {
			return nil, fmt.Errorf("open sync log: %w", err)
		}
	}

	runLog := logging.WithRequestID(logging.CategorySync, runID).
		WithField("region", region).
		WithField("queries", len(queries))
	runLog.Info("run started")

	result := &types.SyncResult{RunID: runID}
	var touched []*types.Business
	runErr := o.processBatches(ctx, queries, region, result, &touched)

	if runErr == nil && !o.opts.SkipPostProcess && !o.opts.TestMode {
		o.setPhase(PhasePostProcessing)
		if err := o.postProcess(ctx, touched); err != nil {
			// Post-processing failures degrade the run, they do not
			// invalidate the already-persisted records.
			result.Errors = append(result.Errors, err.Error())
			runLog.Warn("post-processing: %v", err)
		}
	}

	o.setPhase(PhaseReporting)
	result.Duration = time.Since(start)

	syncLog.FinishedAt = time.Now().UTC()
	syncLog.Processed = result.RecordsProcessed
	syncLog.Added = result.RecordsAdded
	syncLog.Updated = result.RecordsUpdated
	syncLog.Failed = result.RecordsFailed
	syncLog.Errors = result.Errors
	if runErr != nil {
		syncLog.Status = types.SyncFailed
	} else {
		syncLog.Status = types.SyncCompleted
		if !o.opts.TestMode {
			for _, name := range o.searcher.Names() {
				if err := o.store.TouchDataSource(name, syncLog.FinishedAt); err != nil {
					logging.SyncWarn("[run:%s] touch source %s: %v", runID, name, err)
				}
			}
		}
	}
	if !o.opts.TestMode {
		if err := o.store.UpdateSyncLog(syncLog); err != nil {
			logging.SyncError("[run:%s] finalize sync log: %v", runID, err)
		}
	}

	runLog.Info("%d processed (%d added, %d updated, %d failed) in %v, success rate %.0f%%",
		result.RecordsProcessed, result.RecordsAdded, result.RecordsUpdated,
		result.RecordsFailed, result.Duration.Round(time.Millisecond), result.SuccessRate()*100)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// processBatches schedules queries in batches, collects their candidates,
// and persists them.
func (o *Orchestrator) processBatches(ctx context.Context, queries []string, region string, result *types.SyncResult, touched *[]*types.Business) error {
	consecutivePersistFailures := 0

	for batchStart := 0; batchStart < len(queries); batchStart += o.opts.BatchSize {
		// Cancellation is a between-batch decision.
		if err := ctx.Err(); err != nil {
			return err
		}

		end := batchStart + o.opts.BatchSize
		if end > len(queries) {
			end = len(queries)
		}
		batch := queries[batchStart:end]
		o.setPhase(PhaseProcessingBatch)

		for _, qr := range o.runBatch(ctx, batch, region) {
			for _, c := range qr.candidates {
				if o.opts.TargetCount > 0 && result.RecordsProcessed >= o.opts.TargetCount {
					logging.Sync("[run:%s] target count %d reached, stopping", o.runID, o.opts.TargetCount)
					return nil
				}
				result.RecordsProcessed++
				b, outcome, err := o.persistCandidate(&c)
				if err != nil {
					result.RecordsFailed++
					result.Errors = append(result.Errors, types.ReportString(c.Name, err))
					if errors.Is(err, types.ErrPersistence) {
						consecutivePersistFailures++
						if consecutivePersistFailures >= maxConsecutivePersistFailures {
							return fmt.Errorf("%w: %d consecutive persistence failures, aborting run",
								types.ErrPersistence, consecutivePersistFailures)
						}
					}
					continue
				}
				consecutivePersistFailures = 0
				*touched = append(*touched, b)
				switch outcome {
				case outcomeAdded:
					result.RecordsAdded++
				case outcomeUpdated:
					result.RecordsUpdated++
				}
			}
			for source, err := range qr.errs {
				result.Errors = append(result.Errors, types.ReportString(source, err))
			}
		}

		logging.Sync("[run:%s] batch %d-%d done, %d processed so far (%d failed)",
			o.runID, batchStart, end-1, result.RecordsProcessed, result.RecordsFailed)

		if end < len(queries) && o.opts.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.opts.InterBatchDelay):
			}
		}
	}
	return nil
}

// runBatch fans the batch's queries across a bounded set of workers and
// drains their results.
func (o *Orchestrator) runBatch(ctx context.Context, batch []string, region string) []queryResult {
	results := make(chan queryResult, len(batch))
	active := make(map[string]struct{})
	var mu sync.Mutex

	pending := append([]string(nil), batch...)
	collected := make([]queryResult, 0, len(batch))

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

schedule:
	// Launch whatever fits under the concurrency cap.
	mu.Lock()
	for len(active) < o.opts.MaxConcurrent && len(pending) > 0 {
		query := pending[0]
		pending = pending[1:]
		active[query] = struct{}{}
		go o.runSingleQuery(ctx, query, region, results)
	}
	activeCount := len(active)
	pendingCount := len(pending)
	mu.Unlock()

	if activeCount == 0 && pendingCount == 0 {
		return collected
	}

	for {
		select {
		case qr := <-results:
			mu.Lock()
			delete(active, qr.query)
			mu.Unlock()
			collected = append(collected, qr)
			goto schedule
		case <-ticker.C:
			goto schedule
		}
	}
}

// runSingleQuery executes one query with its own timeout and always
// reports back, even on panic-free failure paths.
func (o *Orchestrator) runSingleQuery(ctx context.Context, query, region string, results chan<- queryResult) {
	qctx, cancel := context.WithTimeout(ctx, o.opts.QueryTimeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryPerformance, fmt.Sprintf("query %q", query))
	perSource, errs := o.searcher.SearchAll(qctx, query, region)
	timer.StopWithThreshold(o.opts.QueryTimeout / 2)

	var candidates []types.Candidate
	for _, cs := range perSource {
		candidates = append(candidates, cs...)
	}
	results <- queryResult{query: query, candidates: candidates, errs: errs}
}

type persistOutcome int

const (
	outcomeAdded persistOutcome = iota
	outcomeUpdated
)

// persistCandidate validates, dedupes, and writes one candidate plus its
// activity evidence.
func (o *Orchestrator) persistCandidate(c *types.Candidate) (*types.Business, persistOutcome, error) {
	existing, err := dedupe.FindExisting(o.store, c)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	// Enrichment candidates only need to resolve; fresh inserts must
	// arrive with a category.
	v := dedupe.Validate(c)
	if existing != nil {
		v = dedupe.ValidateMerge(c)
	}
	if !v.IsValid {
		return nil, 0, fmt.Errorf("%w: candidate %q: %v", types.ErrValidationFailed, c.Name, v.Errors)
	}

	var b *types.Business
	outcome := outcomeAdded
	if o.opts.TestMode {
		if existing != nil {
			return dedupe.Merge(existing, c), outcomeUpdated, nil
		}
		return dedupe.FromCandidate(c), outcomeAdded, nil
	}
	if existing != nil {
		b = dedupe.Merge(existing, c)
		if err := o.store.UpdateBusiness(b); err != nil {
			return nil, 0, fmt.Errorf("%w: update %q: %v", types.ErrPersistence, c.Name, err)
		}
		outcome = outcomeUpdated
	} else {
		b = dedupe.FromCandidate(c)
		if _, err := o.store.InsertBusiness(b); err != nil {
			return nil, 0, fmt.Errorf("%w: insert %q: %v", types.ErrPersistence, c.Name, err)
		}
	}

	for i := range c.Activities {
		act := c.Activities[i]
		act.BusinessID = b.ID
		if _, err := o.store.InsertActivity(&act); err != nil {
			return nil, 0, fmt.Errorf("%w: activity for %q: %v", types.ErrPersistence, c.Name, err)
		}
	}
	return b, outcome, nil
}

// filterByRelevance drops statement activities whose description does not
// actually concern the business. Donations and other record-backed types
// pass through untouched. Scoring errors keep the activity rather than
// silently losing signal.
func (o *Orchestrator) filterByRelevance(ctx context.Context, b *types.Business, activities []types.PoliticalActivity) []types.PoliticalActivity {
	if o.relevance == nil {
		return activities
	}

	kept := activities[:0:0]
	for i := range activities {
		act := &activities[i]
		if act.Type != types.ActivityStatement {
			kept = append(kept, *act)
			continue
		}
		score, err := o.relevance.Score(ctx, b, act)
		if err != nil {
			logging.SyncWarn("relevance scoring failed for %s, keeping activity: %v", b.Name, err)
			kept = append(kept, *act)
			continue
		}
		if score >= minStatementRelevance {
			kept = append(kept, *act)
		} else {
			logging.Sync("dropped low-relevance statement for %s (score %.2f)", b.Name, score)
		}
	}
	return kept
}

// postProcess recategorizes and realigns the touched businesses, then
// backfills images for any business still missing one.
func (o *Orchestrator) postProcess(ctx context.Context, touched []*types.Business) error {
	if len(touched) == 0 {
		return nil
	}

	categories, err := o.store.ListCategories()
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	tags, err := o.store.ListTags()
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	engine := taxonomy.NewEngine(categories, tags)

	for _, b := range touched {
		if err := ctx.Err(); err != nil {
			return err
		}

		taxonomy.Apply(b, engine.Categorize(b))
		if err := o.store.SetBusinessTags(b.ID, b.Tags); err != nil {
			return fmt.Errorf("set tags for %s: %w", b.ID, err)
		}

		activities, err := o.store.ListActivitiesByBusiness(b.ID)
		if err != nil {
			return fmt.Errorf("load activities for %s: %w", b.ID, err)
		}
		activities = o.filterByRelevance(ctx, b, activities)
		if len(activities) > 0 {
			vector, confidence, err := o.policy.Aggregate(ctx, activities)
			if err != nil {
				return fmt.Errorf("aggregate alignment for %s: %w", b.ID, err)
			}
			if err := o.store.UpsertBusinessAlignment(&types.BusinessAlignment{
				BusinessID: b.ID,
				Vector:     vector,
				Confidence: confidence,
				Source:     o.policy.Name(),
			}); err != nil {
				return fmt.Errorf("persist alignment for %s: %w", b.ID, err)
			}
		}

		if err := o.store.UpdateBusiness(b); err != nil {
			return fmt.Errorf("persist categorization for %s: %w", b.ID, err)
		}
	}

	if o.images != nil {
		var missing []*types.Business
		for _, b := range touched {
			if b.LogoURL == "" {
				missing = append(missing, b)
			}
		}
		if max := o.opts.MaxImagesPerRun; max > 0 && len(missing) > max {
			logging.Sync("[run:%s] image backfill capped at %d of %d businesses", o.runID, max, len(missing))
			missing = missing[:max]
		}
		if len(missing) > 0 {
			if _, err := o.images.Run(ctx, missing); err != nil {
				return fmt.Errorf("image backfill: %w", err)
			}
		}
	}
	return nil
}
