// internal/explore/explore.go

// Package explore runs the active-learning campaign: an initial random
// batch is measured against the objective, a model is trained on everything
// measured so far, the whole pool is pushed through batched inference, and
// an acquisition metric picks the next batch. The loop stops on an
// iteration budget or when the best score stalls.
package explore

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/SyedDaiam9101/prospect/internal/acquire"
	"github.com/SyedDaiam9101/prospect/internal/cache"
	"github.com/SyedDaiam9101/prospect/internal/ledger"
	"github.com/SyedDaiam9101/prospect/internal/metrics"
	"github.com/SyedDaiam9101/prospect/internal/model"
	"github.com/SyedDaiam9101/prospect/internal/objective"
	"github.com/SyedDaiam9101/prospect/internal/pool"
)

// Explorer drives one campaign over a candidate pool.
type Explorer struct {
	cfg       Campaign
	mdl       model.Model
	pool      *pool.Pool
	obj       *objective.Lookup
	featurize model.Featurizer
	metric    acquire.Metric
	scorer    *acquire.Scorer
	log       *slog.Logger
	ledger    *ledger.Ledger
	cache     *cache.Cache
	rng       *rand.Rand

	observed map[string]float64
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithLogger sets the campaign logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Explorer) { e.log = log }
}

// WithLedger enables run recording.
func WithLedger(l *ledger.Ledger) Option {
	return func(e *Explorer) { e.ledger = l }
}

// WithCache stores each iteration's pool predictions for reuse by the
// serving surface.
func WithCache(c *cache.Cache) Option {
	return func(e *Explorer) { e.cache = c }
}

// New builds an Explorer. The acquisition metric's capability needs are
// checked here against the model's declared capabilities: the model contract
// itself never enforces this, the explorer does.
func New(cfg Campaign, mdl model.Model, p *pool.Pool, obj *objective.Lookup, featurize model.Featurizer, opts ...Option) (*Explorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metric, err := acquire.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	if needs := metric.Needs(); !mdl.Provides().Has(needs) {
		return nil, fmt.Errorf("explore: metric %s needs %s but model provides %s",
			metric, needs, mdl.Provides())
	}

	e := &Explorer{
		cfg:       cfg,
		mdl:       mdl,
		pool:      p,
		obj:       obj,
		featurize: featurize,
		metric:    metric,
		scorer: acquire.NewScorer(metric,
			acquire.WithBeta(cfg.Beta),
			acquire.WithXi(cfg.Xi),
			acquire.WithSeed(cfg.Seed)),
		log:      slog.Default(),
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		observed: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the campaign to completion and returns its summary.
func (e *Explorer) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := e.log.With("run", runID, "campaign", e.cfg.Name)
	log.Info("starting campaign",
		"pool", e.pool.Size(), "metric", e.metric.String(),
		"init", e.cfg.InitSize, "batch", e.cfg.BatchSize, "iters", e.cfg.MaxIters)

	if e.ledger != nil {
		if err := e.ledger.StartRun(ctx, runID, e.cfg.Name); err != nil {
			return nil, err
		}
	}

	best := math.Inf(-1)
	bestID := ""
	iterations := 0
	stall := 0

	batch := e.initialBatch()
	for iteration := 0; ; iteration++ {
		scores, unknown := e.obj.Measure(batch)
		if len(unknown) > 0 {
			log.Warn("objective has no value for some candidates", "iteration", iteration, "unknown", len(unknown))
		}
		if iteration == 0 && len(scores) == 0 {
			return nil, fmt.Errorf("explore: objective knows none of the initial batch")
		}
		maps.Copy(e.observed, scores)
		if e.ledger != nil {
			if err := e.ledger.RecordBatch(ctx, runID, iteration, scores); err != nil {
				return nil, err
			}
		}

		prevBest := best
		for id, s := range scores {
			if s > best || (s == best && id < bestID) {
				best = s
				bestID = id
			}
		}
		metrics.RecordExploration(best, len(e.observed))
		log.Info("iteration complete",
			"iteration", iteration, "measured", len(scores),
			"explored", len(e.observed), "best", best, "best_id", bestID)
		iterations = iteration

		if iteration >= e.cfg.MaxIters {
			log.Info("iteration budget reached")
			break
		}
		if iteration > 0 && e.cfg.Patience > 0 {
			if best-prevBest < e.cfg.Delta {
				stall++
			} else {
				stall = 0
			}
			if stall >= e.cfg.Patience {
				log.Info("stopping early", "stalled_iterations", stall)
				break
			}
		}

		if err := e.train(ctx); err != nil {
			return nil, err
		}
		batch = e.acquireBatch(ctx, best)
		if len(batch) == 0 {
			log.Info("pool exhausted")
			break
		}
	}

	result := &Result{
		RunID:      runID,
		Campaign:   e.cfg.Name,
		Metric:     e.metric.String(),
		Iterations: iterations,
		Explored:   len(e.observed),
		Best:       best,
		BestID:     bestID,
		Top:        e.topObserved(e.cfg.BatchSize),
	}
	if e.cfg.TopK > 0 {
		result.TopKRecall = e.recall(e.cfg.TopK)
	}
	log.Info("campaign finished",
		"iterations", result.Iterations, "explored", result.Explored,
		"best", result.Best, "best_id", result.BestID)
	return result, nil
}

// initialBatch reservoir-samples the first candidates from the lazy pool.
func (e *Explorer) initialBatch() []string {
	k := e.cfg.InitSize
	sample := make([]string, 0, k)
	n := 0
	for id := range e.pool.IDs() {
		n++
		if len(sample) < k {
			sample = append(sample, id)
			continue
		}
		if j := e.rng.IntN(n); j < k {
			sample[j] = id
		}
	}
	return sample
}

func (e *Explorer) train(ctx context.Context) error {
	ids := slices.Sorted(maps.Keys(e.observed))
	ys := make([]float64, len(ids))
	for i, id := range ids {
		ys[i] = e.observed[id]
	}

	start := time.Now()
	err := e.mdl.Train(ctx, ids, ys, e.featurize, e.cfg.Retrain)
	metrics.RecordTrainDuration(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("explore: training on %d observations: %w", len(ids), err)
	}
	e.log.Debug("model trained", "observations", len(ids), "duration", time.Since(start))
	return nil
}

// acquireBatch runs inference over the whole pool and returns the best
// unmeasured candidates by acquisition score. An inference failure yields an
// empty batch: partial predictions are never scored.
func (e *Explorer) acquireBatch(ctx context.Context, best float64) []string {
	withVars := e.metric.Needs().Has(model.CapVars)
	start := time.Now()
	means, vars, err := model.Apply(ctx, e.mdl, model.ApplyInput{
		IDs:      e.pool.IDs(),
		Features: e.pool.Features(e.featurize),
		Total:    e.pool.Size(),
		WithVars: withVars,
		Progress: func(p model.Progress) {
			metrics.ApplyBatchesTotal.Inc()
			e.log.Debug("inference progress", "batch", p.Batch, "total", p.Total)
		},
	})
	metrics.RecordInferenceLatency(time.Since(start).Seconds())
	if err != nil {
		e.log.Error("inference over pool failed", "error", err)
		return nil
	}

	if e.cache != nil {
		e.storePredictions(ctx, means, vars)
	}

	e.scorer.Best = best
	top := acquire.NewTopK(e.cfg.BatchSize)
	for id := range e.observed {
		top.Exclude(id)
	}
	i := 0
	for id := range e.pool.IDs() {
		if i >= len(means) {
			break
		}
		v := 0.0
		if withVars {
			v = vars[i]
		}
		top.Add(id, e.scorer.Score(means[i], v))
		i++
	}
	return top.IDs()
}

// storePredictions writes the latest pool predictions to the cache. Failures
// are logged, never fatal.
func (e *Explorer) storePredictions(ctx context.Context, means, vars []float64) {
	preds := make(map[string]cache.Prediction, len(means))
	i := 0
	for id := range e.pool.IDs() {
		if i >= len(means) {
			break
		}
		p := cache.Prediction{Mean: means[i]}
		if i < len(vars) {
			p.Var = vars[i]
		}
		preds[id] = p
		i++
	}
	if err := e.cache.SetMany(ctx, preds); err != nil {
		e.log.Warn("prediction cache store failed", "error", err)
	}
}

func (e *Explorer) topObserved(k int) []acquire.Candidate {
	top := acquire.NewTopK(k)
	for id, s := range e.observed {
		top.Add(id, s)
	}
	return top.Candidates()
}

// recall reports the fraction of the truth table's k best candidates that
// the run measured.
func (e *Explorer) recall(k int) float64 {
	topIDs := e.obj.Top(k)
	if len(topIDs) == 0 {
		return 0
	}
	found := 0
	for _, id := range topIDs {
		if _, ok := e.observed[id]; ok {
			found++
		}
	}
	return float64(found) / float64(len(topIDs))
}
