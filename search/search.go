// Package search orchestrates multiple independent evolutionary runs and
// aggregates their outcomes into summary statistics, the top-level entry
// point a caller of ULTRA actually drives.
package search

import (
	"context"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/morinim/ultra/evolution"
	"github.com/morinim/ultra/individual"
)

// Factory builds a fresh Driver for one independent run. Search calls it
// once per run so every run starts from its own randomly seeded
// population.
type Factory func() *evolution.Driver

// Search runs a Factory-produced Driver some number of times and
// aggregates the results.
type Search struct {
	factory    Factory
	logger     *log.Logger
	maxWorkers int
}

// New builds a Search around factory. maxWorkers bounds how many runs
// execute concurrently; 0 means unbounded (one goroutine per run).
func New(factory Factory, logger *log.Logger, maxWorkers int) *Search {
	return &Search{factory: factory, logger: logger, maxWorkers: maxWorkers}
}

// Statistics aggregates the outcome of a batch of runs.
type Statistics struct {
	Runs     []evolution.Summary
	BestRun  int
	GoodRuns map[int]bool
	MeanBest float64
	Variance float64
}

// goodRunThreshold, when the caller supplies one via WithGoodRunThreshold,
// marks a run "good" if its best fitness value reaches it.
type goodRunThreshold struct {
	set   bool
	value float64
}

// Option configures a Run call.
type Option func(*runConfig)

type runConfig struct {
	threshold goodRunThreshold
}

// WithGoodRunThreshold marks every run whose best fitness value is >= v as
// a "good run" in the resulting Statistics.
func WithGoodRunThreshold(v float64) Option {
	return func(c *runConfig) {
		c.threshold = goodRunThreshold{set: true, value: v}
	}
}

// Run executes n independent runs and returns their aggregate Statistics.
// Each run is tagged with a fresh UUID recorded in its Summary, and runs
// proceed concurrently up to s.maxWorkers at a time. Canceling ctx stops
// every unfinished run at its next generation boundary with
// StatusStoppedByUser; Run still returns the aggregate of all n summaries
// and a nil error.
func (s *Search) Run(ctx context.Context, n int, opts ...Option) (Statistics, error) {
	cfg := runConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	summaries := make([]evolution.Summary, n)

	g, gctx := errgroup.WithContext(ctx)
	if s.maxWorkers > 0 {
		g.SetLimit(s.maxWorkers)
	}

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			driver := s.factory()
			summary := driver.Run(gctx)
			summary.RunTag = uuid.NewString()
			summaries[i] = summary
			s.logf("run %s: status=%s generations=%d best=%.6f",
				summary.RunTag, summary.Status, summary.Generations, bestValue(summary.Best))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}

	return aggregate(summaries, cfg), nil
}

func (s *Search) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func bestValue(s individual.Scored) float64 {
	if s.Empty() {
		return 0
	}
	return s.Fit.Value()
}

func aggregate(summaries []evolution.Summary, cfg runConfig) Statistics {
	values := make([]float64, len(summaries))
	bestRun := 0

	for i, s := range summaries {
		values[i] = bestValue(s.Best)
		if values[i] > values[bestRun] {
			bestRun = i
		}
	}

	mean, variance := stat.MeanVariance(values, nil)

	good := map[int]bool{}
	if cfg.threshold.set {
		for i, v := range values {
			good[i] = v >= cfg.threshold.value
		}
	}

	return Statistics{
		Runs:     summaries,
		BestRun:  bestRun,
		GoodRuns: good,
		MeanBest: mean,
		Variance: variance,
	}
}
