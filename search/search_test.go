package search

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/morinim/ultra/alps"
	"github.com/morinim/ultra/cache"
	"github.com/morinim/ultra/config"
	"github.com/morinim/ultra/evaluator"
	"github.com/morinim/ultra/evolution"
	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
	"github.com/morinim/ultra/individual"
)

type counter struct {
	bits []bool
	age  uint
}

func (c *counter) Fingerprint() hash.Hash {
	buf := make([]byte, len(c.bits))
	for i, v := range c.bits {
		if v {
			buf[i] = 1
		}
	}
	return hash.New(buf)
}
func (c *counter) Age() uint { return c.age }
func (c *counter) SetAgeAtLeast(age uint) {
	if age > c.age {
		c.age = age
	}
}

const genomeLen = 8

func seed(rng *rand.Rand) individual.Individual {
	bits := make([]bool, genomeLen)
	for i := range bits {
		bits[i] = rng.Float64() < 0.5
	}
	return &counter{bits: bits}
}

func oneMax(ind individual.Individual) (fitness.Fitness, error) {
	c := ind.(*counter)
	var ones float64
	for _, v := range c.bits {
		if v {
			ones++
		}
	}
	return fitness.Scalar(ones), nil
}

type crossover struct{}

func (crossover) Cross(a, b individual.Individual, rng *rand.Rand) individual.Individual {
	ga, gb := a.(*counter), b.(*counter)
	cut := rng.IntN(genomeLen)
	child := make([]bool, genomeLen)
	copy(child, ga.bits[:cut])
	copy(child[cut:], gb.bits[cut:])
	return &counter{bits: child}
}

type mutator struct{}

func (mutator) Mutate(ind individual.Individual, rate float64, rng *rand.Rand) individual.Individual {
	c := ind.(*counter)
	for i := range c.bits {
		if rng.Float64() < rate {
			c.bits[i] = !c.bits[i]
		}
	}
	return c
}

func newTestDriver(rngSeed uint64) *evolution.Driver {
	p := config.DefaultParameters()
	p.PopulationSize = 20
	p.NumLayers = 2
	p.TournamentSize = 3
	p.MaxGenerations = 5

	shared := config.NewShared(p)
	proxy := evaluator.New(oneMax, nil, cache.New(10))
	strategy := evolution.Strategy{Crossover: crossover{}, Mutator: mutator{}}

	return evolution.New(proxy, strategy, shared, alps.DefaultParameters(), seed, nil, rngSeed)
}

func TestSearchRunAggregatesAcrossRuns(t *testing.T) {
	var next atomic.Uint64
	s := New(func() *evolution.Driver {
		return newTestDriver(next.Add(1))
	}, nil, 4)

	stats, err := s.Run(context.Background(), 6)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Runs) != 6 {
		t.Fatalf("len(Runs) = %d, want 6", len(stats.Runs))
	}
	for i, r := range stats.Runs {
		if r.RunTag == "" {
			t.Errorf("run %d missing RunTag", i)
		}
	}
	if stats.BestRun < 0 || stats.BestRun >= 6 {
		t.Errorf("BestRun = %d, out of range", stats.BestRun)
	}
}

func TestSearchGoodRunThreshold(t *testing.T) {
	var next atomic.Uint64
	s := New(func() *evolution.Driver {
		return newTestDriver(next.Add(1))
	}, nil, 2)

	stats, err := s.Run(context.Background(), 4, WithGoodRunThreshold(-1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.GoodRuns) != 4 {
		t.Fatalf("expected every run judged, got %d entries", len(stats.GoodRuns))
	}
	for i, good := range stats.GoodRuns {
		if !good {
			t.Errorf("run %d: expected good=true with a trivially low threshold", i)
		}
	}
}

func TestSearchRunTagsAreUnique(t *testing.T) {
	var next atomic.Uint64
	s := New(func() *evolution.Driver {
		return newTestDriver(next.Add(1))
	}, nil, 0)

	stats, err := s.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[string]bool{}
	for _, r := range stats.Runs {
		if seen[r.RunTag] {
			t.Errorf("duplicate RunTag %s", r.RunTag)
		}
		seen[r.RunTag] = true
	}
}
