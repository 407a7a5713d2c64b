// Package evaluator wraps a user-supplied fitness function with ULTRA's
// fitness cache, so identical individuals are scored once no matter how
// many times selection or replacement touches them in a generation.
package evaluator

import (
	"github.com/morinim/ultra/cache"
	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/individual"
)

// Func is a user-supplied fitness function. It may be called concurrently
// from multiple layer workers and must be safe for that.
type Func func(individual.Individual) (fitness.Fitness, error)

// FastFunc is a cheaper, approximate fitness function some representations
// can offer (e.g. a surrogate model) for use where the accuracy/throughput
// trade-off favors it, such as tournament pre-screening.
type FastFunc func(individual.Individual) (fitness.Fitness, error)

// Proxy memoizes a Func behind a fitness cache.
type Proxy struct {
	eval  Func
	fast  FastFunc
	cache *cache.Cache
}

// New builds a Proxy around eval, memoizing results in c. fast may be nil.
func New(eval Func, fast FastFunc, c *cache.Cache) *Proxy {
	return &Proxy{eval: eval, fast: fast, cache: c}
}

// Evaluate returns the fitness of ind, consulting the cache first and
// populating it on a miss.
func (p *Proxy) Evaluate(ind individual.Individual) (fitness.Fitness, error) {
	h := ind.Fingerprint()

	if f, ok := p.cache.Find(h); ok {
		return f, nil
	}

	f, err := p.eval(ind)
	if err != nil {
		return nil, err
	}

	p.cache.Insert(h, f)
	return f, nil
}

// Fast returns a quick approximate fitness for ind, falling back to the
// full cached Evaluate when no FastFunc was configured.
func (p *Proxy) Fast(ind individual.Individual) (fitness.Fitness, error) {
	if p.fast == nil {
		return p.Evaluate(ind)
	}
	return p.fast(ind)
}

// Cache returns the underlying fitness cache, for callers that need to
// Save/Load it alongside a run snapshot.
func (p *Proxy) Cache() *cache.Cache {
	return p.cache
}
