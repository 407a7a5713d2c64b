package evolution

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/morinim/ultra/alps"
	"github.com/morinim/ultra/cache"
	"github.com/morinim/ultra/config"
	"github.com/morinim/ultra/evaluator"
	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
	"github.com/morinim/ultra/individual"
	"github.com/morinim/ultra/recombination"
)

// bitString is a minimal GA individual used only to exercise the driver's
// generational loop: a fixed-length bit vector, fitness = number of ones
// (OneMax), the simplest problem with a known monotonic optimum.
type bitString struct {
	bits []bool
	age  uint
}

func (b *bitString) Fingerprint() hash.Hash {
	buf := make([]byte, len(b.bits))
	for i, v := range b.bits {
		if v {
			buf[i] = 1
		}
	}
	return hash.New(buf)
}
func (b *bitString) Age() uint { return b.age }
func (b *bitString) SetAgeAtLeast(age uint) {
	if age > b.age {
		b.age = age
	}
}

func (b *bitString) MarshalBinary() ([]byte, error) {
	data := make([]byte, len(b.bits))
	for i, v := range b.bits {
		if v {
			data[i] = 1
		}
	}
	return data, nil
}

func (b *bitString) UnmarshalBinary(data []byte) error {
	bits := make([]bool, len(data))
	for i, v := range data {
		bits[i] = v != 0
	}
	b.bits = bits
	return nil
}

const genomeLen = 16

func seedBitString(rng *rand.Rand) individual.Individual {
	bits := make([]bool, genomeLen)
	for i := range bits {
		bits[i] = rng.Float64() < 0.5
	}
	return &bitString{bits: bits}
}

func oneMax(ind individual.Individual) (fitness.Fitness, error) {
	b := ind.(*bitString)
	var ones float64
	for _, v := range b.bits {
		if v {
			ones++
		}
	}
	return fitness.Scalar(ones), nil
}

type onePointCrossover struct{}

func (onePointCrossover) Cross(a, b individual.Individual, rng *rand.Rand) individual.Individual {
	ga, gb := a.(*bitString), b.(*bitString)
	cut := rng.IntN(genomeLen)
	child := make([]bool, genomeLen)
	copy(child, ga.bits[:cut])
	copy(child[cut:], gb.bits[cut:])
	return &bitString{bits: child}
}

type bitFlipMutator struct{}

func (bitFlipMutator) Mutate(ind individual.Individual, rate float64, rng *rand.Rand) individual.Individual {
	b := ind.(*bitString)
	for i := range b.bits {
		if rng.Float64() < rate {
			b.bits[i] = !b.bits[i]
		}
	}
	return b
}

func testParameters() config.Parameters {
	p := config.DefaultParameters()
	p.PopulationSize = 40
	p.NumLayers = 2
	p.TournamentSize = 3
	p.MaxGenerations = 10
	p.MaxStuckGenerations = 0
	return p
}

func TestDriverRunReachesMaxGenerations(t *testing.T) {
	params := config.NewShared(testParameters())
	proxy := evaluator.New(oneMax, nil, cache.New(12))

	strategy := Strategy{Crossover: onePointCrossover{}, Mutator: bitFlipMutator{}}
	d := New(proxy, strategy, params, alps.DefaultParameters(), seedBitString, nil, 42)

	summary := d.Run(context.Background())

	if summary.Status != StatusOK {
		t.Fatalf("Status = %v, want StatusOK", summary.Status)
	}
	if summary.Generations != 10 {
		t.Errorf("Generations = %d, want 10", summary.Generations)
	}
	if summary.Best.Empty() {
		t.Fatal("expected a best individual to have been found")
	}
	if summary.Best.Fit.Value() < 0 || summary.Best.Fit.Value() > genomeLen {
		t.Errorf("best fitness %v out of OneMax range", summary.Best.Fit.Value())
	}
}

func TestSummarySaveLoadRoundTrip(t *testing.T) {
	params := config.NewShared(testParameters())
	proxy := evaluator.New(oneMax, nil, cache.New(12))
	strategy := Strategy{Crossover: onePointCrossover{}, Mutator: bitFlipMutator{}}
	d := New(proxy, strategy, params, alps.DefaultParameters(), seedBitString, nil, 42)

	summary := d.Run(context.Background())

	var buf bytes.Buffer
	if err := summary.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	original := append([]byte(nil), buf.Bytes()...)

	loaded, err := LoadSummary(&buf, func() individual.Individual { return &bitString{} })
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}

	if loaded.Generations != summary.Generations {
		t.Errorf("Generations = %d, want %d", loaded.Generations, summary.Generations)
	}
	if loaded.Status != summary.Status {
		t.Errorf("Status = %v, want %v", loaded.Status, summary.Status)
	}
	if loaded.Best.Fit.Value() != summary.Best.Fit.Value() {
		t.Errorf("Best fitness = %v, want %v", loaded.Best.Fit.Value(), summary.Best.Fit.Value())
	}

	var second bytes.Buffer
	if err := loaded.Save(&second); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if !bytes.Equal(original, second.Bytes()) {
		t.Error("save -> load -> save should be byte-identical")
	}
}

func TestDriverRunRespectsContextCancellation(t *testing.T) {
	params := config.NewShared(testParameters())
	params.Get() // sanity: Shared usable before Run

	p := testParameters()
	p.MaxGenerations = 0 // no generation cap: only ctx cancellation stops it
	shared := config.NewShared(p)

	proxy := evaluator.New(oneMax, nil, cache.New(12))
	strategy := Strategy{Crossover: onePointCrossover{}, Mutator: bitFlipMutator{}}
	d := New(proxy, strategy, shared, alps.DefaultParameters(), seedBitString, nil, 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := d.Run(ctx)
	if summary.Status != StatusStoppedByUser {
		t.Errorf("Status = %v, want StatusStoppedByUser", summary.Status)
	}
}

func TestDriverDEStrategy(t *testing.T) {
	p := testParameters()
	shared := config.NewShared(p)

	proxy := evaluator.New(sphereEval, nil, cache.New(12))
	strategy := Strategy{Combiner: sphereCombiner{}, DEParams: recombination.DefaultDEParameters()}
	d := New(proxy, strategy, shared, alps.DefaultParameters(), seedRealVector, nil, 99)

	summary := d.Run(context.Background())
	if summary.Status != StatusOK {
		t.Fatalf("Status = %v, want StatusOK", summary.Status)
	}
	if summary.Best.Empty() {
		t.Fatal("expected a best individual to have been found")
	}
}

// realVector and its DE combiner/evaluator minimize the sphere function
// sum(x_i^2), used only to exercise the DE code path in the driver.
type realVector struct {
	coords []float64
	age    uint
}

func (v *realVector) Fingerprint() hash.Hash {
	buf := make([]byte, 8*len(v.coords))
	for i, x := range v.coords {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return hash.New(buf)
}
func (v *realVector) Age() uint { return v.age }
func (v *realVector) SetAgeAtLeast(age uint) {
	if age > v.age {
		v.age = age
	}
}

const vectorLen = 4

func seedRealVector(rng *rand.Rand) individual.Individual {
	coords := make([]float64, vectorLen)
	for i := range coords {
		coords[i] = rng.Float64()*10 - 5
	}
	return &realVector{coords: coords}
}

func sphereEval(ind individual.Individual) (fitness.Fitness, error) {
	v := ind.(*realVector)
	var sum float64
	for _, x := range v.coords {
		sum += x * x
	}
	return fitness.Scalar(-sum), nil // higher is better, so negate
}

type sphereCombiner struct{}

func (sphereCombiner) Combine(target, a, b, c individual.Individual, f, cr float64, rng *rand.Rand) individual.Individual {
	t1, a1, b1, c1 := target.(*realVector), a.(*realVector), b.(*realVector), c.(*realVector)
	out := make([]float64, vectorLen)
	for i := range out {
		if rng.Float64() < cr {
			out[i] = a1.coords[i] + f*(b1.coords[i]-c1.coords[i])
		} else {
			out[i] = t1.coords[i]
		}
	}
	return &realVector{coords: out}
}
