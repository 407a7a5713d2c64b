package replacement

import (
	"math/rand/v2"
	"testing"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
	"github.com/morinim/ultra/individual"
	"github.com/morinim/ultra/population"
)

type fakeIndividual struct {
	id  byte
	age uint
}

func (f *fakeIndividual) Fingerprint() hash.Hash { return hash.New([]byte{f.id}) }
func (f *fakeIndividual) Age() uint              { return f.age }
func (f *fakeIndividual) SetAgeAtLeast(age uint) {
	if age > f.age {
		f.age = age
	}
}

func scored(id byte, age uint, fit float64) individual.Scored {
	return individual.Scored{Ind: &fakeIndividual{id: id, age: age}, Fit: fitness.Scalar(fit)}
}

func TestTournamentReplacesWorstWhenCandidateBetter(t *testing.T) {
	l := population.NewLayer(4, 100)
	l.PushBack(scored(1, 0, 1))
	l.PushBack(scored(2, 0, 2))
	l.PushBack(scored(3, 0, 3))

	candidate := scored(9, 0, 100)
	rng := rand.New(rand.NewPCG(1, 2))

	if !Tournament(l, candidate, 3, 1.0, rng) {
		t.Fatal("expected replacement to happen")
	}

	found := false
	for i := 0; i < l.Size(); i++ {
		if l.At(i).Ind.(*fakeIndividual).id == 9 {
			found = true
		}
	}
	if !found {
		t.Error("candidate was not inserted into the layer")
	}
}

func TestTournamentRejectsWorseCandidate(t *testing.T) {
	l := population.NewLayer(4, 100)
	l.PushBack(scored(1, 0, 10))
	l.PushBack(scored(2, 0, 20))

	candidate := scored(9, 0, 1)
	rng := rand.New(rand.NewPCG(1, 2))

	if Tournament(l, candidate, 2, 1.0, rng) {
		t.Error("should not replace when candidate is the worst")
	}
}

func TestTournamentZeroElitismAlwaysReplaces(t *testing.T) {
	l := population.NewLayer(4, 100)
	l.PushBack(scored(1, 0, 10))
	l.PushBack(scored(2, 0, 20))

	candidate := scored(9, 0, 1) // strictly worse than either contestant
	rng := rand.New(rand.NewPCG(1, 2))

	if !Tournament(l, candidate, 2, 0.0, rng) {
		t.Error("elitism=0 should replace unconditionally, even with a worse candidate")
	}
}

func TestALPSRejectsCandidateTooOldForLayer(t *testing.T) {
	pop := population.NewLayered(2, 4, func(layer int) uint {
		if layer == 0 {
			return 5
		}
		return ^uint(0)
	})
	pop.Layer(0).PushBack(scored(1, 0, 1))

	tooOld := scored(9, 100, 1000)
	rng := rand.New(rand.NewPCG(1, 2))

	if ALPS(pop, 0, tooOld, 1, 1.0, rng) {
		t.Error("candidate older than layer 0's ceiling should not be placed there")
	}
}

func TestLayersTargetsUpward(t *testing.T) {
	if got := Layers(0, 3); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Layers(0, 3) = %v, want [0 1]", got)
	}
	if got := Layers(1, 3); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Layers(1, 3) = %v, want [1 2]", got)
	}
	if got := Layers(2, 3); len(got) != 1 || got[0] != 2 {
		t.Errorf("Layers(2, 3) = %v, want [2] (top layer)", got)
	}
}

func TestALPSNeverReplacesIntoLayerBelow(t *testing.T) {
	pop := population.NewLayered(3, 4, func(layer int) uint {
		if layer == 2 {
			return ^uint(0)
		}
		return 1000
	})
	pop.Layer(0).PushBack(scored(10, 0, 1000)) // would always win a tournament
	pop.Layer(1).PushBack(scored(20, 0, 1))

	candidate := scored(9, 0, 500)
	rng := rand.New(rand.NewPCG(1, 2))

	if !ALPS(pop, 1, candidate, 1, 1.0, rng) {
		t.Fatal("expected candidate produced for layer 1 to be placed")
	}

	if pop.Layer(0).At(0).Ind.(*fakeIndividual).id != 10 {
		t.Error("layer 0 (below) must never be touched by a layer-1 offspring")
	}
	found := false
	for i := 0; i < pop.Layer(1).Size(); i++ {
		if pop.Layer(1).At(i).Ind.(*fakeIndividual).id == 9 {
			found = true
		}
	}
	if !found {
		t.Error("expected candidate to land in its own layer or the one above, not below")
	}
}

func TestTryMoveUpLayerMovesAgedOutIndividual(t *testing.T) {
	pop := population.NewLayered(2, 4, func(layer int) uint {
		if layer == 0 {
			return 5
		}
		return ^uint(0)
	})
	pop.Layer(0).PushBack(scored(1, 10, 1))

	if !TryMoveUpLayer(pop, 0, 0) {
		t.Fatal("expected move-up to happen")
	}
	if pop.Layer(0).Size() != 0 {
		t.Error("individual should have left layer 0")
	}
	if pop.Layer(1).Size() != 1 {
		t.Error("individual should have arrived in layer 1")
	}
}

func TestTryMoveUpLayerLeavesYoungIndividualAlone(t *testing.T) {
	pop := population.NewLayered(2, 4, func(layer int) uint {
		if layer == 0 {
			return 5
		}
		return ^uint(0)
	})
	pop.Layer(0).PushBack(scored(1, 1, 1))

	if TryMoveUpLayer(pop, 0, 0) {
		t.Error("young individual should not move up")
	}
	if pop.Layer(0).Size() != 1 {
		t.Error("individual should remain in layer 0")
	}
}

func TestTryMoveUpLayerNoOpOnTopLayer(t *testing.T) {
	pop := population.NewLayered(1, 4, func(int) uint { return 0 })
	pop.Layer(0).PushBack(scored(1, 100, 1))

	if TryMoveUpLayer(pop, 0, 0) {
		t.Error("top layer has nowhere to move up to")
	}
}
