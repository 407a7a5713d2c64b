// Package population implements ULTRA's age-layered population: a linear
// sub-population per layer (Layer), and the ordered stack of layers that
// make up a run (Layered).
package population

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/individual"
)

// Layer is a single age-segregated sub-population. Its members are guarded
// by an RWMutex so a layer's worker can hold it exclusively during
// replacement while other layers proceed independently.
type Layer struct {
	mu          sync.RWMutex
	members     []individual.Scored
	allowedSize int
	maxAge      uint
}

// NewLayer creates an empty layer sized for allowedSize individuals, with
// the given ALPS age ceiling (use ^uint(0) for "unbounded", the top
// layer's policy).
func NewLayer(allowedSize int, maxAge uint) *Layer {
	return &Layer{
		members:     make([]individual.Scored, 0, allowedSize),
		allowedSize: allowedSize,
		maxAge:      maxAge,
	}
}

// Size returns the current member count. The count can change as soon as
// the layer's lock is released; Layer does not expose that lock, so a
// read-then-act sequence that must stay consistent belongs in one of the
// single-lock methods (Tournament, KillTournament, DEQuad, RemoveIfAged).
func (l *Layer) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

// AllowedSize returns the layer's target capacity.
func (l *Layer) AllowedSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowedSize
}

// SetAllowedSize changes the layer's target capacity.
func (l *Layer) SetAllowedSize(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowedSize = n
}

// MaxAge returns the layer's ALPS age ceiling.
func (l *Layer) MaxAge() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxAge
}

// SetMaxAge changes the layer's ALPS age ceiling.
func (l *Layer) SetMaxAge(age uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxAge = age
}

// PushBack appends s to the layer, growing it past allowedSize if needed;
// callers enforcing capacity should check Size first.
func (l *Layer) PushBack(s individual.Scored) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = append(l.members, s)
}

// RemoveAt deletes the member at index i, preserving order.
func (l *Layer) RemoveAt(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = append(l.members[:i], l.members[i+1:]...)
}

// At returns the member at index i.
func (l *Layer) At(i int) individual.Scored {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.members[i]
}

// Set overwrites the member at index i.
func (l *Layer) Set(i int, s individual.Scored) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members[i] = s
}

// IncAge advances every member's age by one generation.
func (l *Layer) IncAge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.members {
		l.members[i].Ind.SetAgeAtLeast(l.members[i].Ind.Age() + 1)
	}
}

// Best returns the fittest member currently in the layer, or the empty
// Scored if the layer has no members.
func (l *Layer) Best() individual.Scored {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best individual.Scored
	for _, s := range l.members {
		if s.Better(best) {
			best = s
		}
	}
	return best
}

// Worst returns the index of the least fit member currently in the layer,
// or -1 if the layer has no members.
func (l *Layer) Worst() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.members) == 0 {
		return -1
	}

	worst := 0
	for i, s := range l.members {
		if !s.Better(l.members[worst]) {
			worst = i
		}
	}
	return worst
}

// Tournament runs a tournament of the given size over the layer and
// returns the fittest contestant. It returns the empty Scored if the
// layer has no members. The whole draw happens under a single read lock,
// so it is consistent even while another goroutine concurrently mutates
// the layer.
func (l *Layer) Tournament(size int, rng *rand.Rand) individual.Scored {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.members)
	if n == 0 {
		return individual.Scored{}
	}
	if size > n {
		size = n
	}

	best := l.members[rng.IntN(n)]
	for i := 1; i < size; i++ {
		candidate := l.members[rng.IntN(n)]
		if candidate.Better(best) {
			best = candidate
		}
	}
	return best
}

// KillTournament runs a kill tournament of the given size and overwrites
// its loser with candidate, if candidate is fitter or the elitism roll
// fails. elitism is the probability the replacement stays strict (only
// happens when candidate is actually better); with probability 1-elitism
// the loser is overwritten unconditionally. It reports whether a
// replacement happened. The whole read-compare-write sequence happens
// under a single write lock.
func (l *Layer) KillTournament(candidate individual.Scored, size int, elitism float64, rng *rand.Rand) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.members)
	if n == 0 {
		return false
	}
	if size > n {
		size = n
	}

	worst := rng.IntN(n)
	for i := 1; i < size; i++ {
		idx := rng.IntN(n)
		if !l.members[idx].Better(l.members[worst]) {
			worst = idx
		}
	}

	if candidate.Better(l.members[worst]) || rng.Float64() >= elitism {
		l.members[worst] = candidate
		return true
	}
	return false
}

// TournamentIndexed behaves like Tournament but also reports the winning
// contestant's position in the layer, so a caller can center a mate-zone
// search on it.
func (l *Layer) TournamentIndexed(size int, rng *rand.Rand) (individual.Scored, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.members)
	if n == 0 {
		return individual.Scored{}, -1
	}
	if size > n {
		size = n
	}

	bestIdx := rng.IntN(n)
	best := l.members[bestIdx]
	for i := 1; i < size; i++ {
		idx := rng.IntN(n)
		if l.members[idx].Better(best) {
			best = l.members[idx]
			bestIdx = idx
		}
	}
	return best, bestIdx
}

// DEQuad picks four mutually distinct members under a single read lock: a
// target plus three donors a, b, c, the standard DE/rand/1 mating pool. It
// returns the empty Scored for every slot if the layer has fewer than 4
// members.
func (l *Layer) DEQuad(rng *rand.Rand) (target, a, b, c individual.Scored) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.members)
	if n < 4 {
		return
	}

	idx := rng.Perm(n)[:4]
	return l.members[idx[0]], l.members[idx[1]], l.members[idx[2]], l.members[idx[3]]
}

// RandomMember returns a uniformly random member, or the empty Scored if
// the layer has no members.
func (l *Layer) RandomMember(rng *rand.Rand) individual.Scored {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.members) == 0 {
		return individual.Scored{}
	}
	return l.members[rng.IntN(len(l.members))]
}

// RemoveIfAged removes the member at index i and returns it if its age
// exceeds the layer's current ceiling, atomically under a single write
// lock. It reports whether a removal happened; i refers to a snapshot
// index and is only meaningful immediately after a Size/At observation
// made without releasing this same lock in between, so callers typically
// pass indices discovered through iteration they control themselves.
func (l *Layer) RemoveIfAged(i int) (individual.Scored, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.members) {
		return individual.Scored{}, false
	}
	s := l.members[i]
	if s.Ind.Age() <= l.maxAge {
		return individual.Scored{}, false
	}

	l.members = append(l.members[:i], l.members[i+1:]...)
	return s, true
}

// Save writes l's members to w: allowed size, age ceiling, then each
// member's age, fitness, and binary form via encoding.BinaryMarshaler —
// every individual a layer holds must implement it to be saved. w is
// written to directly; callers that care about I/O buffering (e.g.
// Layered.Save, writing many layers in a row) should pass a *bufio.Writer.
func (l *Layer) Save(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := binary.Write(w, binary.LittleEndian, uint64(l.allowedSize)); err != nil {
		return fmt.Errorf("population: writing allowed size: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(l.maxAge)); err != nil {
		return fmt.Errorf("population: writing max age: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(l.members))); err != nil {
		return fmt.Errorf("population: writing member count: %w", err)
	}

	for i, s := range l.members {
		marshaler, ok := s.Ind.(encoding.BinaryMarshaler)
		if !ok {
			return fmt.Errorf("population: member %d (%T) does not implement encoding.BinaryMarshaler", i, s.Ind)
		}
		data, err := marshaler.MarshalBinary()
		if err != nil {
			return fmt.Errorf("population: marshaling member %d: %w", i, err)
		}

		if err := binary.Write(w, binary.LittleEndian, uint64(s.Ind.Age())); err != nil {
			return fmt.Errorf("population: writing member %d age: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, s.Fit.Value()); err != nil {
			return fmt.Errorf("population: writing member %d fitness: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
			return fmt.Errorf("population: writing member %d length: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("population: writing member %d: %w", i, err)
		}
	}

	return nil
}

// Load replaces l's members by reading a snapshot written by Save.
// newIndividual must return a fresh zero-value instance implementing
// encoding.BinaryUnmarshaler, ready to have its state filled in. Fitness
// values are restored as fitness.Scalar: the on-disk format does not
// preserve the original concrete fitness type.
func (l *Layer) Load(r io.Reader, newIndividual func() individual.Individual) error {
	var allowedSize, maxAge, count uint64
	if err := binary.Read(r, binary.LittleEndian, &allowedSize); err != nil {
		return fmt.Errorf("population: reading allowed size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &maxAge); err != nil {
		return fmt.Errorf("population: reading max age: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("population: reading member count: %w", err)
	}

	members := make([]individual.Scored, 0, count)
	for i := uint64(0); i < count; i++ {
		var age uint64
		var fit float64
		var length uint64
		if err := binary.Read(r, binary.LittleEndian, &age); err != nil {
			return fmt.Errorf("population: reading member %d age: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &fit); err != nil {
			return fmt.Errorf("population: reading member %d fitness: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return fmt.Errorf("population: reading member %d length: %w", i, err)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return fmt.Errorf("population: reading member %d: %w", i, err)
		}

		ind := newIndividual()
		unmarshaler, ok := ind.(encoding.BinaryUnmarshaler)
		if !ok {
			return fmt.Errorf("population: %T does not implement encoding.BinaryUnmarshaler", ind)
		}
		if err := unmarshaler.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("population: unmarshaling member %d: %w", i, err)
		}
		ind.SetAgeAtLeast(uint(age))

		members = append(members, individual.Scored{Ind: ind, Fit: fitness.Scalar(fit)})
	}

	l.mu.Lock()
	l.allowedSize = int(allowedSize)
	l.maxAge = uint(maxAge)
	l.members = members
	l.mu.Unlock()

	return nil
}
