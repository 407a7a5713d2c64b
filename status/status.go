// Package status implements the concurrency-safe tracking a run of the
// evolutionary driver needs: the best individual seen so far, the
// generation it was found at, and counters for crossovers and mutations
// that every layer worker updates concurrently.
package status

import (
	"bufio"
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/individual"
)

// Status tracks one run's best-so-far individual and operator counters.
// Generation is a non-owning pointer into the driver's own counter: Status
// never advances it, it only reads it for reporting.
type Status struct {
	mu              sync.RWMutex
	best            individual.Scored
	lastImprovement uint64
	generation      *atomic.Uint64
	crossovers      atomic.Uint64
	mutations       atomic.Uint64
}

// New creates a Status observing generation, which the caller (typically
// an evolution.Driver) owns and advances.
func New(generation *atomic.Uint64) *Status {
	return &Status{generation: generation}
}

// Best returns the fittest individual seen so far, or the empty Scored if
// nothing has been reported yet.
func (s *Status) Best() individual.Scored {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

// UpdateIfBetter replaces the tracked best with candidate if candidate is
// fitter, records the current generation as the last-improvement point,
// and reports whether it did.
func (s *Status) UpdateIfBetter(candidate individual.Scored) bool {
	generation := s.Generation()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !candidate.Better(s.best) {
		return false
	}
	s.best = candidate
	s.lastImprovement = generation
	return true
}

// LastImprovement returns the generation number at which the tracked best
// was last replaced (0 if it never has been).
func (s *Status) LastImprovement() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastImprovement
}

// Generation returns the generation count as observed right now. It is
// non-owning: Status does not advance it.
func (s *Status) Generation() uint64 {
	if s.generation == nil {
		return 0
	}
	return s.generation.Load()
}

// IncCrossovers records one crossover event, callable concurrently from
// any layer worker.
func (s *Status) IncCrossovers() {
	s.crossovers.Add(1)
}

// IncMutations records one mutation event, callable concurrently from any
// layer worker.
func (s *Status) IncMutations() {
	s.mutations.Add(1)
}

// Crossovers returns the total crossover count so far.
func (s *Status) Crossovers() uint64 {
	return s.crossovers.Load()
}

// Mutations returns the total mutation count so far.
func (s *Status) Mutations() uint64 {
	return s.mutations.Load()
}

// statusFormatMagic guards Load against reading a file that isn't a
// status snapshot at all.
const statusFormatMagic = "ULTRAS01"

// Save writes s's best individual, last-improvement generation, and
// operator counters to w. The tracked best must implement
// encoding.BinaryMarshaler to be saved; a Status with no best yet saves
// fine with no individual payload at all.
func (s *Status) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(statusFormatMagic); err != nil {
		return fmt.Errorf("status: writing magic: %w", err)
	}

	hasBest := !s.best.Empty()
	if err := binary.Write(bw, binary.LittleEndian, hasBest); err != nil {
		return fmt.Errorf("status: writing has-best flag: %w", err)
	}

	if hasBest {
		marshaler, ok := s.best.Ind.(encoding.BinaryMarshaler)
		if !ok {
			return fmt.Errorf("status: best individual (%T) does not implement encoding.BinaryMarshaler", s.best.Ind)
		}
		data, err := marshaler.MarshalBinary()
		if err != nil {
			return fmt.Errorf("status: marshaling best: %w", err)
		}

		if err := binary.Write(bw, binary.LittleEndian, uint64(s.best.Ind.Age())); err != nil {
			return fmt.Errorf("status: writing best age: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, s.best.Fit.Value()); err != nil {
			return fmt.Errorf("status: writing best fitness: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(data))); err != nil {
			return fmt.Errorf("status: writing best length: %w", err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("status: writing best: %w", err)
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, s.lastImprovement); err != nil {
		return fmt.Errorf("status: writing last improvement: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, s.crossovers.Load()); err != nil {
		return fmt.Errorf("status: writing crossovers: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, s.mutations.Load()); err != nil {
		return fmt.Errorf("status: writing mutations: %w", err)
	}

	return bw.Flush()
}

// Load replaces s's tracked state by reading a snapshot written by Save.
// newIndividual builds the zero-value instance the saved best is
// unmarshaled into, when the snapshot has one. generation re-binds s's
// non-owning counter pointer (typically the restored driver's own); a nil
// generation leaves s's current pointer untouched.
func (s *Status) Load(r io.Reader, newIndividual func() individual.Individual, generation *atomic.Uint64) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(statusFormatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("status: reading magic: %w", err)
	}
	if string(magic) != statusFormatMagic {
		return fmt.Errorf("status: bad magic %q", magic)
	}

	var hasBest bool
	if err := binary.Read(br, binary.LittleEndian, &hasBest); err != nil {
		return fmt.Errorf("status: reading has-best flag: %w", err)
	}

	var best individual.Scored
	if hasBest {
		var age uint64
		var fit float64
		var length uint64
		if err := binary.Read(br, binary.LittleEndian, &age); err != nil {
			return fmt.Errorf("status: reading best age: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &fit); err != nil {
			return fmt.Errorf("status: reading best fitness: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return fmt.Errorf("status: reading best length: %w", err)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return fmt.Errorf("status: reading best: %w", err)
		}

		ind := newIndividual()
		unmarshaler, ok := ind.(encoding.BinaryUnmarshaler)
		if !ok {
			return fmt.Errorf("status: %T does not implement encoding.BinaryUnmarshaler", ind)
		}
		if err := unmarshaler.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("status: unmarshaling best: %w", err)
		}
		ind.SetAgeAtLeast(uint(age))
		best = individual.Scored{Ind: ind, Fit: fitness.Scalar(fit)}
	}

	var lastImprovement, crossovers, mutations uint64
	if err := binary.Read(br, binary.LittleEndian, &lastImprovement); err != nil {
		return fmt.Errorf("status: reading last improvement: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &crossovers); err != nil {
		return fmt.Errorf("status: reading crossovers: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &mutations); err != nil {
		return fmt.Errorf("status: reading mutations: %w", err)
	}

	s.mu.Lock()
	s.best = best
	s.lastImprovement = lastImprovement
	if generation != nil {
		s.generation = generation
	}
	s.mu.Unlock()

	s.crossovers.Store(crossovers)
	s.mutations.Store(mutations)

	return nil
}
