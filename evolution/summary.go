package evolution

import (
	"bufio"
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/individual"
)

// Status reports why a run ended.
type Status int

const (
	// StatusOK means the run completed all its generations without error.
	StatusOK Status = iota
	// StatusStoppedByUser means the run's context was canceled.
	StatusStoppedByUser
	// StatusStoppedByThreshold means the best individual reached the
	// configured fitness threshold.
	StatusStoppedByThreshold
	// StatusStoppedStuck means no improvement was seen for
	// MaxStuckGenerations generations.
	StatusStoppedStuck
	// StatusFailedInvariant means a core invariant was violated during the
	// run (e.g. a layer's population size left its configured bounds).
	StatusFailedInvariant
	// StatusFailedEvaluator means the user-supplied evaluator returned an
	// error that aborted the run.
	StatusFailedEvaluator
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStoppedByUser:
		return "stopped_by_user"
	case StatusStoppedByThreshold:
		return "stopped_by_threshold"
	case StatusStoppedStuck:
		return "stopped_stuck"
	case StatusFailedInvariant:
		return "failed_invariant"
	case StatusFailedEvaluator:
		return "failed_evaluator"
	default:
		return "unknown"
	}
}

// Summary reports the outcome of one evolutionary run.
type Summary struct {
	RunTag          string
	Best            individual.Scored
	Generations     uint64
	LastImprovement uint64
	Crossovers      uint64
	Mutations       uint64
	Elapsed         time.Duration
	Status          Status
	Err             error
}

// summaryFormatMagic guards Load against reading a file that isn't a
// summary snapshot at all.
const summaryFormatMagic = "ULTRAM01"

// Save writes s to w. Best must implement encoding.BinaryMarshaler to be
// saved; Err is not persisted since error is not itself serializable — a
// loaded Summary always has Err == nil.
func (s Summary) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(summaryFormatMagic); err != nil {
		return fmt.Errorf("evolution: writing magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(s.RunTag))); err != nil {
		return fmt.Errorf("evolution: writing run tag length: %w", err)
	}
	if _, err := bw.WriteString(s.RunTag); err != nil {
		return fmt.Errorf("evolution: writing run tag: %w", err)
	}

	hasBest := !s.Best.Empty()
	if err := binary.Write(bw, binary.LittleEndian, hasBest); err != nil {
		return fmt.Errorf("evolution: writing has-best flag: %w", err)
	}
	if hasBest {
		marshaler, ok := s.Best.Ind.(encoding.BinaryMarshaler)
		if !ok {
			return fmt.Errorf("evolution: best individual (%T) does not implement encoding.BinaryMarshaler", s.Best.Ind)
		}
		data, err := marshaler.MarshalBinary()
		if err != nil {
			return fmt.Errorf("evolution: marshaling best: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(s.Best.Ind.Age())); err != nil {
			return fmt.Errorf("evolution: writing best age: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, s.Best.Fit.Value()); err != nil {
			return fmt.Errorf("evolution: writing best fitness: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(data))); err != nil {
			return fmt.Errorf("evolution: writing best length: %w", err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("evolution: writing best: %w", err)
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, s.Generations); err != nil {
		return fmt.Errorf("evolution: writing generations: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, s.LastImprovement); err != nil {
		return fmt.Errorf("evolution: writing last improvement: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, s.Crossovers); err != nil {
		return fmt.Errorf("evolution: writing crossovers: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, s.Mutations); err != nil {
		return fmt.Errorf("evolution: writing mutations: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, int64(s.Elapsed)); err != nil {
		return fmt.Errorf("evolution: writing elapsed: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, int64(s.Status)); err != nil {
		return fmt.Errorf("evolution: writing status: %w", err)
	}

	return bw.Flush()
}

// LoadSummary reads a Summary written by Save. newIndividual builds the
// zero-value instance the saved best, if any, is unmarshaled into.
func LoadSummary(r io.Reader, newIndividual func() individual.Individual) (Summary, error) {
	var s Summary
	br := bufio.NewReader(r)

	magic := make([]byte, len(summaryFormatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return s, fmt.Errorf("evolution: reading magic: %w", err)
	}
	if string(magic) != summaryFormatMagic {
		return s, fmt.Errorf("evolution: bad magic %q", magic)
	}

	var tagLen uint64
	if err := binary.Read(br, binary.LittleEndian, &tagLen); err != nil {
		return s, fmt.Errorf("evolution: reading run tag length: %w", err)
	}
	tag := make([]byte, tagLen)
	if _, err := io.ReadFull(br, tag); err != nil {
		return s, fmt.Errorf("evolution: reading run tag: %w", err)
	}
	s.RunTag = string(tag)

	var hasBest bool
	if err := binary.Read(br, binary.LittleEndian, &hasBest); err != nil {
		return s, fmt.Errorf("evolution: reading has-best flag: %w", err)
	}
	if hasBest {
		var age uint64
		var fit float64
		var length uint64
		if err := binary.Read(br, binary.LittleEndian, &age); err != nil {
			return s, fmt.Errorf("evolution: reading best age: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &fit); err != nil {
			return s, fmt.Errorf("evolution: reading best fitness: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return s, fmt.Errorf("evolution: reading best length: %w", err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return s, fmt.Errorf("evolution: reading best: %w", err)
		}

		ind := newIndividual()
		unmarshaler, ok := ind.(encoding.BinaryUnmarshaler)
		if !ok {
			return s, fmt.Errorf("evolution: %T does not implement encoding.BinaryUnmarshaler", ind)
		}
		if err := unmarshaler.UnmarshalBinary(data); err != nil {
			return s, fmt.Errorf("evolution: unmarshaling best: %w", err)
		}
		ind.SetAgeAtLeast(uint(age))
		s.Best = individual.Scored{Ind: ind, Fit: fitness.Scalar(fit)}
	}

	if err := binary.Read(br, binary.LittleEndian, &s.Generations); err != nil {
		return s, fmt.Errorf("evolution: reading generations: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &s.LastImprovement); err != nil {
		return s, fmt.Errorf("evolution: reading last improvement: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &s.Crossovers); err != nil {
		return s, fmt.Errorf("evolution: reading crossovers: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &s.Mutations); err != nil {
		return s, fmt.Errorf("evolution: reading mutations: %w", err)
	}
	var elapsed, status int64
	if err := binary.Read(br, binary.LittleEndian, &elapsed); err != nil {
		return s, fmt.Errorf("evolution: reading elapsed: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &status); err != nil {
		return s, fmt.Errorf("evolution: reading status: %w", err)
	}
	s.Elapsed = time.Duration(elapsed)
	s.Status = Status(status)

	return s, nil
}
