// Package config manages ULTRA's tunable run parameters: loading and
// saving them as TOML, and watching the parameter file on disk so a long
// search can be retuned without restarting it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Parameters holds every tunable knob of the evolutionary engine. Defaults
// match the reference kernel's evolution parameters block; field names are
// ULTRA's own.
type Parameters struct {
	// PopulationSize is the total number of individuals across all layers.
	PopulationSize int `toml:"population_size"`

	// NumLayers is the initial number of ALPS age layers.
	NumLayers int `toml:"num_layers"`

	// AgeGap is the generation span of the youngest layer; every other
	// layer's age ceiling is derived from it.
	AgeGap uint `toml:"age_gap"`

	// PMainLayer is the probability selection favors an individual's own
	// layer over the one below it.
	PMainLayer float64 `toml:"p_main_layer"`

	// TournamentSize is the number of contestants drawn for both parent
	// selection and kill-tournament replacement.
	TournamentSize int `toml:"tournament_size"`

	// MutationRate is the per-locus mutation probability for GA/GP
	// recombination.
	MutationRate float64 `toml:"mutation_rate"`

	// CrossoverRate (p_cross) is the probability GA/GP recombination
	// produces an offspring via crossover at all; otherwise one parent is
	// copied verbatim before mutation gets its turn. DE's own per-component
	// binomial crossover probability is configured separately, through
	// recombination.DEParameters.CrossoverRate.
	CrossoverRate float64 `toml:"crossover_rate"`

	// DEWeightLow and DEWeightHigh describe a bound on DE's dithered scale
	// factor F; Validate checks low <= high. evolution.Driver does not read
	// them: the bounds it uses come from its Strategy's
	// recombination.DEParameters.
	DEWeightLow  float64 `toml:"de_weight_low"`
	DEWeightHigh float64 `toml:"de_weight_high"`

	// Elitism is the probability a kill-tournament replacement enforces
	// "only replace if the candidate is fitter". When the per-replacement
	// roll fails (probability 1-Elitism), the tournament's loser is
	// overwritten unconditionally, win or lose. 1.0 (the default) makes
	// every replacement strictly elitist, matching the reference kernel's
	// out-of-the-box behavior.
	Elitism float64 `toml:"elitism"`

	// MateZone bounds how far selection's second parent may sit from the
	// first within the same layer: the candidate pool is a ring of this
	// radius around the first parent's position rather than the whole
	// layer. Must be at least TournamentSize.
	MateZone uint `toml:"mate_zone"`

	// BroodRecombination is how many offspring GA recombination produces
	// per mating before keeping only the fittest (brood selection). 1 (the
	// default) disables brood selection: every mating yields exactly one
	// offspring.
	BroodRecombination int `toml:"brood_recombination"`

	// MinIndividuals is the fewest members a layer must hold before its
	// worker evolves it for a generation; thinner layers are skipped until
	// reseeding/migration brings them back up.
	MinIndividuals int `toml:"min_individuals"`

	// CacheBits is log2 of the fitness cache's slot count.
	CacheBits uint `toml:"cache_bits"`

	// MaxGenerations stops a run after this many generations. 0 means no
	// limit (some other stop condition must apply).
	MaxGenerations uint64 `toml:"max_generations"`

	// MaxStuckGenerations stops a run after this many generations without
	// an improvement to the best fitness. 0 disables the check.
	MaxStuckGenerations uint64 `toml:"max_stuck_generations"`

	// Threshold, when non-nil, stops a run as soon as the best fitness
	// reaches it. Represented as a pointer so "unset" is distinguishable
	// from the zero fitness value.
	Threshold *float64 `toml:"threshold,omitempty"`
}

// DefaultParameters returns ULTRA's out-of-the-box tuning.
func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:      100,
		NumLayers:           1,
		AgeGap:              20,
		PMainLayer:          0.75,
		TournamentSize:      5,
		MutationRate:        0.04,
		CrossoverRate:       0.9,
		DEWeightLow:         0.5,
		DEWeightHigh:        1.0,
		Elitism:             1.0,
		MateZone:            20,
		BroodRecombination:  1,
		MinIndividuals:      2,
		CacheBits:           16,
		MaxGenerations:      100,
		MaxStuckGenerations: 0,
	}
}

// Validate reports whether p is internally consistent. forceDefined, when
// true, additionally requires Threshold to be set, for callers that need a
// definite stop criterion (e.g. an unattended batch run).
func (p Parameters) Validate(forceDefined bool) error {
	switch {
	case p.PopulationSize <= 0:
		return fmt.Errorf("config: population_size must be positive, got %d", p.PopulationSize)
	case p.NumLayers <= 0:
		return fmt.Errorf("config: num_layers must be positive, got %d", p.NumLayers)
	case p.TournamentSize <= 0:
		return fmt.Errorf("config: tournament_size must be positive, got %d", p.TournamentSize)
	case p.PMainLayer < 0 || p.PMainLayer > 1:
		return fmt.Errorf("config: p_main_layer must be in [0,1], got %f", p.PMainLayer)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return fmt.Errorf("config: mutation_rate must be in [0,1], got %f", p.MutationRate)
	case p.CrossoverRate < 0 || p.CrossoverRate > 1:
		return fmt.Errorf("config: crossover_rate must be in [0,1], got %f", p.CrossoverRate)
	case p.DEWeightLow > p.DEWeightHigh:
		return fmt.Errorf("config: de_weight_low (%f) must not exceed de_weight_high (%f)", p.DEWeightLow, p.DEWeightHigh)
	case p.Elitism < 0 || p.Elitism > 1:
		return fmt.Errorf("config: elitism must be in [0,1], got %f", p.Elitism)
	case p.MateZone == 0:
		return fmt.Errorf("config: mate_zone must be positive")
	case p.MateZone < uint(p.TournamentSize):
		return fmt.Errorf("config: mate_zone (%d) must be at least tournament_size (%d)", p.MateZone, p.TournamentSize)
	case p.BroodRecombination <= 0:
		return fmt.Errorf("config: brood_recombination must be positive, got %d", p.BroodRecombination)
	case p.MinIndividuals <= 0:
		return fmt.Errorf("config: min_individuals must be positive, got %d", p.MinIndividuals)
	case forceDefined && p.Threshold == nil:
		return fmt.Errorf("config: threshold must be set")
	}
	return nil
}

// DefaultPath returns the config file ULTRA looks at by default: a
// ultra.toml in the current directory, falling back to
// ~/.config/ultra/config.toml.
func DefaultPath() string {
	if _, err := os.Stat("./ultra.toml"); err == nil {
		return "./ultra.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./ultra.toml"
	}
	return filepath.Join(home, ".config", "ultra", "config.toml")
}

// Load reads Parameters from a TOML file at path. A missing file is not an
// error: it yields DefaultParameters so a first run works with no setup.
func Load(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultParameters(), nil
		}
		return DefaultParameters(), fmt.Errorf("config: reading %s: %w", path, err)
	}

	p := DefaultParameters()
	if err := toml.Unmarshal(data, &p); err != nil {
		return DefaultParameters(), fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path as TOML, creating any missing parent directory.
func Save(path string, p Parameters) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Shared is a mutex-guarded Parameters snapshot, read frequently by layer
// workers between generations and updated rarely, by a Watcher or by user
// command.
type Shared struct {
	mu  sync.RWMutex
	cur Parameters
}

// NewShared wraps an initial Parameters value for concurrent access.
func NewShared(p Parameters) *Shared {
	return &Shared{cur: p}
}

// Get returns the current Parameters snapshot.
func (s *Shared) Get() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update replaces the current Parameters snapshot.
func (s *Shared) Update(p Parameters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = p
}
