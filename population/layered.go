package population

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/morinim/ultra/individual"
)

// layeredFormatMagic guards Load against reading a file that isn't a
// layered-population snapshot at all.
const layeredFormatMagic = "ULTRAP01"

// Layered is the full age-layered population: an ordered stack of Layer,
// layer 0 being the youngest.
type Layered struct {
	layers []*Layer
}

// NewLayered builds a Layered population of numLayers empty layers, each
// sized layerSize and carrying the age ceiling maxAge(layer) returns.
func NewLayered(numLayers, layerSize int, maxAge func(layer int) uint) *Layered {
	layers := make([]*Layer, numLayers)
	for i := range layers {
		layers[i] = NewLayer(layerSize, maxAge(i))
	}
	return &Layered{layers: layers}
}

// Layers returns the ordered slice of layers, youngest first.
func (p *Layered) Layers() []*Layer {
	return p.layers
}

// NumLayers returns the number of layers.
func (p *Layered) NumLayers() int {
	return len(p.layers)
}

// Layer returns the layer at index i.
func (p *Layered) Layer(i int) *Layer {
	return p.layers[i]
}

// AddLayer appends a fresh empty layer on top, sized like the current top
// layer, with the age ceiling newMaxAge returns for its index. The previous
// top layer, no longer the last, gets the ceiling newMaxAge returns for its
// own index in place of its old one.
func (p *Layered) AddLayer(newMaxAge func(layer int) uint) {
	top := p.layers[len(p.layers)-1]
	top.SetMaxAge(newMaxAge(len(p.layers) - 1))

	added := NewLayer(top.AllowedSize(), newMaxAge(len(p.layers)))
	p.layers = append(p.layers, added)
}

// Erase removes the layer at index i.
func (p *Layered) Erase(i int) {
	p.layers = append(p.layers[:i], p.layers[i+1:]...)
}

// IncAge advances every layer's members by one generation.
func (p *Layered) IncAge() {
	for _, l := range p.layers {
		l.IncAge()
	}
}

// RandomIndividual returns a uniformly random individual drawn from a
// uniformly random layer.
func (p *Layered) RandomIndividual(rng *rand.Rand) individual.Scored {
	layerIdx := rng.IntN(len(p.layers))
	return p.layers[layerIdx].RandomMember(rng)
}

// RandomIndividualInMateZone returns a member of layerIdx drawn from a
// ring of radius mateZone around center, wrapping at the layer's bounds —
// the reference kernel's neighbor-restricted mating (population::coord,
// random::ring). A mateZone wide enough to cover the whole layer, or a
// negative center with no meaningful position, degrades to a uniform draw.
func (p *Layered) RandomIndividualInMateZone(layerIdx, center int, mateZone uint, rng *rand.Rand) individual.Scored {
	l := p.layers[layerIdx]
	n := l.Size()
	if n == 0 {
		return individual.Scored{}
	}
	if center < 0 || uint(n) <= 2*mateZone+1 {
		return l.RandomMember(rng)
	}

	offset := int(rng.UintN(2*mateZone+1)) - int(mateZone)
	idx := ((center+offset)%n + n) % n
	return l.At(idx)
}

// Save writes every layer to w, magic-prefixed and length-counted so Load
// can reconstruct the same layer stack.
func (p *Layered) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(layeredFormatMagic); err != nil {
		return fmt.Errorf("population: writing magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(p.layers))); err != nil {
		return fmt.Errorf("population: writing layer count: %w", err)
	}

	for i, l := range p.layers {
		if err := l.Save(bw); err != nil {
			return fmt.Errorf("population: saving layer %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// Load replaces p's layers by reading a snapshot written by Save.
// newIndividual is passed through to each layer's Load.
func (p *Layered) Load(r io.Reader, newIndividual func() individual.Individual) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(layeredFormatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("population: reading magic: %w", err)
	}
	if string(magic) != layeredFormatMagic {
		return fmt.Errorf("population: bad magic %q", magic)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("population: reading layer count: %w", err)
	}

	layers := make([]*Layer, count)
	for i := uint64(0); i < count; i++ {
		l := &Layer{}
		if err := l.Load(br, newIndividual); err != nil {
			return fmt.Errorf("population: loading layer %d: %w", i, err)
		}
		layers[i] = l
	}

	p.layers = layers
	return nil
}
