// Package alps implements the Age-Layered Population Structure age policy:
// per-layer age ceilings and the layer sets selection and replacement draw
// from.
package alps

import "math"

// Parameters configures the age policy. AgeGap is the generation span of
// the youngest layer; every other layer's ceiling is derived from it.
// PMainLayer is the probability selection favors an individual's own layer
// over the one below it.
type Parameters struct {
	AgeGap     uint
	PMainLayer float64
}

// DefaultParameters matches the values used throughout the original
// ALPS literature and the reference kernel.
func DefaultParameters() Parameters {
	return Parameters{AgeGap: 20, PMainLayer: 0.75}
}

// Unbounded is the age ceiling of the top layer: nothing is ever too old
// to stay there.
const Unbounded = ^uint(0)

// MaxAge returns the age ceiling for layer l, given numLayers total layers.
// The last layer is always Unbounded; layer 0 is AgeGap; layer 1 is
// 2*AgeGap; every layer beyond that follows the polynomial scheme
// l*l*AgeGap.
func (p Parameters) MaxAge(layer, numLayers int) uint {
	if layer == numLayers-1 {
		return Unbounded
	}

	switch layer {
	case 0:
		return p.AgeGap
	case 1:
		return 2 * p.AgeGap
	default:
		return uint(layer*layer) * p.AgeGap
	}
}

// SelectionLayers returns the layer indices selection may draw from when
// filling layer l: l itself, and l-1 if it exists. ALPS draws from the
// layer below to let younger, possibly still-maturing genetic material
// compete its way up.
func SelectionLayers(layer int) []int {
	if layer == 0 {
		return []int{0}
	}
	return []int{layer - 1, layer}
}

// ReplacementLayers returns the layer indices a newly produced individual
// for layer l may displace a member of: l itself, and l+1 if it exists.
// This is the opposite direction from SelectionLayers: selection draws
// mates from a layer and the one below it, but replacement only ever
// pushes an offspring upward, into its own layer or the next one up,
// since an offspring too old for l belongs at least one layer above it,
// never below.
func ReplacementLayers(layer, numLayers int) []int {
	if layer+1 >= numLayers {
		return []int{layer}
	}
	return []int{layer, layer + 1}
}

// EffectiveAgeGap returns the AgeGap ULTRA actually should budget for,
// guarding against a configuration of 0 (which would collapse every layer
// to age 0) by substituting 1.
func (p Parameters) EffectiveAgeGap() uint {
	if p.AgeGap == 0 {
		return 1
	}
	return p.AgeGap
}

// LayerCapacity distributes a population budget evenly across numLayers,
// the way the reference kernel divides individuals_per_layer.
func LayerCapacity(populationSize, numLayers int) int {
	if numLayers <= 0 {
		return populationSize
	}
	return int(math.Ceil(float64(populationSize) / float64(numLayers)))
}
