// Package hash implements the 128-bit fingerprint used to identify
// individuals for caching and duplicate detection.
package hash

import "math/bits"

// defaultSeed is the seed ULTRA has always used for fingerprinting.
// Changing it invalidates every cache saved to disk.
const defaultSeed uint32 = 1973

// Hash is a 128-bit fingerprint split into two 64-bit halves.
type Hash struct {
	Lo, Hi uint64
}

// Empty reports whether h is the zero fingerprint.
//
// Hash(data, seed) can legitimately produce the all-zero value, but ULTRA
// reserves it to mean "no individual" the way a nil pointer would.
func (h Hash) Empty() bool {
	return h.Lo == 0 && h.Hi == 0
}

// Combine folds other into h, producing a new fingerprint for a composite
// individual built out of h and other. The combination is intentionally
// non-commutative: Combine(a, b) differs from Combine(b, a) because the
// order of an individual's parts is part of its identity.
func (h Hash) Combine(other Hash) Hash {
	return Hash{
		Lo: h.Lo*37 + other.Lo,
		Hi: h.Hi*37 + other.Hi,
	}
}

// New computes the MurmurHash3 x64 128-bit fingerprint of data using
// ULTRA's default seed.
func New(data []byte) Hash {
	return murmurHash3x64_128(data, defaultSeed)
}

// NewSeeded is New with an explicit seed, for tests that need reproducible
// but distinguishable fingerprints.
func NewSeeded(data []byte, seed uint32) Hash {
	return murmurHash3x64_128(data, seed)
}

const (
	c1 = 0x87c37b91114253d5
	c2 = 0x4cf5ad432745937f
)

// murmurHash3x64_128 is a direct translation of the reference x64-128
// variant of MurmurHash3: 16-byte body blocks, a tail switch over the
// remaining 0-15 bytes, and the usual fmix64 finalizer.
func murmurHash3x64_128(data []byte, seed uint32) Hash {
	length := len(data)
	nblocks := length / 16

	h1 := uint64(seed)
	h2 := uint64(seed)

	for i := 0; i < nblocks; i++ {
		block := data[i*16 : i*16+16]
		k1 := le64(block[0:8])
		k2 := le64(block[8:16])

		k1 *= c1
		k1 = bits.RotateLeft64(k1, 31)
		k1 *= c2
		h1 ^= k1

		h1 = bits.RotateLeft64(h1, 27)
		h1 += h2
		h1 = h1*5 + 0x52dce729

		k2 *= c2
		k2 = bits.RotateLeft64(k2, 33)
		k2 *= c1
		h2 ^= k2

		h2 = bits.RotateLeft64(h2, 31)
		h2 += h1
		h2 = h2*5 + 0x38495ab5
	}

	tail := data[nblocks*16:]
	var k1, k2 uint64

	switch len(tail) {
	case 15:
		k2 ^= uint64(tail[14]) << 48
		fallthrough
	case 14:
		k2 ^= uint64(tail[13]) << 40
		fallthrough
	case 13:
		k2 ^= uint64(tail[12]) << 32
		fallthrough
	case 12:
		k2 ^= uint64(tail[11]) << 24
		fallthrough
	case 11:
		k2 ^= uint64(tail[10]) << 16
		fallthrough
	case 10:
		k2 ^= uint64(tail[9]) << 8
		fallthrough
	case 9:
		k2 ^= uint64(tail[8])
		k2 *= c2
		k2 = bits.RotateLeft64(k2, 33)
		k2 *= c1
		h2 ^= k2
		fallthrough
	case 8:
		k1 ^= uint64(tail[7]) << 56
		fallthrough
	case 7:
		k1 ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		k1 ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		k1 ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		k1 ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		k1 ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint64(tail[0])
		k1 *= c1
		k1 = bits.RotateLeft64(k1, 31)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint64(length)
	h2 ^= uint64(length)

	h1 += h2
	h2 += h1

	h1 = fmix64(h1)
	h2 = fmix64(h2)

	h1 += h2
	h2 += h1

	return Hash{Lo: h1, Hi: h2}
}

func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
