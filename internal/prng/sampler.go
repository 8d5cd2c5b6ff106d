package prng

import (
	"math"
	"math/bits"
)

// Source produces uniformly distributed 64-bit values.
type Source interface {
	Uint64() uint64
}

// Sampler draws unbiased bounded values from a Source.
//
// Every method consumes at least one raw draw. Extra draws only happen in
// the rejection region, so the exact number of draws per call depends on the
// values produced and is part of the reproducible stream.
type Sampler struct {
	src Source
}

// NewSampler wraps src.
func NewSampler(src Source) *Sampler {
	return &Sampler{src: src}
}

// New returns a Sampler over a Xoshiro256 seeded with seed.
func New(seed uint64) *Sampler {
	return NewSampler(NewXoshiro256(seed))
}

// Uint64 returns one raw draw.
func (s *Sampler) Uint64() uint64 {
	return s.src.Uint64()
}

// Uint8 returns the low byte of one raw draw.
func (s *Sampler) Uint8() uint8 {
	return uint8(s.src.Uint64())
}

// Bool returns the low bit of one Uint8 draw.
func (s *Sampler) Bool() bool {
	return s.Uint8()&1 == 1
}

// UintBelow8 returns a uniform value in [0, bound). It panics if bound is 0.
func (s *Sampler) UintBelow8(bound uint8) uint8 {
	if bound == 0 {
		panic("prng: UintBelow8 bound must be positive")
	}
	m := uint16(s.Uint8()) * uint16(bound)
	low := uint8(m)
	if low < bound {
		t := rejectThreshold8(bound)
		for low < t {
			m = uint16(s.Uint8()) * uint16(bound)
			low = uint8(m)
		}
	}
	return uint8(m >> 8)
}

// UintBelow64 returns a uniform value in [0, bound). It panics if bound is 0.
func (s *Sampler) UintBelow64(bound uint64) uint64 {
	if bound == 0 {
		panic("prng: UintBelow64 bound must be positive")
	}
	hi, low := bits.Mul64(s.src.Uint64(), bound)
	if low < bound {
		t := rejectThreshold64(bound)
		for low < t {
			hi, low = bits.Mul64(s.src.Uint64(), bound)
		}
	}
	return hi
}

// UintAtMost64 returns a uniform value in [0, bound].
func (s *Sampler) UintAtMost64(bound uint64) uint64 {
	if bound == math.MaxUint64 {
		return s.src.Uint64()
	}
	return s.UintBelow64(bound + 1)
}

// IntRange64 returns a uniform value in [lo, hi]. It panics if lo > hi.
func (s *Sampler) IntRange64(lo, hi int64) int64 {
	if lo > hi {
		panic("prng: IntRange64 requires lo <= hi")
	}
	width := uint64(hi) - uint64(lo)
	return int64(uint64(lo) + s.UintAtMost64(width))
}

// rejectThreshold8 computes (2^8 - bound) mod bound, avoiding the modulo
// for large bounds.
func rejectThreshold8(bound uint8) uint8 {
	t := -bound
	if t >= bound {
		t -= bound
		if t >= bound {
			t %= bound
		}
	}
	return t
}

// rejectThreshold64 computes (2^64 - bound) mod bound.
func rejectThreshold64(bound uint64) uint64 {
	t := -bound
	if t >= bound {
		t -= bound
		if t >= bound {
			t %= bound
		}
	}
	return t
}
