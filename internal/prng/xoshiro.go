package prng

import "math/bits"

// Xoshiro256 is a xoshiro256++ generator.
type Xoshiro256 struct {
	s [4]uint64
}

// NewXoshiro256 returns a generator seeded through Expand.
func NewXoshiro256(seed uint64) *Xoshiro256 {
	x := &Xoshiro256{}
	x.Seed(seed)
	return x
}

// fromState returns a generator starting at an explicit state.
// An all-zero state is a fixed point and yields only zeros.
func fromState(s [4]uint64) *Xoshiro256 {
	return &Xoshiro256{s: s}
}

// Seed resets the generator so that it replays the stream for seed.
func (x *Xoshiro256) Seed(seed uint64) {
	x.s = Expand(seed)
}

// state returns a copy of the current generator words.
func (x *Xoshiro256) state() [4]uint64 {
	return x.s
}

// Uint64 returns the next value and advances all four words.
func (x *Xoshiro256) Uint64() uint64 {
	s := &x.s
	result := bits.RotateLeft64(s[0]+s[3], 23) + s[0]
	t := s[1] << 17

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]

	s[2] ^= t
	s[3] = bits.RotateLeft64(s[3], 45)

	return result
}
