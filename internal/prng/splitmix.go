package prng

// goldenGamma is the splitmix64 increment, derived from the golden ratio.
const goldenGamma = 0x9E3779B97F4A7C15

// SplitMix64 is the seed expander used to initialize Xoshiro256.
type SplitMix64 struct {
	state uint64
}

// NewSplitMix64 returns an expander whose accumulator starts at seed.
func NewSplitMix64(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

// Next advances the accumulator and returns the mixed output word.
func (s *SplitMix64) Next() uint64 {
	s.state += goldenGamma
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Expand derives the four generator words for seed. Seeds differing in a
// single bit produce decorrelated states.
func Expand(seed uint64) [4]uint64 {
	sm := NewSplitMix64(seed)
	var s [4]uint64
	for i := range s {
		s[i] = sm.Next()
	}
	return s
}
