package prng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		seed uint64
		want [4]uint64
	}{
		{
			name: "zero",
			seed: 0,
			want: [4]uint64{0xe220a8397b1dcdaf, 0x6e789e6aa1b965f4, 0x06c45d188009454f, 0xf88bb8a8724c81ec},
		},
		{
			name: "coffee",
			seed: 0xC0FFEE,
			want: [4]uint64{0xca8216fa9058d0fa, 0xece45babce870479, 0x87be93a4a16a73cb, 0x5a71c08957a50d44},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.seed))
		})
	}
}

func TestSplitMix64MatchesExpand(t *testing.T) {
	sm := NewSplitMix64(12345)
	want := Expand(12345)
	for i := range want {
		assert.Equal(t, want[i], sm.Next(), "word %d", i)
	}
}

func TestXoshiro256KnownOutputs(t *testing.T) {
	x := NewXoshiro256(0xC0FFEE)
	assert.Equal(t, uint64(0x8c7615e9af6b4ae5), x.Uint64())
	assert.Equal(t, uint64(0xd175fd6e7f597969), x.Uint64())
	assert.Equal(t, uint64(0xac823e0ae898e8ec), x.Uint64())

	x = NewXoshiro256(0)
	assert.Equal(t, uint64(0x53175d61490b23df), x.Uint64())
	assert.Equal(t, uint64(0x61da6f3dc380d507), x.Uint64())
	assert.Equal(t, uint64(0x5c0fdf91ec9a7bfc), x.Uint64())
}

func TestXoshiro256SeedRestartsStream(t *testing.T) {
	x := NewXoshiro256(99)
	first := make([]uint64, 16)
	for i := range first {
		first[i] = x.Uint64()
	}

	x.Seed(99)
	for i := range first {
		require.Equal(t, first[i], x.Uint64(), "draw %d", i)
	}
}

func TestXoshiro256FromState(t *testing.T) {
	a := NewXoshiro256(7)
	a.Uint64()
	b := fromState(a.state())

	for i := 0; i < 8; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestXoshiro256SeedSensitivity(t *testing.T) {
	a := NewXoshiro256(1 << 20)
	b := NewXoshiro256(1<<20 | 1)

	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	assert.Zero(t, same)
}
