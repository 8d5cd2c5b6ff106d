// Package oracle holds the in-memory ground truth of which keys a workload
// expects the storage engine to contain.
//
// The model is deliberately simple: a dense slice of present keys for O(1)
// uniform selection and swap-remove, plus a membership bitmap over the key
// domain [1, MaxKey]. Insertion order is not preserved; only membership and
// count are observable.
package oracle

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// DefaultMaxKey is the upper bound of the default key domain [1, 1000].
	DefaultMaxKey = 1000

	// MaxKeyLimit is the largest accepted domain bound. The membership
	// bitmap holds one byte per key.
	MaxKeyLimit = 1 << 22
)

var (
	// ErrEmpty is returned by Pick when no keys are present.
	ErrEmpty = errors.New("oracle is empty")

	// ErrOutOfDomain is returned when a key falls outside [1, MaxKey].
	ErrOutOfDomain = errors.New("key outside domain")

	// ErrDuplicate is returned when inserting a key that is already present.
	ErrDuplicate = errors.New("key already present")

	// ErrIndexOutOfRange is returned by RemoveAt for an invalid index.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDomainTooLarge is returned by CheckMaxKey above MaxKeyLimit.
	ErrDomainTooLarge = errors.New("key domain too large")
)

// CheckMaxKey validates a domain bound before New allocates for it.
func CheckMaxKey(maxKey int64) error {
	if maxKey < 1 {
		return fmt.Errorf("max key must be at least 1, got %d", maxKey)
	}
	if maxKey > MaxKeyLimit {
		return fmt.Errorf("%w: max key %d exceeds %d", ErrDomainTooLarge, maxKey, MaxKeyLimit)
	}
	return nil
}

// IndexSampler draws a uniform index in [0, bound).
// Implemented by *prng.Sampler.
type IndexSampler interface {
	UintBelow64(bound uint64) uint64
}

// Oracle tracks the set of keys that should exist.
//
// INVARIANT: present[k] is true iff k appears exactly once in keys.
//
// An Oracle is owned by a single driver and is not safe for concurrent use.
type Oracle struct {
	maxKey  int64
	present []bool // indexed by key; slot 0 unused
	keys    []int64
}

// New returns an empty oracle over [1, maxKey]. A non-positive maxKey selects
// DefaultMaxKey. It panics if maxKey exceeds MaxKeyLimit.
func New(maxKey int64) *Oracle {
	if maxKey <= 0 {
		maxKey = DefaultMaxKey
	}
	if maxKey > MaxKeyLimit {
		panic(fmt.Sprintf("oracle: max key %d exceeds %d", maxKey, MaxKeyLimit))
	}
	return &Oracle{
		maxKey:  maxKey,
		present: make([]bool, maxKey+1),
	}
}

// MaxKey returns the inclusive upper bound of the key domain.
func (o *Oracle) MaxKey() int64 {
	return o.maxKey
}

// Len returns the number of present keys.
func (o *Oracle) Len() int {
	return len(o.keys)
}

// Contains reports whether key is present. Keys outside the domain are never
// present.
func (o *Oracle) Contains(key int64) bool {
	if key < 1 || key > o.maxKey {
		return false
	}
	return o.present[key]
}

// Insert appends key. The caller is expected to have checked absence.
func (o *Oracle) Insert(key int64) error {
	if key < 1 || key > o.maxKey {
		return fmt.Errorf("insert %d: %w", key, ErrOutOfDomain)
	}
	if o.present[key] {
		return fmt.Errorf("insert %d: %w", key, ErrDuplicate)
	}
	o.present[key] = true
	o.keys = append(o.keys, key)
	return nil
}

// at returns the key stored at index i of the dense sequence.
func (o *Oracle) at(i int) int64 {
	return o.keys[i]
}

// Pick selects a present key uniformly at random.
func (o *Oracle) Pick(s IndexSampler) (int, int64, error) {
	if len(o.keys) == 0 {
		return 0, 0, ErrEmpty
	}
	i := int(s.UintBelow64(uint64(len(o.keys))))
	return i, o.keys[i], nil
}

// RemoveAt removes the key at index i by overwriting it with the last key and
// shrinking the sequence. It returns the removed key.
func (o *Oracle) RemoveAt(i int) (int64, error) {
	if i < 0 || i >= len(o.keys) {
		return 0, fmt.Errorf("remove at %d (len %d): %w", i, len(o.keys), ErrIndexOutOfRange)
	}
	key := o.keys[i]
	last := len(o.keys) - 1
	o.keys[i] = o.keys[last]
	o.keys = o.keys[:last]
	o.present[key] = false
	return key, nil
}

// Keys returns the present keys in ascending order. The result is a copy.
func (o *Oracle) Keys() []int64 {
	out := slices.Clone(o.keys)
	slices.Sort(out)
	return out
}
