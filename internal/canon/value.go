package canon

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types canonical JSON accepts.
type Value interface {
	canonValue()
}

// String is a JSON string.
type String string

func (String) canonValue() {}

// Int is a JSON integer. Always int64, never float.
type Int int64

func (Int) canonValue() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) canonValue() {}

// Array is a JSON array.
type Array []Value

func (Array) canonValue() {}

// Object is a JSON object. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) canonValue() {}

// Ints converts a slice of keys to an Array.
func Ints(keys []int64) Array {
	arr := make(Array, len(keys))
	for i, k := range keys {
		arr[i] = Int(k)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
