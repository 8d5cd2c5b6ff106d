package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"zero", Int(0), "0"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Ints([]int64{1, 2, 3}), "[1,2,3]"},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"step":  Int(0),
		"kind":  String("insert"),
		"key":   Int(549),
		"found": Bool(true),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"found":true,"key":549,"kind":"insert","step":0}`, string(result))
}

func TestMarshalCanonicalNested(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Array{Int(3), Object{"y": Bool(false), "x": String("")}},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[3,{"x":"","y":false}],"z":{"a":2,"b":1}}`, string(result))
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order but after it in
	// UTF-16, where the emoji is a surrogate pair starting 0xD83D.
	obj := Object{"\U0001F600": Int(1), "\uff61": Int(2), "a": Int(3)}
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + COMBINING ACUTE ACCENT normalises to U+00E9.
	result, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`x\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalControlChars(t *testing.T) {
	result, err := MarshalCanonical(String("tab\there\n\"q\""))
	require.NoError(t, err)
	assert.Equal(t, `"tab\there\n\"q\""`, string(result))
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(Object{"k": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"k"`)

	_, err = MarshalCanonical(Array{Int(1), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestHashWithDomain(t *testing.T) {
	payload := []byte("I 549\n")

	sum := sha256.Sum256(append([]byte(DomainTrace+"\x00"), payload...))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashWithDomain(DomainTrace, payload))

	// Domain separation changes the digest.
	assert.NotEqual(t, HashWithDomain(DomainTrace, payload), HashWithDomain("other/v1", payload))
}

func TestNewHasherStreaming(t *testing.T) {
	h := NewHasher(DomainTrace)
	h.Write([]byte("I 549\n"))
	h.Write([]byte("final 1 549\n"))

	assert.Equal(t, HashWithDomain(DomainTrace, []byte("I 549\nfinal 1 549\n")), Digest(h))
}
