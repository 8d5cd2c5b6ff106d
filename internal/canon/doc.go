// Package canon encodes trace records as canonical JSON and hashes them.
//
// Values are restricted to strings, integers, booleans, arrays and objects.
// Floats and null are rejected so that every encoding is byte-stable across
// processes and platforms. Object keys are ordered by UTF-16 code units and
// strings are NFC-normalised (RFC 8785).
package canon
