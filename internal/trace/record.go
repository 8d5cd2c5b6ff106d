// Package trace defines the operation records a workload run emits and the
// sinks that render them.
//
// The text form is one ASCII line per record:
//
//	I <key>
//	D <key>
//	S <key> <0|1>
//	final <count> <key>...
//
// The JSON form is one canonical JSON object per line. Both forms share a
// digest computed over the text lines.
package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/btrtrace/internal/canon"
)

// Kind identifies the operation a Record describes.
type Kind int

const (
	KindInsert Kind = iota + 1
	KindDelete
	KindSearch
	KindFinal
)

// String returns the lowercase name used in the JSON form.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindSearch:
		return "search"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// ParseKind accepts the JSON name or the single-letter text tag.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "insert", "i":
		return KindInsert, nil
	case "delete", "d":
		return KindDelete, nil
	case "search", "s":
		return KindSearch, nil
	case "final":
		return KindFinal, nil
	default:
		return 0, fmt.Errorf("unknown record kind %q", s)
	}
}

// Record is one emitted trace event.
type Record struct {
	// Step is the zero-based step that produced the record. For KindFinal it
	// is the number of steps executed.
	Step uint64

	Kind Kind

	// Key is the inserted, deleted or searched key. Unused for KindFinal.
	Key int64

	// Found is the observed search outcome. Only meaningful for KindSearch.
	Found bool

	// Keys is the ascending scanned key set. Only set for KindFinal.
	Keys []int64
}

// Insert returns an insert record.
func Insert(step uint64, key int64) Record {
	return Record{Step: step, Kind: KindInsert, Key: key}
}

// Delete returns a delete record.
func Delete(step uint64, key int64) Record {
	return Record{Step: step, Kind: KindDelete, Key: key}
}

// Search returns a search record.
func Search(step uint64, key int64, found bool) Record {
	return Record{Step: step, Kind: KindSearch, Key: key, Found: found}
}

// Final returns the verification record for the scanned keys.
func Final(steps uint64, keys []int64) Record {
	return Record{Step: steps, Kind: KindFinal, Keys: keys}
}

// String renders the text line for r, without the trailing newline.
func (r Record) String() string {
	switch r.Kind {
	case KindInsert:
		return "I " + strconv.FormatInt(r.Key, 10)
	case KindDelete:
		return "D " + strconv.FormatInt(r.Key, 10)
	case KindSearch:
		found := "0"
		if r.Found {
			found = "1"
		}
		return "S " + strconv.FormatInt(r.Key, 10) + " " + found
	case KindFinal:
		var b strings.Builder
		b.WriteString("final ")
		b.WriteString(strconv.Itoa(len(r.Keys)))
		for _, k := range r.Keys {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatInt(k, 10))
		}
		return b.String()
	default:
		return fmt.Sprintf("? %d", r.Key)
	}
}

// Canonical returns r as a canonical JSON object.
func (r Record) Canonical() canon.Object {
	if r.Kind == KindFinal {
		return canon.Object{
			"kind":  canon.String(r.Kind.String()),
			"count": canon.Int(len(r.Keys)),
			"keys":  canon.Ints(r.Keys),
		}
	}
	obj := canon.Object{
		"kind": canon.String(r.Kind.String()),
		"step": canon.Int(int64(r.Step)),
		"key":  canon.Int(r.Key),
	}
	if r.Kind == KindSearch {
		obj["found"] = canon.Bool(r.Found)
	}
	return obj
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (r Record) MarshalJSON() ([]byte, error) {
	return canon.MarshalCanonical(r.Canonical())
}

// ParseLine parses one text line back into a Record. Step is not part of
// the text form and is left zero.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("empty trace line")
	}
	kind, err := ParseKind(fields[0])
	if err != nil {
		return Record{}, err
	}

	switch kind {
	case KindInsert, KindDelete:
		if len(fields) != 2 {
			return Record{}, fmt.Errorf("%q: want 2 fields, got %d", line, len(fields))
		}
		key, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%q: bad key: %w", line, err)
		}
		return Record{Kind: kind, Key: key}, nil

	case KindSearch:
		if len(fields) != 3 {
			return Record{}, fmt.Errorf("%q: want 3 fields, got %d", line, len(fields))
		}
		key, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%q: bad key: %w", line, err)
		}
		switch fields[2] {
		case "0":
			return Search(0, key, false), nil
		case "1":
			return Search(0, key, true), nil
		default:
			return Record{}, fmt.Errorf("%q: outcome must be 0 or 1", line)
		}

	default:
		if len(fields) < 2 {
			return Record{}, fmt.Errorf("%q: missing count", line)
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil {
			return Record{}, fmt.Errorf("%q: bad count: %w", line, err)
		}
		if count != len(fields)-2 {
			return Record{}, fmt.Errorf("%q: count %d but %d keys", line, count, len(fields)-2)
		}
		keys := make([]int64, count)
		for i, f := range fields[2:] {
			keys[i], err = strconv.ParseInt(f, 10, 64)
			if err != nil {
				return Record{}, fmt.Errorf("%q: bad key: %w", line, err)
			}
		}
		return Record{Kind: KindFinal, Keys: keys}, nil
	}
}
