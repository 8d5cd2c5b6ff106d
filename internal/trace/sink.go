package trace

import (
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/roach88/btrtrace/internal/canon"
)

// Sink consumes records as a run emits them.
type Sink interface {
	Emit(r Record) error
}

// Format selects how a Writer renders records.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid format %q: must be text or json", s)
	}
}

// digester accumulates the trace digest over text lines.
type digester struct {
	h hash.Hash
	n int
}

func newDigester() digester {
	return digester{h: canon.NewHasher(canon.DomainTrace)}
}

func (d *digester) add(line string) {
	io.WriteString(d.h, line)
	d.h.Write([]byte{'\n'})
	d.n++
}

// Writer renders records to an io.Writer, one per line.
type Writer struct {
	w      io.Writer
	format Format
	d      digester
}

var _ Sink = (*Writer)(nil)

// NewWriter returns a Writer in the given format. An empty format means
// FormatText.
func NewWriter(w io.Writer, format Format) *Writer {
	if format == "" {
		format = FormatText
	}
	return &Writer{w: w, format: format, d: newDigester()}
}

// Emit writes r and folds its text line into the digest.
func (w *Writer) Emit(r Record) error {
	line := r.String()
	w.d.add(line)

	var out []byte
	switch w.format {
	case FormatJSON:
		b, err := canon.MarshalCanonical(r.Canonical())
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		out = append(b, '\n')
	default:
		out = []byte(line + "\n")
	}
	if _, err := w.w.Write(out); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Digest returns the hex digest of every line emitted so far.
func (w *Writer) Digest() string {
	return canon.Digest(w.d.h)
}

// Lines returns the number of records emitted.
func (w *Writer) Lines() int {
	return w.d.n
}

// Recorder keeps every emitted record in memory.
type Recorder struct {
	Records []Record
	d       digester
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{d: newDigester()}
}

// Emit appends r.
func (rec *Recorder) Emit(r Record) error {
	if rec.d.h == nil {
		rec.d = newDigester()
	}
	rec.Records = append(rec.Records, r)
	rec.d.add(r.String())
	return nil
}

// Lines returns the text line of every record.
func (rec *Recorder) Lines() []string {
	lines := make([]string, len(rec.Records))
	for i, r := range rec.Records {
		lines[i] = r.String()
	}
	return lines
}

// Text returns the full text trace, newline-terminated.
func (rec *Recorder) Text() string {
	if len(rec.Records) == 0 {
		return ""
	}
	return strings.Join(rec.Lines(), "\n") + "\n"
}

// Digest returns the hex digest of the recorded lines.
func (rec *Recorder) Digest() string {
	if rec.d.h == nil {
		rec.d = newDigester()
	}
	return canon.Digest(rec.d.h)
}

// Final returns the final record, if one was emitted.
func (rec *Recorder) Final() (Record, bool) {
	for i := len(rec.Records) - 1; i >= 0; i-- {
		if rec.Records[i].Kind == KindFinal {
			return rec.Records[i], true
		}
	}
	return Record{}, false
}

// Tee returns a Sink that emits to every sink in order and stops at the
// first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Emit(r Record) error {
	for _, s := range t {
		if err := s.Emit(r); err != nil {
			return err
		}
	}
	return nil
}
