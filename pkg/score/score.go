// Package score loads the JSON description of a piece's structure: a tempo and an
// ordered list of labeled time segments.
package score

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultBPM is applied when the input omits "bpm".
const DefaultBPM = 120.0

var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("input file not found")

	// ErrParse is returned when the input is not a JSON object or a segment is malformed.
	ErrParse = errors.New("invalid score JSON")
)

// ParseError describes why a score could not be decoded.
// Index is the zero-based segment position, or -1 when the problem is not tied to a segment.
type ParseError struct {
	Index int
	Field string
	Msg   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("%v: segment %d: %s: %s", ErrParse, e.Index, e.Field, e.Msg)
	case e.Index >= 0:
		return fmt.Sprintf("%v: segment %d: %s", ErrParse, e.Index, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("%v: %s: %s", ErrParse, e.Field, e.Msg)
	}
	return fmt.Sprintf("%v: %s", ErrParse, e.Msg)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Segment is a labeled interval of the source material.
type Segment struct {
	// Label is the section name ("intro", "chorus", ...), kept verbatim
	Label string

	// Start is the segment start in seconds
	Start float64

	// End is the segment end in seconds; expected to be >= Start but not enforced
	End float64
}

// Duration returns End - Start. It is negative for malformed input.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Score is the parsed input: one tempo for the whole piece and its segments in input order.
type Score struct {
	BPM      float64
	Segments []Segment
}

// Empty reports whether there is nothing to convert.
func (s *Score) Empty() bool {
	return s == nil || len(s.Segments) == 0
}

type rawScore struct {
	BPM      *float64          `json:"bpm"`
	Segments []json.RawMessage `json:"segments"`
}

type rawSegment struct {
	Label *string  `json:"label"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Load reads and decodes the score at path.
func Load(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open score: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a score from r.
func Decode(r io.Reader) (*Score, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read score: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Index: -1, Msg: "top-level value must be a JSON object"}
	}

	var raw rawScore
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, jsonError(-1, err)
	}

	sc := &Score{}
	if raw.BPM != nil {
		sc.BPM = *raw.BPM
	}

	for i, msg := range raw.Segments {
		seg, err := decodeSegment(i, msg)
		if err != nil {
			return nil, err
		}
		sc.Segments = append(sc.Segments, seg)
	}

	if err := applyDefaults(sc, raw.BPM != nil); err != nil {
		return nil, err
	}
	return sc, nil
}

// applyDefaults is the single place where missing values are filled in.
func applyDefaults(sc *Score, hasBPM bool) error {
	if !hasBPM {
		sc.BPM = DefaultBPM
		return nil
	}
	if sc.BPM <= 0 {
		return &ParseError{Index: -1, Field: "bpm", Msg: fmt.Sprintf("must be positive, got %g", sc.BPM)}
	}
	return nil
}

func decodeSegment(i int, msg json.RawMessage) (Segment, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Segment{}, &ParseError{Index: i, Msg: "segment must be a JSON object"}
	}

	var raw rawSegment
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Segment{}, jsonError(i, err)
	}

	// A segment without a position in time cannot be placed, so every field is required.
	switch {
	case raw.Label == nil:
		return Segment{}, &ParseError{Index: i, Field: "label", Msg: "missing"}
	case raw.Start == nil:
		return Segment{}, &ParseError{Index: i, Field: "start", Msg: "missing"}
	case raw.End == nil:
		return Segment{}, &ParseError{Index: i, Field: "end", Msg: "missing"}
	}

	return Segment{
		Label: *raw.Label,
		Start: *raw.Start,
		End:   *raw.End,
	}, nil
}

func jsonError(index int, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{
			Index: index,
			Field: typeErr.Field,
			Msg:   fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &ParseError{Index: index, Msg: err.Error()}
}
