// Package events derives the MIDI event list from a score.
package events

import (
	"github.com/zurustar/segmidi/pkg/pitch"
	"github.com/zurustar/segmidi/pkg/score"
	"github.com/zurustar/segmidi/pkg/timing"
)

// DefaultVelocity is the velocity of every section note.
const DefaultVelocity uint8 = 100

// Kind identifies the type of an Event.
type Kind int

const (
	KindTempo Kind = iota
	KindMarker
	KindNote
)

// String returns a short name for logging.
func (k Kind) String() string {
	switch k {
	case KindTempo:
		return "tempo"
	case KindMarker:
		return "marker"
	case KindNote:
		return "note"
	}
	return "unknown"
}

// Event is one entry of the output track. Tick is absolute, counted from the start of the file.
type Event struct {
	Kind Kind
	Tick int64

	// BPM is set for tempo events
	BPM float64

	// Text is the marker label, verbatim
	Text string

	// Pitch, Velocity and Duration (in ticks) are set for note events.
	// Duration may be zero or negative when the segment ends before it starts.
	Pitch    uint8
	Velocity uint8
	Duration int64

	// Segment is the index of the source segment, -1 for the tempo event
	Segment int
}

// Options controls event generation.
type Options struct {
	Notes        bool
	TicksPerBeat int
}

// DefaultOptions enables notes at the default resolution.
func DefaultOptions() Options {
	return Options{
		Notes:        true,
		TicksPerBeat: timing.DefaultTicksPerBeat,
	}
}

// Build returns the tempo event followed by, for each segment in input order, its marker
// and (when enabled) its note. Events are not sorted by tick here; the writer does that.
func Build(sc *score.Score, opts Options) []Event {
	bpm := score.DefaultBPM
	if sc != nil && sc.BPM > 0 {
		bpm = sc.BPM
	}
	conv := timing.NewConverter(bpm, opts.TicksPerBeat)

	out := []Event{{Kind: KindTempo, Tick: 0, BPM: bpm, Segment: -1}}
	if sc == nil {
		return out
	}

	for i, seg := range sc.Segments {
		start := conv.Ticks(seg.Start)
		out = append(out, Event{
			Kind:    KindMarker,
			Tick:    start,
			Text:    seg.Label,
			Segment: i,
		})

		if opts.Notes {
			out = append(out, Event{
				Kind:     KindNote,
				Tick:     start,
				Pitch:    pitch.ForLabel(seg.Label),
				Velocity: DefaultVelocity,
				Duration: conv.Ticks(seg.End) - start,
				Segment:  i,
			})
		}
	}
	return out
}

// Count returns how many events of kind evs holds.
func Count(evs []Event, kind Kind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
