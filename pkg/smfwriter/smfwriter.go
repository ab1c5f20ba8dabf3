// Package smfwriter serializes an event list into a format 0 Standard MIDI File.
package smfwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/zurustar/segmidi/pkg/events"
	"github.com/zurustar/segmidi/pkg/textenc"
	"github.com/zurustar/segmidi/pkg/timing"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MaxDelta is the largest delta time a variable-length quantity can hold.
const MaxDelta = 0x0FFFFFFF

// maxMicrosPerBeat is the largest value the 3-byte tempo meta event can hold.
const maxMicrosPerBeat = 0xFFFFFF

// ErrInvalidEvent is returned when an event cannot be placed in the track.
var ErrInvalidEvent = errors.New("invalid MIDI event")

// InvalidEventError reports the offending event by its index in the input list.
type InvalidEventError struct {
	Index  int
	Tick   int64
	Reason string
}

// Error implements the error interface.
func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("%v: event %d at tick %d: %s", ErrInvalidEvent, e.Index, e.Tick, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidEvent.
func (e *InvalidEventError) Unwrap() error {
	return ErrInvalidEvent
}

// MarkerKind selects which meta event carries segment labels.
type MarkerKind int

const (
	// MarkerMeta writes marker meta events (FF 06), read as locators by most DAWs.
	MarkerMeta MarkerKind = iota
	// TextMeta writes generic text meta events (FF 01).
	TextMeta
	// BothMeta writes a marker followed by a text event at the same tick.
	BothMeta
)

// String returns the flag spelling of k.
func (k MarkerKind) String() string {
	switch k {
	case TextMeta:
		return "text"
	case BothMeta:
		return "both"
	}
	return "marker"
}

// ParseMarkerKind parses "marker", "text" or "both".
func ParseMarkerKind(s string) (MarkerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "marker":
		return MarkerMeta, nil
	case "text":
		return TextMeta, nil
	case "both":
		return BothMeta, nil
	}
	return MarkerMeta, fmt.Errorf("invalid marker kind: %s (must be marker, text, or both)", s)
}

// Options controls serialization.
type Options struct {
	TicksPerBeat int
	Encoding     string
	MarkerKind   MarkerKind
	Channel      uint8
}

// DefaultOptions returns 480 ticks per beat, UTF-8 labels and marker meta events.
func DefaultOptions() Options {
	return Options{
		TicksPerBeat: timing.DefaultTicksPerBeat,
		Encoding:     textenc.Default,
		MarkerKind:   MarkerMeta,
	}
}

// Ordering of messages that share a tick. Note-offs of earlier notes come before anything
// new starts; a zero-length note's own note-off follows its note-on.
const (
	orderTempo = iota
	orderNoteOff
	orderMarker
	orderNoteOn
	orderZeroLengthOff
)

type message struct {
	tick  int64
	order int
	msg   smf.Message
}

// Encode returns the file bytes for evs.
func Encode(evs []events.Event, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, evs, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes evs to w.
func Write(w io.Writer, evs []events.Event, opts Options) error {
	if opts.TicksPerBeat <= 0 || opts.TicksPerBeat > timing.MaxTicksPerBeat {
		return fmt.Errorf("ticks per beat must be between 1 and %d, got %d", timing.MaxTicksPerBeat, opts.TicksPerBeat)
	}

	msgs, err := flatten(evs, opts)
	if err != nil {
		return err
	}

	track, err := buildTrack(msgs)
	if err != nil {
		return err
	}

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(opts.TicksPerBeat)
	if err := file.Add(track); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI data: %w", err)
	}
	return nil
}

// flatten validates every event and expands it into the messages it produces.
func flatten(evs []events.Event, opts Options) ([]message, error) {
	if opts.Channel > 15 {
		return nil, fmt.Errorf("MIDI channel must be between 0 and 15, got %d", opts.Channel)
	}

	msgs := make([]message, 0, len(evs)*2)
	for i, ev := range evs {
		if ev.Tick < 0 {
			return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: "negative time"}
		}

		switch ev.Kind {
		case events.KindTempo:
			micros := timing.MicrosPerBeat(ev.BPM)
			if micros <= 0 || micros > maxMicrosPerBeat {
				return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: fmt.Sprintf("tempo %g BPM out of range", ev.BPM)}
			}
			msgs = append(msgs, message{tick: ev.Tick, order: orderTempo, msg: smf.MetaTempo(ev.BPM)})

		case events.KindMarker:
			text, err := textenc.Encode(opts.Encoding, ev.Text)
			if err != nil {
				return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: err.Error()}
			}
			if opts.MarkerKind != TextMeta {
				msgs = append(msgs, message{tick: ev.Tick, order: orderMarker, msg: smf.MetaMarker(text)})
			}
			if opts.MarkerKind != MarkerMeta {
				msgs = append(msgs, message{tick: ev.Tick, order: orderMarker, msg: smf.MetaText(text)})
			}

		case events.KindNote:
			if ev.Pitch > 127 {
				return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: fmt.Sprintf("pitch %d out of range", ev.Pitch)}
			}
			if ev.Velocity == 0 || ev.Velocity > 127 {
				return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: fmt.Sprintf("velocity %d out of range", ev.Velocity)}
			}
			if ev.Duration > 0 && ev.Tick > math.MaxInt64-ev.Duration {
				return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: fmt.Sprintf("note duration %d out of range", ev.Duration)}
			}

			msgs = append(msgs, message{
				tick:  ev.Tick,
				order: orderNoteOn,
				msg:   smf.Message(midi.NoteOn(opts.Channel, ev.Pitch, ev.Velocity)),
			})

			// Segments that end before they start become zero-length notes.
			off := message{
				tick:  ev.Tick + ev.Duration,
				order: orderNoteOff,
				msg:   smf.Message(midi.NoteOff(opts.Channel, ev.Pitch)),
			}
			if ev.Duration <= 0 {
				off.tick = ev.Tick
				off.order = orderZeroLengthOff
			}
			msgs = append(msgs, off)

		default:
			return nil, &InvalidEventError{Index: i, Tick: ev.Tick, Reason: fmt.Sprintf("unknown event kind %d", ev.Kind)}
		}
	}

	sort.SliceStable(msgs, func(a, b int) bool {
		if msgs[a].tick != msgs[b].tick {
			return msgs[a].tick < msgs[b].tick
		}
		return msgs[a].order < msgs[b].order
	})
	return msgs, nil
}

// buildTrack converts absolute ticks into delta times and closes the track.
func buildTrack(msgs []message) (smf.Track, error) {
	var track smf.Track
	var last int64
	for i, m := range msgs {
		delta := m.tick - last
		if delta < 0 {
			return nil, &InvalidEventError{Index: i, Tick: m.tick, Reason: "events out of order"}
		}
		if delta > MaxDelta {
			return nil, &InvalidEventError{Index: i, Tick: m.tick, Reason: fmt.Sprintf("delta %d exceeds %d", delta, MaxDelta)}
		}
		track = append(track, smf.Event{Delta: uint32(delta), Message: m.msg})
		last = m.tick
	}
	track.Close(0)
	return track, nil
}
