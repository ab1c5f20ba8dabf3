// Package inspect reads back a Standard MIDI File and summarizes its tempo, marker and
// note events. It is used to verify freshly written files.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/segmidi/pkg/events"
	"github.com/zurustar/segmidi/pkg/smfwriter"
)

var (
	// ErrInvalidFormat is returned when the data is not a readable Standard MIDI File.
	ErrInvalidFormat = errors.New("invalid MIDI file format")

	// ErrVerifyMismatch is returned when a file does not hold the expected events.
	ErrVerifyMismatch = errors.New("MIDI file does not match events")
)

// Tempo is a tempo meta event.
type Tempo struct {
	Tick          int
	MicrosPerBeat int
}

// TextEvent is a marker or text meta event. Text holds the raw bytes.
type TextEvent struct {
	Tick int
	Text string
}

// Note is a note-on paired with its note-off. Duration is -1 if the note never ends.
type Note struct {
	Tick     int
	Channel  uint8
	Pitch    uint8
	Velocity uint8
	Duration int
}

// Report summarizes a MIDI file.
type Report struct {
	Format       int
	Tracks       int
	TicksPerBeat int

	Tempos  []Tempo
	Markers []TextEvent
	Texts   []TextEvent
	Notes   []Note

	// HasEndOfTrack is true when every track ends with an end-of-track meta event
	HasEndOfTrack bool

	// Length is the playback length computed by an independent SMF reader
	Length time.Duration
}

// Inspect parses data and returns its report.
func Inspect(data []byte) (*Report, error) {
	if len(data) < 14 || string(data[0:4]) != "MThd" {
		return nil, fmt.Errorf("%w: missing MThd header", ErrInvalidFormat)
	}

	headerLen := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
	if headerLen < 6 || 8+headerLen > len(data) {
		return nil, fmt.Errorf("%w: bad header length %d", ErrInvalidFormat, headerLen)
	}

	rep := &Report{
		Format:        int(data[8])<<8 | int(data[9]),
		HasEndOfTrack: true,
	}
	declaredTracks := int(data[10])<<8 | int(data[11])

	timeDivision := int(data[12])<<8 | int(data[13])
	if timeDivision&0x8000 != 0 {
		return nil, fmt.Errorf("%w: SMPTE time division is not supported", ErrInvalidFormat)
	}
	rep.TicksPerBeat = timeDivision

	offset := 8 + headerLen
	for offset < len(data) {
		if offset+8 > len(data) || string(data[offset:offset+4]) != "MTrk" {
			return nil, fmt.Errorf("%w: expected MTrk at offset %d", ErrInvalidFormat, offset)
		}

		trackLen := int(data[offset+4])<<24 | int(data[offset+5])<<16 | int(data[offset+6])<<8 | int(data[offset+7])
		trackEnd := offset + 8 + trackLen
		if trackEnd > len(data) {
			return nil, fmt.Errorf("%w: track %d is truncated", ErrInvalidFormat, rep.Tracks)
		}

		ended, err := scanTrack(data[offset+8:trackEnd], rep)
		if err != nil {
			return nil, fmt.Errorf("%w: track %d: %v", ErrInvalidFormat, rep.Tracks, err)
		}
		if !ended {
			rep.HasEndOfTrack = false
		}

		rep.Tracks++
		offset = trackEnd
	}

	if rep.Tracks != declaredTracks {
		return nil, fmt.Errorf("%w: header declares %d tracks, found %d", ErrInvalidFormat, declaredTracks, rep.Tracks)
	}

	midiFile, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	rep.Length = midiFile.GetLength()

	return rep, nil
}

// scanTrack walks one track chunk, appending what it finds to rep.
// It reports whether the track ended with an end-of-track event.
func scanTrack(track []byte, rep *Report) (bool, error) {
	pos := 0
	currentTick := 0
	lastStatus := byte(0)
	ended := false

	// note-ons waiting for their note-off, keyed by channel<<8|pitch, oldest first
	open := make(map[int][]int)
	firstNote := len(rep.Notes)

	for pos < len(track) {
		if ended {
			return false, fmt.Errorf("event after end of track at byte %d", pos)
		}

		delta, n, err := readVarLen(track[pos:])
		if err != nil {
			return false, err
		}
		pos += n
		currentTick += delta

		if pos >= len(track) {
			return false, fmt.Errorf("missing event after delta at byte %d", pos)
		}

		eventByte := track[pos]

		// Running status
		if eventByte < 0x80 {
			if lastStatus == 0 {
				return false, fmt.Errorf("running status without a previous status at byte %d", pos)
			}
			eventByte = lastStatus
		} else {
			pos++
			if eventByte < 0xF0 {
				lastStatus = eventByte
			}
		}

		switch {
		case eventByte == 0xFF: // Meta event
			lastStatus = 0
			if pos >= len(track) {
				return false, fmt.Errorf("truncated meta event")
			}
			metaType := track[pos]
			pos++
			length, n, err := readVarLen(track[pos:])
			if err != nil {
				return false, err
			}
			pos += n
			if pos+length > len(track) {
				return false, fmt.Errorf("meta event 0x%02X overruns track", metaType)
			}
			payload := track[pos : pos+length]

			switch metaType {
			case 0x51:
				if length != 3 {
					return false, fmt.Errorf("tempo event with length %d", length)
				}
				micros := int(payload[0])<<16 | int(payload[1])<<8 | int(payload[2])
				rep.Tempos = append(rep.Tempos, Tempo{Tick: currentTick, MicrosPerBeat: micros})
			case 0x06:
				rep.Markers = append(rep.Markers, TextEvent{Tick: currentTick, Text: string(payload)})
			case 0x01:
				rep.Texts = append(rep.Texts, TextEvent{Tick: currentTick, Text: string(payload)})
			case 0x2F:
				ended = true
			}
			pos += length

		case eventByte == 0xF0 || eventByte == 0xF7: // SysEx
			lastStatus = 0
			length, n, err := readVarLen(track[pos:])
			if err != nil {
				return false, err
			}
			pos += n + length

		case eventByte >= 0x80 && eventByte < 0xF0: // Channel messages
			size := 2
			if eventByte >= 0xC0 && eventByte < 0xE0 {
				size = 1
			}
			if pos+size > len(track) {
				return false, fmt.Errorf("truncated channel message")
			}

			status := eventByte & 0xF0
			channel := eventByte & 0x0F
			if status == 0x90 || status == 0x80 {
				pitch, velocity := track[pos], track[pos+1]
				key := int(channel)<<8 | int(pitch)
				if status == 0x90 && velocity > 0 {
					open[key] = append(open[key], len(rep.Notes))
					rep.Notes = append(rep.Notes, Note{
						Tick:     currentTick,
						Channel:  channel,
						Pitch:    pitch,
						Velocity: velocity,
						Duration: -1,
					})
				} else if pending := open[key]; len(pending) > 0 {
					idx := pending[0]
					open[key] = pending[1:]
					rep.Notes[idx].Duration = currentTick - rep.Notes[idx].Tick
				}
			}
			pos += size

		default:
			return false, fmt.Errorf("unsupported status byte 0x%02X", eventByte)
		}
	}

	if pos > len(track) {
		return false, fmt.Errorf("event overruns track")
	}

	sort.SliceStable(rep.Notes[firstNote:], func(a, b int) bool {
		return rep.Notes[firstNote+a].Tick < rep.Notes[firstNote+b].Tick
	})
	return ended, nil
}

// readVarLen reads a variable-length quantity of at most 4 bytes.
func readVarLen(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < len(data) && i < 4; i++ {
		value = (value << 7) | int(data[i]&0x7F)
		if data[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("malformed variable-length quantity")
}

// Verify checks that rep holds exactly the tempo, label and note events that evs describe,
// and that labels appear at the expected ticks.
func Verify(rep *Report, evs []events.Event, kind smfwriter.MarkerKind) error {
	if got, want := len(rep.Tempos), events.Count(evs, events.KindTempo); got != want {
		return fmt.Errorf("%w: %d tempo events, want %d", ErrVerifyMismatch, got, want)
	}

	var labelTicks []int
	for _, ev := range evs {
		if ev.Kind == events.KindMarker {
			labelTicks = append(labelTicks, int(ev.Tick))
		}
	}
	sort.Ints(labelTicks)

	if kind != smfwriter.TextMeta {
		if err := verifyTicks("marker", rep.Markers, labelTicks); err != nil {
			return err
		}
	}
	if kind != smfwriter.MarkerMeta {
		if err := verifyTicks("text", rep.Texts, labelTicks); err != nil {
			return err
		}
	}

	if got, want := len(rep.Notes), events.Count(evs, events.KindNote); got != want {
		return fmt.Errorf("%w: %d notes, want %d", ErrVerifyMismatch, got, want)
	}
	for _, n := range rep.Notes {
		if n.Duration < 0 {
			return fmt.Errorf("%w: note %d at tick %d has no note-off", ErrVerifyMismatch, n.Pitch, n.Tick)
		}
	}

	if !rep.HasEndOfTrack {
		return fmt.Errorf("%w: missing end of track", ErrVerifyMismatch)
	}
	return nil
}

func verifyTicks(name string, got []TextEvent, want []int) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d %s events, want %d", ErrVerifyMismatch, len(got), name, len(want))
	}
	for i, ev := range got {
		if ev.Tick != want[i] {
			return fmt.Errorf("%w: %s %d at tick %d, want %d", ErrVerifyMismatch, name, i, ev.Tick, want[i])
		}
	}
	return nil
}
