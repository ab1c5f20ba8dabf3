// Package timing converts between seconds and MIDI ticks at a single fixed tempo.
package timing

import "math"

// DefaultTicksPerBeat is the header resolution used unless configured otherwise.
const DefaultTicksPerBeat = 480

// MaxTicksPerBeat is the largest metric resolution an SMF header can declare.
const MaxTicksPerBeat = 0x7FFF

// MaxTick bounds Ticks in both directions. Sums and differences of two ticks stay within int64.
const MaxTick = 1 << 53

// Converter converts seconds to ticks for a constant tempo.
// The whole file carries one tempo event at tick 0, so no tempo map is consulted.
type Converter struct {
	BPM          float64
	TicksPerBeat int
}

// NewConverter returns a Converter. A non-positive resolution falls back to DefaultTicksPerBeat.
func NewConverter(bpm float64, ticksPerBeat int) Converter {
	if ticksPerBeat <= 0 {
		ticksPerBeat = DefaultTicksPerBeat
	}
	return Converter{BPM: bpm, TicksPerBeat: ticksPerBeat}
}

// Ticks returns round(seconds * ticksPerBeat * bpm / 60), saturated to [-MaxTick, MaxTick].
// Zero seconds is always tick 0; negative input gives a negative tick.
func (c Converter) Ticks(seconds float64) int64 {
	if seconds == 0 {
		return 0
	}
	t := math.Round(seconds * float64(c.TicksPerBeat) * c.BPM / 60)
	switch {
	case math.IsNaN(t):
		return 0
	case t >= MaxTick:
		return MaxTick
	case t <= -MaxTick:
		return -MaxTick
	}
	return int64(t)
}

// Seconds is the inverse of Ticks, without rounding.
func (c Converter) Seconds(ticks int64) float64 {
	if c.BPM <= 0 || c.TicksPerBeat <= 0 {
		return 0
	}
	return float64(ticks) * 60 / (float64(c.TicksPerBeat) * c.BPM)
}

// MicrosPerBeat returns the tempo meta value for bpm (500000 at 120 BPM).
func MicrosPerBeat(bpm float64) int {
	if bpm <= 0 {
		return 0
	}
	return int(math.Round(60000000 / bpm))
}

// BPMFromMicros converts a tempo meta value back to beats per minute.
func BPMFromMicros(micros int) float64 {
	if micros <= 0 {
		return 0
	}
	return 60000000 / float64(micros)
}
