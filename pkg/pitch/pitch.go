// Package pitch maps section labels to the MIDI note played at each section start.
package pitch

// Default is used for labels outside the table (C4).
const Default uint8 = 60

// ForLabel returns the note number for label. The lookup is exact and case-sensitive.
func ForLabel(label string) uint8 {
	if p, ok := Known(label); ok {
		return p
	}
	return Default
}

// Known reports the table entry for label, if there is one.
func Known(label string) (uint8, bool) {
	switch label {
	case "start":
		return 60, true // C4
	case "intro":
		return 62, true // D4
	case "verse":
		return 64, true // E4
	case "chorus":
		return 67, true // G4
	case "bridge":
		return 69, true // A4
	case "inst":
		return 71, true // B4
	case "outro":
		return 72, true // C5
	case "end":
		return 60, true // C4
	}
	return 0, false
}

// Labels returns the labels with a dedicated pitch, in table order.
func Labels() []string {
	return []string{"start", "intro", "verse", "chorus", "bridge", "inst", "outro", "end"}
}
