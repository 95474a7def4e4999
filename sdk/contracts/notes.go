package contracts

import (
	"fmt"
	"strconv"
	"strings"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName converts a MIDI note number to a note name with octave,
// e.g. 60 -> "C4".
func NoteName(note uint8) string {
	octave := int(note)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// NoteNumber converts a note name like "C4", "F#2" or "Bb3" to a MIDI note
// number. The octave defaults to 4 when omitted.
func NoteNumber(name string) (uint8, error) {
	s := strings.ToUpper(strings.TrimSpace(name))

	// Flats become the equivalent sharps.
	for flat, sharp := range map[string]string{"BB": "A#", "DB": "C#", "EB": "D#", "GB": "F#", "AB": "G#"} {
		s = strings.Replace(s, flat, sharp, 1)
	}

	notePart := ""
	rest := ""
	if len(s) >= 2 && s[1] == '#' {
		notePart, rest = s[:2], s[2:]
	} else if len(s) >= 1 {
		notePart, rest = s[:1], s[1:]
	}

	index := -1
	for i, n := range noteNames {
		if n == notePart {
			index = i
			break
		}
	}
	if index < 0 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	octave := 4
	if rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid octave in note name %q", name)
		}
		octave = o
	}

	n := (octave+1)*12 + index
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q is outside the MIDI range", name)
	}
	return uint8(n), nil
}

// Names for the most common controller numbers.
var controllerNames = map[uint8]string{
	0:   "Bank Select MSB",
	1:   "Modulation Wheel",
	2:   "Breath Controller",
	4:   "Foot Controller",
	5:   "Portamento Time",
	6:   "Data Entry MSB",
	7:   "Channel Volume",
	8:   "Balance",
	10:  "Pan",
	11:  "Expression",
	32:  "Bank Select LSB",
	64:  "Sustain Pedal",
	65:  "Portamento",
	66:  "Sostenuto",
	67:  "Soft Pedal",
	68:  "Legato Footswitch",
	69:  "Hold 2",
	120: "All Sound Off",
	121: "Reset All Controllers",
	122: "Local Control",
	123: "All Notes Off",
	124: "Omni Off",
	125: "Omni On",
	126: "Mono On",
	127: "Poly On",
}

// ControllerName returns the conventional name of a MIDI controller number,
// or "CC n" when it has none.
func ControllerName(controller uint8) string {
	if name, ok := controllerNames[controller]; ok {
		return name
	}
	return fmt.Sprintf("CC %d", controller)
}
