package contracts

import (
	"fmt"
	"strings"
)

// MIDI status bytes.
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
	StatusSysExStart      byte = 0xF0
	StatusMTCQuarterFrame byte = 0xF1
	StatusSongPosition    byte = 0xF2
	StatusSongSelect      byte = 0xF3
	StatusTuneRequest     byte = 0xF6
	StatusSysExEnd        byte = 0xF7
	StatusTimingClock     byte = 0xF8
	StatusStart           byte = 0xFA
	StatusContinue        byte = 0xFB
	StatusStop            byte = 0xFC
	StatusActiveSensing   byte = 0xFE
	StatusSystemReset     byte = 0xFF
)

// MessageType is a semantic category tag used for filtering. A message may
// belong to several categories at once: a note-on is also "note" and
// "channel".
type MessageType string

const (
	TypeNoteOff         MessageType = "note_off"
	TypeNoteOn          MessageType = "note_on"
	TypeNote            MessageType = "note"
	TypeControlChange   MessageType = "control_change"
	TypeProgramChange   MessageType = "program_change"
	TypePitchBend       MessageType = "pitch_bend"
	TypePolyPressure    MessageType = "poly_pressure"
	TypeChannelPressure MessageType = "channel_pressure"
	TypeSysEx           MessageType = "sysex"
	TypeTimingClock     MessageType = "timing_clock"
	TypeTransport       MessageType = "transport"
	TypeActiveSensing   MessageType = "active_sensing"
	TypeRealtime        MessageType = "realtime"
	TypeChannel         MessageType = "channel"
	TypeSystem          MessageType = "system"
)

// Message is a single decoded MIDI message. Data is never empty and always
// begins with a status byte; running status is resolved before construction.
// Timestamp is in host time units, opaque to this package.
type Message struct {
	Timestamp uint64 // Host timestamp of the packet the message arrived in.
	Data      []byte // Status byte followed by data bytes, or a full sysex span.
}

// NewMessage builds a Message from a byte span and a timestamp. The span is
// copied. Returns ErrInvalidMessage if the span is empty or does not start
// with a status byte.
func NewMessage(timestamp uint64, data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, fmt.Errorf("%w: empty byte span", ErrInvalidMessage)
	}
	if data[0] < 0x80 {
		return Message{}, fmt.Errorf("%w: first byte 0x%02X is not a status byte", ErrInvalidMessage, data[0])
	}
	d := make([]byte, len(data))
	copy(d, data)
	return Message{Timestamp: timestamp, Data: d}, nil
}

// Status returns the status byte of the message.
func (m Message) Status() byte {
	return m.Data[0]
}

// Channel returns the zero-based channel (0-15) for channel voice messages.
// The second return is false for system messages.
func (m Message) Channel() (uint8, bool) {
	if len(m.Data) == 0 || m.Data[0] >= 0xF0 {
		return 0, false
	}
	return m.Data[0] & 0x0F, true
}

// IsNoteOn reports whether the message is a note-on with non-zero velocity.
// A note-on with velocity 0 means note-off per MIDI convention.
func (m Message) IsNoteOn() bool {
	return m.Data[0]&0xF0 == StatusNoteOn && len(m.Data) >= 3 && m.Data[2] > 0
}

// IsNoteOff reports whether the message is a note-off, including the
// velocity-0 note-on form.
func (m Message) IsNoteOff() bool {
	switch m.Data[0] & 0xF0 {
	case StatusNoteOff:
		return true
	case StatusNoteOn:
		return len(m.Data) < 3 || m.Data[2] == 0
	}
	return false
}

// IsRealtime reports whether the message is a single-byte realtime message.
func (m Message) IsRealtime() bool {
	return m.Data[0] >= 0xF8
}

// IsSystem reports whether the message is a system message (0xF0-0xFF).
func (m Message) IsSystem() bool {
	return m.Data[0] >= 0xF0
}

// IsSysEx reports whether the message is a system exclusive span.
func (m Message) IsSysEx() bool {
	return m.Data[0] == StatusSysExStart
}

// Note returns the note number for note-on and note-off messages.
func (m Message) Note() (uint8, bool) {
	if st := m.Data[0] & 0xF0; (st == StatusNoteOn || st == StatusNoteOff) && len(m.Data) >= 2 {
		return m.Data[1], true
	}
	return 0, false
}

// Controller returns the controller number for control-change messages.
func (m Message) Controller() (uint8, bool) {
	if m.Data[0]&0xF0 == StatusControlChange && len(m.Data) >= 2 {
		return m.Data[1], true
	}
	return 0, false
}

// PitchBend returns the decoded 14-bit pitch bend value, centered at 0
// (-8192 to 8191), for pitch bend messages.
func (m Message) PitchBend() (int, bool) {
	if m.Data[0]&0xF0 != StatusPitchBend || len(m.Data) < 3 {
		return 0, false
	}
	// 14-bit value, LSB first.
	return (int(m.Data[2])<<7 | int(m.Data[1])) - 8192, true
}

// Types returns every semantic category the message belongs to, the most
// specific tag first.
func (m Message) Types() []MessageType {
	status := m.Data[0]
	if status < 0xF0 {
		var types []MessageType
		switch status & 0xF0 {
		case StatusNoteOff:
			types = append(types, TypeNoteOff, TypeNote)
		case StatusNoteOn:
			if m.IsNoteOn() {
				types = append(types, TypeNoteOn, TypeNote)
			} else {
				types = append(types, TypeNoteOff, TypeNote)
			}
		case StatusPolyPressure:
			types = append(types, TypePolyPressure)
		case StatusControlChange:
			types = append(types, TypeControlChange)
		case StatusProgramChange:
			types = append(types, TypeProgramChange)
		case StatusChannelPressure:
			types = append(types, TypeChannelPressure)
		case StatusPitchBend:
			types = append(types, TypePitchBend)
		}
		return append(types, TypeChannel)
	}

	var types []MessageType
	switch status {
	case StatusSysExStart:
		types = append(types, TypeSysEx)
	case StatusTimingClock:
		types = append(types, TypeTimingClock, TypeRealtime)
	case StatusStart, StatusContinue, StatusStop:
		types = append(types, TypeTransport, TypeRealtime)
	case StatusActiveSensing:
		types = append(types, TypeActiveSensing, TypeRealtime)
	default:
		if status >= 0xF8 {
			types = append(types, TypeRealtime)
		}
	}
	return append(types, TypeSystem)
}

// String renders the message in a human-readable form, e.g.
// "Note On Ch1 Note=C4 Vel=100".
func (m Message) String() string {
	status := m.Data[0]
	if status < 0xF0 {
		channel := status&0x0F + 1
		switch status & 0xF0 {
		case StatusNoteOff, StatusNoteOn:
			name := "Note On"
			if m.IsNoteOff() {
				name = "Note Off"
			}
			return fmt.Sprintf("%s Ch%d Note=%s Vel=%d", name, channel, NoteName(m.dataByte(1)), m.dataByte(2))
		case StatusPolyPressure:
			return fmt.Sprintf("Poly Pressure Ch%d Note=%s Press=%d", channel, NoteName(m.dataByte(1)), m.dataByte(2))
		case StatusControlChange:
			return fmt.Sprintf("Control Change Ch%d CC%d=%d", channel, m.dataByte(1), m.dataByte(2))
		case StatusProgramChange:
			return fmt.Sprintf("Program Change Ch%d Prog=%d", channel, m.dataByte(1))
		case StatusChannelPressure:
			return fmt.Sprintf("Channel Pressure Ch%d Press=%d", channel, m.dataByte(1))
		case StatusPitchBend:
			bend, _ := m.PitchBend()
			return fmt.Sprintf("Pitch Bend Ch%d PB=%d", channel, bend)
		}
	}

	if name, ok := systemNames[status]; ok {
		if status == StatusSysExStart {
			hex := make([]string, len(m.Data))
			for i, b := range m.Data {
				hex[i] = fmt.Sprintf("%02X", b)
			}
			return fmt.Sprintf("SysEx [%s]", strings.Join(hex, " "))
		}
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", status)
}

// dataByte returns the i-th byte of the message, or 0 when the span is
// shorter than that.
func (m Message) dataByte(i int) byte {
	if i >= len(m.Data) {
		return 0
	}
	return m.Data[i]
}

var systemNames = map[byte]string{
	StatusSysExStart:      "SysEx",
	StatusMTCQuarterFrame: "MTC Quarter Frame",
	StatusSongPosition:    "Song Position",
	StatusSongSelect:      "Song Select",
	StatusTuneRequest:     "Tune Request",
	StatusSysExEnd:        "SysEx End",
	StatusTimingClock:     "Timing Clock",
	StatusStart:           "Start",
	StatusContinue:        "Continue",
	StatusStop:            "Stop",
	StatusActiveSensing:   "Active Sensing",
	StatusSystemReset:     "System Reset",
}
