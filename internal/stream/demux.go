// Package stream reconstructs discrete MIDI messages from raw packet runs.
//
// A packet's byte run may carry fragments of several messages: running
// status elides repeated status bytes, system exclusive spans may cross
// packet boundaries, and realtime bytes appear anywhere mid-stream. The
// demultiplexer keeps that reconstruction state per endpoint so traffic on
// one endpoint can never corrupt another's.
package stream

import (
	"sync"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// Demux turns packet batches into complete, timestamped messages. It is safe
// for concurrent use across endpoints; feeds for the same endpoint are
// serialized on that endpoint's state.
type Demux struct {
	mu     sync.Mutex
	states map[uint32]*endpointState
}

// endpointState is the reconstruction state of one endpoint.
type endpointState struct {
	mu            sync.Mutex
	runningStatus byte   // last channel-voice status byte, 0 when cleared
	pending       []byte // status byte plus buffered data bytes of an incomplete message
	need          int    // data bytes still expected for pending
	sysex         []byte // in-progress sysex accumulation, nil when none
}

// New returns an empty Demux.
func New() *Demux {
	return &Demux{states: make(map[uint32]*endpointState)}
}

// Feed consumes a batch of packets attributed to one endpoint and returns
// every message completed by it, in arrival order. Each message carries the
// timestamp of the packet that completed it. Malformed input is absorbed:
// orphan data bytes are discarded and partial sysex spans are abandoned.
func (d *Demux) Feed(endpointRef uint32, packets []contracts.Packet) []contracts.Message {
	s := d.state(endpointRef)
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []contracts.Message
	for _, pkt := range packets {
		messages = s.scan(pkt, messages)
	}
	return messages
}

// Forget drops all reconstruction state for an endpoint. Called when the
// endpoint is disconnected so a later reconnect starts clean.
func (d *Demux) Forget(endpointRef uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, endpointRef)
}

func (d *Demux) state(endpointRef uint32) *endpointState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.states[endpointRef]
	if !ok {
		s = &endpointState{}
		d.states[endpointRef] = s
	}
	return s
}

func (s *endpointState) scan(pkt contracts.Packet, messages []contracts.Message) []contracts.Message {
	for _, b := range pkt.Data {
		switch {
		case b >= 0xF8:
			// Realtime bytes are emitted immediately and leave running
			// status and any sysex accumulation untouched.
			messages = append(messages, contracts.Message{Timestamp: pkt.Timestamp, Data: []byte{b}})

		case b >= 0x80:
			messages = s.status(b, pkt.Timestamp, messages)

		default:
			messages = s.data(b, pkt.Timestamp, messages)
		}
	}
	return messages
}

// status handles a non-realtime status byte.
func (s *endpointState) status(b byte, timestamp uint64, messages []contracts.Message) []contracts.Message {
	if s.sysex != nil {
		if b == contracts.StatusSysExEnd {
			s.sysex = append(s.sysex, b)
			messages = append(messages, contracts.Message{Timestamp: timestamp, Data: s.sysex})
			s.sysex = nil
			return messages
		}
		// Any other status byte abandons the partial span silently.
		s.sysex = nil
	}
	s.pending = nil

	switch {
	case b == contracts.StatusSysExStart:
		s.sysex = []byte{b}
	case b < 0xF0:
		s.runningStatus = b
		s.pending = []byte{b}
		s.need = voiceDataLen(b)
	default:
		// System common statuses clear running status.
		s.runningStatus = 0
		need, ok := systemDataLen(b)
		if !ok {
			return messages // undefined status, discard
		}
		if need == 0 {
			return append(messages, contracts.Message{Timestamp: timestamp, Data: []byte{b}})
		}
		s.pending = []byte{b}
		s.need = need
	}
	return messages
}

// data handles a byte with the high bit clear.
func (s *endpointState) data(b byte, timestamp uint64, messages []contracts.Message) []contracts.Message {
	if s.sysex != nil {
		s.sysex = append(s.sysex, b)
		return messages
	}
	if s.pending == nil {
		if s.runningStatus == 0 {
			return messages // orphan data byte, discard
		}
		// Running status: synthesize the message with the remembered status.
		s.pending = []byte{s.runningStatus}
		s.need = voiceDataLen(s.runningStatus)
	}
	s.pending = append(s.pending, b)
	s.need--
	if s.need == 0 {
		messages = append(messages, contracts.Message{Timestamp: timestamp, Data: s.pending})
		s.pending = nil
	}
	return messages
}

// voiceDataLen returns the data byte count of a channel-voice opcode.
func voiceDataLen(status byte) int {
	switch status & 0xF0 {
	case contracts.StatusProgramChange, contracts.StatusChannelPressure:
		return 1
	default:
		return 2 // note on/off, poly pressure, control change, pitch bend
	}
}

// systemDataLen returns the data byte count of a system common status, or
// false for undefined statuses.
func systemDataLen(status byte) (int, bool) {
	switch status {
	case contracts.StatusMTCQuarterFrame, contracts.StatusSongSelect:
		return 1, true
	case contracts.StatusSongPosition:
		return 2, true
	case contracts.StatusTuneRequest:
		return 0, true
	default:
		return 0, false // 0xF4, 0xF5 and a stray 0xF7
	}
}
