package contracts

import "fmt"

// FilterConfig declares the criteria for a Filter. Every field is optional;
// an empty slice places no restriction on its axis. Channels are user-facing
// 1-16, controllers and notes 0-127.
type FilterConfig struct {
	Types           []MessageType // Accept only these categories.
	ExcludeTypes    []MessageType // Reject these categories; wins over Types.
	Channels        []int         // Accept only these channels (1-16).
	ExcludeChannels []int         // Reject these channels; wins over Channels.
	Controllers     []int         // Accept only these controller numbers on control-change.
	Notes           []int         // Accept only these note numbers on note on/off.
}

// Filter is an immutable per-message predicate. A nil *Filter accepts
// everything, as does one built from an empty FilterConfig. Sessions replace
// their filter instance rather than mutating it, so a Filter may be shared
// and evaluated concurrently.
type Filter struct {
	types           map[MessageType]struct{}
	excludeTypes    map[MessageType]struct{}
	channels        map[uint8]struct{} // stored zero-based
	excludeChannels map[uint8]struct{}
	controllers     map[uint8]struct{}
	notes           map[uint8]struct{}
}

var validTypes = map[MessageType]struct{}{
	TypeNoteOff:         {},
	TypeNoteOn:          {},
	TypeNote:            {},
	TypeControlChange:   {},
	TypeProgramChange:   {},
	TypePitchBend:       {},
	TypePolyPressure:    {},
	TypeChannelPressure: {},
	TypeSysEx:           {},
	TypeTimingClock:     {},
	TypeTransport:       {},
	TypeActiveSensing:   {},
	TypeRealtime:        {},
	TypeChannel:         {},
	TypeSystem:          {},
}

// NewFilter validates the configuration and builds a Filter. Unknown type
// tags and out-of-range channel, controller or note values fail here with
// ErrConfiguration, never at evaluation time.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.types, err = typeSet(cfg.Types); err != nil {
		return nil, err
	}
	if f.excludeTypes, err = typeSet(cfg.ExcludeTypes); err != nil {
		return nil, err
	}
	if f.channels, err = channelSet(cfg.Channels); err != nil {
		return nil, err
	}
	if f.excludeChannels, err = channelSet(cfg.ExcludeChannels); err != nil {
		return nil, err
	}
	if f.controllers, err = dataSet("controller", cfg.Controllers); err != nil {
		return nil, err
	}
	if f.notes, err = dataSet("note", cfg.Notes); err != nil {
		return nil, err
	}
	return f, nil
}

func typeSet(tags []MessageType) (map[MessageType]struct{}, error) {
	set := make(map[MessageType]struct{}, len(tags))
	for _, tag := range tags {
		if _, ok := validTypes[tag]; !ok {
			return nil, fmt.Errorf("%w: unknown message type %q", ErrConfiguration, tag)
		}
		set[tag] = struct{}{}
	}
	return set, nil
}

func channelSet(channels []int) (map[uint8]struct{}, error) {
	set := make(map[uint8]struct{}, len(channels))
	for _, ch := range channels {
		if ch < 1 || ch > 16 {
			return nil, fmt.Errorf("%w: channel %d is outside 1-16", ErrConfiguration, ch)
		}
		set[uint8(ch-1)] = struct{}{}
	}
	return set, nil
}

func dataSet(what string, values []int) (map[uint8]struct{}, error) {
	set := make(map[uint8]struct{}, len(values))
	for _, v := range values {
		if v < 0 || v > 127 {
			return nil, fmt.Errorf("%w: %s %d is outside 0-127", ErrConfiguration, what, v)
		}
		set[uint8(v)] = struct{}{}
	}
	return set, nil
}

// Matches reports whether the message passes the filter. Exclusion always
// wins over inclusion.
func (f *Filter) Matches(m Message) bool {
	if f == nil {
		return true
	}

	categories := m.Types()
	if len(f.types) > 0 && !intersects(f.types, categories) {
		return false
	}
	if intersects(f.excludeTypes, categories) {
		return false
	}

	if ch, ok := m.Channel(); ok {
		if len(f.channels) > 0 {
			if _, ok := f.channels[ch]; !ok {
				return false
			}
		}
		if _, ok := f.excludeChannels[ch]; ok {
			return false
		}
	}

	if cc, ok := m.Controller(); ok && len(f.controllers) > 0 {
		if _, ok := f.controllers[cc]; !ok {
			return false
		}
	}
	if note, ok := m.Note(); ok && len(f.notes) > 0 {
		if _, ok := f.notes[note]; !ok {
			return false
		}
	}
	return true
}

func intersects(set map[MessageType]struct{}, categories []MessageType) bool {
	for _, c := range categories {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}
