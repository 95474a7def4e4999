// Package midispy provides sessions that capture MIDI traffic from platform
// endpoints and dispatch filtered messages to an application callback.
package midispy

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midispy/internal/midi/mididarwin"
	"github.com/leandrodaf/midispy/internal/midi/midiwindows"
	"github.com/leandrodaf/midispy/sdk/contracts"
)

// ErrUnsupportedOS is returned when no platform transport exists for the
// current operating system.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// transportInitializer builds a platform transport and its enumerator.
type transportInitializer func(*contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error)

// inputInitializers maps OS names to incoming-capture transport initializers.
var inputInitializers = map[string]transportInitializer{
	"darwin":  mididarwin.NewInputTransport,
	"windows": midiwindows.NewInputTransport,
}

// spyInitializers maps OS names to outgoing-capture transport initializers.
// Spying on destinations requires the spy driver, which only exists on macOS.
var spyInitializers = map[string]transportInitializer{
	"darwin": mididarwin.NewSpyTransport,
}

// NewInputSession creates a session that captures incoming MIDI from source
// endpoints. The callback is invoked on the transport's delivery thread for
// every batch that survives filtering.
//
// Returns ErrUnsupportedOS when no platform transport exists and no
// transport was injected via options.
func NewInputSession(callback contracts.Callback, opts ...contracts.Option) (*Session, error) {
	return newSessionFor(contracts.KindSource, inputInitializers, callback, opts...)
}

// NewSpySession creates a session that captures outgoing MIDI sent by other
// applications to destination endpoints. Requires the spy driver artifact;
// construction fails with ErrDriverMissing when it is not installed.
func NewSpySession(callback contracts.Callback, opts ...contracts.Option) (*Session, error) {
	return newSessionFor(contracts.KindDestination, spyInitializers, callback, opts...)
}

func newSessionFor(side contracts.EndpointKind, initializers map[string]transportInitializer, callback contracts.Callback, opts ...contracts.Option) (*Session, error) {
	if callback == nil {
		return nil, errors.New("callback must not be nil")
	}

	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	if options.Transport == nil {
		initializer, ok := initializers[runtime.GOOS]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
		}
		transport, enumerator, err := initializer(&options)
		if err != nil {
			return nil, err
		}
		options.Transport = transport
		if options.Enumerator == nil {
			options.Enumerator = enumerator
		}
	}

	return newSession(side, callback, &options)
}
