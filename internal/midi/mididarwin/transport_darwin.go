//go:build darwin
// +build darwin

package mididarwin

import (
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midispy/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// internalPortConnection is an interface for handling disconnection from a
// MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// InputTransport captures incoming MIDI from CoreMIDI sources. Endpoint
// references are assigned from enumeration order and are stable within an
// enumeration batch.
type InputTransport struct {
	logger contracts.Logger
	client coremidi.Client

	mu        sync.Mutex
	port      coremidi.InputPort
	handler   contracts.PacketHandler
	conns     map[uint32]internalPortConnection
	sources   map[uint32]coremidi.Source
	refByName map[string]uint32
}

// NewInputTransport creates a CoreMIDI client and an input transport over it.
func NewInputTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: creating CoreMIDI client: %v", contracts.ErrDriverCommunication, err)
	}
	options.Logger.Info("CoreMIDI client successfully created")

	t := &InputTransport{
		logger:    options.Logger,
		client:    client,
		conns:     make(map[uint32]internalPortConnection),
		sources:   make(map[uint32]coremidi.Source),
		refByName: make(map[string]uint32),
	}
	return t, t, nil
}

// Register creates the input port that will receive packets and installs
// the handler.
func (t *InputTransport) Register(handler contracts.PacketHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler != nil {
		return fmt.Errorf("transport is already registered")
	}
	port, err := coremidi.NewInputPort(t.client, "Input", t.onPacket)
	if err != nil {
		return fmt.Errorf("%w: creating input port: %v", contracts.ErrDriverCommunication, err)
	}
	t.port = port
	t.handler = handler
	return nil
}

// Unregister disconnects every forwarded source and drops the handler.
func (t *InputTransport) Unregister() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ref, conn := range t.conns {
		conn.Disconnect()
		delete(t.conns, ref)
	}
	t.handler = nil
	return nil
}

// BeginForwarding connects the input port to the source so its traffic
// reaches the handler.
func (t *InputTransport) BeginForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler == nil {
		return fmt.Errorf("transport is not registered")
	}
	source, ok := t.sources[endpointRef]
	if !ok {
		return fmt.Errorf("unknown endpoint ref %d; enumerate sources first", endpointRef)
	}
	conn, err := t.port.Connect(source)
	if err != nil {
		return fmt.Errorf("%w: connecting source: %v", contracts.ErrDriverCommunication, err)
	}
	t.conns[endpointRef] = conn
	return nil
}

// EndForwarding disconnects the source from the input port.
func (t *InputTransport) EndForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, ok := t.conns[endpointRef]
	if !ok {
		return fmt.Errorf("endpoint ref %d is not being forwarded", endpointRef)
	}
	conn.Disconnect()
	delete(t.conns, endpointRef)
	return nil
}

// onPacket is invoked by CoreMIDI on its delivery thread.
func (t *InputTransport) onPacket(source coremidi.Source, packet coremidi.Packet) {
	t.mu.Lock()
	handler := t.handler
	ref, ok := t.refByName[source.Name()]
	t.mu.Unlock()

	if handler == nil || !ok {
		return
	}
	handler(ref, []contracts.Packet{{
		Timestamp: uint64(time.Now().UTC().UnixNano()),
		Data:      packet.Data,
	}})
}

// Sources enumerates the CoreMIDI sources, refreshing the ref mapping.
func (t *InputTransport) Sources() ([]contracts.Endpoint, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("%w: listing MIDI sources: %v", contracts.ErrDriverCommunication, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	endpoints := make([]contracts.Endpoint, len(sources))
	for i, source := range sources {
		ref := uint32(i + 1)
		t.sources[ref] = source
		t.refByName[source.Name()] = ref
		endpoints[i] = contracts.Endpoint{Ref: ref, Name: source.Name(), Kind: contracts.KindSource}
	}
	return endpoints, nil
}

// Destinations is not applicable to the input transport.
func (t *InputTransport) Destinations() ([]contracts.Endpoint, error) {
	return nil, fmt.Errorf("input transport enumerates sources only")
}
