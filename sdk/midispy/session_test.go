package midispy

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// fakeTransport implements contracts.Transport in memory and lets tests
// drive the delivery path.
type fakeTransport struct {
	mu           sync.Mutex
	handler      contracts.PacketHandler
	forwarding   map[uint32]bool
	registered   bool
	unregistered bool
	beginErr     error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{forwarding: make(map[uint32]bool)}
}

func (t *fakeTransport) Register(handler contracts.PacketHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
	t.registered = true
	return nil
}

func (t *fakeTransport) Unregister() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = nil
	t.unregistered = true
	return nil
}

func (t *fakeTransport) BeginForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.beginErr != nil {
		return t.beginErr
	}
	t.forwarding[endpointRef] = true
	return nil
}

func (t *fakeTransport) EndForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.forwarding, endpointRef)
	return nil
}

// deliver pushes packets into the session the way the driver thread would.
func (t *fakeTransport) deliver(endpointRef uint32, data ...byte) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(endpointRef, []contracts.Packet{{Timestamp: 1, Data: data}})
	}
}

func (t *fakeTransport) isForwarding(endpointRef uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forwarding[endpointRef]
}

// fakeEnumerator serves a fixed endpoint list.
type fakeEnumerator struct {
	sources      []contracts.Endpoint
	destinations []contracts.Endpoint
}

func (e *fakeEnumerator) Sources() ([]contracts.Endpoint, error)      { return e.sources, nil }
func (e *fakeEnumerator) Destinations() ([]contracts.Endpoint, error) { return e.destinations, nil }

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Info(string, ...contracts.Field)  {}
func (nopLogger) Error(string, ...contracts.Field) {}
func (nopLogger) Debug(string, ...contracts.Field) {}
func (nopLogger) Warn(string, ...contracts.Field)  {}
func (nopLogger) Field() contracts.Field           { return nopField{} }
func (nopLogger) SetLevel(contracts.LogLevel)      {}

type nopField struct{}

func (f nopField) Bool(string, bool) contracts.Field         { return f }
func (f nopField) Int(string, int) contracts.Field           { return f }
func (f nopField) Float64(string, float64) contracts.Field   { return f }
func (f nopField) String(string, string) contracts.Field     { return f }
func (f nopField) Time(string, time.Time) contracts.Field    { return f }
func (f nopField) Int64(string, int64) contracts.Field       { return f }
func (f nopField) Error(string, error) contracts.Field       { return f }
func (f nopField) Uint64(string, uint64) contracts.Field     { return f }
func (f nopField) Uint8(string, uint8) contracts.Field       { return f }

// collector records callback invocations.
type delivery struct {
	messages []contracts.Message
	endpoint contracts.Endpoint
}

type collector struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (c *collector) callback(messages []contracts.Message, endpoint contracts.Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, delivery{messages: messages, endpoint: endpoint})
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

func (c *collector) last(t *testing.T) delivery {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.deliveries) == 0 {
		t.Fatal("no deliveries")
	}
	return c.deliveries[len(c.deliveries)-1]
}

var testEndpoints = []contracts.Endpoint{
	{Ref: 1, Name: "IAC Driver Bus 1", Kind: contracts.KindSource},
	{Ref: 2, Name: "USB Keyboard", Kind: contracts.KindSource},
	{Ref: 3, Name: "Keyboard", Kind: contracts.KindSource},
}

func newTestSession(t *testing.T, opts ...contracts.Option) (*Session, *fakeTransport, *collector) {
	t.Helper()
	transport := newFakeTransport()
	sink := &collector{}
	opts = append([]contracts.Option{
		contracts.WithLogger(nopLogger{}),
		contracts.WithTransport(transport),
		contracts.WithEnumerator(&fakeEnumerator{sources: testEndpoints}),
	}, opts...)
	session, err := NewInputSession(sink.callback, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return session, transport, sink
}

func TestNewSessionRequiresCallback(t *testing.T) {
	if _, err := NewInputSession(nil); err == nil {
		t.Fatal("nil callback accepted")
	}
}

func TestConnectDuplicateFails(t *testing.T) {
	session, transport, _ := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	if err := session.Connect(testEndpoints[0]); !errors.Is(err, contracts.ErrConnectionExists) {
		t.Fatalf("duplicate connect: got %v, want ErrConnectionExists", err)
	}
	if !transport.isForwarding(1) {
		t.Error("forwarding stopped by the failed duplicate connect")
	}
}

func TestConnectRollsBackOnTransportError(t *testing.T) {
	session, transport, _ := newTestSession(t)
	defer session.Close()

	transport.beginErr = errors.New("port in use")
	if err := session.Connect(testEndpoints[0]); err == nil {
		t.Fatal("transport error not surfaced")
	}
	if len(session.Connected()) != 0 {
		t.Error("registry kept an endpoint whose forwarding never started")
	}

	transport.beginErr = nil
	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal("retry after rollback failed:", err)
	}
}

func TestConnectByNameFuzzyMatch(t *testing.T) {
	session, _, _ := newTestSession(t)
	defer session.Close()

	// Exact (case-insensitive) match wins over the earlier substring match.
	if err := session.ConnectByName("keyboard"); err != nil {
		t.Fatal(err)
	}
	connected := session.Connected()
	if len(connected) != 1 || connected[0].Ref != 3 {
		t.Fatalf("connected = %+v, want the exact match ref 3", connected)
	}

	// Substring match, first in enumeration order.
	if err := session.ConnectByName("usb"); err != nil {
		t.Fatal(err)
	}
	if !session.registry.Contains(2) {
		t.Error("substring lookup did not pick USB Keyboard")
	}

	if err := session.ConnectByName("no such device"); !errors.Is(err, contracts.ErrEndpointNotFound) {
		t.Fatalf("unknown name: got %v, want ErrEndpointNotFound", err)
	}
}

func TestDeliveryFilteredAndTagged(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	filter, err := contracts.NewFilter(contracts.FilterConfig{Types: []contracts.MessageType{contracts.TypeNote}})
	if err != nil {
		t.Fatal(err)
	}
	if err := session.SetFilter(filter); err != nil {
		t.Fatal(err)
	}

	transport.deliver(1, 0x90, 60, 100, 0xB0, 7, 90, 0x80, 60, 0)

	got := sink.last(t)
	if got.endpoint.Ref != 1 || got.endpoint.Name != "IAC Driver Bus 1" {
		t.Errorf("delivery tagged with %+v", got.endpoint)
	}
	if len(got.messages) != 2 {
		t.Fatalf("got %d messages, want the 2 surviving notes", len(got.messages))
	}
	if !bytes.Equal(got.messages[0].Data, []byte{0x90, 60, 100}) ||
		!bytes.Equal(got.messages[1].Data, []byte{0x80, 60, 0}) {
		t.Errorf("surviving messages out of order: %v", got.messages)
	}
}

func TestFullyFilteredBatchSuppressed(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	filter, err := contracts.NewFilter(contracts.FilterConfig{Types: []contracts.MessageType{contracts.TypeSysEx}})
	if err != nil {
		t.Fatal(err)
	}
	if err := session.SetFilter(filter); err != nil {
		t.Fatal(err)
	}

	transport.deliver(1, 0x90, 60, 100)
	if sink.count() != 0 {
		t.Fatal("callback invoked for a fully filtered batch")
	}
}

func TestFilterReplacementVisibleToNextBatch(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}

	noteOnly, err := contracts.NewFilter(contracts.FilterConfig{Types: []contracts.MessageType{contracts.TypeNote}})
	if err != nil {
		t.Fatal(err)
	}
	if err := session.SetFilter(noteOnly); err != nil {
		t.Fatal(err)
	}
	transport.deliver(1, 0xB0, 7, 90)
	if sink.count() != 0 {
		t.Fatal("CC passed the note-only filter")
	}

	// Replace with nil: everything passes, starting with the next batch.
	if err := session.SetFilter(nil); err != nil {
		t.Fatal(err)
	}
	transport.deliver(1, 0xB0, 7, 90)
	if sink.count() != 1 {
		t.Fatal("filter replacement not visible to the next batch")
	}
}

func TestDeliveryFromUnconnectedEndpointDropped(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	transport.deliver(99, 0x90, 60, 100)
	if sink.count() != 0 {
		t.Fatal("packets from an unconnected endpoint were delivered")
	}
}

func TestDisconnect(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Disconnect(testEndpoints[0]); !errors.Is(err, contracts.ErrConnectionNotFound) {
		t.Fatalf("disconnect before connect: got %v, want ErrConnectionNotFound", err)
	}

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	if err := session.Disconnect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	if transport.isForwarding(1) {
		t.Error("transport still forwarding after disconnect")
	}

	transport.deliver(1, 0x90, 60, 100)
	if sink.count() != 0 {
		t.Fatal("delivery after disconnect was not dropped")
	}
}

func TestDisconnectAllOnEmptySessionSucceeds(t *testing.T) {
	session, _, _ := newTestSession(t)
	defer session.Close()

	if err := session.DisconnectAll(); err != nil {
		t.Fatal(err)
	}
}

func TestDisconnectAll(t *testing.T) {
	session, transport, _ := newTestSession(t)
	defer session.Close()

	for _, endpoint := range testEndpoints {
		if err := session.Connect(endpoint); err != nil {
			t.Fatal(err)
		}
	}
	if err := session.DisconnectAll(); err != nil {
		t.Fatal(err)
	}
	if len(session.Connected()) != 0 {
		t.Error("endpoints left connected")
	}
	for _, endpoint := range testEndpoints {
		if transport.isForwarding(endpoint.Ref) {
			t.Errorf("still forwarding ref %d", endpoint.Ref)
		}
	}
}

func TestCloseLifecycle(t *testing.T) {
	session, transport, sink := newTestSession(t)

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	if err := session.Close(); err != nil {
		t.Fatal(err)
	}
	if err := session.Close(); err != nil {
		t.Fatal("second close:", err)
	}
	if !transport.unregistered {
		t.Error("platform handle not released")
	}

	// Delivery after close is dropped, not delivered.
	transport.deliver(1, 0x90, 60, 100)
	if sink.count() != 0 {
		t.Fatal("delivery after close reached the callback")
	}

	ops := map[string]error{
		"Connect":       session.Connect(testEndpoints[1]),
		"Disconnect":    session.Disconnect(testEndpoints[0]),
		"DisconnectAll": session.DisconnectAll(),
		"SetFilter":     session.SetFilter(nil),
	}
	for name, err := range ops {
		if !errors.Is(err, contracts.ErrSessionClosed) {
			t.Errorf("%s after close: got %v, want ErrSessionClosed", name, err)
		}
	}
}

func TestPerEndpointGrouping(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}
	if err := session.Connect(testEndpoints[1]); err != nil {
		t.Fatal(err)
	}

	transport.deliver(1, 0x90, 60, 100)
	transport.deliver(2, 0x90, 72, 80)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(sink.deliveries))
	}
	if sink.deliveries[0].endpoint.Ref != 1 || sink.deliveries[1].endpoint.Ref != 2 {
		t.Errorf("deliveries tagged %d, %d", sink.deliveries[0].endpoint.Ref, sink.deliveries[1].endpoint.Ref)
	}
}

func TestSpySessionWithInjectedTransport(t *testing.T) {
	transport := newFakeTransport()
	sink := &collector{}
	destinations := []contracts.Endpoint{{Ref: 10, Name: "Hardware Synth", Kind: contracts.KindDestination}}

	session, err := NewSpySession(sink.callback,
		contracts.WithLogger(nopLogger{}),
		contracts.WithTransport(transport),
		contracts.WithEnumerator(&fakeEnumerator{destinations: destinations}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	// A spy session resolves names against destinations.
	if err := session.ConnectByName("hardware"); err != nil {
		t.Fatal(err)
	}
	transport.deliver(10, 0x90, 60, 100)
	if got := sink.last(t); got.endpoint.Name != "Hardware Synth" {
		t.Errorf("delivery tagged with %q", got.endpoint.Name)
	}
}

func TestRunningStatusSurvivesAcrossDeliveries(t *testing.T) {
	session, transport, sink := newTestSession(t)
	defer session.Close()

	if err := session.Connect(testEndpoints[0]); err != nil {
		t.Fatal(err)
	}

	transport.deliver(1, 0x90, 60, 100)
	transport.deliver(1, 62, 100) // running status from the previous packet

	got := sink.last(t)
	if len(got.messages) != 1 || !bytes.Equal(got.messages[0].Data, []byte{0x90, 62, 100}) {
		t.Fatalf("running status not preserved across packets: %v", got.messages)
	}
}
