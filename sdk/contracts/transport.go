package contracts

// Packet is one raw MIDI packet as delivered by the platform transport:
// a host timestamp and a run of bytes that may contain fragments of several
// messages.
type Packet struct {
	Timestamp uint64
	Data      []byte
}

// PacketHandler receives packet batches from the transport, attributed to
// one endpoint. It is invoked on a thread the transport owns.
type PacketHandler func(endpointRef uint32, packets []Packet)

// Transport is the boundary with the platform driver. Register acquires the
// platform handle and installs the handler; BeginForwarding/EndForwarding
// control which endpoints deliver traffic to it.
type Transport interface {
	Register(handler PacketHandler) error
	Unregister() error
	BeginForwarding(endpointRef uint32) error
	EndForwarding(endpointRef uint32) error
}

// Enumerator is the boundary with the platform's endpoint registry.
type Enumerator interface {
	Sources() ([]Endpoint, error)
	Destinations() ([]Endpoint, error)
}

// Callback receives the filtered messages of one delivery batch, in arrival
// order, tagged with the endpoint they were captured on. It runs
// synchronously on the transport's delivery thread; the application is
// responsible for marshalling to its own execution context if needed.
type Callback func(messages []Message, endpoint Endpoint)
