package contracts

// EndpointKind distinguishes MIDI sources (inputs) from destinations (outputs).
type EndpointKind int

const (
	// KindSource is a MIDI input endpoint that emits data into the system.
	KindSource EndpointKind = iota
	// KindDestination is a MIDI output endpoint that other applications send to.
	KindDestination
)

// Endpoint identifies a named MIDI endpoint exposed by the platform.
// Two endpoints are the same endpoint iff their Ref values match; Name is
// informational and only consulted during fuzzy lookup. Refs are stable
// within an enumeration batch.
type Endpoint struct {
	Ref  uint32       // Platform-assigned numeric reference.
	Name string       // Display name reported by the platform.
	Kind EndpointKind // Source or destination.
}
