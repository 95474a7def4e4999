package contracts

import "errors"

// Error definitions for session, connection and filter handling issues.
var (
	// ErrInvalidMessage indicates a byte span that cannot form a MIDI message.
	ErrInvalidMessage = errors.New("invalid MIDI message")
	// ErrDriverMissing indicates that the spy driver artifact is not installed.
	ErrDriverMissing = errors.New("MIDI spy driver is not installed")
	// ErrDriverCommunication indicates a failure talking to the platform MIDI services.
	ErrDriverCommunication = errors.New("could not communicate with the MIDI driver")
	// ErrConnectionExists indicates the session is already attached to the endpoint.
	ErrConnectionExists = errors.New("connection to this endpoint already exists")
	// ErrConnectionNotFound indicates the session is not attached to the endpoint.
	ErrConnectionNotFound = errors.New("no connection to this endpoint")
	// ErrConfiguration indicates an unknown filter tag or an out-of-range filter value.
	ErrConfiguration = errors.New("invalid filter configuration")
	// ErrSessionClosed indicates an operation was attempted after Close.
	ErrSessionClosed = errors.New("session is closed")
	// ErrEndpointNotFound indicates that no endpoint matched a name lookup.
	ErrEndpointNotFound = errors.New("no endpoint matches the given name")
)
