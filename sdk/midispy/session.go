package midispy

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midispy/internal/stream"
	"github.com/leandrodaf/midispy/sdk/contracts"
	"go.uber.org/multierr"
)

// Session is the top-level object an application holds. It owns a connection
// registry, a replaceable message filter and a callback, and bridges
// demultiplexed, filtered messages from the transport's delivery thread to
// that callback.
//
// Connect, Disconnect, SetFilter and Close may be called from any goroutine.
// Delivery runs synchronously on the transport's thread; after Close has
// begun, arriving packets are dropped.
type Session struct {
	logger    contracts.Logger
	transport contracts.Transport
	enum      contracts.Enumerator
	side      contracts.EndpointKind
	callback  contracts.Callback

	filter   atomic.Pointer[contracts.Filter]
	demux    *stream.Demux
	registry *Registry

	mu        sync.Mutex // serializes connection mutation and teardown
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup // in-flight deliveries
}

func newSession(side contracts.EndpointKind, callback contracts.Callback, options *contracts.SessionOptions) (*Session, error) {
	s := &Session{
		logger:    options.Logger,
		transport: options.Transport,
		enum:      options.Enumerator,
		side:      side,
		callback:  callback,
		demux:     stream.New(),
		registry:  NewRegistry(),
	}
	s.filter.Store(options.Filter)

	if err := s.transport.Register(s.handlePackets); err != nil {
		return nil, fmt.Errorf("registering with transport: %w", err)
	}
	s.logger.Info("MIDI session registered",
		s.logger.Field().String("clientName", options.ClientName))
	return s, nil
}

// handlePackets is the transport's delivery entry point. It demultiplexes
// the batch, applies the current filter and invokes the callback with the
// surviving messages. Batches from endpoints the session is not connected
// to, and batches arriving after Close, are dropped.
func (s *Session) handlePackets(endpointRef uint32, packets []contracts.Packet) {
	if s.closed.Load() {
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	endpoint, ok := s.registry.Resolve(endpointRef)
	if !ok {
		s.logger.Debug("dropping packets from unconnected endpoint",
			s.logger.Field().Uint64("endpointRef", uint64(endpointRef)))
		return
	}

	messages := s.demux.Feed(endpointRef, packets)
	if len(messages) == 0 {
		return
	}

	filter := s.filter.Load()
	kept := messages[:0]
	for _, m := range messages {
		if filter.Matches(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return // no callback for fully filtered batches
	}
	s.callback(kept, endpoint)
}

// Connect attaches the session to an endpoint and asks the transport to
// begin forwarding its traffic. Fails with ErrConnectionExists if already
// connected, ErrSessionClosed after Close.
func (s *Session) Connect(endpoint contracts.Endpoint) error {
	if s.closed.Load() {
		return contracts.ErrSessionClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.Add(endpoint); err != nil {
		return err
	}
	if err := s.transport.BeginForwarding(endpoint.Ref); err != nil {
		_ = s.registry.Remove(endpoint.Ref)
		return fmt.Errorf("begin forwarding %q: %w", endpoint.Name, err)
	}
	s.logger.Info("connected to endpoint",
		s.logger.Field().Uint64("endpointRef", uint64(endpoint.Ref)),
		s.logger.Field().String("endpointName", endpoint.Name))
	return nil
}

// ConnectByName resolves an endpoint by fuzzy name and connects to it.
func (s *Session) ConnectByName(name string) error {
	endpoint, err := s.resolveName(name)
	if err != nil {
		return err
	}
	return s.Connect(endpoint)
}

// Disconnect detaches the session from an endpoint and stops forwarding.
// Fails with ErrConnectionNotFound if not connected.
func (s *Session) Disconnect(endpoint contracts.Endpoint) error {
	if s.closed.Load() {
		return contracts.ErrSessionClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Contains(endpoint.Ref) {
		return fmt.Errorf("%w: %s", contracts.ErrConnectionNotFound, endpoint.Name)
	}
	if err := s.transport.EndForwarding(endpoint.Ref); err != nil {
		return fmt.Errorf("end forwarding %q: %w", endpoint.Name, err)
	}
	_ = s.registry.Remove(endpoint.Ref)
	s.demux.Forget(endpoint.Ref)
	s.logger.Info("disconnected from endpoint",
		s.logger.Field().String("endpointName", endpoint.Name))
	return nil
}

// DisconnectByName resolves an endpoint by fuzzy name and disconnects it.
func (s *Session) DisconnectByName(name string) error {
	endpoint, err := s.resolveName(name)
	if err != nil {
		return err
	}
	return s.Disconnect(endpoint)
}

// DisconnectAll detaches every connected endpoint. It never fails on
// transport errors and is a no-op with zero connections.
func (s *Session) DisconnectAll() error {
	if s.closed.Load() {
		return contracts.ErrSessionClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.teardownLocked(); err != nil {
		s.logger.Warn("errors while disconnecting endpoints",
			s.logger.Field().Error("error", err))
	}
	return nil
}

// SetFilter atomically replaces the active filter. The replacement is
// visible to the very next delivered batch; a batch in flight sees either
// the old or the new filter in its entirety. A nil filter accepts
// everything.
func (s *Session) SetFilter(filter *contracts.Filter) error {
	if s.closed.Load() {
		return contracts.ErrSessionClosed
	}
	s.filter.Store(filter)
	return nil
}

// Filter returns the currently active filter, which may be nil.
func (s *Session) Filter() *contracts.Filter {
	return s.filter.Load()
}

// Connected returns the endpoints the session is currently attached to.
func (s *Session) Connected() []contracts.Endpoint {
	return s.registry.List()
}

// Endpoints lists the endpoints this session can attach to: destinations
// for a spy session, sources for an input session.
func (s *Session) Endpoints() ([]contracts.Endpoint, error) {
	return s.listEndpoints()
}

// Close disconnects every endpoint, releases the platform handle and waits
// for in-flight deliveries to finish. Calling it more than once is safe;
// only the first call performs teardown. Every other operation fails with
// ErrSessionClosed afterwards.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.mu.Lock()
		errs := s.teardownLocked()
		if err := s.transport.Unregister(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unregistering transport: %w", err))
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.closeErr = errs
		s.logger.Info("MIDI session closed")
	})
	return s.closeErr
}

// teardownLocked disconnects every endpoint, aggregating transport errors.
// Caller holds s.mu.
func (s *Session) teardownLocked() error {
	var errs error
	for _, endpoint := range s.registry.List() {
		if err := s.transport.EndForwarding(endpoint.Ref); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("end forwarding %q: %w", endpoint.Name, err))
		}
		_ = s.registry.Remove(endpoint.Ref)
		s.demux.Forget(endpoint.Ref)
	}
	return errs
}

func (s *Session) listEndpoints() ([]contracts.Endpoint, error) {
	if s.enum == nil {
		return nil, fmt.Errorf("no endpoint enumerator configured")
	}
	if s.side == contracts.KindDestination {
		return s.enum.Destinations()
	}
	return s.enum.Sources()
}

// resolveName finds an endpoint by name: first a full case-insensitive
// match, then a substring match, first win in enumeration order.
func (s *Session) resolveName(name string) (contracts.Endpoint, error) {
	endpoints, err := s.listEndpoints()
	if err != nil {
		return contracts.Endpoint{}, fmt.Errorf("listing endpoints: %w", err)
	}
	lower := strings.ToLower(name)
	for _, endpoint := range endpoints {
		if strings.ToLower(endpoint.Name) == lower {
			return endpoint, nil
		}
	}
	for _, endpoint := range endpoints {
		if strings.Contains(strings.ToLower(endpoint.Name), lower) {
			return endpoint, nil
		}
	}
	return contracts.Endpoint{}, fmt.Errorf("%w: %q", contracts.ErrEndpointNotFound, name)
}
