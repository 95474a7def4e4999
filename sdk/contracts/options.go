package contracts

// SessionOptions defines the configuration options for a MIDI session.
type SessionOptions struct {
	Logger     Logger     // Logger for session and transport events.
	LogLevel   LogLevel   // Level of logging to use.
	ClientName string     // Name under which the session registers with the platform.
	Filter     *Filter    // Optional initial message filter.
	Transport  Transport  // Optional transport override; defaults to the platform transport.
	Enumerator Enumerator // Optional enumerator override; defaults to the transport's.
}

// Option is a function that modifies SessionOptions.
type Option func(*SessionOptions)

// WithLogger sets the logger for the session.
func WithLogger(l Logger) Option {
	return func(opts *SessionOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the session.
func WithLogLevel(level LogLevel) Option {
	return func(opts *SessionOptions) {
		opts.LogLevel = level
	}
}

// WithClientName sets the name the session registers under, visible to
// other MIDI applications.
func WithClientName(name string) Option {
	return func(opts *SessionOptions) {
		opts.ClientName = name
	}
}

// WithFilter sets the initial message filter for the session.
func WithFilter(f *Filter) Option {
	return func(opts *SessionOptions) {
		opts.Filter = f
	}
}

// WithTransport overrides the platform transport. Used to inject a custom
// or in-process transport.
func WithTransport(t Transport) Option {
	return func(opts *SessionOptions) {
		opts.Transport = t
	}
}

// WithEnumerator overrides the endpoint enumerator used for name lookup.
func WithEnumerator(e Enumerator) Option {
	return func(opts *SessionOptions) {
		opts.Enumerator = e
	}
}
