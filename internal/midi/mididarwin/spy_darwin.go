//go:build darwin
// +build darwin

package mididarwin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// driverPathEnv overrides the spy driver search locations.
const driverPathEnv = "MIDISPY_DRIVER_PATH"

// findSpyDriver locates the installed spy driver bundle, or returns ""
// when it cannot be found.
func findSpyDriver() string {
	candidates := []string{os.Getenv(driverPathEnv)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "Library", "Audio", "MIDI Drivers", "MIDISpyDriver.plugin"))
	}
	candidates = append(candidates, filepath.Join("/Library", "Audio", "MIDI Drivers", "MIDISpyDriver.plugin"))

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// NewSpyTransport probes for the outgoing-capture driver. Construction fails
// with ErrDriverMissing when the driver bundle is not installed, and with
// ErrDriverCommunication when it is installed but this build carries no
// binding for it; the spy data path is then reachable only through an
// injected transport.
func NewSpyTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	path := findSpyDriver()
	if path == "" {
		return nil, nil, fmt.Errorf("%w: driver bundle not found (set %s to override the search path)",
			contracts.ErrDriverMissing, driverPathEnv)
	}
	options.Logger.Debug("spy driver bundle found",
		options.Logger.Field().String("path", path))
	return nil, nil, fmt.Errorf("%w: no binding for the spy driver at %s in this build",
		contracts.ErrDriverCommunication, path)
}
