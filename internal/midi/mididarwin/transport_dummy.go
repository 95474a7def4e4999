//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// NewInputTransport reports that CoreMIDI capture is unavailable off macOS.
func NewInputTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	return nil, nil, fmt.Errorf("CoreMIDI capture is not available on this platform")
}

// NewSpyTransport reports that the spy driver is unavailable off macOS.
func NewSpyTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	return nil, nil, fmt.Errorf("%w: the spy driver only exists on macOS", contracts.ErrDriverMissing)
}
