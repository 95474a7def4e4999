//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// NewInputTransport reports that winmm capture is unavailable off Windows.
func NewInputTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	return nil, nil, fmt.Errorf("winmm MIDI capture is not available on this platform")
}
