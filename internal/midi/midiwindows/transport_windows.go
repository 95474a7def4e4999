//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/leandrodaf/midispy/sdk/contracts"
	"golang.org/x/sys/windows"
)

// HMIDIIN is a winmm MIDI input device handle.
type HMIDIIN windows.Handle

// Constants for callback flags.
const (
	CALLBACK_FUNCTION = 0x00030000 // The callback parameter is a function.
	MIDI_IO_STATUS    = 0x00000020 // Deliver MIM_MOREDATA for missed events.
)

// Constants for MIDI input callback messages.
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened.
	MIM_CLOSE     = 0x3C2 // MIDI device closed.
	MIM_DATA      = 0x3C3 // MIDI data received.
	MIM_ERROR     = 0x3C5 // MIDI error.
	MIM_LONGERROR = 0x3C6 // Long MIDI error.
	MIM_MOREDATA  = 0x3CC // More MIDI data available.
)

// midiInCaps mirrors the winmm MIDIINCAPSW structure.
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions.
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// InputTransport captures incoming MIDI through the winmm API. Endpoint
// references are device indexes plus one, stable within an enumeration.
//
// winmm delivers short messages only; sysex capture would require prepared
// buffers (midiInPrepareHeader) and is not implemented here.
type InputTransport struct {
	logger contracts.Logger

	mu       sync.Mutex
	handler  contracts.PacketHandler
	callback uintptr
	handles  map[uint32]HMIDIIN
	refs     map[HMIDIIN]uint32
}

// NewInputTransport creates a winmm input transport.
func NewInputTransport(options *contracts.SessionOptions) (contracts.Transport, contracts.Enumerator, error) {
	options.Logger.Info("winmm MIDI transport created")
	t := &InputTransport{
		logger:  options.Logger,
		handles: make(map[uint32]HMIDIIN),
		refs:    make(map[HMIDIIN]uint32),
	}
	return t, t, nil
}

// Register installs the packet handler.
func (t *InputTransport) Register(handler contracts.PacketHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler != nil {
		return fmt.Errorf("transport is already registered")
	}
	if t.callback == 0 {
		t.callback = windows.NewCallback(t.onMessage)
	}
	t.handler = handler
	return nil
}

// Unregister closes every open device and drops the handler.
func (t *InputTransport) Unregister() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ref := range t.handles {
		t.closeDeviceLocked(ref)
	}
	t.handler = nil
	return nil
}

// BeginForwarding opens the device behind the endpoint ref and starts
// capture on it.
func (t *InputTransport) BeginForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler == nil {
		return fmt.Errorf("transport is not registered")
	}
	if _, ok := t.handles[endpointRef]; ok {
		return fmt.Errorf("endpoint ref %d is already being forwarded", endpointRef)
	}
	if endpointRef == 0 {
		return fmt.Errorf("invalid endpoint ref 0")
	}
	deviceID := endpointRef - 1

	var handle HMIDIIN
	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(deviceID),
		t.callback,
		0,
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		return fmt.Errorf("%w: opening MIDI device %d: %v", contracts.ErrDriverCommunication, deviceID, err)
	}
	if r1, _, err := procMidiInStart.Call(uintptr(handle)); r1 != 0 {
		_, _, _ = procMidiInClose.Call(uintptr(handle))
		return fmt.Errorf("%w: starting capture on device %d: %v", contracts.ErrDriverCommunication, deviceID, err)
	}

	t.handles[endpointRef] = handle
	t.refs[handle] = endpointRef
	return nil
}

// EndForwarding stops capture and closes the device.
func (t *InputTransport) EndForwarding(endpointRef uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.handles[endpointRef]; !ok {
		return fmt.Errorf("endpoint ref %d is not being forwarded", endpointRef)
	}
	t.closeDeviceLocked(endpointRef)
	return nil
}

func (t *InputTransport) closeDeviceLocked(endpointRef uint32) {
	handle, ok := t.handles[endpointRef]
	if !ok {
		return
	}
	if r1, _, err := procMidiInStop.Call(uintptr(handle)); r1 != 0 {
		t.logger.Warn("failed to stop MIDI capture",
			t.logger.Field().Error("error", err))
	}
	if r1, _, err := procMidiInClose.Call(uintptr(handle)); r1 != 0 {
		t.logger.Warn("failed to close MIDI device",
			t.logger.Field().Error("error", err))
	}
	delete(t.handles, endpointRef)
	delete(t.refs, handle)
}

// onMessage processes incoming winmm callback messages.
func (t *InputTransport) onMessage(hMidiIn uintptr, wMsg uint32, dwInstance, dwParam1, dwParam2 uintptr) uintptr {
	switch wMsg {
	case MIM_OPEN:
		t.logger.Debug("MIDI device opened")
	case MIM_CLOSE:
		t.logger.Debug("MIDI device closed")
	case MIM_DATA, MIM_MOREDATA:
		status := byte(dwParam1 & 0xFF)
		data1 := byte((dwParam1 >> 8) & 0xFF)
		data2 := byte((dwParam1 >> 16) & 0xFF)
		if status < 0x80 {
			return 0
		}

		data := packMessage(status, data1, data2)

		t.mu.Lock()
		handler := t.handler
		ref, ok := t.refs[HMIDIIN(hMidiIn)]
		t.mu.Unlock()
		if handler == nil || !ok {
			return 0
		}
		handler(ref, []contracts.Packet{{
			Timestamp: uint64(time.Now().UTC().UnixNano()),
			Data:      data,
		}})
	case MIM_ERROR, MIM_LONGERROR:
		t.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	}
	return 0
}

// packMessage trims the packed winmm event down to the message's actual
// byte count.
func packMessage(status, data1, data2 byte) []byte {
	if status >= 0xF8 {
		return []byte{status}
	}
	switch status & 0xF0 {
	case contracts.StatusProgramChange, contracts.StatusChannelPressure:
		return []byte{status, data1}
	default:
		return []byte{status, data1, data2}
	}
}

// Sources enumerates the winmm input devices.
func (t *InputTransport) Sources() ([]contracts.Endpoint, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)

	endpoints := make([]contracts.Endpoint, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			t.logger.Warn(fmt.Sprintf("failed to get information for MIDI device %d", i))
			continue
		}
		endpoints = append(endpoints, contracts.Endpoint{
			Ref:  i + 1,
			Name: windows.UTF16ToString(caps.szPname[:]),
			Kind: contracts.KindSource,
		})
	}
	return endpoints, nil
}

// Destinations is not applicable to the input transport.
func (t *InputTransport) Destinations() ([]contracts.Endpoint, error) {
	return nil, fmt.Errorf("input transport enumerates sources only")
}
