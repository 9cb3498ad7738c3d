//go:build windows

// Package platform provides the real Windows-backed adapters the fusion
// engine polls on an actual machine: XInput and raw HID. Everything here
// is a thin syscall wrapper; the
// fusion engine itself never touches golang.org/x/sys/windows directly.
package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/padfusion/padfusion/fusion"
)

var (
	xinput14             = windows.NewLazySystemDLL("xinput1_4.dll")
	procXInputGetState   = xinput14.NewProc("XInputGetState")
	procXInputSetState   = xinput14.NewProc("XInputSetState")
	procXInputGetStateEx = xinput14.NewProc("XInputGetStateEx") // undocumented, exposes the guide bit XInputGetState hides
)

const xinputMaxSlots = 4

type xinputGamepad struct {
	buttons      uint16
	leftTrigger  byte
	rightTrigger byte
	thumbLX      int16
	thumbLY      int16
	thumbRX      int16
	thumbRY      int16
}

// xinputState mirrors the native XINPUT_STATE layout. packetNumber is kept
// only to preserve struct layout for the syscall — it is XInput's own
// packet-sequence counter, which increments on every analog jitter, not
// the Correlation Engine's slower-moving correlation_id (spec.md §3/§4.2,
// which the engine itself maintains in fusion.XInputCache); feeding the
// raw packet number into XInputReading made a Confirmed binding flap on
// every stick wiggle, so it is intentionally left unread below.
type xinputState struct {
	packetNumber uint32
	gamepad      xinputGamepad
}

type xinputVibration struct {
	leftMotorSpeed  uint16
	rightMotorSpeed uint16
}

// XInputSource implements fusion.XInputSource against the real XInput
// subsystem (spec.md §4.2).
type XInputSource struct{}

func NewXInputSource() *XInputSource { return &XInputSource{} }

func (x *XInputSource) SlotCount() int { return xinputMaxSlots }

// Poll reads one slot via XInputGetStateEx when available (it surfaces the
// guide button XInputGetState hides) falling back to XInputGetState.
func (x *XInputSource) Poll(slot int) (fusion.XInputReading, error) {
	var state xinputState

	proc := procXInputGetStateEx
	if err := proc.Find(); err != nil {
		proc = procXInputGetState
	}

	ret, _, _ := proc.Call(uintptr(slot), uintptr(unsafe.Pointer(&state)))
	const errSuccess = 0
	const errDeviceNotConnected = 1167
	switch ret {
	case errSuccess:
		return fusion.XInputReading{
			Connected:     true,
			Buttons:       state.gamepad.buttons,
			LX:            state.gamepad.thumbLX,
			LY:            state.gamepad.thumbLY,
			RX:            state.gamepad.thumbRX,
			RY:            state.gamepad.thumbRY,
			TriggerL:      expandTriggerByte(state.gamepad.leftTrigger),
			TriggerR:      expandTriggerByte(state.gamepad.rightTrigger),
		}, nil
	case errDeviceNotConnected:
		return fusion.XInputReading{Connected: false}, nil
	default:
		return fusion.XInputReading{}, fmt.Errorf("XInputGetState slot %d: error %d", slot, ret)
	}
}

func (x *XInputSource) SetVibration(slot int, left, right uint16) error {
	vib := xinputVibration{leftMotorSpeed: left, rightMotorSpeed: right}
	ret, _, _ := procXInputSetState.Call(uintptr(slot), uintptr(unsafe.Pointer(&vib)))
	if ret != 0 {
		return fmt.Errorf("XInputSetState slot %d: error %d", slot, ret)
	}
	return nil
}

// expandTriggerByte maps XInput's 0..255 trigger byte onto the engine's
// signed trigger range (spec.md §6).
func expandTriggerByte(b byte) int16 {
	v := int32(b)*257 - 0x8000
	if v > 0x7FFF {
		v = 0x7FFF
	}
	return int16(v)
}
