package fusion

import "encoding/binary"

// ControllerSnapshot is the decoded view of a controller's most recent HID
// report: buttons, axes, and the merged-trigger byte, per spec.md §2/§4.1.
type ControllerSnapshot struct {
	// Buttons is the canonical 11-bit mask shared with MatchState: bit0=A,
	// bit1=B, bit2=X, bit3=Y, bit4=LB, bit5=RB, bit6=Back, bit7=Start,
	// bit8=LStick, bit9=RStick. Bit 10 (Guide) is never set by HID.
	Buttons uint16
	// DPad holds the 8-way direction nibble from byte 11 bits 2..5 (0 =
	// neutral, 1=Up .. 8=UpLeft), matching the HID layout's "multiples of
	// 4" packing when left shifted two bits back into the byte.
	DPad uint8

	LX, LY, RX, RY int16

	// TriggerL, TriggerR are the independent trigger axis values actually
	// emitted to the host (spec.md §6 axis range). When no peer is
	// correlated these come from decomposing MergedTriggerByte; when a
	// peer is correlated they're overwritten from the peer's independent
	// readings and MergedTriggerByte is ignored entirely.
	TriggerL, TriggerR int16

	// Guide reflects the peer-sourced guide button (spec.md §1: HID can
	// never report Guide on its own). False whenever no peer is
	// correlated; the decoder never sets this bit itself.
	Guide bool

	MergedTriggerByte byte
}

const (
	dpadUp = 1 + iota
	dpadUpRight
	dpadRight
	dpadDownRight
	dpadDown
	dpadDownLeft
	dpadLeft
	dpadUpLeft
)

const minReportLen = 12

// decodeReportOffsets parses the Windows Xbox HID report layout from
// spec.md §4.1 into a ControllerSnapshot. Trigger handling is deferred to
// the caller: this only fills MergedTriggerByte, never decomposing it,
// since whether to use it at all depends on peer-correlation state that
// lives on the Controller, not in this pure decode step.
func decodeReportOffsets(report []byte) (ControllerSnapshot, *Error) {
	if len(report) < minReportLen {
		return ControllerSnapshot{}, newErr(MalformedReport, "report has %d bytes, need >= %d", len(report), minReportLen)
	}

	var s ControllerSnapshot
	s.LX = biasedAxis(binary.LittleEndian.Uint16(report[0:2]))
	s.LY = biasedAxis(binary.LittleEndian.Uint16(report[2:4]))
	s.RX = biasedAxis(binary.LittleEndian.Uint16(report[4:6]))
	s.RY = biasedAxis(binary.LittleEndian.Uint16(report[6:8]))

	s.MergedTriggerByte = report[9]

	buttonByte := report[10]
	var buttons uint16
	if buttonByte&0x01 != 0 {
		buttons |= matchBitA
	}
	if buttonByte&0x02 != 0 {
		buttons |= matchBitB
	}
	if buttonByte&0x04 != 0 {
		buttons |= matchBitX
	}
	if buttonByte&0x08 != 0 {
		buttons |= matchBitY
	}
	if buttonByte&0x10 != 0 {
		buttons |= matchBitLB
	}
	if buttonByte&0x20 != 0 {
		buttons |= matchBitRB
	}
	if buttonByte&0x40 != 0 {
		buttons |= matchBitBack
	}
	if buttonByte&0x80 != 0 {
		buttons |= matchBitStart
	}

	stickByte := report[11]
	if stickByte&0x01 != 0 {
		buttons |= matchBitLStick
	}
	if stickByte&0x02 != 0 {
		buttons |= matchBitRStick
	}
	s.Buttons = buttons
	s.DPad = (stickByte >> 2) & 0x0F

	return s, nil
}

// biasedAxis converts a 0x8000-biased raw 16-bit field into a signed stick
// value (spec.md §4.1: "biased by 0x8000").
func biasedAxis(raw uint16) int16 {
	return int16(int32(raw) - 0x8000)
}

const (
	triggerMin int16 = -0x8000
	triggerMax int16 = 0x7FFF
)

// decomposeMergedTrigger implements the merged-trigger fallback of
// spec.md §4.1: a single byte can only express one of the two triggers at
// a time, so the one not in play reports fully released.
func decomposeMergedTrigger(b byte) (left, right int16) {
	switch {
	case b == 0x80:
		return triggerMin, triggerMin
	case b < 0x80:
		return scaleMergedTrigger(0x80 - b), triggerMin
	default:
		return triggerMin, scaleMergedTrigger(b - 0x80)
	}
}

func scaleMergedTrigger(delta byte) int16 {
	v := int32(delta) * 2 * 257 - 0x8001
	switch {
	case v > int32(triggerMax):
		return triggerMax
	case v < int32(triggerMin):
		return triggerMin
	default:
		return int16(v)
	}
}

// dpadPressed reports whether a given DPad button is currently held,
// given the decoded direction nibble.
func dpadPressed(dpad uint8, button ButtonID) bool {
	switch button {
	case ButtonDPadUp:
		return dpad == dpadUp || dpad == dpadUpRight || dpad == dpadUpLeft
	case ButtonDPadDown:
		return dpad == dpadDown || dpad == dpadDownRight || dpad == dpadDownLeft
	case ButtonDPadLeft:
		return dpad == dpadLeft || dpad == dpadUpLeft || dpad == dpadDownLeft
	case ButtonDPadRight:
		return dpad == dpadRight || dpad == dpadUpRight || dpad == dpadDownRight
	default:
		return false
	}
}
