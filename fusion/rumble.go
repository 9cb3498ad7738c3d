package fusion

// HIDRumbleSink is the last-resort rumble transport: a raw feature/output
// report written straight to the device (spec.md §6 external collaborator).
type HIDRumbleSink interface {
	WriteRumble(instanceID int, packet []byte) (int, error)
}

// buildHIDRumblePacket assembles the fixed 8-byte Xbox360 rumble report
// (spec.md §5 scenario S5, matching the teacher's device/xbox360/device.go
// wired-rumble byte layout): header bytes, then the low/high motor
// magnitudes as the high byte of each 16-bit value.
func buildHIDRumblePacket(left, right uint16) []byte {
	return []byte{
		0x00, 0x08, 0x00,
		byte(left >> 8),
		byte(right >> 8),
		0x00, 0x00, 0x00,
	}
}

// RumbleRouter implements the fallback cascade of spec.md §4.6: try WGI
// first (fall through to XInput on failure), then XInput (confirmed
// binding only, terminal on failure — no HID fallback once a slot is
// confirmed), then raw HID (always terminal).
type RumbleRouter struct {
	wgi    *WGIRegistry
	xinput *XInputCache
	hid    HIDRumbleSink
}

func NewRumbleRouter(wgi *WGIRegistry, xinput *XInputCache, hid HIDRumbleSink) *RumbleRouter {
	return &RumbleRouter{wgi: wgi, xinput: xinput, hid: hid}
}

// Rumble drives a Controller's haptics through the cascade. Rumble commands
// carry no duration (spec.md §4.6): the caller is responsible for issuing
// a zero-vibration command itself when the effect should stop.
func (r *RumbleRouter) Rumble(c *Controller, instanceID int, left, right uint16) *Error {
	if c.WGI.Phase == WGIConfirmed {
		if gp := r.wgi.ByID(c.WGI.GamepadID); gp != nil {
			if err := gp.SetVibration(left, right); err == nil {
				return nil
			}
		}
		// WGI failed or vanished: fall through.
	}

	if c.XInput.Phase == XInputConfirmed {
		err := r.xinput.SetVibration(c.XInput.SlotID, left, right)
		if err != nil {
			return newErr(PeerWriteFailed, "xinput slot %d vibration: %v", c.XInput.SlotID, err)
		}
		return nil
	}

	packet := buildHIDRumblePacket(left, right)
	n, err := r.hid.WriteRumble(instanceID, packet)
	if err != nil {
		return newErr(HIDWriteFailed, "instance %d: %v", instanceID, err)
	}
	if n != len(packet) {
		return newErr(HIDWriteFailed, "instance %d: short write %d/%d", instanceID, n, len(packet))
	}
	return nil
}
