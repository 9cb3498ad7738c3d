package fusion

import "fmt"

// ErrKind enumerates the error taxonomy from the fusion engine's error
// handling design: peer failures recover locally, HID write failures
// surface to the rumble caller, device-open failures surface only to
// logs, and malformed/unknown reports are dropped.
type ErrKind int

const (
	// PeerPollFailed means an XInput or WGI read returned failure; the
	// peer slot/gamepad is treated as disconnected for this frame.
	PeerPollFailed ErrKind = iota
	// PeerWriteFailed means a rumble command to a confirmed XInput slot
	// failed; it is returned to the caller of Rumble with no HID fallback.
	// A failed WGI vibration produces no error: the router falls through
	// to XInput if confirmed, else HID.
	PeerWriteFailed
	// HIDWriteFailed means a HID rumble packet was short-written; this
	// is surfaced to the caller of Rumble.
	HIDWriteFailed
	// DeviceOpenFailed means the decoder context could not be allocated
	// for a newly arrived device; the device is not added to the registry.
	DeviceOpenFailed
	// UnknownReport means a report or rumble command names an instance id
	// that isn't registered; it is dropped and the error returned. The
	// decoder does not inspect a leading discriminator byte.
	UnknownReport
	// MalformedReport means the buffer is shorter than the minimum
	// layout for its report type; the packet is dropped.
	MalformedReport
)

func (k ErrKind) String() string {
	switch k {
	case PeerPollFailed:
		return "peer_poll_failed"
	case PeerWriteFailed:
		return "peer_write_failed"
	case HIDWriteFailed:
		return "hid_write_failed"
	case DeviceOpenFailed:
		return "device_open_failed"
	case UnknownReport:
		return "unknown_report"
	case MalformedReport:
		return "malformed_report"
	default:
		return "unknown"
	}
}

// Error is the single concrete error type the fusion engine returns.
// Callers that care about the taxonomy use errors.As to recover it.
type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
