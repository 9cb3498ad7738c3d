package fusion

import (
	"strings"
	"sync"
	"time"
)

// Family tags the HID report layout a Controller was constructed with
// (spec.md §9 Design Notes: "model as a small tagged variant over
// controller families... do not simulate inheritance"). Only Xbox360 has a
// concrete decoder in the CORE; the others are reserved extension points.
type Family int

const (
	FamilyXbox360 Family = iota
	FamilyXboxOneS
	FamilyGeneric
)

// decoderFor returns the report decoder registered for a controller family.
// All families currently share the Xbox360 HID layout from spec.md §4.1;
// a family-specific byte layout for XboxOneS is future work, not something
// this CORE has data to diverge on.
func decoderFor(Family) func([]byte) (ControllerSnapshot, *Error) {
	return decodeReportOffsets
}

// Device is an arrived HID device: stable identity, vendor/product/version,
// and the Controller it owns. Devices own their Controller for its whole
// lifetime (spec.md §3 Ownership); the Controller never holds a pointer
// back, only relies on the Registry to look it up by InstanceID when
// needed (spec.md §9: avoid the cyclic Device<->Controller pointer pair).
type Device struct {
	InstanceID int
	VendorID   uint16
	ProductID  uint16
	Version    uint16
	GUID       [16]byte

	Controller *Controller
}

// EncodeGUID builds the 16-byte device GUID from spec.md §6: bus type,
// vendor/product/version interleaved with zero padding, and a trailing
// marker byte identifying this as a raw-input-backed source.
func EncodeGUID(busType byte, vendorID, productID, version uint16) [16]byte {
	var g [16]byte
	g[0] = busType
	g[1] = 0
	g[2] = byte(vendorID)
	g[3] = byte(vendorID >> 8)
	g[4] = 0
	g[5] = 0
	g[6] = byte(productID)
	g[7] = byte(productID >> 8)
	g[8] = 0
	g[9] = 0
	g[10] = byte(version)
	g[11] = byte(version >> 8)
	g[12] = 0
	g[13] = 0
	g[14] = 'r'
	g[15] = 0
	return g
}

// BusTypeUSB is the only bus type this CORE's Xbox-family fusion path cares
// about (spec.md §6).
const BusTypeUSB byte = 0x03

// Controller is the live per-device fusion state: the last HID report, the
// derived fingerprint, and the two peer bindings (spec.md §3).
type Controller struct {
	mu sync.Mutex

	id     int
	family Family

	snapshot     ControllerSnapshot
	haveSnapshot bool
	rawReport    []byte
	match        MatchState
	lastPacketAt time.Time

	XInput XInputBinding
	WGI    WGIBinding

	// rumbleExpiry/hasRumbleExpiry implement spec.md §4.6: a non-zero
	// rumble command with a nonzero duration schedules an automatic
	// zero-magnitude re-issue once the deadline passes.
	rumbleExpiry    time.Time
	hasRumbleExpiry bool
}

func newController(id int, family Family) *Controller {
	return &Controller{
		id:     id,
		family: family,
		XInput: XInputBinding{Phase: XInputUnbound, SlotID: -1},
		WGI:    WGIBinding{Phase: WGIUnbound},
	}
}

// Match returns the current cross-API fingerprint.
func (c *Controller) Match() MatchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match
}

// Registry owns all Devices by stable instance id, preserving insertion
// order (spec.md §3: "singly-linked list; insertion-order preserved").
// A map plus an order slice serves the same purpose without the dangling
// pointer risk of a hand-rolled linked list (spec.md §9 Design Notes).
type Registry struct {
	mu      sync.Mutex
	devices map[int]*Device
	order   []int
	nextID  int
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[int]*Device)}
}

// OnArrive ingests a device-arrival notification (spec.md §6). Devices
// whose path doesn't carry the "IG_" XInput-capable marker are ignored
// entirely — they're not added to the registry and no event fires.
func (r *Registry) OnArrive(path string, vendorID, productID, version uint16, sink EventSink) (*Device, bool) {
	if !hasXInputMarker(path) {
		return nil, false
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	dev := &Device{
		InstanceID: id,
		VendorID:   vendorID,
		ProductID:  productID,
		Version:    version,
		GUID:       EncodeGUID(BusTypeUSB, vendorID, productID, version),
		Controller: newController(id, FamilyXbox360),
	}
	r.devices[id] = dev
	r.order = append(r.order, id)
	r.mu.Unlock()

	if sink != nil {
		sink.EmitAdded(id)
	}
	return dev, true
}

func hasXInputMarker(path string) bool {
	return strings.Contains(strings.ToUpper(path), "IG_")
}

// OnRemove ingests a device-removal notification. If the device had a
// confirmed XInput binding, the slot's used flag is cleared before the
// removed event fires (spec.md §8 S6).
func (r *Registry) OnRemove(instanceID int, xinput *XInputCache, sink EventSink) bool {
	r.mu.Lock()
	dev, ok := r.devices[instanceID]
	if ok {
		delete(r.devices, instanceID)
		for i, id := range r.order {
			if id == instanceID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	if dev.Controller.XInput.Phase == XInputConfirmed && xinput != nil {
		xinput.MarkUsed(dev.Controller.XInput.SlotID, false)
	}

	if sink != nil {
		sink.EmitRemoved(instanceID)
	}
	return true
}

// Get returns a Device by instance id, or nil if not present.
func (r *Registry) Get(instanceID int) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[instanceID]
}

// Order returns device instance ids in insertion order — the order the
// Correlation Engine and Arbiter must process Controllers in within a
// frame (spec.md §5).
func (r *Registry) Order() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}
