package fusion

import "sync"

// WGIReading is a single WGI gamepad's polled state. Buttons mirrors the
// Windows.Gaming.Input GamepadButtons bit layout, which matches the native
// XInput layout bit-for-bit; callers run it through
// canonicalizeXInputButtons before comparing it to a fingerprint.
type WGIReading struct {
	Buttons        uint16
	LX, LY, RX, RY int16
	TriggerL, TriggerR int16
}

// WGIGamepad is a single Windows.Gaming.Input gamepad object handle — an
// external collaborator (spec.md §6), real on Windows or a fixture in tests.
type WGIGamepad interface {
	ID() int
	Poll() (WGIReading, error)
	SetVibration(left, right uint16) error
}

// WGISource enumerates the WGI gamepads currently known to the OS. Unlike
// XInput's fixed 4 slots, WGI's gamepad list grows and shrinks as objects
// arrive (spec.md §4.3).
type WGISource interface {
	Gamepads() []WGIGamepad
}

// WGIRegistry tracks which WGI gamepad ids are already claimed by a
// confirmed Controller binding, so the correlation step only searches
// unclaimed gamepads (spec.md §4.5: "never re-bind an already-bound WGI
// gamepad").
type WGIRegistry struct {
	mu     sync.Mutex
	source WGISource
	claimed map[int]bool
}

func NewWGIRegistry(source WGISource) *WGIRegistry {
	return &WGIRegistry{source: source, claimed: make(map[int]bool)}
}

// Unclaimed returns the gamepads not yet bound to any Controller, in the
// order the source reports them.
func (r *WGIRegistry) Unclaimed() []WGIGamepad {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.source.Gamepads()
	out := make([]WGIGamepad, 0, len(all))
	for _, g := range all {
		if !r.claimed[g.ID()] {
			out = append(out, g)
		}
	}
	return out
}

// Claim marks a gamepad id as bound. Binding is single-shot and permanent
// for the lifetime of the gamepad object (spec.md §4.5): there is no
// Unclaim for a live object, only Release once the object itself vanishes.
func (r *WGIRegistry) Claim(id int) {
	r.mu.Lock()
	r.claimed[id] = true
	r.mu.Unlock()
}

// Release clears a claim, e.g. when the bound gamepad object disappears.
func (r *WGIRegistry) Release(id int) {
	r.mu.Lock()
	delete(r.claimed, id)
	r.mu.Unlock()
}

// ByID finds a still-present gamepad by id, or nil.
func (r *WGIRegistry) ByID(id int) WGIGamepad {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.source.Gamepads() {
		if g.ID() == id {
			return g
		}
	}
	return nil
}
