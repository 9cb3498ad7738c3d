package fusion

import "sync"

// Native XInput button bits, grounded on the teacher's device/xbox360/const.go
// wired-gamepad bit layout (XINPUT_GAMEPAD_* constants from the Windows SDK).
const (
	xinputDPadUp        uint16 = 0x0001
	xinputDPadDown      uint16 = 0x0002
	xinputDPadLeft      uint16 = 0x0004
	xinputDPadRight     uint16 = 0x0008
	xinputStart         uint16 = 0x0010
	xinputBack          uint16 = 0x0020
	xinputLeftThumb     uint16 = 0x0040
	xinputRightThumb    uint16 = 0x0080
	xinputLeftShoulder  uint16 = 0x0100
	xinputRightShoulder uint16 = 0x0200
	xinputGuide         uint16 = 0x0400
	xinputA             uint16 = 0x1000
	xinputB             uint16 = 0x2000
	xinputX             uint16 = 0x4000
	xinputY             uint16 = 0x8000
)

// canonicalizeXInputButtons maps the native XInput bit layout onto the
// canonical 11-bit mask shared with MatchState and ControllerSnapshot.
// DPad bits are intentionally dropped: spec.md §4.4 excludes DPad from the
// fingerprint entirely, so they play no part in correlation.
func canonicalizeXInputButtons(native uint16) uint16 {
	var m uint16
	if native&xinputA != 0 {
		m |= matchBitA
	}
	if native&xinputB != 0 {
		m |= matchBitB
	}
	if native&xinputX != 0 {
		m |= matchBitX
	}
	if native&xinputY != 0 {
		m |= matchBitY
	}
	if native&xinputLeftShoulder != 0 {
		m |= matchBitLB
	}
	if native&xinputRightShoulder != 0 {
		m |= matchBitRB
	}
	if native&xinputBack != 0 {
		m |= matchBitBack
	}
	if native&xinputStart != 0 {
		m |= matchBitStart
	}
	if native&xinputLeftThumb != 0 {
		m |= matchBitLStick
	}
	if native&xinputRightThumb != 0 {
		m |= matchBitRStick
	}
	if native&xinputGuide != 0 {
		m |= matchBitGuide
	}
	return m
}

// XInputReading is a single slot's raw poll result. Buttons uses the
// native XINPUT_GAMEPAD bit layout (xinput* constants above), not the
// canonical MatchState layout — callers run it through
// canonicalizeXInputButtons before comparing it to a fingerprint. There is
// deliberately no correlation identity here: spec.md §3/§4.2's
// `correlation_id` is bookkeeping the Correlation Engine owns on the slot
// itself (see XInputCache.BumpCorrelationID), not something a source can
// report — a real OS packet-sequence number changes on every analog
// jitter and would make a Confirmed binding flap constantly.
type XInputReading struct {
	Connected      bool
	Buttons        uint16
	LX, LY, RX, RY int16
	TriggerL, TriggerR int16
}

// XInputSource is the external collaborator the cache polls (spec.md §6):
// the host's actual XInput surface, real on Windows or a fixture in tests.
type XInputSource interface {
	Poll(slot int) (XInputReading, error)
	SetVibration(slot int, left, right uint16) error
	SlotCount() int
}

// SlotSnapshot is the cache's per-slot public view. Buttons remains in the
// native XInput bit layout, same caveat as XInputReading. CorrelationID is
// the cache's own counter (spec.md §3), not anything the source reported.
type SlotSnapshot struct {
	Connected     bool
	Used          bool
	CorrelationID uint32
	Buttons       uint16
	LX, LY, RX, RY int16
	TriggerL, TriggerR int16
}

// XInputCache polls every slot at most once per frame (spec.md §4.2): the
// first caller to touch a dirty cache pays the poll cost, everyone else in
// the same frame reads the memoized result.
type XInputCache struct {
	mu     sync.Mutex
	source XInputSource
	dirty  bool
	slots  []SlotSnapshot
	used   []bool

	// correlationIDs is the Correlation Engine's own per-slot match
	// counter (spec.md §3/§4.2), bumped by BumpCorrelationID on every
	// frame a Controller's fingerprint matches that slot. It survives
	// across poll refreshes — it is engine state, not a source reading.
	correlationIDs []uint32
}

func NewXInputCache(source XInputSource) *XInputCache {
	n := source.SlotCount()
	return &XInputCache{
		source:         source,
		dirty:          true,
		slots:          make([]SlotSnapshot, n),
		used:           make([]bool, n),
		correlationIDs: make([]uint32, n),
	}
}

// MarkDirty must be called once per frame, before any Slot/SlotCount reads,
// to schedule a fresh poll on next access.
func (c *XInputCache) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

func (c *XInputCache) ensureFresh() {
	if !c.dirty {
		return
	}
	for i := range c.slots {
		reading, err := c.source.Poll(i)
		if err != nil || !reading.Connected {
			c.slots[i] = SlotSnapshot{Used: c.used[i], CorrelationID: c.correlationIDs[i]}
			continue
		}
		c.slots[i] = SlotSnapshot{
			Connected:     true,
			Used:          c.used[i],
			CorrelationID: c.correlationIDs[i],
			Buttons:       reading.Buttons,
			LX:            reading.LX,
			LY:            reading.LY,
			RX:            reading.RX,
			RY:            reading.RY,
			TriggerL:      reading.TriggerL,
			TriggerR:      reading.TriggerR,
		}
	}
	c.dirty = false
}

// SlotCount returns the number of XInput slots exposed by the source
// (conventionally 4).
func (c *XInputCache) SlotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Slot returns the memoized snapshot for a slot, polling first if the
// cache is dirty. Returns the zero SlotSnapshot for an out-of-range slot.
func (c *XInputCache) Slot(slot int) SlotSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureFresh()
	if slot < 0 || slot >= len(c.slots) {
		return SlotSnapshot{}
	}
	return c.slots[slot]
}

// MarkUsed flags or clears a slot's "claimed by a confirmed Controller"
// bit, so other Controllers' candidate search skips it (spec.md §4.5).
func (c *XInputCache) MarkUsed(slot int, used bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= len(c.used) {
		return
	}
	c.used[slot] = used
	c.slots[slot].Used = used
}

// BumpCorrelationID increments a slot's engine-owned correlation counter,
// recording a fresh match attempt against it this frame, and returns the
// new value (spec.md §4.5: "increment slot.correlation_id for every
// matching slot this frame, as negative evidence against them confirming
// elsewhere" — called once per matching slot per Controller's candidate
// scan, not just for whichever slot that Controller ends up picking).
func (c *XInputCache) BumpCorrelationID(slot int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= len(c.correlationIDs) {
		return 0
	}
	c.correlationIDs[slot]++
	c.slots[slot].CorrelationID = c.correlationIDs[slot]
	return c.correlationIDs[slot]
}

// SetVibration forwards a rumble command to the real XInput surface.
func (c *XInputCache) SetVibration(slot int, left, right uint16) error {
	return c.source.SetVibration(slot, left, right)
}
