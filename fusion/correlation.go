package fusion

// XInputPhase is a Controller's progress toward an XInput slot binding
// (spec.md §4.5 state machine: Unbound -> Candidate -> Confirmed).
type XInputPhase int

const (
	XInputUnbound XInputPhase = iota
	XInputCandidate
	XInputConfirmed
)

// WGIPhase is a Controller's WGI binding state. WGI binding is single-shot
// (spec.md §4.5): once Confirmed it is never un-bound while the gamepad
// object is alive.
type WGIPhase int

const (
	WGIUnbound WGIPhase = iota
	WGIConfirmed
)

// uncorrelateThreshold is the number of consecutive non-matching frames a
// Confirmed XInput binding tolerates before dropping back to Unbound
// (spec.md §4.5).
const uncorrelateThreshold = 3

// XInputBinding is a Controller's relationship to an XInput slot.
type XInputBinding struct {
	Phase  XInputPhase
	SlotID int // -1 when Unbound

	// lastCorrelationID is the slot's engine-owned correlation_id (spec.md
	// §3/§4.2) observed the last time this Controller matched it while
	// Candidate. A gap bigger than 1 on the next frame means some other
	// Controller's scan also matched the slot in the interim — contested,
	// per spec.md §4.5/§9 — and confirmation restarts.
	lastCorrelationID uint32
	// candidateCount is the number of consecutive uncontested frames this
	// Controller has matched the same slot while Candidate; Confirmed is
	// reached once it hits 2 (spec.md §4.5).
	candidateCount int
	// mismatchStreak counts consecutive non-matching frames while
	// Confirmed, toward the 3-frame un-correlate threshold (spec.md §4.5).
	mismatchStreak int
}

// WGIBinding is a Controller's relationship to a WGI gamepad object.
type WGIBinding struct {
	Phase      WGIPhase
	GamepadID  int
}

// slotMatches reports whether a candidate XInput slot's canonical button
// mask and axis digests are consistent with a Controller's current
// fingerprint (spec.md §4.5 full-state match: all buttons plus all four
// axis digests within 1).
func slotMatches(match MatchState, slot SlotSnapshot) bool {
	// spec.md §4.5: "slot.buttons & ~GUIDE == match.buttons" — Guide is
	// masked out of the comparison because HID can never report it, so a
	// slot with Guide held must still be able to match on everything else.
	const guideMask = uint16(matchBitGuide)
	if match.Buttons()&^guideMask != canonicalizeXInputButtons(slot.Buttons)&^guideMask {
		return false
	}
	digests := [4]uint8{
		axisDigest(slot.LX),
		axisDigest(^slot.LY),
		axisDigest(slot.RX),
		axisDigest(^slot.RY),
	}
	for axis := 0; axis < 4; axis++ {
		if !digestDistanceWithinOne(match.AxisDigest(axis), digests[axis]) {
			return false
		}
	}
	return true
}

// faceButtonsMatch reports whether a WGI reading's face buttons (A,B,X,Y,
// LB,RB,Back,Start — bits 0..7, no stick clicks) are consistent with a
// Controller's fingerprint (spec.md §4.5 WGI binding is face-button-mask
// only, a narrower test than the full XInput slot match).
func faceButtonsMatch(match MatchState, reading WGIReading) bool {
	const faceMask = 0xFF
	return match.FaceButtons() == (canonicalizeXInputButtons(reading.Buttons) & faceMask)
}

// xinputStep advances a Controller's XInput binding by one frame, given its
// current fingerprint and the XInput cache. It returns the new phase.
//
// Grounded on original_source's HIDAPI_DriverXbox360_GuessXInputSlot/the
// per-Update() correlation block (SDL_hidapi_xbox360.c ~215-230, 938-985):
// while not yet Confirmed, every unused connected slot is scanned each
// frame and its correlation_id bumped on every match — negative evidence
// against any other Controller confirming there in the same frame — and a
// Controller only advances its own candidacy when it uniquely matched one
// slot and that slot's correlation_id grew by exactly 1 since the last
// frame this Controller checked it (nobody else's scan touched it meanwhile).
// A slot is reserved (`Used`) only once Confirmed, matching
// HIDAPI_DriverXbox360_MarkXInputSlotUsed being called solely on
// new_correlation_count == 2, not on first candidacy.
func xinputStep(c *Controller, match MatchState, cache *XInputCache) XInputPhase {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.XInput.Phase == XInputConfirmed {
		snap := cache.Slot(c.XInput.SlotID)
		if slotMatches(match, snap) {
			c.XInput.mismatchStreak = 0
			return XInputConfirmed
		}
		c.XInput.mismatchStreak++
		if c.XInput.mismatchStreak >= uncorrelateThreshold {
			cache.MarkUsed(c.XInput.SlotID, false)
			c.XInput.Phase = XInputUnbound
			c.XInput.SlotID = -1
			c.XInput.candidateCount = 0
			c.XInput.mismatchStreak = 0
			return XInputUnbound
		}
		return XInputConfirmed
	}

	// Unbound or Candidate: scan every unused connected slot. spec.md §4.5
	// promotes only when EXACTLY ONE such slot matches this frame — two or
	// more matching slots means the fingerprint is ambiguous (e.g. several
	// pads pressing the same face button with centered sticks) — but every
	// matching slot's correlation_id is bumped regardless of how many
	// matched, per the "negative evidence" rule.
	matched := -1
	ambiguous := false
	var newCID uint32
	for slot := 0; slot < cache.SlotCount(); slot++ {
		snap := cache.Slot(slot)
		if !snap.Connected || snap.Used {
			continue
		}
		if slotMatches(match, snap) {
			cid := cache.BumpCorrelationID(slot)
			if matched != -1 {
				ambiguous = true
			}
			matched = slot
			newCID = cid
		}
	}

	if matched == -1 || ambiguous || !hasEvidence(match) {
		c.XInput.Phase = XInputUnbound
		c.XInput.SlotID = -1
		c.XInput.candidateCount = 0
		return XInputUnbound
	}

	if c.XInput.Phase == XInputCandidate && c.XInput.SlotID == matched && c.XInput.lastCorrelationID+1 == newCID {
		// Same slot, uncontested since the last frame we checked it.
		c.XInput.lastCorrelationID = newCID
		c.XInput.candidateCount++
		if c.XInput.candidateCount >= 2 {
			cache.MarkUsed(matched, true)
			c.XInput.Phase = XInputConfirmed
			return XInputConfirmed
		}
		return XInputCandidate
	}

	// New possible correlation, or the slot was contested (correlation_id
	// gap != 1): (re)start confirmation from scratch.
	c.XInput.Phase = XInputCandidate
	c.XInput.SlotID = matched
	c.XInput.lastCorrelationID = newCID
	c.XInput.candidateCount = 1
	return XInputCandidate
}

// wgiStep advances a Controller's WGI binding. Once Confirmed this is a
// no-op: WGI binding never un-binds while bound (spec.md §4.5).
func wgiStep(c *Controller, match MatchState, registry *WGIRegistry) WGIPhase {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.WGI.Phase == WGIConfirmed {
		return WGIConfirmed
	}
	if !hasEvidence(match) {
		return WGIUnbound
	}
	for _, gp := range registry.Unclaimed() {
		reading, err := gp.Poll()
		if err != nil {
			continue
		}
		if faceButtonsMatch(match, reading) {
			registry.Claim(gp.ID())
			c.WGI.Phase = WGIConfirmed
			c.WGI.GamepadID = gp.ID()
			return WGIConfirmed
		}
	}
	return WGIUnbound
}
