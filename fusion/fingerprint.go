package fusion

// MatchState is the compact cross-API fingerprint described in spec.md §3/§4.4:
// an 11-bit button mask in the low bits (A,B,X,Y,LB,RB,Back,Start,LStick,
// RStick, with bit 10 reserved for Guide — HID can never set it) plus four
// 4-bit axis digests packed at bits 16..31 (LX,LY,RX,RY in that order).
type MatchState uint32

const (
	matchBitA = 1 << iota
	matchBitB
	matchBitX
	matchBitY
	matchBitLB
	matchBitRB
	matchBitBack
	matchBitStart
	matchBitLStick
	matchBitRStick
	matchBitGuide
)

const matchButtonMask uint32 = 0x7FF // 11 bits

const (
	axisShiftLX = 16
	axisShiftLY = 20
	axisShiftRX = 24
	axisShiftRY = 28
)

// Buttons returns the 11-bit button mask (bit 10 = Guide).
func (m MatchState) Buttons() uint16 { return uint16(uint32(m) & matchButtonMask) }

// FaceButtons returns just the 8 face/shoulder buttons (A,B,X,Y,LB,RB,Back,
// Start) used by the WGI correlation step, which matches on face buttons
// only (spec.md §4.5).
func (m MatchState) FaceButtons() uint16 {
	return m.Buttons() & 0xFF
}

// AxisDigest returns the 4-bit digest for one of the four stick axes (0=LX,
// 1=LY, 2=RX, 3=RY).
func (m MatchState) AxisDigest(axis int) uint8 {
	shift := uint(axisShiftLX + 4*axis)
	return uint8((uint32(m) >> shift) & 0xF)
}

// axisDigest extracts the high 4 bits of a signed 16-bit axis value. Y axes
// must be bit-inverted by the caller before calling this (spec.md §4.4).
// The axis has already been un-biased from the wire's 0x8000-centered raw
// encoding (spec.md §4.1's biasedAxis) by the time it reaches here, so the
// bias is added back before taking the high nibble: a centered stick
// (v == 0) must digest to 0x8, the raw wire center, not 0 — that's the
// value isNeutralDigest and the rest of §4.4's digest arithmetic assume.
func axisDigest(v int16) uint8 {
	return uint8(((uint16(v) + 0x8000) & 0xF000) >> 12)
}

// isNeutralDigest reports whether a digest nibble represents a centered
// stick (spec.md §4.4: 0x7 or 0x8).
func isNeutralDigest(d uint8) bool { return d == 0x7 || d == 0x8 }

// digestDistanceWithinOne implements the modular "|digest distance| <= 1"
// test spec.md §9 calls out as the intent behind the original C macro's
// wraparound arithmetic: ordinary distance, or wraparound across the 0/15
// boundary, both count as distance 1.
func digestDistanceWithinOne(a, b uint8) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	if d <= 1 {
		return true
	}
	return d >= 15 // wraps e.g. 0 vs 15
}

// buildMatchState computes the canonical fingerprint from a decoded HID
// snapshot (the Fingerprint Builder of spec.md §4.4).
func buildMatchState(s ControllerSnapshot) MatchState {
	var m uint32
	m = uint32(s.Buttons) & matchButtonMask // already in canonical bit layout, bit10 unset (HID has no guide)

	m |= uint32(axisDigest(s.LX)) << axisShiftLX
	m |= uint32(axisDigest(^s.LY)) << axisShiftLY
	m |= uint32(axisDigest(s.RX)) << axisShiftRX
	m |= uint32(axisDigest(^s.RY)) << axisShiftRY

	return MatchState(m)
}

// hasEvidence reports whether a MatchState carries any positive signal: a
// button bit set, or a stick axis away from center (spec.md §4.5).
func hasEvidence(m MatchState) bool {
	if m.Buttons() != 0 {
		return true
	}
	for axis := 0; axis < 4; axis++ {
		if !isNeutralDigest(m.AxisDigest(axis)) {
			return true
		}
	}
	return false
}
