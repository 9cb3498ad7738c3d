package fusion

import "time"

// Engine is the top-level fusion orchestrator (spec.md §5): it owns the
// Registry, XInputCache, WGIRegistry, RumbleRouter, and Arbiter, and drives
// one full per-frame pass over every Controller.
type Engine struct {
	Registry *Registry
	XInput   *XInputCache
	WGI      *WGIRegistry
	Rumble   *RumbleRouter
	arbiter  *Arbiter
	sink     EventSink
}

func NewEngine(registry *Registry, xinput *XInputCache, wgi *WGIRegistry, rumble *RumbleRouter, sink EventSink) *Engine {
	return &Engine{
		Registry: registry,
		XInput:   xinput,
		WGI:      wgi,
		Rumble:   rumble,
		arbiter:  NewArbiter(),
		sink:     sink,
	}
}

// OnHIDReport ingests one raw report from a Device, decodes it, applies
// the peer-correlation trigger override (spec.md §4.1), diffs it against
// the Controller's previous snapshot, and emits events for every change.
func (e *Engine) OnHIDReport(instanceID int, report []byte) *Error {
	dev := e.Registry.Get(instanceID)
	if dev == nil {
		return newErr(UnknownReport, "instance %d not registered", instanceID)
	}

	decode := decoderFor(dev.Controller.family)
	snap, err := decode(report)
	if err != nil {
		return err
	}

	c := dev.Controller
	c.mu.Lock()
	c.rawReport = append(c.rawReport[:0], report...)
	e.enrichFromPeer(c, &snap)

	prev := c.snapshot
	hadPrev := c.haveSnapshot
	c.snapshot = snap
	c.haveSnapshot = true
	c.match = buildMatchState(snap)
	c.lastPacketAt = time.Now()
	c.mu.Unlock()

	e.emitDiff(instanceID, prev, snap, hadPrev)
	return nil
}

// enrichFromPeer fills the trigger and guide fields a HID report alone
// cannot supply, from whichever correlated peer currently offers them
// (spec.md §4.1, §4.5 ordering: "Decoder prefers WGI for trigger/guide
// values" when both XInput and WGI are correlated). Caller must hold c.mu.
func (e *Engine) enrichFromPeer(c *Controller, snap *ControllerSnapshot) {
	if c.WGI.Phase == WGIConfirmed {
		if gp := e.WGI.ByID(c.WGI.GamepadID); gp != nil {
			if reading, err := gp.Poll(); err == nil {
				snap.TriggerL = reading.TriggerL
				snap.TriggerR = reading.TriggerR
				snap.Guide = canonicalizeXInputButtons(reading.Buttons)&matchBitGuide != 0
				return
			}
		}
	}
	if c.XInput.Phase == XInputConfirmed {
		slot := e.XInput.Slot(c.XInput.SlotID)
		snap.TriggerL = slot.TriggerL
		snap.TriggerR = slot.TriggerR
		snap.Guide = slot.Buttons&xinputGuide != 0
		return
	}
	snap.TriggerL, snap.TriggerR = decomposeMergedTrigger(snap.MergedTriggerByte)
	snap.Guide = false
}

// reapplyLastReport re-decodes a Controller's most recent raw HID report
// and re-emits any changed trigger/guide events under the Controller's
// current peer-binding state (spec.md §4.5: "immediately re-run Decoder on
// last_report" after a phase transition, so a newly confirmed peer's
// trigger/guide values surface in the same frame they became available,
// and a lost peer's values fall back to merged-HID semantics immediately).
func (e *Engine) reapplyLastReport(instanceID int, c *Controller) {
	c.mu.Lock()
	raw := c.rawReport
	if len(raw) == 0 {
		c.mu.Unlock()
		return
	}
	decode := decoderFor(c.family)
	snap, derr := decode(raw)
	if derr != nil {
		c.mu.Unlock()
		return
	}
	e.enrichFromPeer(c, &snap)

	prev := c.snapshot
	hadPrev := c.haveSnapshot
	c.snapshot = snap
	c.haveSnapshot = true
	c.match = buildMatchState(snap)
	c.mu.Unlock()

	e.emitDiff(instanceID, prev, snap, hadPrev)
}

func (e *Engine) emitDiff(instanceID int, prev, cur ControllerSnapshot, hadPrev bool) {
	if e.sink == nil {
		return
	}

	type buttonCheck struct {
		id ButtonID
		has func(s ControllerSnapshot) bool
	}
	checks := []buttonCheck{
		{ButtonA, func(s ControllerSnapshot) bool { return s.Buttons&matchBitA != 0 }},
		{ButtonB, func(s ControllerSnapshot) bool { return s.Buttons&matchBitB != 0 }},
		{ButtonX, func(s ControllerSnapshot) bool { return s.Buttons&matchBitX != 0 }},
		{ButtonY, func(s ControllerSnapshot) bool { return s.Buttons&matchBitY != 0 }},
		{ButtonLB, func(s ControllerSnapshot) bool { return s.Buttons&matchBitLB != 0 }},
		{ButtonRB, func(s ControllerSnapshot) bool { return s.Buttons&matchBitRB != 0 }},
		{ButtonBack, func(s ControllerSnapshot) bool { return s.Buttons&matchBitBack != 0 }},
		{ButtonStart, func(s ControllerSnapshot) bool { return s.Buttons&matchBitStart != 0 }},
		{ButtonLStick, func(s ControllerSnapshot) bool { return s.Buttons&matchBitLStick != 0 }},
		{ButtonRStick, func(s ControllerSnapshot) bool { return s.Buttons&matchBitRStick != 0 }},
		{ButtonDPadUp, func(s ControllerSnapshot) bool { return dpadPressed(s.DPad, ButtonDPadUp) }},
		{ButtonDPadDown, func(s ControllerSnapshot) bool { return dpadPressed(s.DPad, ButtonDPadDown) }},
		{ButtonDPadLeft, func(s ControllerSnapshot) bool { return dpadPressed(s.DPad, ButtonDPadLeft) }},
		{ButtonDPadRight, func(s ControllerSnapshot) bool { return dpadPressed(s.DPad, ButtonDPadRight) }},
		{ButtonGuide, func(s ControllerSnapshot) bool { return s.Guide }},
	}

	for _, ch := range checks {
		now := ch.has(cur)
		was := hadPrev && ch.has(prev)
		if now != was {
			e.sink.EmitButton(instanceID, ch.id, now)
		}
	}

	type axisCheck struct {
		id  AxisID
		get func(s ControllerSnapshot) int16
	}
	axes := []axisCheck{
		{AxisLX, func(s ControllerSnapshot) int16 { return s.LX }},
		{AxisLY, func(s ControllerSnapshot) int16 { return s.LY }},
		{AxisRX, func(s ControllerSnapshot) int16 { return s.RX }},
		{AxisRY, func(s ControllerSnapshot) int16 { return s.RY }},
		{AxisTriggerLeft, func(s ControllerSnapshot) int16 { return s.TriggerL }},
		{AxisTriggerRight, func(s ControllerSnapshot) int16 { return s.TriggerR }},
	}
	for _, ax := range axes {
		v := ax.get(cur)
		if !hadPrev || ax.get(prev) != v {
			e.sink.EmitAxis(instanceID, ax.id, v)
		}
	}
}

// Tick advances correlation for every Controller by one frame (spec.md
// §4.5): XInput binding, WGI binding, and guide-button arbitration, in
// registry insertion order. Callers must call Tick exactly once per frame,
// after delivering that frame's HID reports and before reading bindings.
func (e *Engine) Tick() {
	e.XInput.MarkDirty()

	ids := e.Registry.Order()
	for _, id := range ids {
		dev := e.Registry.Get(id)
		if dev == nil {
			continue
		}
		c := dev.Controller
		match := c.Match()

		c.mu.Lock()
		prevXInputPhase := c.XInput.Phase
		prevWGIPhase := c.WGI.Phase
		c.mu.Unlock()

		newXInputPhase := xinputStep(c, match, e.XInput)
		newWGIPhase := wgiStep(c, match, e.WGI)
		e.arbiter.ConsiderCandidate(c)

		// A phase transition on either peer changes what trigger/guide
		// values are available; re-run the decoder on the last raw report
		// so the change surfaces in this same frame (spec.md §4.5). This
		// also covers the un-correlate case's synthetic guide-release:
		// enrichFromPeer's no-peer fallback always forces Guide false, so
		// re-applying after a Confirmed->Unbound drop emits the release
		// without any special-casing (unless a WGI peer is still bound,
		// in which case Guide legitimately keeps coming from WGI instead).
		if newXInputPhase != prevXInputPhase || newWGIPhase != prevWGIPhase {
			if newXInputPhase == XInputConfirmed && prevXInputPhase != XInputConfirmed {
				e.arbiter.ForgetController(id)
			}
			e.reapplyLastReport(id, c)
		}
	}

	unmappedGuideHeld := false
	for slot := 0; slot < e.XInput.SlotCount(); slot++ {
		snap := e.XInput.Slot(slot)
		if snap.Connected && !snap.Used && snap.Buttons&xinputGuide != 0 {
			unmappedGuideHeld = true
			break
		}
	}
	if ev, ok := e.arbiter.Finalize(unmappedGuideHeld); ok && e.sink != nil {
		e.sink.EmitButton(ev.InstanceID, ButtonGuide, ev.Pressed)
	}

	e.checkRumbleExpiries()
}

// AddDevice registers a newly arrived HID device.
func (e *Engine) AddDevice(path string, vendorID, productID, version uint16) (*Device, bool) {
	return e.Registry.OnArrive(path, vendorID, productID, version, e.sink)
}

// RemoveDevice unregisters a departed HID device.
func (e *Engine) RemoveDevice(instanceID int) bool {
	return e.Registry.OnRemove(instanceID, e.XInput, e.sink)
}

// Vibrate drives rumble for a registered Controller through the fallback
// cascade, with no automatic expiry: the caller is responsible for issuing
// a zero-vibration command itself when the effect should stop.
func (e *Engine) Vibrate(instanceID int, left, right uint16) *Error {
	dev := e.Registry.Get(instanceID)
	if dev == nil {
		return newErr(UnknownReport, "instance %d not registered", instanceID)
	}
	if err := e.Rumble.Rumble(dev.Controller, instanceID, left, right); err != nil {
		return err
	}
	e.setRumbleExpiry(dev.Controller, left, right, 0)
	return nil
}

// VibrateFor is Vibrate plus spec.md §4.6's duration/expiry handling: a
// nonzero magnitude and duration schedules an automatic zero-magnitude
// re-issue once the deadline passes, checked once per Tick.
func (e *Engine) VibrateFor(instanceID int, left, right uint16, duration time.Duration) *Error {
	dev := e.Registry.Get(instanceID)
	if dev == nil {
		return newErr(UnknownReport, "instance %d not registered", instanceID)
	}
	if err := e.Rumble.Rumble(dev.Controller, instanceID, left, right); err != nil {
		return err
	}
	e.setRumbleExpiry(dev.Controller, left, right, duration)
	return nil
}

// setRumbleExpiry implements spec.md §4.6's expiry rule: zero magnitude or
// zero duration clears the deadline; otherwise it's set to now+duration.
func (e *Engine) setRumbleExpiry(c *Controller, left, right uint16, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if (left == 0 && right == 0) || duration == 0 {
		c.hasRumbleExpiry = false
		return
	}
	c.rumbleExpiry = time.Now().Add(duration)
	c.hasRumbleExpiry = true
}

// checkRumbleExpiries re-issues a zero-magnitude rumble for every
// Controller whose deadline has passed (spec.md §4.6: "on every frame, if
// now >= expiry, re-issue a zero-magnitude rumble"), checked once per Tick.
func (e *Engine) checkRumbleExpiries() {
	for _, id := range e.Registry.Order() {
		dev := e.Registry.Get(id)
		if dev == nil {
			continue
		}
		c := dev.Controller
		c.mu.Lock()
		expired := c.hasRumbleExpiry && !time.Now().Before(c.rumbleExpiry)
		if expired {
			c.hasRumbleExpiry = false
		}
		c.mu.Unlock()
		if expired {
			e.Rumble.Rumble(c, id, 0, 0)
		}
	}
}

// UnmatchedHIDCount reports how many registered HID devices do not
// currently have a Confirmed XInput binding (Unbound or Candidate),
// whether or not they have delivered a report yet; a device that was
// Confirmed and later dropped back counts again — a diagnostic counter grounded on the
// original implementation's HIDAPI_DriverXbox360_MissingXInputSlot
// telemetry, surfaced here so a host UI can warn the user that a
// controller is producing input but isn't being recognized by XInput.
func (e *Engine) UnmatchedHIDCount() int {
	count := 0
	for _, id := range e.Registry.Order() {
		dev := e.Registry.Get(id)
		if dev == nil {
			continue
		}
		dev.Controller.mu.Lock()
		bound := dev.Controller.XInput.Phase == XInputConfirmed
		dev.Controller.mu.Unlock()
		if !bound {
			count++
		}
	}
	return count
}
