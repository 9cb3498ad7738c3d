package fusion

import (
	"sync"
	"time"
)

// Arbiter attributes an XInput slot's unmapped Guide-button press to a
// physical controller when no Controller is Confirmed on that slot (a slot
// with only a Candidate is still unmapped) (spec.md §4.5): a process-wide singleton, since the guide
// button is the one signal XInput exposes with no accompanying slot
// identity a Controller can correlate against on its own.
type Arbiter struct {
	mu sync.Mutex

	// joystick/joystickAt track this frame's best candidate: the
	// uncorrelated Controller with the most recent HID packet, reset every
	// frame by Finalize (spec.md §4.5 step 3).
	joystick      int
	joystickAt    time.Time
	haveJoystick bool

	// lastJoystick is the Controller currently owning an in-progress guide
	// press, persisted across frames until the slot releases (spec.md §3
	// GuideArbiterState.last_joystick, §4.5 steps 1-2). -1 when none.
	lastJoystick int
}

func NewArbiter() *Arbiter {
	return &Arbiter{joystick: -1, lastJoystick: -1}
}

// ConsiderCandidate registers an uncorrelated Controller as eligible to
// receive an unmapped guide press this frame, if its last HID packet is
// more recent than any previously considered candidate's this frame.
func (a *Arbiter) ConsiderCandidate(c *Controller) {
	c.mu.Lock()
	phase := c.XInput.Phase
	lastPacket := c.lastPacketAt
	id := c.id
	c.mu.Unlock()

	if phase != XInputUnbound {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.haveJoystick || lastPacket.After(a.joystickAt) {
		a.joystick = id
		a.joystickAt = lastPacket
		a.haveJoystick = true
	}
}

// GuideEvent describes an arbiter-attributed guide transition for this
// frame: which Controller, and whether it's a press or a release.
type GuideEvent struct {
	InstanceID int
	Pressed    bool
}

// Finalize implements spec.md §4.5's end-of-frame arbiter steps 1-4 given
// whether any unmapped, connected XInput slot currently reports Guide held.
// It returns at most one GuideEvent: a press the frame the guide is first
// attributed to a candidate, a release the frame it stops being seen (never
// a press re-emitted every frame the button stays held).
func (a *Arbiter) Finalize(unmappedGuideHeld bool) (GuideEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ev GuideEvent
	var ok bool

	if unmappedGuideHeld {
		if a.lastJoystick == -1 && a.haveJoystick {
			a.lastJoystick = a.joystick
			ev = GuideEvent{InstanceID: a.joystick, Pressed: true}
			ok = true
		}
	} else if a.lastJoystick != -1 {
		ev = GuideEvent{InstanceID: a.lastJoystick, Pressed: false}
		ok = true
		a.lastJoystick = -1
	}

	a.joystick = -1
	a.joystickAt = time.Time{}
	a.haveJoystick = false

	return ev, ok
}

// ForgetController clears any in-progress guide-press attribution to a
// Controller that just reached XInput-Confirmed (spec.md §4.5: "on
// Confirmed: ... clear Arbiter references to this Controller" — a
// Controller that now has its own slot is no longer a plausible owner of
// someone else's unmapped guide press).
func (a *Arbiter) ForgetController(instanceID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastJoystick == instanceID {
		a.lastJoystick = -1
	}
}
