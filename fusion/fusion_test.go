package fusion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ft "github.com/padfusion/padfusion/internal/testing"
	"github.com/padfusion/padfusion/fusion"
)

func buttonReport(buttonByte, stickByte byte) []byte {
	return []byte{0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, buttonByte, stickByte}
}

func newEngine(slotCount int) (*fusion.Engine, *ft.MockXInputSource, *ft.MockWGISource, *ft.MockHIDRumbleSink, *ft.MockEventSink) {
	xinputSrc := ft.NewMockXInputSource(slotCount)
	wgiSrc := ft.NewMockWGISource()
	hidSink := ft.NewMockHIDRumbleSink()
	sink := ft.NewMockEventSink()

	registry := fusion.NewRegistry()
	cache := fusion.NewXInputCache(xinputSrc)
	wgi := fusion.NewWGIRegistry(wgiSrc)
	rumble := fusion.NewRumbleRouter(wgi, cache, hidSink)

	engine := fusion.NewEngine(registry, cache, wgi, rumble, sink)
	return engine, xinputSrc, wgiSrc, hidSink, sink
}

// S1: a clean single-controller bind — XInput slot 0 reports the same
// buttons/axes the HID stream does. One Tick claims the slot as Candidate,
// the next Tick confirms it.
func TestScenarioCleanBind(t *testing.T) {
	engine, xinputSrc, _, _, _ := newEngine(4)

	dev, ok := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.True(t, ok)

	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00))) // A pressed

	xinputSrc.SetSlot(0, fusion.XInputReading{
		Connected: true,
		Buttons:   0x1000, // XInput A
	})

	engine.Tick()
	assert.Equal(t, fusion.XInputCandidate, dev.Controller.XInput.Phase)

	engine.Tick()
	assert.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)
	assert.Equal(t, 0, dev.Controller.XInput.SlotID)
}

// S2: two controllers produce the same fingerprint simultaneously and
// contend for the same single XInput slot. spec.md §9 documents the
// intended outcome: each Controller's own scan bumps the slot's
// correlation_id as negative evidence, so the other Controller's
// concurrent scan in the same frame always breaks the other's "+1" gap
// check. Neither Controller may ever confirm, and the slot's `used` flag
// is never set.
func TestScenarioContestedCandidate(t *testing.T) {
	engine, xinputSrc, _, _, _ := newEngine(1)

	devA, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00#a`, 0x045E, 0x02EA, 1)
	devB, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00#b`, 0x045E, 0x02EA, 1)

	require.Nil(t, engine.OnHIDReport(devA.InstanceID, buttonReport(0x01, 0x00)))
	require.Nil(t, engine.OnHIDReport(devB.InstanceID, buttonReport(0x01, 0x00)))

	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000})

	for i := 0; i < 5; i++ {
		engine.Tick()
	}

	assert.NotEqual(t, fusion.XInputConfirmed, devA.Controller.XInput.Phase, "a contested slot must never let a Controller confirm")
	assert.NotEqual(t, fusion.XInputConfirmed, devB.Controller.XInput.Phase, "a contested slot must never let a Controller confirm")
	assert.False(t, engine.XInput.Slot(0).Used, "an unconfirmed slot must never be marked used")
}

// S3: a confirmed binding survives brief one-frame mismatches but drops
// back to Unbound once the mismatch streak crosses the threshold.
func TestScenarioUncorrelateOnDivergence(t *testing.T) {
	engine, xinputSrc, _, _, _ := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000})
	engine.Tick()
	engine.Tick()
	require.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)

	// Diverge for fewer than the threshold: still bound.
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x2000})
	engine.Tick()
	engine.Tick()
	assert.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)

	// One more divergent frame crosses the threshold.
	engine.Tick()
	assert.Equal(t, fusion.XInputUnbound, dev.Controller.XInput.Phase)
}

// S4: an uncorrelated controller is the most-recently-active one when an
// XInput slot reports an unmapped guide press; the arbiter attributes it.
func TestScenarioUnmappedGuideAttribution(t *testing.T) {
	engine, xinputSrc, _, _, sink := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))

	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x0400}) // guide only, no face match

	engine.Tick()

	require.Len(t, sink.Buttons, 2) // A pressed from HID report, then Guide from arbiter
	last := sink.Buttons[len(sink.Buttons)-1]
	assert.Equal(t, dev.InstanceID, last.ControllerID)
	assert.Equal(t, fusion.ButtonGuide, last.Button)
	assert.True(t, last.Pressed)
}

// S5: rumble cascades WGI -> XInput -> HID, with XInput terminal on
// failure once a slot is confirmed.
func TestScenarioRumbleFallbackCascade(t *testing.T) {
	engine, xinputSrc, _, hidSink, _ := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)

	// No XInput, no WGI binding yet: rumble must reach HID.
	err := engine.Vibrate(dev.InstanceID, 0x8000, 0x4000)
	require.Nil(t, err)

	packet := hidSink.Written[dev.InstanceID]
	require.Len(t, packet, 8)
	assert.Equal(t, byte(0x80), packet[3])
	assert.Equal(t, byte(0x40), packet[4])

	// Now confirm an XInput slot and make its vibration call fail: rumble
	// must NOT fall through to HID (XInput is terminal once confirmed).
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000})
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))
	engine.Tick()
	engine.Tick()
	require.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)

	xinputSrc.VibrateFn = func(slot int, left, right uint16) error {
		return assert.AnError
	}
	before := hidSink.Written[dev.InstanceID]
	err = engine.Vibrate(dev.InstanceID, 0x1000, 0x1000)
	assert.NotNil(t, err)
	assert.Equal(t, before, hidSink.Written[dev.InstanceID], "HID must not be used once XInput is confirmed, even on failure")
}

// S6: removing a device with a confirmed XInput binding frees the slot.
func TestScenarioDeviceLifecycleFreesSlot(t *testing.T) {
	engine, xinputSrc, _, _, sink := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000})
	engine.Tick()
	engine.Tick()
	require.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)

	assert.True(t, engine.RemoveDevice(dev.InstanceID))
	assert.Contains(t, sink.Removed, dev.InstanceID)

	snap := engine.XInput.Slot(0)
	assert.False(t, snap.Used)
}

// Two unused slots both matching a single Controller's fingerprint is
// ambiguous (spec.md §4.5): neither may promote to Candidate, unlike the
// single-matching-slot case of S1.
func TestAmbiguousFingerprintBlocksPromotion(t *testing.T) {
	engine, xinputSrc, _, _, _ := newEngine(2)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))

	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000})
	xinputSrc.SetSlot(1, fusion.XInputReading{Connected: true, Buttons: 0x1000})

	engine.Tick()
	assert.Equal(t, fusion.XInputUnbound, dev.Controller.XInput.Phase, "two equally-matching slots must not promote either")

	// Once one slot stops matching, the remaining single match may proceed.
	xinputSrc.SetSlot(1, fusion.XInputReading{Connected: true, Buttons: 0x2000})
	engine.Tick()
	assert.Equal(t, fusion.XInputCandidate, dev.Controller.XInput.Phase)
	assert.Equal(t, 0, dev.Controller.XInput.SlotID)
}

// A confirmed XInput peer's guide state enriches the Controller's snapshot
// the same frame it confirms, and reverts to released the same frame the
// binding is lost (spec.md §4.5's "re-run Decoder on last_report").
func TestConfirmedPeerEnrichesGuideSameFrame(t *testing.T) {
	engine, xinputSrc, _, _, sink := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)
	require.Nil(t, engine.OnHIDReport(dev.InstanceID, buttonReport(0x01, 0x00)))
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x1000 | 0x0400}) // A + Guide
	engine.Tick()
	sink.Buttons = nil
	engine.Tick()
	require.Equal(t, fusion.XInputConfirmed, dev.Controller.XInput.Phase)

	foundGuidePress := false
	for _, ev := range sink.Buttons {
		if ev.ControllerID == dev.InstanceID && ev.Button == fusion.ButtonGuide && ev.Pressed {
			foundGuidePress = true
		}
	}
	assert.True(t, foundGuidePress, "confirming against a slot with guide held must emit guide-press in the same frame")

	// Diverge until the binding is dropped: guide must revert to released.
	xinputSrc.SetSlot(0, fusion.XInputReading{Connected: true, Buttons: 0x2000})
	sink.Buttons = nil
	engine.Tick()
	engine.Tick()
	engine.Tick()
	require.Equal(t, fusion.XInputUnbound, dev.Controller.XInput.Phase)

	foundGuideRelease := false
	for _, ev := range sink.Buttons {
		if ev.ControllerID == dev.InstanceID && ev.Button == fusion.ButtonGuide && !ev.Pressed {
			foundGuideRelease = true
		}
	}
	assert.True(t, foundGuideRelease, "un-correlating must emit a synthetic guide-release")
}

// A rumble command with a nonzero duration automatically re-issues a
// zero-magnitude command once its deadline passes (spec.md §4.6 S5).
func TestRumbleExpiryReissuesZeroMagnitude(t *testing.T) {
	engine, _, _, hidSink, _ := newEngine(1)

	dev, _ := engine.AddDevice(`\\?\hid#vid_045e&pid_02ea&ig_00`, 0x045E, 0x02EA, 1)

	require.Nil(t, engine.VibrateFor(dev.InstanceID, 0x8000, 0x4000, time.Millisecond))
	require.Len(t, hidSink.Written[dev.InstanceID], 8)
	assert.NotEqual(t, byte(0), hidSink.Written[dev.InstanceID][3])

	time.Sleep(2 * time.Millisecond)
	engine.Tick()

	assert.Equal(t, byte(0), hidSink.Written[dev.InstanceID][3], "expiry must re-issue a zero-magnitude rumble")
	assert.Equal(t, byte(0), hidSink.Written[dev.InstanceID][4])
}
