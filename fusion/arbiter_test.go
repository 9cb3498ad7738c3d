package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArbiterPicksMostRecentUnboundCandidate(t *testing.T) {
	a := NewArbiter()

	older := newController(1, FamilyXbox360)
	older.lastPacketAt = time.Now().Add(-time.Second)

	newer := newController(2, FamilyXbox360)
	newer.lastPacketAt = time.Now()

	a.ConsiderCandidate(older)
	a.ConsiderCandidate(newer)

	ev, ok := a.Finalize(true)
	require.True(t, ok)
	assert.Equal(t, 2, ev.InstanceID)
	assert.True(t, ev.Pressed)
}

func TestArbiterIgnoresBoundControllers(t *testing.T) {
	a := NewArbiter()

	bound := newController(1, FamilyXbox360)
	bound.XInput.Phase = XInputConfirmed
	bound.lastPacketAt = time.Now()

	a.ConsiderCandidate(bound)

	_, ok := a.Finalize(true)
	assert.False(t, ok, "a Confirmed controller must never be attributed an unmapped guide press")
}

func TestArbiterEmitsPressOnceThenReleaseOnClear(t *testing.T) {
	a := NewArbiter()
	c := newController(1, FamilyXbox360)
	a.ConsiderCandidate(c)

	ev, ok := a.Finalize(true)
	require.True(t, ok)
	assert.True(t, ev.Pressed)

	// Guide still held next frame, same candidate reconsidered: no repeat
	// press, the frame must report no event at all.
	a.ConsiderCandidate(c)
	_, ok = a.Finalize(true)
	assert.False(t, ok, "a sustained guide press must not re-emit every frame")

	// Guide released: exactly one release event, attributed to the
	// original candidate.
	ev, ok = a.Finalize(false)
	require.True(t, ok)
	assert.False(t, ev.Pressed)
	assert.Equal(t, 1, ev.InstanceID)
}

func TestArbiterNoCandidateNoEvent(t *testing.T) {
	a := NewArbiter()
	_, ok := a.Finalize(true)
	assert.False(t, ok, "no uncorrelated candidate means nothing to attribute the press to")
}
