package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeXInputButtons(t *testing.T) {
	native := xinputA | xinputB | xinputLeftShoulder | xinputGuide | xinputDPadUp
	got := canonicalizeXInputButtons(native)

	assert.NotZero(t, got&matchBitA)
	assert.NotZero(t, got&matchBitB)
	assert.NotZero(t, got&matchBitLB)
	assert.NotZero(t, got&matchBitGuide)
	assert.Equal(t, uint16(matchBitA|matchBitB|matchBitLB|matchBitGuide), got, "DPad bits must never appear in the canonical mask")
}

type fixedXInputSource struct {
	slots   []XInputReading
	polls   int
	vibCall []struct{ slot int; left, right uint16 }
}

func (s *fixedXInputSource) SlotCount() int { return len(s.slots) }

func (s *fixedXInputSource) Poll(slot int) (XInputReading, error) {
	s.polls++
	return s.slots[slot], nil
}

func (s *fixedXInputSource) SetVibration(slot int, left, right uint16) error {
	s.vibCall = append(s.vibCall, struct{ slot int; left, right uint16 }{slot, left, right})
	return nil
}

func TestXInputCachePollsOncePerDirtyMark(t *testing.T) {
	src := &fixedXInputSource{slots: []XInputReading{{Connected: true}, {Connected: false}}}
	cache := NewXInputCache(src)

	_ = cache.Slot(0)
	_ = cache.Slot(1)
	assert.Equal(t, 2, src.polls, "first access after construction polls every slot once")

	_ = cache.Slot(0)
	assert.Equal(t, 2, src.polls, "second access in the same frame must not re-poll")

	cache.MarkDirty()
	_ = cache.Slot(0)
	assert.Equal(t, 4, src.polls, "marking dirty schedules exactly one fresh poll round")
}

func TestXInputCacheMarkUsedPersistsAcrossRefresh(t *testing.T) {
	src := &fixedXInputSource{slots: []XInputReading{{Connected: true}}}
	cache := NewXInputCache(src)

	cache.MarkUsed(0, true)
	require.True(t, cache.Slot(0).Used)

	cache.MarkDirty()
	assert.True(t, cache.Slot(0).Used, "a fresh poll must preserve the used flag set before it")
}

func TestXInputCacheSetVibrationForwards(t *testing.T) {
	src := &fixedXInputSource{slots: []XInputReading{{Connected: true}}}
	cache := NewXInputCache(src)

	require.NoError(t, cache.SetVibration(0, 100, 200))
	require.Len(t, src.vibCall, 1)
	assert.Equal(t, uint16(100), src.vibCall[0].left)
	assert.Equal(t, uint16(200), src.vibCall[0].right)
}
