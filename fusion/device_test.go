package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGUIDLayout(t *testing.T) {
	g := EncodeGUID(BusTypeUSB, 0x045E, 0x02EA, 0x0100)
	assert.Equal(t, BusTypeUSB, g[0])
	assert.Equal(t, byte(0x5E), g[2]) // vendorID low byte
	assert.Equal(t, byte(0x04), g[3]) // vendorID high byte
	assert.Equal(t, byte('r'), g[14], "trailing marker byte identifies a raw-input-backed source")
}

func TestRegistryOnArriveRejectsNonXInputPath(t *testing.T) {
	r := NewRegistry()
	dev, ok := r.OnArrive("\\\\?\\hid#vid_1234&pid_5678", 0x1234, 0x5678, 1, nil)
	assert.False(t, ok)
	assert.Nil(t, dev)
}

func TestRegistryOnArriveAcceptsXInputMarkerCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	dev, ok := r.OnArrive("\\\\?\\hid#vid_045e&pid_02ea&ig_00", 0x045E, 0x02EA, 1, nil)
	require.True(t, ok)
	require.NotNil(t, dev)
	assert.Equal(t, 0, dev.InstanceID)
}

func TestRegistryOrderPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	d1, _ := r.OnArrive("ig_00-a", 1, 1, 1, nil)
	d2, _ := r.OnArrive("ig_00-b", 2, 2, 1, nil)
	d3, _ := r.OnArrive("ig_00-c", 3, 3, 1, nil)

	assert.Equal(t, []int{d1.InstanceID, d2.InstanceID, d3.InstanceID}, r.Order())
}

func TestRegistryOnRemoveFreesConfirmedSlot(t *testing.T) {
	r := NewRegistry()
	dev, ok := r.OnArrive("ig_00", 1, 1, 1, nil)
	require.True(t, ok)

	xinput := NewXInputCache(&fixedXInputSource{slots: []XInputReading{{Connected: true}}})
	dev.Controller.XInput = XInputBinding{Phase: XInputConfirmed, SlotID: 0}
	xinput.MarkUsed(0, true)

	removed := r.OnRemove(dev.InstanceID, xinput, nil)
	require.True(t, removed)
	assert.False(t, xinput.Slot(0).Used, "removing a device with a confirmed slot must free it")
	assert.Nil(t, r.Get(dev.InstanceID))
}

func TestRegistryOnRemoveUnknownID(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.OnRemove(999, nil, nil))
}
