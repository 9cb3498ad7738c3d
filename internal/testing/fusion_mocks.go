package testing

import (
	"sync"

	"github.com/padfusion/padfusion/fusion"
)

// MockXInputSource is a func-field fixture for fusion.XInputSource: the
// test wires up whichever hooks it needs and leaves the rest nil-safe.
type MockXInputSource struct {
	mu        sync.Mutex
	slots     []fusion.XInputReading
	PollErr   error
	VibrateFn func(slot int, left, right uint16) error
}

func NewMockXInputSource(slotCount int) *MockXInputSource {
	return &MockXInputSource{slots: make([]fusion.XInputReading, slotCount)}
}

func (m *MockXInputSource) SlotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *MockXInputSource) Poll(slot int) (fusion.XInputReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PollErr != nil {
		return fusion.XInputReading{}, m.PollErr
	}
	if slot < 0 || slot >= len(m.slots) {
		return fusion.XInputReading{}, nil
	}
	return m.slots[slot], nil
}

func (m *MockXInputSource) SetVibration(slot int, left, right uint16) error {
	if m.VibrateFn != nil {
		return m.VibrateFn(slot, left, right)
	}
	return nil
}

// SetSlot installs a fixed reading for a slot, as the next frame's poll
// result.
func (m *MockXInputSource) SetSlot(slot int, r fusion.XInputReading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot < 0 || slot >= len(m.slots) {
		return
	}
	m.slots[slot] = r
}

// MockWGIGamepad is a single fixture WGI gamepad object.
type MockWGIGamepad struct {
	GamepadID int
	Reading   fusion.WGIReading
	PollErr   error
	VibrateFn func(left, right uint16) error
}

func (g *MockWGIGamepad) ID() int { return g.GamepadID }

func (g *MockWGIGamepad) Poll() (fusion.WGIReading, error) {
	if g.PollErr != nil {
		return fusion.WGIReading{}, g.PollErr
	}
	return g.Reading, nil
}

func (g *MockWGIGamepad) SetVibration(left, right uint16) error {
	if g.VibrateFn != nil {
		return g.VibrateFn(left, right)
	}
	return nil
}

// MockWGISource is a fixture for fusion.WGISource serving a fixed gamepad list.
type MockWGISource struct {
	mu       sync.Mutex
	gamepads []fusion.WGIGamepad
}

func NewMockWGISource(gamepads ...*MockWGIGamepad) *MockWGISource {
	s := &MockWGISource{}
	for _, g := range gamepads {
		s.gamepads = append(s.gamepads, g)
	}
	return s
}

func (s *MockWGISource) Gamepads() []fusion.WGIGamepad {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fusion.WGIGamepad, len(s.gamepads))
	copy(out, s.gamepads)
	return out
}

// MockHIDRumbleSink records the most recent rumble packet written for each
// instance id; a later write for the same id replaces the earlier one.
type MockHIDRumbleSink struct {
	mu      sync.Mutex
	Written map[int][]byte
	WriteErr error
	ShortWrite bool
}

func NewMockHIDRumbleSink() *MockHIDRumbleSink {
	return &MockHIDRumbleSink{Written: make(map[int][]byte)}
}

func (s *MockHIDRumbleSink) WriteRumble(instanceID int, packet []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	cp := append([]byte(nil), packet...)
	s.Written[instanceID] = cp
	if s.ShortWrite {
		return len(packet) - 1, nil
	}
	return len(packet), nil
}

// RecordedButtonEvent is one EmitButton call captured by MockEventSink.
type RecordedButtonEvent struct {
	ControllerID int
	Button       fusion.ButtonID
	Pressed      bool
}

// RecordedAxisEvent is one EmitAxis call captured by MockEventSink.
type RecordedAxisEvent struct {
	ControllerID int
	Axis         fusion.AxisID
	Value        int16
}

// MockEventSink records every event delivered by the fusion engine, for
// assertions in table-driven tests.
type MockEventSink struct {
	mu      sync.Mutex
	Buttons []RecordedButtonEvent
	Axes    []RecordedAxisEvent
	Added   []int
	Removed []int
}

func NewMockEventSink() *MockEventSink { return &MockEventSink{} }

func (s *MockEventSink) EmitButton(controllerID int, button fusion.ButtonID, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Buttons = append(s.Buttons, RecordedButtonEvent{controllerID, button, pressed})
}

func (s *MockEventSink) EmitAxis(controllerID int, axis fusion.AxisID, value int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Axes = append(s.Axes, RecordedAxisEvent{controllerID, axis, value})
}

func (s *MockEventSink) EmitAdded(instanceID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Added = append(s.Added, instanceID)
}

func (s *MockEventSink) EmitRemoved(instanceID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removed = append(s.Removed, instanceID)
}
