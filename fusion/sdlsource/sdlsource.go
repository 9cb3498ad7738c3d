// Package sdlsource drives the fusion engine from go-sdl3, the same
// library the teacher's latency benchmark (testing/e2e/bench_test.go) used
// as an independent real-hardware verification path. SDL3's gamepad API
// only exposes one unified view of a controller — there is no separate
// HID/XInput/WGI split on this platform — so this package plays the role
// of a demo stand-in: one SDL gamepad feeds BOTH a synthetic HID report
// (through BuildHIDReport) and a synthetic XInput slot reading (through
// Source.Poll), so a demo session exercises the real correlation pipeline
// end to end against real, physical input, instead of needing two actual
// competing OS input APIs available on the machine running the demo.
package sdlsource

import (
	"fmt"
	"sync"

	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/Zyko0/go-sdl3/sdl"

	"github.com/padfusion/padfusion/fusion"
)

// Loader owns the SDL runtime lifetime (binsdl.Load/Unload, sdl.Init/Quit),
// mirroring the teacher's benchmark setup.
type Loader struct {
	unload func()
}

func Load() (*Loader, error) {
	dll := binsdl.Load()
	if err := sdl.Init(sdl.INIT_GAMEPAD); err != nil {
		dll.Unload()
		return nil, fmt.Errorf("sdl.Init: %w", err)
	}
	return &Loader{unload: dll.Unload}, nil
}

func (l *Loader) Close() {
	sdl.Quit()
	l.unload()
}

// Source enumerates SDL gamepads and serves both the fusion.XInputSource
// and fusion.WGISource interfaces from the same underlying handles (demo
// stand-in — see package doc).
type Source struct {
	mu       sync.Mutex
	gamepads []*sdl.Gamepad
}

func NewSource() *Source {
	return &Source{}
}

// Refresh re-enumerates connected SDL gamepads, opening newly seen ones and
// closing ones that vanished. Call once per frame before Poll/Gamepads.
func (s *Source) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sdl.UpdateGamepads(); err != nil {
		return fmt.Errorf("sdl.UpdateGamepads: %w", err)
	}
	ids, err := sdl.GetGamepads()
	if err != nil {
		return fmt.Errorf("sdl.GetGamepads: %w", err)
	}

	opened := make([]*sdl.Gamepad, 0, len(ids))
	for _, id := range ids {
		var found *sdl.Gamepad
		for _, existing := range s.gamepads {
			if existing.ID() == id {
				found = existing
				break
			}
		}
		if found == nil {
			gp, err := id.OpenGamepad()
			if err != nil {
				continue
			}
			found = gp
		}
		opened = append(opened, found)
	}

	for _, existing := range s.gamepads {
		stillPresent := false
		for _, o := range opened {
			if o == existing {
				stillPresent = true
				break
			}
		}
		if !stillPresent {
			existing.Close()
		}
	}
	s.gamepads = opened
	return nil
}

func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, gp := range s.gamepads {
		gp.Close()
	}
	s.gamepads = nil
}

// SlotCount implements fusion.XInputSource: one slot per currently open
// SDL gamepad.
func (s *Source) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gamepads)
}

// Poll implements fusion.XInputSource, reading axis/button state straight
// off the SDL gamepad.
func (s *Source) Poll(slot int) (fusion.XInputReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.gamepads) {
		return fusion.XInputReading{}, nil
	}
	gp := s.gamepads[slot]
	return fusion.XInputReading{
		Connected:     true,
		Buttons:       sdlButtons(gp),
		LX:            gp.Axis(sdl.GAMEPAD_AXIS_LEFTX),
		LY:            gp.Axis(sdl.GAMEPAD_AXIS_LEFTY),
		RX:            gp.Axis(sdl.GAMEPAD_AXIS_RIGHTX),
		RY:            gp.Axis(sdl.GAMEPAD_AXIS_RIGHTY),
		TriggerL:      gp.Axis(sdl.GAMEPAD_AXIS_LEFT_TRIGGER),
		TriggerR:      gp.Axis(sdl.GAMEPAD_AXIS_RIGHT_TRIGGER),
	}, nil
}

// SetVibration implements fusion.XInputSource.
func (s *Source) SetVibration(slot int, left, right uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.gamepads) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	return s.gamepads[slot].Rumble(left, right, 250)
}

// RawGamepad returns the underlying *sdl.Gamepad for a slot, for callers
// that need BuildHIDReport's synthetic report rather than the
// fusion.WGIGamepad/XInputSource views.
func (s *Source) RawGamepad(slot int) *sdl.Gamepad {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.gamepads) {
		return nil
	}
	return s.gamepads[slot]
}

// Gamepads implements fusion.WGISource over the same open handles.
func (s *Source) Gamepads() []fusion.WGIGamepad {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fusion.WGIGamepad, len(s.gamepads))
	for i, gp := range s.gamepads {
		out[i] = wgiHandle{gp: gp}
	}
	return out
}

type wgiHandle struct {
	gp *sdl.Gamepad
}

func (h wgiHandle) ID() int { return int(h.gp.ID()) }

func (h wgiHandle) Poll() (fusion.WGIReading, error) {
	return fusion.WGIReading{
		Buttons:  sdlButtons(h.gp),
		LX:       h.gp.Axis(sdl.GAMEPAD_AXIS_LEFTX),
		LY:       h.gp.Axis(sdl.GAMEPAD_AXIS_LEFTY),
		RX:       h.gp.Axis(sdl.GAMEPAD_AXIS_RIGHTX),
		RY:       h.gp.Axis(sdl.GAMEPAD_AXIS_RIGHTY),
		TriggerL: h.gp.Axis(sdl.GAMEPAD_AXIS_LEFT_TRIGGER),
		TriggerR: h.gp.Axis(sdl.GAMEPAD_AXIS_RIGHT_TRIGGER),
	}, nil
}

func (h wgiHandle) SetVibration(left, right uint16) error {
	return h.gp.Rumble(left, right, 250)
}

// sdlButtons maps SDL's gamepad button state onto the native XInput bit
// layout that fusion.XInputReading and fusion.WGIReading carry; the fusion
// package canonicalizes it before comparing it to a fingerprint.
func sdlButtons(gp *sdl.Gamepad) uint16 {
	var native uint16
	set := func(pressed bool, bit uint16) {
		if pressed {
			native |= bit
		}
	}
	set(gp.Button(sdl.GAMEPAD_BUTTON_SOUTH), 0x1000)      // A
	set(gp.Button(sdl.GAMEPAD_BUTTON_EAST), 0x2000)       // B
	set(gp.Button(sdl.GAMEPAD_BUTTON_WEST), 0x4000)       // X
	set(gp.Button(sdl.GAMEPAD_BUTTON_NORTH), 0x8000)      // Y
	set(gp.Button(sdl.GAMEPAD_BUTTON_LEFT_SHOULDER), 0x0100)
	set(gp.Button(sdl.GAMEPAD_BUTTON_RIGHT_SHOULDER), 0x0200)
	set(gp.Button(sdl.GAMEPAD_BUTTON_BACK), 0x0020)
	set(gp.Button(sdl.GAMEPAD_BUTTON_START), 0x0010)
	set(gp.Button(sdl.GAMEPAD_BUTTON_LEFT_STICK), 0x0040)
	set(gp.Button(sdl.GAMEPAD_BUTTON_RIGHT_STICK), 0x0080)
	set(gp.Button(sdl.GAMEPAD_BUTTON_GUIDE), 0x0400)
	return native
}

// BuildHIDReport synthesizes a report in the same byte layout
// decodeReportOffsets expects, from an SDL gamepad's live state — the
// "other" input path in the demo's two-API fusion story.
func BuildHIDReport(gp *sdl.Gamepad) []byte {
	report := make([]byte, 12)
	putAxis(report[0:2], gp.Axis(sdl.GAMEPAD_AXIS_LEFTX))
	putAxis(report[2:4], gp.Axis(sdl.GAMEPAD_AXIS_LEFTY))
	putAxis(report[4:6], gp.Axis(sdl.GAMEPAD_AXIS_RIGHTX))
	putAxis(report[6:8], gp.Axis(sdl.GAMEPAD_AXIS_RIGHTY))

	report[9] = mergedTriggerByte(gp.Axis(sdl.GAMEPAD_AXIS_LEFT_TRIGGER), gp.Axis(sdl.GAMEPAD_AXIS_RIGHT_TRIGGER))

	var buttonByte byte
	addBit := func(pressed bool, bit byte) {
		if pressed {
			buttonByte |= bit
		}
	}
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_SOUTH), 0x01)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_EAST), 0x02)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_WEST), 0x04)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_NORTH), 0x08)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_LEFT_SHOULDER), 0x10)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_RIGHT_SHOULDER), 0x20)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_BACK), 0x40)
	addBit(gp.Button(sdl.GAMEPAD_BUTTON_START), 0x80)
	report[10] = buttonByte

	var stickByte byte
	if gp.Button(sdl.GAMEPAD_BUTTON_LEFT_STICK) {
		stickByte |= 0x01
	}
	if gp.Button(sdl.GAMEPAD_BUTTON_RIGHT_STICK) {
		stickByte |= 0x02
	}
	stickByte |= dpadNibble(gp) << 2
	report[11] = stickByte

	return report
}

func putAxis(dst []byte, v int16) {
	raw := uint16(int32(v) + 0x8000)
	dst[0] = byte(raw)
	dst[1] = byte(raw >> 8)
}

func mergedTriggerByte(left, right int16) byte {
	if left > right {
		return byte(0x80 - int32(left)*0x80/0x7FFF)
	}
	return byte(0x80 + int32(right)*0x7F/0x7FFF)
}

func dpadNibble(gp *sdl.Gamepad) byte {
	up := gp.Button(sdl.GAMEPAD_BUTTON_DPAD_UP)
	down := gp.Button(sdl.GAMEPAD_BUTTON_DPAD_DOWN)
	left := gp.Button(sdl.GAMEPAD_BUTTON_DPAD_LEFT)
	right := gp.Button(sdl.GAMEPAD_BUTTON_DPAD_RIGHT)
	switch {
	case up && right:
		return 2
	case down && right:
		return 4
	case down && left:
		return 6
	case up && left:
		return 8
	case up:
		return 1
	case right:
		return 3
	case down:
		return 5
	case left:
		return 7
	default:
		return 0
	}
}
