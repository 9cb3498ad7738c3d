package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/padfusion/padfusion/fusion"
)

// replayFrame is one tick of a recorded fixture: the raw HID report for a
// device (hex-encoded) plus the XInput slot reading the recording session
// observed at the same instant.
type replayFrame struct {
	HIDReportHex  string `json:"hid_report_hex" yaml:"hid_report_hex" toml:"hid_report_hex"`
	XInputSlot    int    `json:"xinput_slot" yaml:"xinput_slot" toml:"xinput_slot"`
	XInputButtons uint16 `json:"xinput_buttons" yaml:"xinput_buttons" toml:"xinput_buttons"`
}

type replayFixture struct {
	Frames []replayFrame `json:"frames" yaml:"frames" toml:"frames"`
}

// DemoReplay drives the fusion engine from a recorded fixture file instead
// of live hardware, for reproducing a correlation scenario without a
// physical controller attached.
type DemoReplay struct {
	File         string        `arg:"" help:"Path to a .json/.yaml/.toml fixture file"`
	FrameDelay   time.Duration `help:"Delay between frames" default:"16ms"`
}

// Run is called by Kong when the demo replay command is executed.
func (d *DemoReplay) Run(logger *slog.Logger) error {
	fixture, err := loadReplayFixture(d.File)
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	src := &replaySource{}
	registry := fusion.NewRegistry()
	xinputCache := fusion.NewXInputCache(src)
	wgiRegistry := fusion.NewWGIRegistry(&replayWGISource{})
	sink := &loggingSink{logger: logger}
	rumble := fusion.NewRumbleRouter(wgiRegistry, xinputCache, noopHIDSink{})
	engine := fusion.NewEngine(registry, xinputCache, wgiRegistry, rumble, sink)

	dev, _ := engine.AddDevice("\\\\?\\replay#ig_00", 0x045E, 0x02EA, 1)

	for i, frame := range fixture.Frames {
		report, err := hexDecode(frame.HIDReportHex)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		src.set(frame.XInputSlot, fusion.XInputReading{
			Connected: true,
			Buttons:   frame.XInputButtons,
		})
		if err := engine.OnHIDReport(dev.InstanceID, report); err != nil {
			logger.Warn("frame decode failed", "frame", i, "error", err)
		}
		engine.Tick()
		time.Sleep(d.FrameDelay)
	}
	logger.Info("replay finished", "frames", len(fixture.Frames))
	return nil
}

func loadReplayFixture(path string) (*replayFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fixture replayFixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fixture)
	case ".toml":
		err = toml.Unmarshal(data, &fixture)
	default:
		err = json.Unmarshal(data, &fixture)
	}
	if err != nil {
		return nil, err
	}
	return &fixture, nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := hexDigit(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

// replaySource implements fusion.XInputSource from fixture-driven frames.
type replaySource struct {
	slots [4]fusion.XInputReading
}

func (s *replaySource) SlotCount() int { return len(s.slots) }

func (s *replaySource) Poll(slot int) (fusion.XInputReading, error) {
	if slot < 0 || slot >= len(s.slots) {
		return fusion.XInputReading{}, nil
	}
	return s.slots[slot], nil
}

func (s *replaySource) SetVibration(slot int, left, right uint16) error { return nil }

func (s *replaySource) set(slot int, r fusion.XInputReading) {
	if slot < 0 || slot >= len(s.slots) {
		return
	}
	s.slots[slot] = r
}

// replayWGISource never produces a WGI gamepad: replay fixtures only
// record the HID + XInput paths, matching what a capture session can
// actually observe without a second competing OS API surface.
type replayWGISource struct{}

func (replayWGISource) Gamepads() []fusion.WGIGamepad { return nil }
