package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/padfusion/padfusion/fusion"
	"github.com/padfusion/padfusion/fusion/sdlsource"
	padlog "github.com/padfusion/padfusion/internal/log"
	"github.com/padfusion/padfusion/internal/util"
)

// DemoSDL drives the fusion engine from real, physical gamepads enumerated
// by go-sdl3 (spec.md §9: a demo harness, not a production input path).
type DemoSDL struct {
	PollInterval time.Duration `help:"How often to poll connected gamepads" default:"4ms" env:"PADFUSION_DEMO_POLL_INTERVAL"`
	RawFile      string        `help:"Additionally log raw HID report bytes to this file" env:"PADFUSION_DEMO_RAW_FILE"`
}

// Run is called by Kong when the demo sdl command is executed.
func (d *DemoSDL) Run(logger *slog.Logger) error {
	loader, err := sdlsource.Load()
	if err != nil {
		return err
	}
	defer loader.Close()

	src := sdlsource.NewSource()
	defer src.Close()

	var rawLogger padlog.RawLogger
	if d.RawFile != "" {
		f, err := os.OpenFile(d.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("failed to open raw log file", "file", d.RawFile, "error", err)
			rawLogger = padlog.NewRaw(nil)
		} else {
			defer f.Close()
			rawLogger = padlog.NewRaw(f)
		}
	} else {
		rawLogger = padlog.NewRaw(nil)
	}

	registry := fusion.NewRegistry()
	xinputCache := fusion.NewXInputCache(src)
	wgiRegistry := fusion.NewWGIRegistry(src)
	sink := &loggingSink{logger: logger}
	rumble := fusion.NewRumbleRouter(wgiRegistry, xinputCache, noopHIDSink{})
	engine := fusion.NewEngine(registry, xinputCache, wgiRegistry, rumble, sink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	known := map[int]int{} // SDL gamepad id -> fusion instance id
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	unmatchedTicker := time.NewTicker(5 * time.Second)
	defer unmatchedTicker.Stop()

	logger.Info("starting SDL demo", "poll_interval", d.PollInterval)

	if util.IsRunFromGUI() {
		go func() {
			time.Sleep(250 * time.Millisecond)
			util.HideConsoleWindow()
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-unmatchedTicker.C:
			if n := engine.UnmatchedHIDCount(); n > 0 {
				logger.Warn("devices producing HID input with no confirmed XInput binding", "count", n)
			}
		case <-ticker.C:
			if err := src.Refresh(); err != nil {
				logger.Warn("sdl refresh failed", "error", err)
				continue
			}
			for slot, gp := range src.Gamepads() {
				id, ok := known[gp.ID()]
				if !ok {
					dev, added := engine.AddDevice("\\\\?\\sdl#ig_00", 0x045E, 0x02EA, 1)
					if !added {
						continue
					}
					id = dev.InstanceID
					known[gp.ID()] = id
				}
				report := sdlsource.BuildHIDReport(src.RawGamepad(slot))
				rawLogger.Log(true, report)
				if err := engine.OnHIDReport(id, report); err != nil {
					logger.Warn("report decode failed", "error", err)
				}
			}
			engine.Tick()
		}
	}
}

type noopHIDSink struct{}

func (noopHIDSink) WriteRumble(instanceID int, packet []byte) (int, error) { return len(packet), nil }

type loggingSink struct {
	logger *slog.Logger
}

func (s *loggingSink) EmitButton(controllerID int, button fusion.ButtonID, pressed bool) {
	s.logger.Debug("button", "controller", controllerID, "button", button, "pressed", pressed)
}

func (s *loggingSink) EmitAxis(controllerID int, axis fusion.AxisID, value int16) {
	s.logger.Log(context.Background(), padlog.LevelTrace, "axis", "controller", controllerID, "axis", axis, "value", value)
}

func (s *loggingSink) EmitAdded(instanceID int) {
	s.logger.Info("controller added", "instance", instanceID)
}

func (s *loggingSink) EmitRemoved(instanceID int) {
	s.logger.Info("controller removed", "instance", instanceID)
}
