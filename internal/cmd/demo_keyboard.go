package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/padfusion/padfusion/fusion"
)

// DemoKeyboard drives one simulated controller from raw terminal keystrokes,
// for exercising the fusion engine's button/axis diffing without any
// controller hardware at all. It never reaches Confirmed on either the
// XInput or WGI path, since there is nothing to correlate a keyboard
// against — this demo only exercises the HID decode and diff-and-emit
// side of the engine.
type DemoKeyboard struct {
	TickInterval time.Duration `help:"How often to poll the keyboard" default:"16ms"`
}

var keyboardBindings = map[byte]byte{
	'j': 0x01, // A
	'k': 0x02, // B
	'u': 0x04, // X
	'i': 0x08, // Y
	'q': 0x10, // LB
	'e': 0x20, // RB
	'b': 0x40, // Back
	'n': 0x80, // Start
}

// Run is called by Kong when the demo keyboard command is executed.
func (d *DemoKeyboard) Run(logger *slog.Logger) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	registry := fusion.NewRegistry()
	xinputCache := fusion.NewXInputCache(emptyXInputSource{})
	wgiRegistry := fusion.NewWGIRegistry(emptyWGISource{})
	sink := &loggingSink{logger: logger}
	rumble := fusion.NewRumbleRouter(wgiRegistry, xinputCache, noopHIDSink{})
	engine := fusion.NewEngine(registry, xinputCache, wgiRegistry, rumble, sink)

	dev, _ := engine.AddDevice("\\\\?\\keyboard#ig_00", 0x045E, 0x02EA, 1)

	pressed := make(chan byte, 1)
	released := make(chan byte, 1)
	go readKeyboard(os.Stdin, pressed, released)

	var buttonByte byte
	ticker := time.NewTicker(d.TickInterval)
	defer ticker.Stop()

	logger.Info("starting keyboard demo", "bindings", "j=A k=B u=X i=Y q=LB e=RB b=Back n=Start, Esc to quit")
	for {
		select {
		case key := <-pressed:
			if key == 0x1b {
				logger.Info("keyboard demo finished")
				return nil
			}
			if bit, ok := keyboardBindings[key]; ok {
				buttonByte |= bit
			}
		case key := <-released:
			if bit, ok := keyboardBindings[key]; ok {
				buttonByte &^= bit
			}
		case <-ticker.C:
			report := make([]byte, 12)
			report[9] = 0x80
			report[10] = buttonByte
			if err := engine.OnHIDReport(dev.InstanceID, report); err != nil {
				logger.Warn("report decode failed", "error", err)
			}
			engine.Tick()
		}
	}
}

// readKeyboard is a crude raw-mode reader: since a terminal in raw mode
// delivers no key-up events, every byte read is treated as a press
// followed by a release 80ms later.
func readKeyboard(f *os.File, pressed, released chan<- byte) {
	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		pressed <- b
		go func(key byte) {
			time.Sleep(80 * time.Millisecond)
			released <- key
		}(b)
	}
}

type emptyXInputSource struct{}

func (emptyXInputSource) SlotCount() int { return 0 }
func (emptyXInputSource) Poll(slot int) (fusion.XInputReading, error) {
	return fusion.XInputReading{}, nil
}
func (emptyXInputSource) SetVibration(slot int, left, right uint16) error { return nil }

type emptyWGISource struct{}

func (emptyWGISource) Gamepads() []fusion.WGIGamepad { return nil }
