package cmd

// Demo groups the demo subcommands, each driving the fusion engine from a
// different input source (mirrors the teacher's Server/Proxy grouping
// under a single top-level command).
type Demo struct {
	SDL      DemoSDL      `cmd:"" name:"sdl" help:"Drive the fusion engine from SDL3-enumerated gamepads"`
	Replay   DemoReplay   `cmd:"" name:"replay" help:"Replay a recorded report fixture through the fusion engine"`
	Keyboard DemoKeyboard `cmd:"" name:"keyboard" help:"Drive one simulated controller from raw terminal keystrokes"`
}
