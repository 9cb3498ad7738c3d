//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/padfusion/padfusion/internal/util"
)

func init() {
	if util.IsRunFromGUI() {
		args := os.Args
		if len(args) < 3 || args[1] != "demo" || args[2] != "sdl" {
			slog.Info("Detected GUI startup, injecting 'demo sdl' arguments")
			slog.Warn("Run from a CLI for more options!")
			newArgs := make([]string, 0, len(args)+2)
			newArgs = append(newArgs, args[0], "demo", "sdl")
			newArgs = append(newArgs, args[1:]...)
			os.Args = newArgs
		}
	}
}
