// Package config defines the root Kong CLI structure for padfusion
// binaries, following the same embed/cmd-tag convention the teacher's
// internal/cmd package uses for its server/proxy/codegen commands.
package config

import "github.com/padfusion/padfusion/internal/cmd"

type CLI struct {
	Demo   cmd.Demo          `cmd:"" help:"Run a live input-fusion demo session"`
	Config cmd.ConfigCommand `cmd:"" help:"Configuration file management"`

	Log LogConfig `embed:"" prefix:"log."`
}

// LogConfig is shared by every subcommand via Kong's struct embedding.
type LogConfig struct {
	Level string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"PADFUSION_LOG_LEVEL"`
	File  string `help:"Additionally write structured JSON logs to this file" env:"PADFUSION_LOG_FILE"`
}
