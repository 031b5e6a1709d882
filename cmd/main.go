// FILE: lixenwraith/layerconf/cmd/main.go
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/lixenwraith/layerconf"
)

// AppConfig is the root configuration of the demo program.
type AppConfig struct {
	Files    []string `toml:"config" layer:"files" short:"c" help:"configuration files to load, later files win"`
	Generate bool     `toml:"generate-config" layer:"generate" help:"print a configuration template and exit"`

	Logging
	Command Command `toml:"command"`
}

// Logging is flattened into the root: its keys sit at top level.
type Logging struct {
	Verbose bool   `toml:"verbose" short:"v" help:"enable debug logging"`
	Level   string `toml:"level" help:"log level name"`
}

// Command selects what the program does.
type Command interface {
	run(log *slog.Logger, cfg *AppConfig)
}

// Serve runs the HTTP server.
type Serve struct {
	Files []string `toml:"config" layer:"files" help:"serve-specific configuration files"`

	HTTP struct {
		Host    string        `toml:"host" help:"listen address"`
		Port    int           `toml:"port" help:"listen port"`
		Timeout time.Duration `toml:"timeout" help:"request timeout"`
	} `toml:"http"`
	Origins []string `toml:"origins" help:"allowed CORS origins"`
	Workers *int     `toml:"workers" help:"worker count, defaults to the number of CPUs"`
}

func (Serve) Description() string { return "run the server" }

func (s *Serve) run(log *slog.Logger, cfg *AppConfig) {
	workers := "auto"
	if s.Workers != nil {
		workers = color.CyanString("%d", *s.Workers)
	}
	log.Info("serving",
		"host", s.HTTP.Host,
		"port", s.HTTP.Port,
		"timeout", s.HTTP.Timeout,
		"origins", s.Origins,
		"workers", workers)
}

// Migrate applies database migrations.
type Migrate struct {
	DSN    string `toml:"dsn" help:"database connection string"`
	DryRun bool   `toml:"dry-run" help:"print statements without executing"`
	Steps  **int  `toml:"steps" help:"number of steps; empty means all"`
}

func (Migrate) Description() string { return "apply database migrations" }

func (m *Migrate) run(log *slog.Logger, cfg *AppConfig) {
	steps := "all"
	if m.Steps != nil && *m.Steps != nil {
		steps = color.CyanString("%d", **m.Steps)
	}
	log.Info("migrating", "dsn", m.DSN, "dry_run", m.DryRun, "steps", steps)
}

func (AppConfig) DefaultConfigFiles() []string {
	return layerconf.XDGDefaultFiles("layerdemo")
}

func init() {
	layerconf.MustRegisterUnion[Command](&Serve{}, &Migrate{})
}

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg AppConfig
	err := layerconf.NewBuilder().
		WithName("layerdemo").
		WithEnvPrefix("LAYERDEMO_").
		WithLogger(logger).
		WithValidator(func(c any) error {
			if c.(*AppConfig).Verbose {
				level.Set(slog.LevelDebug)
			}
			return nil
		}).
		Load(&cfg)
	if err != nil {
		layerconf.Exit(err)
	}

	logger.Debug("configuration resolved", "level", cfg.Level)
	cfg.Command.run(logger, &cfg)
}

// Example ~/.config/layerdemo/config.toml:
/*
level = "info"

[command.serve]
origins = ["https://example.com"]

[command.serve.http]
host = "0.0.0.0"
port = 8080
timeout = "30s"
*/
