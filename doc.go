// FILE: lixenwraith/layerconf/doc.go

// Package layerconf resolves application configuration from layered sources
// into a plain Go struct: command-line arguments, explicitly requested config
// files, default config files, optional environment variables and implicit
// defaults.
//
// Features:
//   - Partial values: every field of the configuration struct may be absent,
//     so "not given" is distinct from "given as zero"
//   - Merge algebra (Take, Patch) with tagged unions that map to subcommands
//   - TOML, YAML and JSON config files, format detected per file
//   - Command-line parsing through cobra, with resolved values injected as
//     flag defaults so required flags are satisfied by files
//   - Commented TOML template generation
//   - Builder pattern for easy initialization
//
// Quick Start:
//
//	type Config struct {
//	    Files    []string `toml:"config" layer:"files" help:"config files to load"`
//	    Generate bool     `toml:"generate-config" layer:"generate" help:"print a config template"`
//	    Server   struct {
//	        Host string `toml:"host" help:"listen address"`
//	        Port int    `toml:"port" help:"listen port"`
//	    } `toml:"server"`
//	    Verbose bool `toml:"verbose" short:"v"`
//	}
//
//	var cfg Config
//	err := layerconf.NewBuilder().
//	    WithName("myapp").
//	    WithDefaultFiles("/etc/myapp/config.toml").
//	    WithEnvPrefix("MYAPP_").
//	    Load(&cfg)
//	if err != nil {
//	    layerconf.Exit(err)
//	}
//
// Precedence (highest to lowest):
//  1. Command-line arguments (--server.port=9090)
//  2. Environment variables, when a prefix is set (MYAPP_SERVER_PORT=9090)
//  3. Explicit config files (--config a.toml --config b.toml, later wins)
//  4. Default config files (later wins, missing ones skipped)
//  5. Builder defaults
//  6. Implicit defaults: false for bools, empty for vectors, nil for optionals
//
// Subcommands:
// An interface field whose variants are registered with RegisterUnion becomes
// a set of subcommands. Each variant is resolved like the root with its own
// files field and default files. In config files the chosen variant is the
// table [<field>.<variant>]. Flags given before a subcommand token belong to
// the level they precede, so "app --config a.toml serve --config b.toml" gives
// each level its own file.
package layerconf
