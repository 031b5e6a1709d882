// FILE: lixenwraith/layerconf/example/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lixenwraith/layerconf"
)

// AppConfig defines a small configuration structure to showcase the layers.
type AppConfig struct {
	Files    []string `toml:"config" layer:"files" help:"configuration files"`
	Generate bool     `toml:"generate" layer:"generate" help:"print a template and exit"`

	Server struct {
		Host     string `toml:"host" help:"listen address"`
		Port     int64  `toml:"port" help:"listen port"`
		LogLevel string `toml:"log_level"`
	} `toml:"server"`
	FeatureFlags map[string]bool `toml:"feature_flags"`
	Debug        bool            `toml:"debug"`
}

func main() {
	// =========================================================================
	// PART 1: INITIAL SETUP
	// Create a default and an explicit config file in a scratch directory.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Creating configuration files...")

	dir, err := os.MkdirTemp("", "layerconf-example")
	if err != nil {
		log.Fatalf("❌ Failed to create scratch directory: %v", err)
	}
	defer os.RemoveAll(dir)

	defaultFile := filepath.Join(dir, "default.toml")
	explicitFile := filepath.Join(dir, "explicit.yaml")
	mustWrite(defaultFile, `
feature_flags = { enable_metrics = true }

[server]
host = "localhost"
port = 8080
log_level = "info"
`)
	mustWrite(explicitFile, `
server:
  port: 9000
`)
	log.Printf("✅ Wrote %s and %s.", defaultFile, explicitFile)

	// =========================================================================
	// PART 2: RESOLUTION WITH THE BUILDER
	// CLI > explicit files > default files > implicit defaults.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Loading with the Builder...")

	var cfg AppConfig
	err = layerconf.NewBuilder().
		WithName("example").
		WithArgs([]string{"--config", explicitFile, "--server.log_level", "debug"}).
		WithDefaultFiles(defaultFile).
		Load(&cfg)
	if err != nil {
		layerconf.Exit(err)
	}
	log.Printf("✅ host=%s (default file) port=%d (explicit file) log_level=%s (cli) debug=%v (implicit)",
		cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel, cfg.Debug)

	// =========================================================================
	// PART 3: PARTIAL VALUES
	// Take lets the argument win, Patch only fills gaps.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Merging partial values directly...")

	base, _ := layerconf.Empty[AppConfig]()
	_ = base.Set(layerconf.ParsePath("server.port"), 1)
	overlay, _ := layerconf.Empty[AppConfig]()
	_ = overlay.Set(layerconf.ParsePath("server.port"), 2)
	_ = overlay.Set(layerconf.ParsePath("server.host"), "example.com")

	patched := base.Clone()
	patched.Patch(overlay.Clone())
	taken := base.Clone()
	taken.Take(overlay.Clone())
	fmt.Print(patched.Debug())
	fmt.Print(taken.Debug())
	log.Printf("Missing after Take: %v", taken.Missing())

	// =========================================================================
	// PART 4: TEMPLATE
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 4: Rendering a template of the loaded configuration...")
	text, err := layerconf.Template(&cfg)
	if err != nil {
		log.Fatalf("❌ Template failed: %v", err)
	}
	fmt.Println(text)
}

func mustWrite(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", path, err)
	}
}
