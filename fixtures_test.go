// FILE: lixenwraith/layerconf/fixtures_test.go
package layerconf

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Shared configuration types for package tests.

type TLSConfig struct {
	Cert string `toml:"cert" help:"certificate file"`
	Key  string `toml:"key"`
}

type ServerConfig struct {
	Host string    `toml:"host" help:"listen address"`
	Port int       `toml:"port" help:"listen port"`
	TLS  TLSConfig `toml:"tls"`
}

type CommonFlags struct {
	Verbose bool     `toml:"verbose" short:"v" help:"verbose output"`
	Tags    []string `toml:"tags"`
}

// testCommand is the union of subcommands used by appConfig.
type testCommand interface {
	isCommand()
}

type serveCmd struct {
	Files  []string `toml:"config" layer:"files"`
	Listen string   `toml:"listen" help:"serve listen address"`
	Debug  bool     `toml:"debug"`
}

func (serveCmd) isCommand()          {}
func (serveCmd) VariantName() string { return "serve" }
func (serveCmd) Description() string { return "run the server" }

type Migrate struct {
	DSN   string `toml:"dsn"`
	Steps *int   `toml:"steps"`
}

func (*Migrate) isCommand() {}

func init() {
	MustRegisterUnion[testCommand](serveCmd{}, &Migrate{})
}

// plainConfig has no union so it converts without a subcommand.
type plainConfig struct {
	Files    []string `toml:"config" layer:"files" help:"config files"`
	Generate bool     `toml:"generate" layer:"generate" help:"print template"`

	CommonFlags
	Name    string         `toml:"name" help:"instance name"`
	Server  ServerConfig   `toml:"server"`
	Timeout *time.Duration `toml:"timeout"`
	Limit   **int          `toml:"limit"`
	Extra   *[]string      `toml:"extra"`
}

// appConfig adds a subcommand union to the root.
type appConfig struct {
	Files    []string `toml:"config" layer:"files"`
	Generate bool     `toml:"generate" layer:"generate"`

	CommonFlags
	Name    string      `toml:"name"`
	Command testCommand `toml:"command"`
}

// abcConfig is the three-field type of the precedence scenario.
type abcConfig struct {
	Files []string `toml:"config" layer:"files"`
	A     int      `toml:"a"`
	B     int      `toml:"b"`
	C     int      `toml:"c"`
}

func intPtr(v int) *int { return &v }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mustSchema[T any](t *testing.T) *Schema {
	t.Helper()
	s, err := SchemaOf(reflect.TypeOf((*T)(nil)).Elem(), "")
	require.NoError(t, err)
	return s
}

func mustEmpty[T any](t *testing.T) *Partial {
	t.Helper()
	p, err := Empty[T]()
	require.NoError(t, err)
	return p
}

func mustSet(t *testing.T, p *Partial, path string, value any) {
	t.Helper()
	require.NoError(t, p.Set(ParsePath(path), value))
}

// testOptions returns options writing parser output into buffers.
func testOptions() (Options, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	opts := Options{Name: "app", Out: &out, Err: &errOut}
	opts.applyDefaults()
	return opts, &out, &errOut
}
