// FILE: lixenwraith/layerconf/builder_test.go
package layerconf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonTagged struct {
	Host string `json:"hostname"`
	Port int    `json:"port"`
}

// TestBuilder tests the builder pattern
func TestBuilder(t *testing.T) {
	t.Run("BasicBuilder", func(t *testing.T) {
		var out bytes.Buffer
		var cfg abcConfig
		err := NewBuilder().
			WithName("app").
			WithArgs([]string{"--a", "1", "--b", "2", "--c", "3"}).
			WithOutput(&out, &out).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, abcConfig{A: 1, B: 2, C: 3}, cfg)
	})

	t.Run("BuilderWithAllOptions", func(t *testing.T) {
		dir := t.TempDir()
		defaultFile := writeFile(t, dir, "default.json", `{"hostname": "filehost", "port": 1}`)

		var cfg jsonTagged
		err := NewBuilder().
			WithName("app").
			WithTagName("json").
			WithFileFormat(FormatAuto).
			WithStrict(true).
			WithMaxFileSize(1024).
			WithDefaultFiles(defaultFile).
			WithDefaults(&jsonTagged{Port: 8080}).
			WithEnvPrefix("CUSTOM_").
			WithEnvTransform(func(path string) string { return "CUSTOM_" + strings.ToUpper(path) }).
			WithEnvWhitelist("port").
			WithArgs([]string{"--hostname=clihost"}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)

		// CLI should take precedence
		assert.Equal(t, "clihost", cfg.Host)
		assert.Equal(t, 1, cfg.Port, "default file beats built-in defaults")
	})

	t.Run("StructDefaults", func(t *testing.T) {
		var cfg abcConfig
		err := NewBuilder().
			WithArgs([]string{"--a", "5", "--b", "6"}).
			WithDefaults(&abcConfig{A: 1, C: 100}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, abcConfig{A: 5, B: 6, C: 100}, cfg)
	})

	t.Run("DefaultsBeforeTagName", func(t *testing.T) {
		var cfg jsonTagged
		err := NewBuilder().
			WithDefaults(&jsonTagged{Host: "localhost", Port: 8080}).
			WithTagName("json").
			WithArgs([]string{"--port", "9090"}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, jsonTagged{Host: "localhost", Port: 9090}, cfg)
	})

	t.Run("PartialDefaults", func(t *testing.T) {
		defaults := mustEmpty[abcConfig](t)
		mustSet(t, defaults, "a", 1)
		mustSet(t, defaults, "b", 2)
		mustSet(t, defaults, "c", 3)

		p, err := NewBuilder().WithArgs([]string{"--c", "30"}).WithDefaults(defaults).Partial(&abcConfig{})
		require.NoError(t, err)
		assert.Equal(t, 1, getValue(p, "a"))
		assert.Equal(t, 30, getValue(p, "c"))
	})

	t.Run("EnvironmentLayer", func(t *testing.T) {
		t.Setenv("LCBUILD_A", "10")
		var cfg abcConfig
		err := NewBuilder().
			WithEnvPrefix("LCBUILD_").
			WithArgs([]string{"--b", "2", "--c", "3"}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.A)
	})

	t.Run("Separator", func(t *testing.T) {
		p, err := NewBuilder().
			WithSeparator(";").
			WithArgs([]string{"--tags", "a;b"}).
			Partial(&plainConfig{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, getValue(p, "tags"))
	})

	t.Run("VariantDefaultFiles", func(t *testing.T) {
		dir := t.TempDir()
		serveFile := writeFile(t, dir, "serve.toml", "listen = \":7\"\n")
		var cfg appConfig
		err := NewBuilder().
			WithArgs([]string{"--name", "x", "serve"}).
			WithVariantDefaultFiles("serve", serveFile).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, serveCmd{Listen: ":7"}, cfg.Command)
	})

	t.Run("DefaultFilesFunc", func(t *testing.T) {
		dir := t.TempDir()
		calls := 0
		fn := func() []string {
			calls++
			return []string{writeFile(t, dir, "d.toml", "a = 1\nb = 2\nc = 3\n")}
		}
		var cfg abcConfig
		err := NewBuilder().WithArgs(nil).WithDefaultFilesFunc(fn).WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 2, cfg.B)
	})

	t.Run("Formatter", func(t *testing.T) {
		var out bytes.Buffer
		var cfg abcConfig
		err := NewBuilder().
			WithArgs([]string{"--help"}).
			WithDefaults(&abcConfig{A: 255}).
			WithFormatter(reflect.TypeOf(0), func(v reflect.Value) string { return fmt.Sprintf("%d", v.Int()) }).
			WithFormatter(reflect.TypeOf(0), func(v reflect.Value) string { return fmt.Sprintf("0x%x", v.Int()) }).
			WithOutput(&out, &out).
			Load(&cfg)
		assert.ErrorIs(t, err, ErrHelp)
		assert.Contains(t, out.String(), "(default 0xff)")
	})
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{"TagName", NewBuilder().WithTagName("xml"), "unsupported tag name"},
		{"Separator", NewBuilder().WithSeparator(""), "separator"},
		{"FileFormat", NewBuilder().WithFileFormat("ini"), "unsupported file format"},
		{"Defaults", NewBuilder().WithDefaults(42), "failed to register defaults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg abcConfig
			err := tt.builder.WithArgs(nil).Load(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("NonPointerTarget", func(t *testing.T) {
		err := NewBuilder().WithArgs(nil).Load(abcConfig{})
		assert.Error(t, err)
		_, err = NewBuilder().Resolver(nil)
		assert.Error(t, err)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		var cfg abcConfig
		err := NewBuilder().
			WithArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.toml")}).
			Load(&cfg)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})
}

// TestBuilderWithValidator tests validators running after a successful load
func TestBuilderWithValidator(t *testing.T) {
	args := []string{"--a", "1", "--b", "2", "--c", "3"}

	t.Run("Passes", func(t *testing.T) {
		var order []string
		var cfg abcConfig
		err := NewBuilder().
			WithArgs(args).
			WithValidator(func(c any) error {
				order = append(order, "first")
				assert.Same(t, &cfg, c)
				return nil
			}).
			WithValidator(nil).
			WithValidator(func(c any) error {
				order = append(order, "second")
				return nil
			}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("Fails", func(t *testing.T) {
		var cfg abcConfig
		err := NewBuilder().
			WithArgs(args).
			WithValidator(func(c any) error {
				if c.(*abcConfig).A < 10 {
					return fmt.Errorf("a must be at least 10")
				}
				return nil
			}).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Contains(t, err.Error(), "at least 10")
	})

	t.Run("NotRunOnFailure", func(t *testing.T) {
		ran := false
		var cfg abcConfig
		err := NewBuilder().
			WithArgs([]string{"--a", "1"}).
			WithValidator(func(any) error { ran = true; return nil }).
			WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).
			Load(&cfg)
		assert.Error(t, err)
		assert.False(t, ran)
	})
}

func TestMustLoad(t *testing.T) {
	var cfg abcConfig
	assert.Panics(t, func() {
		NewBuilder().WithArgs([]string{"--a", "x"}).WithOutput(&bytes.Buffer{}, &bytes.Buffer{}).MustLoad(&cfg)
	})
	assert.NotPanics(t, func() {
		NewBuilder().WithArgs([]string{"--a", "1", "--b", "2", "--c", "3"}).MustLoad(&cfg)
	})
	assert.Equal(t, 3, cfg.C)
}
