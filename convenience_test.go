// FILE: lixenwraith/layerconf/convenience_test.go
package layerconf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuickFunctions tests the convenience Quick* functions
func TestQuickFunctions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(home, "system"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	require.NoError(t, os.MkdirAll(filepath.Join(home, "quickapp"), 0755))
	writeFile(t, filepath.Join(home, "quickapp"), "config.toml", "a = 1\nb = 2\n")

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })

	t.Run("Quick", func(t *testing.T) {
		os.Args = []string{"quickapp", "--b", "20"}
		t.Setenv("QUICK_C", "30")

		var cfg abcConfig
		require.NoError(t, Quick(&cfg, "quickapp", "QUICK_"))
		assert.Equal(t, abcConfig{A: 1, B: 20, C: 30}, cfg)
	})

	t.Run("MustQuick", func(t *testing.T) {
		os.Args = []string{"quickapp", "--c", "3"}
		var cfg abcConfig
		MustQuick(&cfg, "quickapp", "")
		assert.Equal(t, 3, cfg.C)
	})
}

func TestXDGDefaultFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CONFIG_DIRS", "/etc/first:/etc/second")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	files := XDGDefaultFiles("app")
	assert.Equal(t, []string{
		"/etc/second/app/config.toml",
		"/etc/first/app/config.toml",
		filepath.Join(home, "app", "config.toml"),
	}, files, "lowest priority first")

	files = XDGDefaultFiles("app", "base.toml", "local.toml")
	assert.Equal(t, filepath.Join(home, "app", "local.toml"), files[len(files)-1])

	t.Run("CustomPaths", func(t *testing.T) {
		cwd, err := os.Getwd()
		require.NoError(t, err)
		files := DiscoverFiles(FileDiscoveryOptions{
			Files:         []string{"app.yaml"},
			Paths:         []string{"/opt/app"},
			UseCurrentDir: true,
		})
		assert.Equal(t, []string{"/opt/app/app.yaml", filepath.Join(cwd, "app.yaml")}, files)
	})
}

func TestReport(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name   string
		err    error
		code   int
		out    string
		errOut string
	}{
		{"Nil", nil, ExitSuccess, "", ""},
		{"Template", &TemplateGenerated{Text: "a = 1\n"}, ExitSuccess, "a = 1\n", ""},
		{"Help", ErrHelp, ExitSuccess, "", ""},
		{"NotFound", &FileNotFoundError{Path: "x.toml"}, ExitSystem, "", "error: config file not found: x.toml\n"},
		{"Parse", &ParseError{Path: "x.toml", Cause: errors.New("bad")}, ExitUser, "", "error: failed to parse config file 'x.toml': bad\n"},
		{"Wrapped", errors.Wrap(&IncompleteError{Missing: []Path{{"a"}}}, "load"), ExitUser, "", "error: load: configuration incomplete, missing values for: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			assert.Equal(t, tt.code, Report(&out, &errOut, tt.err))
			assert.Equal(t, tt.out, out.String())
			assert.Equal(t, tt.errOut, errOut.String())
		})
	}
}
