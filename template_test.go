// FILE: lixenwraith/layerconf/template_test.go
package layerconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	t.Run("EmptyPartial", func(t *testing.T) {
		text, err := RenderTemplate(mustEmpty[plainConfig](t))
		require.NoError(t, err)

		assert.Contains(t, text, "# instance name\n# name =\n")
		assert.Contains(t, text, "# verbose output\n# verbose =\n")
		assert.Contains(t, text, "\n[server]\n")
		assert.Contains(t, text, "\n[server.tls]\n")
		assert.Contains(t, text, "# port =")
		assert.NotContains(t, text, "config =", "reserved fields are omitted")
		assert.NotContains(t, text, "generate =")
	})

	t.Run("PresentValues", func(t *testing.T) {
		in := fullPlain()
		in.Tags = []string{"a", "b"}
		text, err := Template(in)
		require.NoError(t, err)

		assert.Contains(t, text, "\nname = \"demo\"\n")
		assert.Contains(t, text, "\nverbose = true\n")
		assert.Contains(t, text, "\ntags = [\"a\", \"b\"]\n")
		assert.Contains(t, text, "\ntimeout = \"5s\"\n")
		assert.Contains(t, text, "\nlimit = 3\n")
		assert.Contains(t, text, "\nport = 8080\n")
	})

	t.Run("LeavesBeforeTables", func(t *testing.T) {
		text, err := Template(fullPlain())
		require.NoError(t, err)
		assert.Less(t, strings.Index(text, "extra ="), strings.Index(text, "[server]"))
	})

	t.Run("UnchosenVariantsCommented", func(t *testing.T) {
		text, err := RenderTemplate(mustEmpty[appConfig](t))
		require.NoError(t, err)

		assert.Contains(t, text, "# run the server\n# [command.serve]\n")
		assert.Contains(t, text, "# [command.migrate]\n")
		assert.Contains(t, text, "# dsn =")
	})

	t.Run("ChosenVariantOnly", func(t *testing.T) {
		p := mustEmpty[appConfig](t)
		mustSet(t, p, "migrate.dsn", "db")
		text, err := RenderTemplate(p)
		require.NoError(t, err)

		assert.Contains(t, text, "\n[command.migrate]\ndsn = \"db\"\n")
		assert.NotContains(t, text, "command.serve")
	})

	t.Run("ExplicitNoneRendersAbsent", func(t *testing.T) {
		p := mustEmpty[plainConfig](t)
		mustSet(t, p, "limit", nil)
		text, err := RenderTemplate(p)
		require.NoError(t, err)
		assert.Contains(t, text, "# limit =\n")
	})
}

func TestTemplateRoundTrip(t *testing.T) {
	in := fullPlain()
	in.Tags = []string{"a", "b"}
	text, err := Template(in)
	require.NoError(t, err)

	p, err := ParseBytes(mustSchema[plainConfig](t), []byte(text), FormatTOML)
	require.NoError(t, err)
	out, err := Build[plainConfig](p)
	require.NoError(t, err)

	in.Files = nil
	assert.Equal(t, in, out)

	t.Run("Variant", func(t *testing.T) {
		in := appConfig{Name: "x", Command: &Migrate{DSN: "db", Steps: intPtr(4)}}
		text, err := Template(in)
		require.NoError(t, err)

		p, err := ParseBytes(mustSchema[appConfig](t), []byte(text), FormatTOML)
		require.NoError(t, err)
		out, err := Build[appConfig](p)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.toml")
	require.NoError(t, WriteTemplate(path, fullPlain()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name = \"demo\"")

	p, err := LoadFile(mustSchema[plainConfig](t), path)
	require.NoError(t, err)
	assert.True(t, p.IsConvertible())
}
