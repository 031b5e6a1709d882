// FILE: lixenwraith/layerconf/complete_test.go
package layerconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompleteness(t *testing.T) {
	t.Run("EmptyPlain", func(t *testing.T) {
		p := mustEmpty[plainConfig](t)
		assert.False(t, p.IsComplete())
		assert.False(t, p.IsConvertible())
		assert.Equal(t, []Path{
			{"name"}, {"server", "host"}, {"server", "port"}, {"server", "tls", "cert"}, {"server", "tls", "key"},
		}, p.Missing())
	})

	t.Run("ConvertibleButNotComplete", func(t *testing.T) {
		p := mustEmpty[plainConfig](t)
		mustSet(t, p, "name", "demo")
		mustSet(t, p, "server.host", "h")
		mustSet(t, p, "server.port", 1)
		mustSet(t, p, "server.tls.cert", "c")
		mustSet(t, p, "server.tls.key", "k")

		assert.True(t, p.IsConvertible())
		assert.Empty(t, p.Missing())
		assert.False(t, p.IsComplete(), "bools and optionals are absent")

		mustSet(t, p, "generate", false)
		mustSet(t, p, "verbose", false)
		mustSet(t, p, "timeout", time.Second)
		mustSet(t, p, "limit", nil)
		mustSet(t, p, "extra", []string{})
		assert.True(t, p.IsComplete(), "empty vectors count as present")
	})

	t.Run("UnionUnchosen", func(t *testing.T) {
		p := mustEmpty[appConfig](t)
		mustSet(t, p, "name", "demo")
		assert.Equal(t, []Path{{"command"}}, p.Missing())
	})

	t.Run("UnionChosenVariantChecked", func(t *testing.T) {
		p := mustEmpty[appConfig](t)
		mustSet(t, p, "name", "demo")
		mustSet(t, p, "migrate.steps", 3)
		assert.Equal(t, []Path{{"migrate", "dsn"}}, p.Missing())

		mustSet(t, p, "migrate.dsn", "db")
		assert.True(t, p.IsConvertible())
	})

	t.Run("FullValueIsComplete", func(t *testing.T) {
		p, err := From(fullPlain())
		assert.NoError(t, err)
		assert.True(t, p.IsComplete())
	})
}
