// FILE: lixenwraith/layerconf/merge_test.go
package layerconf

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getValue(p *Partial, path string) any {
	v, _ := p.Get(ParsePath(path))
	return v
}

func isSet(p *Partial, path string) bool {
	_, ok := p.Get(ParsePath(path))
	return ok
}

func TestTake(t *testing.T) {
	t.Run("OtherWinsWhenPresent", func(t *testing.T) {
		a := mustEmpty[abcConfig](t)
		mustSet(t, a, "a", 1)
		mustSet(t, a, "b", 2)
		b := mustEmpty[abcConfig](t)
		mustSet(t, b, "a", 10)
		mustSet(t, b, "c", 30)

		a.Take(b)
		assert.Equal(t, 10, getValue(a, "a"))
		assert.Equal(t, 2, getValue(a, "b"))
		assert.Equal(t, 30, getValue(a, "c"))

		assert.False(t, isSet(b, "a"), "moved values leave other")
		assert.False(t, isSet(b, "c"))
	})

	t.Run("VectorReplacedOnlyWhenOtherNonEmpty", func(t *testing.T) {
		a := mustEmpty[plainConfig](t)
		mustSet(t, a, "tags", []string{"a"})
		b := mustEmpty[plainConfig](t)
		mustSet(t, b, "tags", []string{})

		a.Take(b)
		assert.Equal(t, []string{"a"}, getValue(a, "tags"))

		mustSet(t, b, "tags", []string{"b", "c"})
		a.Take(b)
		assert.Equal(t, []string{"b", "c"}, getValue(a, "tags"))
		assert.False(t, isSet(b, "tags"))
	})

	t.Run("NestedRecursion", func(t *testing.T) {
		a := mustEmpty[plainConfig](t)
		mustSet(t, a, "server.host", "a")
		mustSet(t, a, "server.tls.cert", "a.pem")
		b := mustEmpty[plainConfig](t)
		mustSet(t, b, "server.tls.cert", "b.pem")

		a.Take(b)
		assert.Equal(t, "a", getValue(a, "server.host"))
		assert.Equal(t, "b.pem", getValue(a, "server.tls.cert"))
	})

	t.Run("BoolFalseIsPresent", func(t *testing.T) {
		a := mustEmpty[plainConfig](t)
		mustSet(t, a, "verbose", true)
		b := mustEmpty[plainConfig](t)
		mustSet(t, b, "verbose", false)

		a.Take(b)
		assert.Equal(t, false, getValue(a, "verbose"))
	})
}

func TestPatch(t *testing.T) {
	t.Run("SelfKeepsPriority", func(t *testing.T) {
		a := mustEmpty[abcConfig](t)
		mustSet(t, a, "a", 1)
		b := mustEmpty[abcConfig](t)
		mustSet(t, b, "a", 10)
		mustSet(t, b, "b", 20)

		a.Patch(b)
		assert.Equal(t, 1, getValue(a, "a"))
		assert.Equal(t, 20, getValue(a, "b"))
		assert.False(t, isSet(a, "c"))

		assert.Equal(t, 10, getValue(b, "a"), "values not moved stay in other")
		assert.False(t, isSet(b, "b"))
	})

	t.Run("VectorFilledOnlyWhenSelfEmpty", func(t *testing.T) {
		a := mustEmpty[plainConfig](t)
		b := mustEmpty[plainConfig](t)
		mustSet(t, b, "tags", []string{"b"})
		a.Patch(b)
		assert.Equal(t, []string{"b"}, getValue(a, "tags"))

		c := mustEmpty[plainConfig](t)
		mustSet(t, c, "tags", []string{"c"})
		a.Patch(c)
		assert.Equal(t, []string{"b"}, getValue(a, "tags"))
	})

	t.Run("EmptyOtherIsIdentity", func(t *testing.T) {
		in := fullPlain()
		a, err := From(in)
		require.NoError(t, err)
		before := a.Debug()

		a.Patch(mustEmpty[plainConfig](t))
		assert.Equal(t, before, a.Debug())
	})
}

func TestUnionMerge(t *testing.T) {
	t.Run("AbsentSelfReceivesVariant", func(t *testing.T) {
		for _, take := range []bool{true, false} {
			a := mustEmpty[appConfig](t)
			b := mustEmpty[appConfig](t)
			mustSet(t, b, "serve.listen", ":80")

			if take {
				a.Take(b)
			} else {
				a.Patch(b)
			}
			name, _, ok := a.Variant("command")
			require.True(t, ok)
			assert.Equal(t, "serve", name)
			assert.Equal(t, ":80", getValue(a, "serve.listen"))
			_, _, ok = b.Variant("command")
			assert.False(t, ok)
		}
	})

	t.Run("SameVariantRecurses", func(t *testing.T) {
		a := mustEmpty[appConfig](t)
		mustSet(t, a, "serve.listen", ":80")
		b := mustEmpty[appConfig](t)
		mustSet(t, b, "serve.listen", ":81")
		mustSet(t, b, "serve.debug", true)

		a.Patch(b)
		assert.Equal(t, ":80", getValue(a, "serve.listen"))
		assert.Equal(t, true, getValue(a, "serve.debug"))
	})

	t.Run("MismatchIsNoOp", func(t *testing.T) {
		a := mustEmpty[appConfig](t)
		mustSet(t, a, "serve.listen", ":80")
		b := mustEmpty[appConfig](t)
		mustSet(t, b, "migrate.dsn", "db")
		mustSet(t, b, "name", "other")

		assert.Equal(t, []Path{{"command", "migrate"}}, a.conflicts(b, nil))

		a.Take(b)
		assert.Equal(t, ":80", getValue(a, "serve.listen"))
		assert.Equal(t, "other", getValue(a, "name"), "non-union fields still merge")
		assert.Equal(t, "db", getValue(b, "migrate.dsn"), "other keeps its variant data")

		name, _, _ := a.Variant("command")
		assert.Equal(t, "serve", name)
	})
}

func TestMergeSchemaMismatchPanics(t *testing.T) {
	a := mustEmpty[abcConfig](t)
	b := mustEmpty[plainConfig](t)
	assert.Panics(t, func() { a.Take(b) })
	assert.Panics(t, func() { a.Patch(nil) })
}

func TestMergeWithSelf(t *testing.T) {
	a := abcFrom(t, []int{1, -1, 3})
	a.Take(a)
	assert.Equal(t, 1, getValue(a, "a"))
	assert.Equal(t, 3, getValue(a, "c"))
	assert.False(t, isSet(a, "b"))

	a.Patch(a)
	assert.Equal(t, 1, getValue(a, "a"))
	assert.Equal(t, 3, getValue(a, "c"))
}

// abcFrom builds an abcConfig partial from three values where negative means absent.
func abcFrom(t *testing.T, vals []int) *Partial {
	p := mustEmpty[abcConfig](t)
	for i, name := range []string{"a", "b", "c"} {
		if vals[i] >= 0 {
			mustSet(t, p, name, vals[i])
		}
	}
	return p
}

func TestMergeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	fields := []string{"a", "b", "c"}
	values := gen.SliceOfN(3, gen.IntRange(-1, 50))

	properties.Property("take is override-on-presence", prop.ForAll(
		func(x, y []int) bool {
			a, b := abcFrom(t, x), abcFrom(t, y)
			a.Take(b)
			for i, f := range fields {
				switch {
				case y[i] >= 0 && getValue(a, f) != y[i]:
					return false
				case y[i] < 0 && x[i] >= 0 && getValue(a, f) != x[i]:
					return false
				case y[i] < 0 && x[i] < 0 && isSet(a, f):
					return false
				}
			}
			return true
		},
		values, values,
	))

	properties.Property("patch is fill-on-absence", prop.ForAll(
		func(x, y []int) bool {
			a, b := abcFrom(t, x), abcFrom(t, y)
			a.Patch(b)
			for i, f := range fields {
				switch {
				case x[i] >= 0 && getValue(a, f) != x[i]:
					return false
				case x[i] < 0 && y[i] >= 0 && getValue(a, f) != y[i]:
					return false
				}
			}
			return true
		},
		values, values,
	))

	properties.Property("patch with empty other is identity", prop.ForAll(
		func(x []int) bool {
			a := abcFrom(t, x)
			before := a.Debug()
			a.Patch(mustEmpty[abcConfig](t))
			return a.Debug() == before
		},
		values,
	))

	properties.Property("take keeps a complete partial complete", prop.ForAll(
		func(x, y []int) bool {
			for i := range x {
				if x[i] < 0 {
					x[i] = -x[i]
				}
			}
			a, b := abcFrom(t, x), abcFrom(t, y)
			if !a.IsComplete() && !a.IsConvertible() {
				return false
			}
			a.Take(b)
			return a.IsConvertible()
		},
		values, values,
	))

	properties.Property("full to partial to full is identity", prop.ForAll(
		func(x []int, files []string) bool {
			in := abcConfig{A: x[0], B: x[1], C: x[2], Files: files}
			p, err := From(in)
			if err != nil {
				return false
			}
			out, err := Build[abcConfig](p)
			return err == nil && assert.ObjectsAreEqual(in, out)
		},
		values, gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
