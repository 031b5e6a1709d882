// FILE: lixenwraith/layerconf/env.go
package layerconf

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxValueSize bounds a single environment value.
const MaxValueSize = 1024 * 1024

// EnvTransformFunc converts a dotted configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ReplaceAll(path, ".", "_")
		env = strings.ReplaceAll(env, "-", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// envSource reads leaf values of one schema level from the environment.
type envSource struct {
	transform EnvTransformFunc
	whitelist map[string]bool
	sep       string
	lookup    func(string) (string, bool)
}

// partial returns the values found for the leaves of s. base is the variant
// prefix of the level, so variant fields map to e.g. APP_SERVE_PORT.
// Union fields are left to the recursion over chosen variants.
func (e *envSource) partial(s *Schema, base Path) (*Partial, error) {
	p := NewPartial(s)
	err := walkLevel(s, nil, func(rel Path, f *Field) error {
		if f.Kind == KindUnion || f.Role != RoleNone {
			return nil
		}
		full := append(base.clone(), rel...)
		if e.whitelist != nil && !e.whitelist[full.String()] {
			return nil
		}
		value, ok := e.lookup(e.transform(full.String()))
		if !ok {
			return nil
		}
		if len(value) > MaxValueSize {
			return errors.Newf("environment value for %s exceeds %d bytes", full, MaxValueSize)
		}

		raws := []string{value}
		if f.isVector() {
			raws = splitList(value, e.sep)
		}
		v, err := decodeArgs(f, raws)
		if err != nil {
			return errors.Wrapf(err, "environment variable %s", e.transform(full.String()))
		}
		q, i := p.find(rel, true)
		if q == nil {
			return errors.AssertionFailedf("leaf %s not addressable", rel)
		}
		q.slots[i].assign(f, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DiscoverEnv returns, for every leaf of s (root level, variants excluded) whose
// environment variable is set, the map of dotted path to variable name.
func DiscoverEnv(s *Schema, prefix string) map[string]string {
	transform := defaultEnvTransform(prefix)
	discovered := make(map[string]string)
	_ = walkLevel(s, nil, func(rel Path, f *Field) error {
		if f.Kind == KindUnion || f.Role != RoleNone {
			return nil
		}
		envVar := transform(rel.String())
		if _, exists := os.LookupEnv(envVar); exists {
			discovered[rel.String()] = envVar
		}
		return nil
	})
	return discovered
}

// walkLevel visits the leaves and union fields of one command level: nested
// structs add their segment, flattened structs none, unions are not entered.
// For a union, rel is the path of the struct holding it.
func walkLevel(s *Schema, rel Path, fn func(rel Path, f *Field) error) error {
	for _, f := range s.Fields {
		var err error
		switch f.Kind {
		case KindFlatten:
			err = walkLevel(f.Nested, rel, fn)
		case KindStruct:
			err = walkLevel(f.Nested, rel.Child(f.Name), fn)
		case KindUnion:
			err = fn(rel, f)
		default:
			err = fn(rel.Child(f.Name), f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
