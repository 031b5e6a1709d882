// FILE: lixenwraith/layerconf/union.go
package layerconf

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer lets a variant type choose its subcommand and table name.
type Namer interface {
	VariantName() string
}

// Describer supplies the one-line help shown for a variant subcommand.
type Describer interface {
	Description() string
}

// Union describes an interface field whose value is one of several registered structs.
type Union struct {
	Type     reflect.Type
	Variants []*Variant
}

// Variant is one alternative of a Union.
type Variant struct {
	Name   string
	Help   string
	Type   reflect.Type // concrete type stored in the interface, struct or *struct
	Schema *Schema
}

// variant returns the variant with the given external name.
func (u *Union) variant(name string) *Variant {
	for _, v := range u.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// variantOf returns the variant whose concrete type is t.
func (u *Union) variantOf(t reflect.Type) *Variant {
	for _, v := range u.Variants {
		if v.Type == t {
			return v
		}
	}
	return nil
}

var unionRegistry = struct {
	sync.RWMutex
	m map[reflect.Type][]reflect.Type
}{m: make(map[reflect.Type][]reflect.Type)}

// RegisterUnion declares the variants of interface type I. Each variant is a
// struct or pointer to struct implementing I; the value itself is only used for its type.
// Register unions before the first SchemaOf call that reaches them, typically in init.
func RegisterUnion[I any](variants ...I) error {
	it := reflect.TypeOf((*I)(nil)).Elem()
	if it.Kind() != reflect.Interface {
		return errors.Newf("union type must be an interface, got %s", it)
	}
	if len(variants) == 0 {
		return errors.Newf("union %s: no variants", it)
	}

	types := make([]reflect.Type, 0, len(variants))
	seen := make(map[reflect.Type]bool)
	for i, v := range variants {
		vt := reflect.TypeOf(v)
		if vt == nil {
			return errors.Newf("union %s: variant %d is nil", it, i)
		}
		st := vt
		if st.Kind() == reflect.Ptr {
			st = st.Elem()
		}
		if st.Kind() != reflect.Struct {
			return errors.Newf("union %s: variant %s is not a struct", it, vt)
		}
		if seen[vt] {
			return errors.Newf("union %s: variant %s registered twice", it, vt)
		}
		seen[vt] = true
		types = append(types, vt)
	}

	unionRegistry.Lock()
	unionRegistry.m[it] = types
	unionRegistry.Unlock()
	return nil
}

// MustRegisterUnion is like RegisterUnion but panics on error.
func MustRegisterUnion[I any](variants ...I) {
	if err := RegisterUnion(variants...); err != nil {
		panic(err)
	}
}

func registeredVariants(it reflect.Type) []reflect.Type {
	unionRegistry.RLock()
	defer unionRegistry.RUnlock()
	return unionRegistry.m[it]
}

var lowerCaser = cases.Lower(language.Und)

// variantName resolves the external name of a variant type.
func variantName(vt reflect.Type) string {
	if n, ok := zeroOf(vt).Interface().(Namer); ok {
		return n.VariantName()
	}
	st := vt
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	return lowerCaser.String(st.Name())
}

func variantHelp(vt reflect.Type) string {
	if d, ok := zeroOf(vt).Interface().(Describer); ok {
		return d.Description()
	}
	return ""
}

// zeroOf returns a usable zero value of vt; pointer types get a fresh allocation.
func zeroOf(vt reflect.Type) reflect.Value {
	if vt.Kind() == reflect.Ptr {
		return reflect.New(vt.Elem())
	}
	return reflect.Zero(vt)
}

func (b *schemaBuilder) union(it reflect.Type) (*Union, error) {
	types := registeredVariants(it)
	u := &Union{Type: it}
	names := make(map[string]bool)
	for _, vt := range types {
		st := vt
		if st.Kind() == reflect.Ptr {
			st = st.Elem()
		}
		s, err := b.build(st)
		if err != nil {
			return nil, err
		}
		name := variantName(vt)
		if !isValidKeySegment(name) {
			return nil, errors.Newf("union %s: invalid variant name %q", it, name)
		}
		if names[name] {
			return nil, errors.Newf("union %s: duplicate variant name %q", it, name)
		}
		names[name] = true
		u.Variants = append(u.Variants, &Variant{
			Name:   name,
			Help:   variantHelp(vt),
			Type:   vt,
			Schema: s,
		})
	}
	return u, nil
}
