// FILE: lixenwraith/layerconf/inject.go
package layerconf

import (
	"reflect"
	"sync"
)

// DefaultSeparator joins vector elements in injected defaults and splits them on the command line.
const DefaultSeparator = ","

// Injector answers "what is the default for the leaf at this path?" from a
// resolved Partial. The argument parser consults it while building its flags.
// Returned strings are owned by the Injector and stay valid as long as it is referenced.
type Injector struct {
	root *Partial
	fm   *formatter

	mu    sync.Mutex
	cache map[string]lookupResult
}

type lookupResult struct {
	value string
	ok    bool
}

// InjectOption configures an Injector.
type InjectOption func(*Injector)

// InjectSeparator sets the string joining vector elements.
func InjectSeparator(sep string) InjectOption {
	return func(in *Injector) {
		if sep != "" {
			in.fm.sep = sep
		}
	}
}

// InjectFormatter installs fn as the renderer for values of type t.
func InjectFormatter(t reflect.Type, fn FormatFunc) InjectOption {
	return func(in *Injector) {
		in.fm.custom[t] = fn
	}
}

// NewInjector returns an Injector over p. p is read, never modified.
func NewInjector(p *Partial, opts ...InjectOption) *Injector {
	in := &Injector{
		root:  p,
		fm:    &formatter{sep: DefaultSeparator, custom: make(map[reflect.Type]FormatFunc)},
		cache: make(map[string]lookupResult),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Lookup returns the default text for the leaf at path, or false when the
// resolved value is absent or path names no leaf.
func (in *Injector) Lookup(path Path) (string, bool) {
	key := path.String()

	in.mu.Lock()
	defer in.mu.Unlock()

	if r, ok := in.cache[key]; ok {
		return r.value, r.ok
	}
	v, ok := in.root.lookup(path, in.fm)
	in.cache[key] = lookupResult{value: v, ok: ok}
	return v, ok
}

// lookup resolves path against p: direct leaves first, then named nested
// structs and the chosen union variant, then flattened fields in declared order.
func (p *Partial) lookup(path Path, fm *formatter) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	head := path[0]
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindFlatten:
		case KindStruct:
			if f.Name == head {
				return sl.nested.lookup(path[1:], fm)
			}
		case KindUnion:
			if sl.variant != nil && sl.variant.info.Name == head {
				return sl.variant.value.lookup(path[1:], fm)
			}
		default:
			if f.Name == head && len(path) == 1 {
				return fm.leaf(f, sl)
			}
		}
	}
	for i, f := range p.schema.Fields {
		if f.Kind != KindFlatten {
			continue
		}
		if v, ok := p.slots[i].nested.lookup(path, fm); ok {
			return v, true
		}
	}
	return "", false
}
