// FILE: lixenwraith/layerconf/partial.go
package layerconf

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Partial is the "maybe-present" counterpart of a configuration struct.
// Every leaf may be absent, nested structs are Partials themselves and a
// union holds at most one chosen variant.
type Partial struct {
	schema *Schema
	slots  []slot
}

// slot stores one field of a Partial. Which members are used depends on the field Kind.
type slot struct {
	set     bool          // scalar and bool presence
	value   reflect.Value // leaf value, typed as the declared field type
	nested  *Partial      // struct and flatten
	variant *variantSlot  // union
}

type variantSlot struct {
	info  *Variant
	value *Partial
}

// present reports whether the leaf holds a value.
func (sl *slot) present(k Kind) bool {
	switch k {
	case KindScalar, KindBool:
		return sl.set
	case KindVector:
		return sl.value.IsValid() && sl.value.Len() > 0
	case KindOptional, KindOptionalOptional, KindOptionalVector:
		return sl.value.IsValid() && !sl.value.IsNil()
	}
	return false
}

// assign stores a decoded leaf value. Invalid values are ignored.
func (sl *slot) assign(f *Field, v reflect.Value) {
	if !v.IsValid() {
		return
	}
	sl.value = v
	if f.Kind == KindScalar || f.Kind == KindBool {
		sl.set = true
	}
}

// NewPartial returns the all-absent Partial of s.
func NewPartial(s *Schema) *Partial {
	p := &Partial{schema: s, slots: make([]slot, len(s.Fields))}
	for i, f := range s.Fields {
		if f.Kind == KindStruct || f.Kind == KindFlatten {
			p.slots[i].nested = NewPartial(f.Nested)
		}
	}
	return p
}

// Empty returns the all-absent Partial for T.
func Empty[T any]() (*Partial, error) {
	s, err := SchemaOf(reflect.TypeOf((*T)(nil)).Elem(), "")
	if err != nil {
		return nil, err
	}
	return NewPartial(s), nil
}

// From converts a Full value (struct or pointer to struct) into a fully present Partial.
func From(v any) (*Partial, error) {
	return FromWithTag(v, "")
}

// FromWithTag is like From with an explicit struct tag name.
func FromWithTag(v any, tagName string) (*Partial, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New("cannot convert nil pointer to partial")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, errors.New("cannot convert nil to partial")
	}
	s, err := SchemaOf(rv.Type(), tagName)
	if err != nil {
		return nil, err
	}
	return fromValue(s, rv)
}

func fromValue(s *Schema, rv reflect.Value) (*Partial, error) {
	p := &Partial{schema: s, slots: make([]slot, len(s.Fields))}
	for i, f := range s.Fields {
		fv := rv.Field(f.Index)
		sl := &p.slots[i]
		switch f.Kind {
		case KindScalar, KindBool:
			sl.value = cloneValue(fv)
			sl.set = true
		case KindVector:
			if !fv.IsNil() {
				sl.value = cloneValue(fv)
			}
		case KindOptional, KindOptionalOptional, KindOptionalVector:
			if !fv.IsNil() {
				sl.value = cloneValue(fv)
			}
		case KindStruct, KindFlatten:
			nested, err := fromValue(f.Nested, fv)
			if err != nil {
				return nil, err
			}
			sl.nested = nested
		case KindUnion:
			if fv.IsNil() {
				continue
			}
			elem := fv.Elem()
			v := f.Union.variantOf(elem.Type())
			if v == nil {
				return nil, errors.Newf("field %s: %s is not a registered variant of %s", f.Name, elem.Type(), f.Type)
			}
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			inner, err := fromValue(v.Schema, elem)
			if err != nil {
				return nil, err
			}
			sl.variant = &variantSlot{info: v, value: inner}
		}
	}
	return p, nil
}

// Schema returns the descriptor the Partial was built from.
func (p *Partial) Schema() *Schema {
	return p.schema
}

// Build converts the Partial into its Full value and stores it in target, which
// must be a non-nil pointer to the schema's struct type. If a required value is
// missing it returns *IncompleteError and target is left untouched.
// Fields outside the schema (untagged "-" or unexported) keep their current value.
func (p *Partial) Build(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Newf("build target must be a non-nil pointer, got %T", target)
	}
	if rv.Elem().Type() != p.schema.Type {
		return errors.Newf("build target type %s does not match schema type %s", rv.Elem().Type(), p.schema.Type)
	}
	if missing := p.Missing(); len(missing) > 0 {
		return &IncompleteError{Partial: p, Missing: missing}
	}

	out := reflect.New(p.schema.Type).Elem()
	out.Set(rv.Elem())
	p.fill(out)
	rv.Elem().Set(out)
	return nil
}

// Build converts p into a new T.
func Build[T any](p *Partial) (T, error) {
	var out T
	err := p.Build(&out)
	return out, err
}

// fill writes every schema field of p into out. p must be convertible.
func (p *Partial) fill(out reflect.Value) {
	for i, f := range p.schema.Fields {
		fv := out.Field(f.Index)
		sl := &p.slots[i]
		switch f.Kind {
		case KindStruct, KindFlatten:
			sl.nested.fill(fv)
		case KindUnion:
			if sl.variant == nil {
				fv.Set(reflect.Zero(f.Type))
				continue
			}
			vt := sl.variant.info.Type
			st := vt
			if st.Kind() == reflect.Ptr {
				st = st.Elem()
			}
			inner := reflect.New(st)
			sl.variant.value.fill(inner.Elem())
			if vt.Kind() == reflect.Ptr {
				fv.Set(inner)
			} else {
				fv.Set(inner.Elem())
			}
		default:
			if sl.value.IsValid() {
				fv.Set(cloneValue(sl.value))
			} else {
				fv.Set(reflect.Zero(f.Type))
			}
		}
	}
}

// Clone returns a deep copy of p.
func (p *Partial) Clone() *Partial {
	c := &Partial{schema: p.schema, slots: make([]slot, len(p.slots))}
	for i := range p.slots {
		src := &p.slots[i]
		dst := &c.slots[i]
		dst.set = src.set
		if src.value.IsValid() {
			dst.value = cloneValue(src.value)
		}
		if src.nested != nil {
			dst.nested = src.nested.Clone()
		}
		if src.variant != nil {
			dst.variant = &variantSlot{info: src.variant.info, value: src.variant.value.Clone()}
		}
	}
	return c
}

// find resolves path to the Partial holding the leaf and its slot index.
// With create, unchosen unions on the way select the variant named by the path.
// It returns nil when the path is unknown or crosses a different chosen variant.
func (p *Partial) find(path Path, create bool) (*Partial, int) {
	if len(path) == 0 {
		return nil, -1
	}
	head := path[0]
	for i, f := range p.schema.Fields {
		switch f.Kind {
		case KindFlatten:
			continue
		case KindStruct:
			if f.Name == head {
				return p.slots[i].nested.find(path[1:], create)
			}
		case KindUnion:
			v := f.Union.variant(head)
			if v == nil {
				continue
			}
			sl := &p.slots[i]
			if sl.variant == nil {
				if !create {
					return nil, -1
				}
				sl.variant = &variantSlot{info: v, value: NewPartial(v.Schema)}
			} else if sl.variant.info != v {
				return nil, -1
			}
			return sl.variant.value.find(path[1:], create)
		default:
			if f.Name == head && len(path) == 1 {
				return p, i
			}
		}
	}
	for i, f := range p.schema.Fields {
		if f.Kind == KindFlatten {
			if q, j := p.slots[i].nested.find(path, create); q != nil {
				return q, j
			}
		}
	}
	return nil, -1
}

// selectVariant chooses the variants named along path. The last segment must be a variant name.
func (p *Partial) selectVariant(path Path) error {
	if len(path) == 0 {
		return nil
	}
	cur := p
	rest := path
	for len(rest) > 0 {
		next, remaining, ok := cur.stepVariant(rest)
		if !ok {
			return errors.Newf("path %s does not name a selectable variant", path)
		}
		cur, rest = next, remaining
	}
	return nil
}

// stepVariant consumes struct segments and one variant segment from path.
func (p *Partial) stepVariant(path Path) (*Partial, Path, bool) {
	head := path[0]
	for i, f := range p.schema.Fields {
		switch f.Kind {
		case KindStruct:
			if f.Name == head && len(path) > 1 {
				return p.slots[i].nested.stepVariant(path[1:])
			}
		case KindUnion:
			v := f.Union.variant(head)
			if v == nil {
				continue
			}
			sl := &p.slots[i]
			if sl.variant == nil {
				sl.variant = &variantSlot{info: v, value: NewPartial(v.Schema)}
			} else if sl.variant.info != v {
				return nil, nil, false
			}
			return sl.variant.value, path[1:], true
		}
	}
	for i, f := range p.schema.Fields {
		if f.Kind == KindFlatten {
			if q, rest, ok := p.slots[i].nested.stepVariant(path); ok {
				return q, rest, true
			}
		}
	}
	return nil, nil, false
}

// Get returns the value stored at path, or false when it is absent.
func (p *Partial) Get(path Path) (any, bool) {
	q, i := p.find(path, false)
	if q == nil {
		return nil, false
	}
	sl := &q.slots[i]
	if !sl.present(q.schema.Fields[i].Kind) {
		return nil, false
	}
	return sl.value.Interface(), true
}

// Set stores value at path. Values of the declared field type are stored as is;
// anything else is decoded like a file value (weakly typed, e.g. "8080" into an int).
// Setting a path inside an unchosen union selects that variant.
func (p *Partial) Set(path Path, value any) error {
	q, i := p.find(path, true)
	if q == nil {
		return errors.Newf("no field at path %s", path)
	}
	f := q.schema.Fields[i]

	var v reflect.Value
	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Type() == f.Type {
		v = cloneValue(rv)
	} else {
		var err error
		v, err = decodeField(f, value)
		if err != nil {
			return errors.Wrapf(err, "path %s", path)
		}
	}
	if !v.IsValid() {
		q.slots[i] = slot{}
		return nil
	}
	q.slots[i].assign(f, v)
	return nil
}

// Unset makes the leaf at path absent.
func (p *Partial) Unset(path Path) {
	if q, i := p.find(path, false); q != nil {
		q.slots[i] = slot{}
	}
}

// Variant returns the chosen variant of the union field named unionField at this
// level (flattened fields included), with its Partial.
func (p *Partial) Variant(unionField string) (string, *Partial, bool) {
	for i, f := range p.schema.Fields {
		switch f.Kind {
		case KindUnion:
			if f.Name == unionField {
				if vs := p.slots[i].variant; vs != nil {
					return vs.info.Name, vs.value, true
				}
				return "", nil, false
			}
		case KindFlatten:
			if name, vp, ok := p.slots[i].nested.Variant(unionField); ok {
				return name, vp, true
			}
		}
	}
	return "", nil, false
}

// walkLeaves visits every leaf in declaration order without entering unchosen variants.
func (p *Partial) walkLeaves(prefix Path, fn func(path Path, f *Field, sl *slot)) {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindFlatten:
			sl.nested.walkLeaves(prefix, fn)
		case KindStruct:
			sl.nested.walkLeaves(prefix.Child(f.Name), fn)
		case KindUnion:
			if sl.variant != nil {
				sl.variant.value.walkLeaves(prefix.Child(sl.variant.info.Name), fn)
			}
		default:
			fn(prefix.Child(f.Name), f, sl)
		}
	}
}

// eachVariant calls fn for every chosen variant directly below this level.
// rel is the path of the struct holding the union, relative to p.
func (p *Partial) eachVariant(rel Path, fn func(rel Path, vs *variantSlot) error) error {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindFlatten:
			if err := sl.nested.eachVariant(rel, fn); err != nil {
				return err
			}
		case KindStruct:
			if err := sl.nested.eachVariant(rel.Child(f.Name), fn); err != nil {
				return err
			}
		case KindUnion:
			if sl.variant != nil {
				if err := fn(rel, sl.variant); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// reserved returns the first field with role r at this level and its slot.
func (p *Partial) reserved(r Role) (*Field, *slot) {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch {
		case f.Role == r:
			return f, sl
		case f.Kind == KindFlatten || f.Kind == KindStruct:
			if rf, rs := sl.nested.reserved(r); rf != nil {
				return rf, rs
			}
		}
	}
	return nil, nil
}

// configFiles returns the explicit file list of this level, in order.
func (p *Partial) configFiles() []string {
	f, sl := p.reserved(RoleFiles)
	if f == nil || !sl.present(f.Kind) {
		return nil
	}
	files := make([]string, sl.value.Len())
	for i := range files {
		files[i] = sl.value.Index(i).String()
	}
	return files
}

// generateRequested reports whether the generate flag is true at this level or in a chosen variant.
func (p *Partial) generateRequested() bool {
	if f, sl := p.reserved(RoleGenerate); f != nil && sl.set && sl.value.Bool() {
		return true
	}
	found := false
	_ = p.eachVariant(nil, func(_ Path, vs *variantSlot) error {
		if vs.value.generateRequested() {
			found = true
		}
		return nil
	})
	return found
}

// Debug returns a human-readable listing of every leaf, one "path = value" per line.
func (p *Partial) Debug() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("=== %s ===\n", p.schema.Type))
	fm := &formatter{sep: DefaultSeparator}
	var lines []string
	p.walkLeaves(nil, func(path Path, f *Field, sl *slot) {
		if s, ok := fm.leaf(f, sl); ok {
			lines = append(lines, fmt.Sprintf("%s = %q", path, s))
		} else {
			lines = append(lines, fmt.Sprintf("%s = <absent>", path))
		}
	})
	_ = p.eachVariant(nil, func(rel Path, vs *variantSlot) error {
		lines = append(lines, fmt.Sprintf("%s <variant>", rel.Child(vs.info.Name)))
		return nil
	})
	sort.Strings(lines)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// cloneValue copies v so the result shares no slice, map or pointer storage with it.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
