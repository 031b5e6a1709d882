// FILE: lixenwraith/layerconf/merge.go
package layerconf

import "reflect"

// Take merges other into p with other taking priority: every value present in
// other replaces the one in p. Vectors are replaced only when other's is non-empty.
// Moved values are removed from other.
//
// Unions recurse when both sides chose the same variant. When p has no variant,
// it receives other's. When the chosen variants differ, nothing happens and both
// sides keep their variant data.
//
// Merging Partials of different schemas is a programming error and panics.
func (p *Partial) Take(other *Partial) {
	p.mustMatch(other)
	if p == other {
		return
	}
	p.merge(other, true)
}

// Patch merges other into p with p keeping priority: only values absent in p are
// filled from other. Vectors are filled only when p's is empty. Moved values are
// removed from other. Union rules are the same as for Take.
func (p *Partial) Patch(other *Partial) {
	p.mustMatch(other)
	if p == other {
		return
	}
	p.merge(other, false)
}

func (p *Partial) mustMatch(other *Partial) {
	if other == nil {
		panic("layerconf: merge with nil partial")
	}
	if p.schema != other.schema {
		panic("layerconf: merge of partials with different schemas: " + p.schema.Type.String() + " and " + other.schema.Type.String())
	}
}

func (p *Partial) merge(other *Partial, override bool) {
	for i, f := range p.schema.Fields {
		dst, src := &p.slots[i], &other.slots[i]
		switch f.Kind {
		case KindStruct, KindFlatten:
			dst.nested.merge(src.nested, override)
		case KindUnion:
			mergeUnion(dst, src, override)
		default:
			if !src.present(f.Kind) {
				continue
			}
			if override || !dst.present(f.Kind) {
				dst.set, dst.value = src.set, src.value
				src.set, src.value = false, reflect.Value{}
			}
		}
	}
}

func mergeUnion(dst, src *slot, override bool) {
	switch {
	case src.variant == nil:
	case dst.variant == nil:
		dst.variant, src.variant = src.variant, nil
	case dst.variant.info == src.variant.info:
		dst.variant.value.merge(src.variant.value, override)
	default:
		// Different variants chosen: intentionally a no-op.
	}
}

// conflicts lists the unions where p and other chose different variants.
// Merging ignores other's data at these paths.
func (p *Partial) conflicts(other *Partial, prefix Path) []Path {
	var out []Path
	for i, f := range p.schema.Fields {
		dst, src := &p.slots[i], &other.slots[i]
		switch f.Kind {
		case KindStruct:
			out = append(out, dst.nested.conflicts(src.nested, prefix.Child(f.Name))...)
		case KindFlatten:
			out = append(out, dst.nested.conflicts(src.nested, prefix)...)
		case KindUnion:
			if dst.variant == nil || src.variant == nil {
				continue
			}
			if dst.variant.info != src.variant.info {
				out = append(out, prefix.Child(f.Name).Child(src.variant.info.Name))
				continue
			}
			out = append(out, dst.variant.value.conflicts(src.variant.value, prefix.Child(dst.variant.info.Name))...)
		}
	}
	return out
}
