// FILE: lixenwraith/layerconf/complete.go
package layerconf

// IsComplete reports whether every leaf is present. Vectors count as present
// even when empty; a union needs a chosen variant whose Partial is complete.
func (p *Partial) IsComplete() bool {
	var missing []Path
	p.missing(nil, true, &missing)
	return len(missing) == 0
}

// IsConvertible reports whether Build would succeed. Bools, vectors and
// optionals convert from absent to their zero value; every other leaf must be
// present and a union needs a chosen, convertible variant.
func (p *Partial) IsConvertible() bool {
	return len(p.Missing()) == 0
}

// Missing lists the paths that block conversion, in declaration order.
// An unchosen union is reported by the union field's path.
func (p *Partial) Missing() []Path {
	var missing []Path
	p.missing(nil, false, &missing)
	return missing
}

func (p *Partial) missing(prefix Path, strict bool, out *[]Path) {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindScalar:
			if !sl.set {
				*out = append(*out, prefix.Child(f.Name))
			}
		case KindBool:
			if strict && !sl.set {
				*out = append(*out, prefix.Child(f.Name))
			}
		case KindVector:
		case KindOptional, KindOptionalOptional, KindOptionalVector:
			if strict && !sl.present(f.Kind) {
				*out = append(*out, prefix.Child(f.Name))
			}
		case KindStruct:
			sl.nested.missing(prefix.Child(f.Name), strict, out)
		case KindFlatten:
			sl.nested.missing(prefix, strict, out)
		case KindUnion:
			if sl.variant == nil {
				*out = append(*out, prefix.Child(f.Name))
				continue
			}
			sl.variant.value.missing(prefix.Child(sl.variant.info.Name), strict, out)
		}
	}
}
