// FILE: lixenwraith/layerconf/path.go
package layerconf

import "strings"

// Path addresses one leaf field through nested structs and union variants.
// Flattened structs contribute no segment, a union contributes the name of
// its chosen variant, and vectors or optionals are addressed as their element.
type Path []string

// ParsePath splits a dot-separated path such as "serve.http.port".
// An empty string yields an empty Path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, "."))
}

// String returns the dot-joined form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether both paths have the same segments in the same order.
// Comparison is exact and case-sensitive.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a new path with segment appended. The receiver is never aliased.
func (p Path) Child(segment string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// HasPrefix reports whether prefix is a leading sub-sequence of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// clone copies the segments so later appends cannot alias.
func (p Path) clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}
