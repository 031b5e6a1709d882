// FILE: lixenwraith/layerconf/template.go
package layerconf

import (
	"bytes"
	"encoding"
	"math"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// RenderTemplate renders p as a commented TOML document. Present values are
// written as assignments, absent ones as "# key =". Reserved control fields are
// omitted. A union with a chosen variant renders only that variant; otherwise
// every variant is rendered commented out.
func RenderTemplate(p *Partial) (string, error) {
	w := &templateWriter{}
	if err := w.table(p, nil, false); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

// Template renders the template of a Full value.
func Template(full any) (string, error) {
	p, err := From(full)
	if err != nil {
		return "", err
	}
	return RenderTemplate(p)
}

// WriteTemplate renders full and writes it to path atomically.
func WriteTemplate(path string, full any) error {
	text, err := Template(full)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, []byte(text))
}

type templateWriter struct {
	b bytes.Buffer
}

func (w *templateWriter) line(commented bool, s string) {
	if commented {
		w.b.WriteString("# ")
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *templateWriter) help(text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		w.b.WriteString("# ")
		w.b.WriteString(strings.TrimRight(l, " "))
		w.b.WriteByte('\n')
	}
}

// table writes the leaves of p followed by its sub-tables.
func (w *templateWriter) table(p *Partial, header Path, commented bool) error {
	if err := w.leaves(p, commented); err != nil {
		return err
	}
	return w.tables(p, header, commented)
}

func (w *templateWriter) leaves(p *Partial, commented bool) error {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch {
		case f.Kind == KindFlatten:
			if err := w.leaves(sl.nested, commented); err != nil {
				return err
			}
		case !f.Kind.IsLeaf(), f.Role != RoleNone:
		default:
			w.help(f.Help)
			lit, ok, err := leafLiteral(f, sl)
			if err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
			if ok {
				w.line(commented, tomlKey(f.Name)+" = "+lit)
			} else {
				w.line(true, tomlKey(f.Name)+" =")
			}
		}
	}
	return nil
}

func (w *templateWriter) tables(p *Partial, header Path, commented bool) error {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindFlatten:
			if err := w.tables(sl.nested, header, commented); err != nil {
				return err
			}
		case KindStruct:
			h := header.Child(f.Name)
			w.b.WriteByte('\n')
			w.help(f.Help)
			w.line(commented, tableHeader(h))
			if err := w.table(sl.nested, h, commented); err != nil {
				return err
			}
		case KindUnion:
			for _, v := range f.Union.Variants {
				chosen := sl.variant != nil && sl.variant.info == v
				if sl.variant != nil && !chosen {
					continue
				}
				vp := NewPartial(v.Schema)
				if chosen {
					vp = sl.variant.value
				}
				h := header.Child(f.Name).Child(v.Name)
				w.b.WriteByte('\n')
				w.help(v.Help)
				w.line(commented || !chosen, tableHeader(h))
				if err := w.table(vp, h, commented || !chosen); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func tableHeader(h Path) string {
	keys := make([]string, len(h))
	for i, s := range h {
		keys[i] = tomlKey(s)
	}
	return "[" + strings.Join(keys, ".") + "]"
}

// leafLiteral renders the value of a leaf as a TOML literal. An explicit "none"
// has no TOML representation and renders as absent.
func leafLiteral(f *Field, sl *slot) (string, bool, error) {
	if !sl.present(f.Kind) {
		return "", false, nil
	}
	v := sl.value
	switch f.Kind {
	case KindOptional:
		v = v.Elem()
	case KindOptionalOptional:
		if v.Elem().IsNil() {
			return "", false, nil
		}
		v = v.Elem().Elem()
	case KindOptionalVector:
		v = v.Elem()
	}
	lit, err := tomlLiteral(v)
	return lit, err == nil, err
}

// tomlLiteral renders v as an inline TOML value.
func tomlLiteral(v reflect.Value) (string, error) {
	switch {
	case v.Kind() == reflect.Slice && !isTextScalar(v.Type()):
		parts := make([]string, v.Len())
		for i := range parts {
			s, err := tomlLiteral(v.Index(i))
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case v.Kind() == reflect.Map && !isTextScalar(v.Type()):
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := tomlLiteral(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
			if err != nil {
				return "", err
			}
			parts[i] = tomlKey(k) + " = " + s
		}
		if len(parts) == 0 {
			return "{}", nil
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any{"v": tomlNative(v)}); err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.TrimSpace(buf.String()), "v = "), nil
}

// isTextScalar reports whether a slice or map type renders as text (net.IP).
func isTextScalar(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// tomlNative converts a scalar to a value the TOML encoder writes in a form
// the file decoder reads back into the same type.
func tomlNative(v reflect.Value) any {
	switch v.Type() {
	case durationType:
		return time.Duration(v.Int()).String()
	case timeType:
		return v.Interface()
	case urlType:
		u := v.Interface().(url.URL)
		return u.String()
	case ipNetType:
		n := v.Interface().(net.IPNet)
		return n.String()
	}

	if tm, ok := asInterface[encoding.TextMarshaler](v); ok {
		if b, err := tm.MarshalText(); err == nil {
			return string(b)
		}
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := v.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return (&formatter{}).scalar(v)
}
