// FILE: lixenwraith/layerconf/format.go
package layerconf

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FormatFunc renders one scalar value as text the argument parser can parse back.
type FormatFunc func(v reflect.Value) string

// formatter renders leaf values as command-line text.
type formatter struct {
	sep    string
	custom map[reflect.Type]FormatFunc
}

// leaf renders the value held by sl. Optionals are unwrapped until a value is
// found; an empty optional vector or an explicit "none" renders as absent.
func (fm *formatter) leaf(f *Field, sl *slot) (string, bool) {
	if !sl.present(f.Kind) {
		return "", false
	}
	v := sl.value
	switch f.Kind {
	case KindScalar, KindBool:
		return fm.scalar(v), true
	case KindVector:
		return fm.join(v), true
	case KindOptional:
		return fm.scalar(v.Elem()), true
	case KindOptionalOptional:
		inner := v.Elem()
		if inner.IsNil() {
			return "", false
		}
		return fm.scalar(inner.Elem()), true
	case KindOptionalVector:
		s := v.Elem()
		if s.Len() == 0 {
			return "", false
		}
		return fm.join(s), true
	}
	return "", false
}

func (fm *formatter) join(v reflect.Value) string {
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fm.scalar(v.Index(i))
	}
	sep := fm.sep
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(parts, sep)
}

// scalar converts a single value to text. Custom formatters win, then the
// well-known network and time types, text marshalers, basic kinds and Stringers.
func (fm *formatter) scalar(v reflect.Value) string {
	if fn, ok := fm.custom[v.Type()]; ok {
		return fn(v)
	}

	switch v.Type() {
	case durationType:
		return time.Duration(v.Int()).String()
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
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Map:
		// Sorted "k=v" pairs, the form stringToMapHookFunc parses
		keys := make([]string, 0, v.Len())
		values := make(map[string]string, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			keys = append(keys, k)
			values[k] = fm.scalar(iter.Value())
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + values[k]
		}
		return strings.Join(pairs, DefaultSeparator)
	}

	if s, ok := asInterface[fmt.Stringer](v); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}

// asInterface checks v and a pointer to a copy of v for interface I.
func asInterface[I any](v reflect.Value) (I, bool) {
	var zero I
	if !v.CanInterface() {
		return zero, false
	}
	if i, ok := v.Interface().(I); ok {
		return i, true
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	if i, ok := ptr.Interface().(I); ok {
		return i, true
	}
	return zero, false
}
