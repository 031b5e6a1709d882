// FILE: lixenwraith/layerconf/decode.go
package layerconf

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
)

// decodeTable converts one parsed document table into a Partial of s.
// With strict set, keys that match no field are an error.
func decodeTable(s *Schema, data map[string]any, strict bool) (*Partial, error) {
	p := NewPartial(s)
	seen := make(map[string]bool)
	if err := p.decodeInto(data, seen, strict, nil); err != nil {
		return nil, err
	}
	if strict {
		if err := checkUnknown(data, seen, nil); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Partial) decodeInto(data map[string]any, seen map[string]bool, strict bool, at Path) error {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		if f.Kind == KindFlatten {
			// Flattened fields share the enclosing table
			if err := sl.nested.decodeInto(data, seen, strict, at); err != nil {
				return err
			}
			continue
		}

		raw, ok := data[f.Name]
		if !ok {
			continue
		}
		seen[f.Name] = true

		// Reserved control fields are command-line only
		if f.Role != RoleNone {
			continue
		}

		key := at.Child(f.Name)
		switch f.Kind {
		case KindStruct:
			sub, ok := asTable(raw)
			if !ok {
				return errors.Newf("key %q: expected a table, got %T", key, raw)
			}
			if err := decodeSection(sl.nested, sub, strict, key); err != nil {
				return err
			}

		case KindUnion:
			sub, ok := asTable(raw)
			if !ok {
				return errors.Newf("key %q: expected a table of variants, got %T", key, raw)
			}
			if len(sub) == 0 {
				continue
			}
			if len(sub) > 1 {
				names := make([]string, 0, len(sub))
				for name := range sub {
					names = append(names, name)
				}
				sort.Strings(names)
				return errors.Newf("key %q: expected exactly one variant, found %s", key, strings.Join(names, ", "))
			}
			for name, body := range sub {
				v := f.Union.variant(name)
				if v == nil {
					return errors.Newf("key %q: unknown variant %q", key, name)
				}
				table, ok := asTable(body)
				if !ok {
					return errors.Newf("key %q: expected a table, got %T", key.Child(name), body)
				}
				vp := NewPartial(v.Schema)
				if err := decodeSection(vp, table, strict, key.Child(name)); err != nil {
					return err
				}
				sl.variant = &variantSlot{info: v, value: vp}
			}

		default:
			val, err := decodeField(f, raw)
			if err != nil {
				return errors.Wrapf(err, "key %q", key)
			}
			sl.assign(f, val)
		}
	}
	return nil
}

func decodeSection(p *Partial, data map[string]any, strict bool, at Path) error {
	seen := make(map[string]bool)
	if err := p.decodeInto(data, seen, strict, at); err != nil {
		return err
	}
	if strict {
		return checkUnknown(data, seen, at)
	}
	return nil
}

func checkUnknown(data map[string]any, seen map[string]bool, at Path) error {
	var unknown []string
	for k := range data {
		if !seen[k] {
			unknown = append(unknown, at.Child(k).String())
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Newf("unknown keys: %s", strings.Join(unknown, ", "))
}

// asTable normalizes the table representations produced by the supported parsers.
func asTable(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	case nil:
		return map[string]any{}, true
	}
	return nil, false
}

// decodeField converts a raw document or command-line value into the declared
// storage of f. A nil raw value yields an invalid Value (absent), except for
// optional-optional fields where it means an explicit "none".
func decodeField(f *Field, raw any) (reflect.Value, error) {
	switch f.Kind {
	case KindScalar, KindBool:
		if raw == nil {
			return reflect.Value{}, nil
		}
		return decodeLeaf(f.Type, raw)

	case KindVector:
		if raw == nil {
			return reflect.Value{}, nil
		}
		return decodeLeaf(f.Type, raw)

	case KindOptional:
		if raw == nil {
			return reflect.Value{}, nil
		}
		v, err := decodeLeaf(f.Elem, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(f.Elem)
		ptr.Elem().Set(v)
		return ptr, nil

	case KindOptionalOptional:
		outer := reflect.New(f.Type.Elem())
		if raw == nil {
			return outer, nil
		}
		v, err := decodeLeaf(f.Elem, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		inner := reflect.New(f.Elem)
		inner.Elem().Set(v)
		outer.Elem().Set(inner)
		return outer, nil

	case KindOptionalVector:
		if raw == nil {
			return reflect.Value{}, nil
		}
		v, err := decodeLeaf(f.Type.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(f.Type.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	}
	return reflect.Value{}, errors.Newf("field %s of kind %s holds no value", f.Name, f.Kind)
}

// decodeArgs converts the raw strings collected for one flag or environment variable.
// Vectors take every element; other kinds take the last occurrence.
func decodeArgs(f *Field, raws []string) (reflect.Value, error) {
	if len(raws) == 0 {
		return reflect.Value{}, nil
	}
	if f.isVector() {
		return decodeField(f, raws)
	}
	last := raws[len(raws)-1]
	if f.Kind == KindOptionalOptional && last == "" {
		return decodeField(f, nil)
	}
	return decodeField(f, last)
}

// decodeLeaf decodes raw into a new value of type t.
func decodeLeaf(t reflect.Type, raw any) (reflect.Value, error) {
	out := reflect.New(t)
	if rv := reflect.ValueOf(raw); rv.IsValid() && rv.Type() == t {
		out.Elem().Set(cloneValue(rv))
		return out.Elem(), nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       getDecodeHook(),
	})
	if err != nil {
		return reflect.Value{}, errors.Wrap(err, "decoder creation failed")
	}
	if err := decoder.Decode(raw); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

// getDecodeHook returns the composite decode hook for all type conversions
func getDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Network types
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.TextUnmarshallerHookFunc(),
		stringToMapHookFunc(),
		mapstructure.StringToSliceHookFunc(DefaultSeparator),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, errors.Newf("invalid IP length: %d", len(str))
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, errors.Newf("invalid IP address: %s", str)
		}

		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != ipNetType {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, errors.Newf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, errors.Wrap(err, "invalid CIDR")
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != urlType {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, errors.Newf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, errors.Wrap(err, "invalid URL")
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// stringToMapHookFunc parses "k=v,k2=v2" into a string-keyed map, the form
// produced for map values on the command line and in environment variables.
func stringToMapHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Map {
			return data, nil
		}
		out := make(map[string]any)
		for _, pair := range splitList(data.(string), DefaultSeparator) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, errors.Newf("invalid map entry %q, expected key=value", pair)
			}
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return out, nil
	}
}
