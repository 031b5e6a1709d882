// FILE: lixenwraith/layerconf/schema.go
package layerconf

import (
	"encoding"
	"net"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultTagName is the struct tag used for external field names.
const DefaultTagName = "toml"

const (
	optionsTag = "layer"
	helpTag    = "help"
	shortTag   = "short"
)

// Kind classifies how a field participates in merging.
type Kind int

const (
	// KindScalar is a plain value (string, number, duration, text-unmarshalable type, map).
	KindScalar Kind = iota
	// KindBool is a boolean; absent converts to false.
	KindBool
	// KindVector is a slice; empty means unset and converts to empty.
	KindVector
	// KindOptional is *T; nil means unset.
	KindOptional
	// KindOptionalOptional is **T; outer nil means unset, inner nil is an explicit "none".
	KindOptionalOptional
	// KindOptionalVector is *[]T; nil means unset.
	KindOptionalVector
	// KindStruct is a nested struct addressed through its own segment.
	KindStruct
	// KindFlatten is a nested struct whose fields are addressed as if declared inline.
	KindFlatten
	// KindUnion is a tagged union (subcommand) of registered variant structs.
	KindUnion
)

var kindNames = [...]string{
	KindScalar:           "scalar",
	KindBool:             "bool",
	KindVector:           "vector",
	KindOptional:         "optional",
	KindOptionalOptional: "optional-optional",
	KindOptionalVector:   "optional-vector",
	KindStruct:           "struct",
	KindFlatten:          "flatten",
	KindUnion:            "union",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsLeaf reports whether the kind holds a value rather than further fields.
func (k Kind) IsLeaf() bool {
	return k <= KindOptionalVector
}

// Role marks reserved control fields.
type Role int

const (
	// RoleNone is an ordinary configuration field.
	RoleNone Role = iota
	// RoleFiles is the list of explicit configuration files to load.
	RoleFiles
	// RoleGenerate requests template generation instead of normal execution.
	RoleGenerate
)

// Field describes one struct field of a configuration type.
type Field struct {
	Name   string       // external name, used as path segment and file key
	GoName string       // Go struct field name
	Index  int          // struct field index
	Kind   Kind         // merge behaviour
	Role   Role         // reserved control role
	Type   reflect.Type // declared Go type
	Elem   reflect.Type // scalar element type for leaf kinds
	Help   string       // help text for flags and templates
	Short  string       // CLI shorthand
	Nested *Schema      // KindStruct and KindFlatten
	Union  *Union       // KindUnion
}

// isVector reports whether raw CLI values accumulate into a list.
func (f *Field) isVector() bool {
	return f.Kind == KindVector || f.Kind == KindOptionalVector
}

// isBoolFlag reports whether the CLI flag can be given without a value.
func (f *Field) isBoolFlag() bool {
	return f.Elem != nil && f.Elem.Kind() == reflect.Bool && (f.Kind == KindBool || f.Kind == KindOptional)
}

// requiredOnCLI reports whether the final parse must see a value for this field.
func (f *Field) requiredOnCLI() bool {
	return f.Kind == KindScalar && f.Role == RoleNone
}

// Schema is the runtime descriptor of one configuration struct type.
// Schemas are built once per type and tag name, then shared.
type Schema struct {
	Type   reflect.Type
	Fields []*Field
}

// DefaultFiler is implemented by configuration types (root or union variant)
// that declare built-in fallback configuration files. Later entries override earlier ones.
type DefaultFiler interface {
	DefaultConfigFiles() []string
}

// DefaultFiles returns the type's built-in fallback file list, if it declares one.
func (s *Schema) DefaultFiles() []string {
	if df, ok := reflect.New(s.Type).Interface().(DefaultFiler); ok {
		return df.DefaultConfigFiles()
	}
	return nil
}

// Field returns the direct field with the given external name.
func (s *Schema) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type schemaKey struct {
	t   reflect.Type
	tag string
}

var (
	schemaCache sync.Map   // schemaKey -> *Schema
	schemaMu    sync.Mutex // serializes construction
)

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	urlType             = reflect.TypeOf(url.URL{})
	ipNetType           = reflect.TypeOf(net.IPNet{})
)

// SchemaOf returns the descriptor for struct type t (pointers are dereferenced).
// tagName selects the struct tag holding external names; empty means DefaultTagName.
func SchemaOf(t reflect.Type, tagName string) (*Schema, error) {
	if tagName == "" {
		tagName = DefaultTagName
	}
	if t == nil {
		return nil, errors.New("schema requires a struct type, got nil")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf("schema requires a struct type, got %s", t)
	}

	key := schemaKey{t: t, tag: tagName}
	if s, ok := schemaCache.Load(key); ok {
		return s.(*Schema), nil
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	b := &schemaBuilder{tagName: tagName, building: make(map[reflect.Type]*Schema)}
	s, err := b.build(t)
	if err != nil {
		return nil, err
	}
	for bt, bs := range b.building {
		schemaCache.Store(schemaKey{t: bt, tag: tagName}, bs)
	}
	return s, nil
}

// MustSchemaOf is like SchemaOf but panics on error.
func MustSchemaOf(t reflect.Type, tagName string) *Schema {
	s, err := SchemaOf(t, tagName)
	if err != nil {
		panic(err)
	}
	return s
}

type schemaBuilder struct {
	tagName  string
	building map[reflect.Type]*Schema
}

func (b *schemaBuilder) build(t reflect.Type) (*Schema, error) {
	if s, ok := schemaCache.Load(schemaKey{t: t, tag: b.tagName}); ok {
		return s.(*Schema), nil
	}
	if s, ok := b.building[t]; ok {
		// Recursive reference through a union variant
		return s, nil
	}

	s := &Schema{Type: t}
	b.building[t] = s

	var errs []string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get(b.tagName)
		if tag == "-" {
			continue
		}

		name := sf.Name
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		f, err := b.field(sf, name, i)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		s.Fields = append(s.Fields, f)
	}

	if len(errs) > 0 {
		delete(b.building, t)
		return nil, errors.Newf("invalid configuration type %s: %s", t, strings.Join(errs, "; "))
	}

	if err := checkNames(s); err != nil {
		delete(b.building, t)
		return nil, errors.Wrapf(err, "invalid configuration type %s", t)
	}

	return s, nil
}

func (b *schemaBuilder) field(sf reflect.StructField, name string, index int) (*Field, error) {
	opts := parseOptions(sf.Tag.Get(optionsTag))

	f := &Field{
		Name:   name,
		GoName: sf.Name,
		Index:  index,
		Type:   sf.Type,
		Help:   sf.Tag.Get(helpTag),
		Short:  sf.Tag.Get(shortTag),
	}

	kind, elem, err := classify(sf.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", sf.Name)
	}
	f.Kind = kind
	f.Elem = elem

	switch {
	case opts["files"]:
		if kind != KindVector || elem.Kind() != reflect.String {
			return nil, errors.Newf("field %s: files field must be a []string, got %s", sf.Name, sf.Type)
		}
		f.Role = RoleFiles
	case opts["generate"]:
		if kind != KindBool {
			return nil, errors.Newf("field %s: generate field must be a bool, got %s", sf.Name, sf.Type)
		}
		f.Role = RoleGenerate
	}

	switch kind {
	case KindStruct:
		if opts["flatten"] || sf.Anonymous {
			f.Kind = KindFlatten
		}
		nested, err := b.build(sf.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", sf.Name)
		}
		f.Nested = nested
		f.Elem = nil
	case KindUnion:
		u, err := b.union(sf.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", sf.Name)
		}
		f.Union = u
		f.Elem = nil
	}

	if f.Kind != KindFlatten && !isValidKeySegment(f.Name) {
		return nil, errors.Newf("field %s: invalid name %q", sf.Name, f.Name)
	}
	if len(f.Short) > 1 {
		return nil, errors.Newf("field %s: shorthand %q must be a single character", sf.Name, f.Short)
	}

	return f, nil
}

// parseOptions splits a comma-separated option tag into a set.
func parseOptions(tag string) map[string]bool {
	opts := make(map[string]bool)
	for _, o := range strings.Split(tag, ",") {
		if o = strings.TrimSpace(o); o != "" {
			opts[o] = true
		}
	}
	return opts
}

// isScalarType reports whether t is stored as a single opaque value.
func isScalarType(t reflect.Type) bool {
	if t == urlType || t == ipNetType {
		return true
	}
	if t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String && isScalarType(t.Elem())
	}
	return false
}

// classify maps a Go field type to its Kind and scalar element type.
func classify(t reflect.Type) (Kind, reflect.Type, error) {
	if isScalarType(t) {
		if t.Kind() == reflect.Bool {
			return KindBool, t, nil
		}
		return KindScalar, t, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		if isScalarType(t.Elem()) {
			return KindVector, t.Elem(), nil
		}
	case reflect.Ptr:
		e := t.Elem()
		switch {
		case isScalarType(e):
			return KindOptional, e, nil
		case e.Kind() == reflect.Ptr && isScalarType(e.Elem()):
			return KindOptionalOptional, e.Elem(), nil
		case e.Kind() == reflect.Slice && isScalarType(e.Elem()):
			return KindOptionalVector, e.Elem(), nil
		}
	case reflect.Struct:
		return KindStruct, t, nil
	case reflect.Interface:
		if registeredVariants(t) != nil {
			return KindUnion, t, nil
		}
		return 0, nil, errors.Newf("interface type %s is not registered as a union", t)
	}

	return 0, nil, errors.Newf("unsupported type %s", t)
}

// checkNames rejects ambiguous names across a level, including flattened fields.
// Path names (fields and variants) and file keys (fields and union fields) are checked separately.
func checkNames(s *Schema) error {
	pathNames := make(map[string]bool)
	fileKeys := make(map[string]bool)
	return collectNames(s, pathNames, fileKeys)
}

func collectNames(s *Schema, pathNames, fileKeys map[string]bool) error {
	for _, f := range s.Fields {
		switch f.Kind {
		case KindFlatten:
			if err := collectNames(f.Nested, pathNames, fileKeys); err != nil {
				return err
			}
			continue
		case KindUnion:
			for _, v := range f.Union.Variants {
				if pathNames[v.Name] {
					return errors.Newf("duplicate name %q", v.Name)
				}
				pathNames[v.Name] = true
			}
		default:
			if pathNames[f.Name] {
				return errors.Newf("duplicate name %q", f.Name)
			}
			pathNames[f.Name] = true
		}

		if fileKeys[f.Name] {
			return errors.Newf("duplicate key %q", f.Name)
		}
		fileKeys[f.Name] = true
	}
	return nil
}
