// FILE: lixenwraith/layerconf/builder.go
package layerconf

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Options configures resolution. The zero value is usable after applyDefaults.
type Options struct {
	// Name is the program name shown in usage output
	Name string

	// TagName selects the struct tag holding external names (default "toml")
	TagName string

	// Separator joins and splits vector values on the command line and in the environment
	Separator string

	// FileFormat forces "toml", "json" or "yaml"; "auto" detects per file
	FileFormat string

	// Strict rejects unknown keys in configuration files
	Strict bool

	// MaxFileSize bounds configuration file size in bytes (0 = unlimited)
	MaxFileSize int64

	// DefaultFiles overrides the root type's DefaultConfigFiles
	DefaultFiles func() []string

	// VariantDefaultFiles overrides DefaultConfigFiles per variant path, e.g. "serve"
	VariantDefaultFiles map[string]func() []string

	// Defaults is the lowest-priority layer, below default files
	Defaults *Partial

	// EnvPrefix enables the environment layer; "APP_" maps serve.port to APP_SERVE_PORT
	EnvPrefix string

	// EnvTransform customizes how paths map to environment variables
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which paths are checked for env vars (nil = all)
	EnvWhitelist map[string]bool

	// LookupEnv replaces os.LookupEnv
	LookupEnv func(string) (string, bool)

	// Formatters render injected defaults of specific types
	Formatters map[reflect.Type]FormatFunc

	// Logger receives debug records about loaded layers
	Logger *slog.Logger

	// Out and Err receive help and error output of the argument parser
	Out io.Writer
	Err io.Writer
}

// DefaultOptions returns the standard options
func DefaultOptions() Options {
	o := Options{}
	o.applyDefaults()
	return o
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = filepath.Base(os.Args[0])
	}
	if o.TagName == "" {
		o.TagName = DefaultTagName
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.FileFormat == "" {
		o.FileFormat = FormatAuto
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
}

// ValidatorFunc validates the loaded configuration. It receives the target pointer passed to Load.
type ValidatorFunc func(cfg any) error

// Builder provides a fluent interface for loading configurations
type Builder struct {
	opts       Options
	args       []string
	defaults   any
	err        error
	validators []ValidatorFunc
}

// NewBuilder creates a new configuration builder reading os.Args
func NewBuilder() *Builder {
	return &Builder{
		opts:       DefaultOptions(),
		args:       os.Args[1:],
		validators: make([]ValidatorFunc, 0),
	}
}

// WithName sets the program name used in help output
func (b *Builder) WithName(name string) *Builder {
	b.opts.Name = name
	return b
}

// WithArgs sets the command-line arguments, without the program name
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithTagName sets the struct tag used for external names
func (b *Builder) WithTagName(tagName string) *Builder {
	switch tagName {
	case "toml", "json", "yaml":
		b.opts.TagName = tagName
	default:
		b.err = errors.Newf("unsupported tag name %q, must be toml, json or yaml", tagName)
	}
	return b
}

// WithSeparator sets the vector separator for command-line and environment values
func (b *Builder) WithSeparator(sep string) *Builder {
	if sep == "" {
		b.err = errors.New("separator must not be empty")
		return b
	}
	b.opts.Separator = sep
	return b
}

// WithFileFormat forces the configuration file format
func (b *Builder) WithFileFormat(format string) *Builder {
	switch format {
	case FormatAuto, FormatTOML, FormatJSON, FormatYAML:
		b.opts.FileFormat = format
	default:
		b.err = errors.Newf("unsupported file format %q", format)
	}
	return b
}

// WithStrict rejects unknown keys in configuration files
func (b *Builder) WithStrict(strict bool) *Builder {
	b.opts.Strict = strict
	return b
}

// WithMaxFileSize bounds the size of configuration files
func (b *Builder) WithMaxFileSize(size int64) *Builder {
	b.opts.MaxFileSize = size
	return b
}

// WithDefaultFiles replaces the built-in default file list
func (b *Builder) WithDefaultFiles(paths ...string) *Builder {
	files := append([]string(nil), paths...)
	b.opts.DefaultFiles = func() []string { return files }
	return b
}

// WithDefaultFilesFunc computes the default file list at resolution time
func (b *Builder) WithDefaultFilesFunc(fn func() []string) *Builder {
	b.opts.DefaultFiles = fn
	return b
}

// WithVariantDefaultFiles replaces the default file list of the variant at path, e.g. "serve"
func (b *Builder) WithVariantDefaultFiles(path string, paths ...string) *Builder {
	if b.opts.VariantDefaultFiles == nil {
		b.opts.VariantDefaultFiles = make(map[string]func() []string)
	}
	files := append([]string(nil), paths...)
	b.opts.VariantDefaultFiles[path] = func() []string { return files }
	return b
}

// WithDefaults sets the lowest-priority layer. defaults is a Partial or a
// pointer to a struct whose non-zero leaves become defaults, read with the
// tag name in effect when the resolver is built.
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithEnvPrefix enables the environment layer with the given variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithEnvTransform sets a custom environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.opts.EnvTransform = fn
	return b
}

// WithEnvWhitelist limits which paths are checked for env vars
func (b *Builder) WithEnvWhitelist(paths ...string) *Builder {
	if b.opts.EnvWhitelist == nil {
		b.opts.EnvWhitelist = make(map[string]bool)
	}
	for _, path := range paths {
		b.opts.EnvWhitelist[path] = true
	}
	return b
}

// WithFormatter renders injected defaults of type t with fn
func (b *Builder) WithFormatter(t reflect.Type, fn FormatFunc) *Builder {
	if b.opts.Formatters == nil {
		b.opts.Formatters = make(map[reflect.Type]FormatFunc)
	}
	b.opts.Formatters[t] = fn
	return b
}

// WithLogger sets the logger for debug records
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.opts.Logger = logger
	}
	return b
}

// WithOutput redirects help and error output of the argument parser
func (b *Builder) WithOutput(out, errOut io.Writer) *Builder {
	if out != nil {
		b.opts.Out = out
	}
	if errOut != nil {
		b.opts.Err = errOut
	}
	return b
}

// WithValidator adds a validation function that runs after a successful load
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Resolver returns a Resolver for the type of target.
func (b *Builder) Resolver(target any) (*Resolver, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Ptr {
		return nil, errors.Newf("load target must be a non-nil pointer to struct, got %T", target)
	}

	opts := b.opts
	switch d := b.defaults.(type) {
	case nil:
	case *Partial:
		opts.Defaults = d
	default:
		p, err := nonZeroPartial(d, opts.TagName)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register defaults")
		}
		opts.Defaults = p
	}
	return NewResolver(t.Elem(), opts)
}

// Partial resolves all layers for the type of target without validation or conversion.
func (b *Builder) Partial(target any) (*Partial, error) {
	r, err := b.Resolver(target)
	if err != nil {
		return nil, err
	}
	return r.Resolve(b.args)
}

// Load resolves, validates and converts the configuration into target.
func (b *Builder) Load(target any) error {
	r, err := b.Resolver(target)
	if err != nil {
		return err
	}
	if err := r.Load(target, b.args); err != nil {
		return err
	}

	for _, validator := range b.validators {
		if err := validator(target); err != nil {
			return errors.Wrap(err, "configuration validation failed")
		}
	}
	return nil
}

// MustLoad is like Load but panics on failure. Help and template output still
// exit the process with status 0 through Exit.
func (b *Builder) MustLoad(target any) {
	err := b.Load(target)
	if err == nil {
		return
	}
	if ExitCode(err) == ExitSuccess {
		Exit(err)
	}
	panic("config load failed: " + err.Error())
}

// nonZeroPartial converts a struct into a Partial where zero-valued leaves are absent.
func nonZeroPartial(v any, tagName string) (*Partial, error) {
	p, err := FromWithTag(v, tagName)
	if err != nil {
		return nil, err
	}
	p.dropZero()
	return p, nil
}

func (p *Partial) dropZero() {
	for i, f := range p.schema.Fields {
		sl := &p.slots[i]
		switch f.Kind {
		case KindStruct, KindFlatten:
			sl.nested.dropZero()
		case KindUnion:
			if sl.variant != nil {
				sl.variant.value.dropZero()
			}
		case KindScalar, KindBool:
			if sl.set && sl.value.IsZero() {
				*sl = slot{}
			}
		}
	}
}
