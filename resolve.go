// FILE: lixenwraith/layerconf/resolve.go
package layerconf

import (
	"log/slog"
	"os"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Source names a configuration layer in log records.
type Source string

const (
	// SourceCLI represents values given on the command line
	SourceCLI Source = "cli"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceFile represents values loaded from explicitly requested files
	SourceFile Source = "file"
	// SourceDefault represents values loaded from default configuration files
	SourceDefault Source = "default"
)

// Resolver runs the layered resolution for one configuration type.
// Precedence, highest first: command line, environment (when enabled),
// explicit files, default files, built-in defaults, implicit zero values.
type Resolver struct {
	schema *Schema
	opts   Options
	loader *fileLoader
	env    *envSource
	logger *slog.Logger
}

// NewResolver prepares a Resolver for struct type t.
func NewResolver(t reflect.Type, opts Options) (*Resolver, error) {
	opts.applyDefaults()
	s, err := SchemaOf(t, opts.TagName)
	if err != nil {
		return nil, err
	}
	if opts.Defaults != nil && opts.Defaults.schema != s {
		return nil, errors.Newf("defaults partial of %s does not match %s", opts.Defaults.schema.Type, s.Type)
	}

	r := &Resolver{
		schema: s,
		opts:   opts,
		logger: opts.Logger,
		loader: &fileLoader{
			format:      opts.FileFormat,
			strict:      opts.Strict,
			maxFileSize: opts.MaxFileSize,
			logger:      opts.Logger,
		},
	}
	if opts.EnvPrefix != "" || opts.EnvTransform != nil {
		transform := opts.EnvTransform
		if transform == nil {
			transform = defaultEnvTransform(opts.EnvPrefix)
		}
		lookup := opts.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		r.env = &envSource{
			transform: transform,
			whitelist: opts.EnvWhitelist,
			sep:       opts.Separator,
			lookup:    lookup,
		}
	}
	return r, nil
}

// Schema returns the descriptor of the configuration type.
func (r *Resolver) Schema() *Schema {
	return r.schema
}

// Resolve merges all layers for args into a Partial without validating it.
// If the generate flag is set it returns *TemplateGenerated instead.
func (r *Resolver) Resolve(args []string) (*Partial, error) {
	res, err := parseRelaxed(r.schema, &r.opts, args)
	if err != nil {
		return nil, err
	}
	return r.resolve(res)
}

// Load resolves args, validates them with the full argument parser using the
// resolved values as defaults, and builds the result into target.
// target is written only on success.
func (r *Resolver) Load(target any, args []string) error {
	res, err := parseRelaxed(r.schema, &r.opts, args)
	if err != nil {
		return err
	}

	resolved, err := r.resolve(res)
	if err != nil {
		if !res.help {
			return err
		}
		// Help renders with whatever the command line provided
		r.logger.Debug("resolution failed while help was requested", "error", err)
		resolved = res.partial
	}

	if err := parseFinal(r.schema, &r.opts, args, r.Injector(resolved)); err != nil {
		return err
	}

	if err := resolved.Build(target); err != nil {
		return err
	}
	r.logger.Debug("configuration loaded", "type", r.schema.Type.String())
	return nil
}

// Injector returns the default injector for p configured with the resolver's options.
func (r *Resolver) Injector(p *Partial) *Injector {
	opts := []InjectOption{InjectSeparator(r.opts.Separator)}
	for t, fn := range r.opts.Formatters {
		opts = append(opts, InjectFormatter(t, fn))
	}
	return NewInjector(p, opts...)
}

func (r *Resolver) resolve(res *cliResult) (*Partial, error) {
	cli := res.partial
	r.logger.Debug("command line parsed", "source", SourceCLI, "values", countPresent(cli))

	if !res.help && cli.generateRequested() {
		text, err := RenderTemplate(cli)
		if err != nil {
			return nil, errors.Wrap(err, "failed to render config template")
		}
		return nil, &TemplateGenerated{Text: text}
	}

	if err := r.resolveLevel(cli, Path{}, r.rootDefaultFiles()); err != nil {
		return nil, err
	}

	if r.opts.Defaults != nil {
		cli.Patch(r.opts.Defaults.Clone())
	}
	return cli, nil
}

// resolveLevel merges the file and environment layers of one level into cli,
// then descends into the chosen variants.
func (r *Resolver) resolveLevel(cli *Partial, base Path, defaultFiles []string) error {
	s := cli.schema

	defaults, err := r.loader.fold(s, defaultFiles, SourceDefault)
	if err != nil {
		return err
	}

	explicit := cli.configFiles()
	files, err := r.loader.fold(s, explicit, SourceFile)
	if err != nil {
		return err
	}

	files.Patch(defaults)

	if r.env != nil {
		env, err := r.env.partial(s, base)
		if err != nil {
			return err
		}
		r.logger.Debug("environment read", "source", SourceEnv, "level", base.String(), "values", countPresent(env))
		cli.Patch(env)
	}

	for _, c := range cli.conflicts(files, base) {
		r.logger.Warn("ignoring file configuration for a variant that was not selected", "path", c.String())
	}
	cli.Patch(files)
	r.logger.Debug("level resolved",
		"level", base.String(),
		"default_files", len(defaultFiles),
		"explicit_files", len(explicit))

	return cli.eachVariant(nil, func(rel Path, vs *variantSlot) error {
		vpath := append(append(base.clone(), rel...), vs.info.Name)
		return r.resolveLevel(vs.value, vpath, r.variantDefaultFiles(vpath, vs.info))
	})
}

func (r *Resolver) rootDefaultFiles() []string {
	if r.opts.DefaultFiles != nil {
		return r.opts.DefaultFiles()
	}
	return r.schema.DefaultFiles()
}

func (r *Resolver) variantDefaultFiles(path Path, v *Variant) []string {
	if fn, ok := r.opts.VariantDefaultFiles[path.String()]; ok && fn != nil {
		return fn()
	}
	return v.Schema.DefaultFiles()
}

// countPresent counts present leaves, for log records.
func countPresent(p *Partial) int {
	n := 0
	p.walkLeaves(nil, func(_ Path, f *Field, sl *slot) {
		if sl.present(f.Kind) {
			n++
		}
	})
	return n
}
