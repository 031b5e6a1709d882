// FILE: lixenwraith/layerconf/cli.go
package layerconf

import (
	"io"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandBinding ties one schema level to a cobra command.
type commandBinding struct {
	cmd     *cobra.Command
	schema  *Schema
	prefix  Path     // variant path leading to this level
	variant *Variant // nil for the root
	flags   []*flagValue
}

// cliBuilder builds the command tree for a schema. With an injector, flags
// carry injected defaults and required flags are enforced (final parse);
// without, nothing is required (relaxed parse).
type cliBuilder struct {
	name     string
	sep      string
	injector *Injector
	out      io.Writer
	errOut   io.Writer

	byCmd map[*cobra.Command]*commandBinding
	ran   *cobra.Command
}

func newCLIBuilder(opts *Options, injector *Injector) *cliBuilder {
	return &cliBuilder{
		name:     opts.Name,
		sep:      opts.Separator,
		injector: injector,
		out:      opts.Out,
		errOut:   opts.Err,
		byCmd:    make(map[*cobra.Command]*commandBinding),
	}
}

// build returns the root command for s.
func (cb *cliBuilder) build(s *Schema) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           cb.name,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	if cb.out != nil {
		root.SetOut(cb.out)
	}
	if cb.errOut != nil {
		root.SetErr(cb.errOut)
	}

	if err := cb.bind(root, s, Path{}, nil); err != nil {
		return nil, err
	}
	root.InitDefaultHelpCmd()
	return root, nil
}

func (cb *cliBuilder) bind(cmd *cobra.Command, s *Schema, prefix Path, v *Variant) error {
	b := &commandBinding{cmd: cmd, schema: s, prefix: prefix, variant: v}
	cb.byCmd[cmd] = b

	var unions []Path
	var unionFields []*Field
	err := walkLevel(s, nil, func(rel Path, f *Field) error {
		if f.Kind == KindUnion {
			unions = append(unions, rel)
			unionFields = append(unionFields, f)
			return nil
		}
		return cb.addFlag(b, rel, f)
	})
	if err != nil {
		return err
	}

	if len(unionFields) > 1 {
		return errors.Newf("%s: at most one union field per command level, found %d", s.Type, len(unionFields))
	}
	if len(unionFields) == 1 {
		for _, uv := range unionFields[0].Union.Variants {
			sub := &cobra.Command{
				Use:           uv.Name,
				Short:         uv.Help,
				Args:          cobra.NoArgs,
				SilenceErrors: true,
				SilenceUsage:  true,
			}
			cmd.AddCommand(sub)
			vprefix := append(append(prefix.clone(), unions[0]...), uv.Name)
			if err := cb.bind(sub, uv.Schema, vprefix, uv); err != nil {
				return err
			}
		}
	}

	cmd.RunE = func(c *cobra.Command, _ []string) error {
		cb.ran = c
		return nil
	}
	return nil
}

func (cb *cliBuilder) addFlag(b *commandBinding, rel Path, f *Field) error {
	fv := &flagValue{
		field: f,
		path:  append(b.prefix.clone(), rel...),
		sep:   cb.sep,
	}
	name := flagName(rel)
	flags := b.cmd.PersistentFlags()
	if flags.Lookup(name) != nil {
		return errors.Newf("duplicate flag --%s", name)
	}

	fl := flags.VarPF(fv, name, f.Short, f.Help)
	if f.isBoolFlag() {
		fl.NoOptDefVal = "true"
	}

	if cb.injector != nil {
		if def, ok := cb.injector.Lookup(fv.path); ok {
			fv.inject(def)
			fl.DefValue = def
		} else if f.requiredOnCLI() {
			if err := b.cmd.MarkPersistentFlagRequired(name); err != nil {
				return errors.Wrapf(err, "flag --%s", name)
			}
		}
	}

	b.flags = append(b.flags, fv)
	return nil
}

// chain returns the bindings from the root down to cmd.
func (cb *cliBuilder) chain(cmd *cobra.Command) []*commandBinding {
	var out []*commandBinding
	for c := cmd; c != nil; c = c.Parent() {
		if b, ok := cb.byCmd[c]; ok {
			out = append([]*commandBinding{b}, out...)
		}
	}
	return out
}

// cliResult is the outcome of the relaxed parse.
type cliResult struct {
	partial *Partial
	help    bool
}

// argSegment is the run of args belonging to one command level.
type argSegment struct {
	cmd  *cobra.Command
	args []string
}

// splitArgs cuts args at each subcommand token so every level's flags are
// parsed by that level's command. A flag before "serve" belongs to the root
// even when serve declares a flag of the same name.
func splitArgs(root *cobra.Command, args []string) ([]argSegment, error) {
	root.InitDefaultHelpFlag()
	segs := []argSegment{{cmd: root}}
	cur := &segs[0]

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			cur.args = append(cur.args, args[i:]...)
			return segs, nil
		case strings.HasPrefix(arg, "--"):
			cur.args = append(cur.args, arg)
			name := arg[2:]
			if strings.Contains(name, "=") {
				continue
			}
			if f := lookupFlag(cur.cmd, name, false); (f == nil || f.NoOptDefVal == "") && i+1 < len(args) {
				i++
				cur.args = append(cur.args, args[i])
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			cur.args = append(cur.args, arg)
			if len(arg) != 2 {
				continue
			}
			if f := lookupFlag(cur.cmd, arg[1:], true); (f == nil || f.NoOptDefVal == "") && i+1 < len(args) {
				i++
				cur.args = append(cur.args, args[i])
			}
		default:
			sub := findSubcommand(cur.cmd, arg)
			if sub == nil {
				if !cur.cmd.HasParent() && cur.cmd.HasSubCommands() {
					return nil, errors.Newf("unknown command %q for %q", arg, cur.cmd.CommandPath())
				}
				// positional, the rest stays on this level
				cur.args = append(cur.args, args[i:]...)
				return segs, nil
			}
			sub.InitDefaultHelpFlag()
			segs = append(segs, argSegment{cmd: sub})
			cur = &segs[len(segs)-1]
		}
	}
	return segs, nil
}

func findSubcommand(c *cobra.Command, name string) *cobra.Command {
	for _, sub := range c.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}

// lookupFlag finds a flag visible on c, with c's own flags shadowing those
// inherited from its ancestors.
func lookupFlag(c *cobra.Command, name string, short bool) *pflag.Flag {
	lookup := func(fs *pflag.FlagSet) *pflag.Flag {
		if short {
			return fs.ShorthandLookup(name)
		}
		return fs.Lookup(name)
	}
	if f := lookup(c.Flags()); f != nil {
		return f
	}
	for cur := c; cur != nil; cur = cur.Parent() {
		if f := lookup(cur.PersistentFlags()); f != nil {
			return f
		}
	}
	return nil
}

func helpRequested(c *cobra.Command) bool {
	help, err := c.Flags().GetBool("help")
	return err == nil && help
}

// parseRelaxed parses args without defaults or required flags, tolerating
// unknown flags, and returns the values the user actually gave.
func parseRelaxed(s *Schema, opts *Options, args []string) (*cliResult, error) {
	cb := newCLIBuilder(opts, nil)
	root, err := cb.build(s)
	if err != nil {
		return nil, err
	}

	segs, err := splitArgs(root, args)
	if err != nil {
		return nil, &ArgumentError{Err: err}
	}

	res := &cliResult{partial: NewPartial(s)}
	for _, seg := range segs {
		seg.cmd.FParseErrWhitelist.UnknownFlags = true
		if err := seg.cmd.ParseFlags(seg.args); err != nil {
			return nil, &ArgumentError{Err: err}
		}
		if helpRequested(seg.cmd) {
			res.help = true
		}
	}
	target := segs[len(segs)-1].cmd
	if target.Name() == "help" && target.Parent() == root {
		res.help = true
	}

	for _, b := range cb.chain(target) {
		if b.variant != nil {
			if err := res.partial.selectVariant(b.prefix); err != nil {
				return nil, err
			}
		}
		for _, fv := range b.flags {
			if !fv.changed {
				continue
			}
			v, err := fv.value()
			if err != nil {
				return nil, &ArgumentError{Err: errors.Wrapf(err, "flag for %s", fv.path)}
			}
			q, i := res.partial.find(fv.path, true)
			if q == nil {
				return nil, errors.AssertionFailedf("flag path %s not addressable", fv.path)
			}
			q.slots[i].assign(fv.field, v)
		}
	}
	return res, nil
}

// parseFinal rebuilds the command tree with defaults injected from resolved
// and runs the parser's full validation. Help output yields ErrHelp.
func parseFinal(s *Schema, opts *Options, args []string, injector *Injector) error {
	cb := newCLIBuilder(opts, injector)
	root, err := cb.build(s)
	if err != nil {
		return err
	}

	segs, err := splitArgs(root, args)
	if err != nil {
		return &ArgumentError{Err: err}
	}

	// ancestor levels are parsed here, the target level by cobra
	help := false
	ancestors := segs[:len(segs)-1]
	for _, seg := range ancestors {
		if err := seg.cmd.ParseFlags(seg.args); err != nil {
			return &ArgumentError{Err: err}
		}
		help = help || helpRequested(seg.cmd)
	}

	execArgs := []string{}
	for _, seg := range segs[1:] {
		execArgs = append(execArgs, seg.cmd.Name())
	}
	if help {
		execArgs = append(execArgs, "--help")
	}
	execArgs = append(execArgs, segs[len(segs)-1].args...)

	root.SetArgs(execArgs)
	if _, err := root.ExecuteC(); err != nil {
		return &ArgumentError{Err: err}
	}
	if cb.ran == nil {
		return ErrHelp
	}
	for _, seg := range ancestors {
		if err := seg.cmd.ValidateRequiredFlags(); err != nil {
			return &ArgumentError{Err: err}
		}
	}
	return nil
}

// flagValue is the pflag.Value behind every generated flag.
type flagValue struct {
	field   *Field
	path    Path
	sep     string
	raw     []string
	changed bool
}

var _ pflag.Value = (*flagValue)(nil)

func (v *flagValue) String() string {
	sep := v.sep
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(v.raw, sep)
}

// Set records one occurrence. Vector flags accumulate; the first user value
// replaces an injected default.
func (v *flagValue) Set(s string) error {
	if !v.changed {
		v.raw = nil
		v.changed = true
	}
	if v.field.isVector() {
		v.raw = append(v.raw, splitList(s, v.sep)...)
	} else {
		v.raw = []string{s}
	}
	_, err := decodeArgs(v.field, v.raw)
	return err
}

func (v *flagValue) Type() string {
	name := typeLabel(v.field.Elem)
	if v.field.isVector() {
		return name + "Slice"
	}
	return name
}

func (v *flagValue) inject(def string) {
	if v.field.isVector() {
		v.raw = splitList(def, v.sep)
	} else {
		v.raw = []string{def}
	}
}

func (v *flagValue) value() (reflect.Value, error) {
	return decodeArgs(v.field, v.raw)
}

func typeLabel(t reflect.Type) string {
	switch t {
	case durationType:
		return "duration"
	case urlType:
		return "url"
	case ipNetType:
		return "ipNet"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Map:
		return "stringToString"
	}
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "value"
}
