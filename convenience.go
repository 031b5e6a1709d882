// FILE: lixenwraith/layerconf/convenience.go
package layerconf

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

// Quick loads os.Args into target with default files discovered under the XDG
// directories for appName (config.toml) and environment variables prefixed envPrefix.
// An empty envPrefix disables the environment layer.
func Quick(target any, appName, envPrefix string) error {
	return NewBuilder().
		WithName(appName).
		WithDefaultFiles(XDGDefaultFiles(appName)...).
		WithEnvPrefix(envPrefix).
		Load(target)
}

// MustQuick is like Quick but handles every failure through Exit.
// It returns only when target was loaded.
func MustQuick(target any, appName, envPrefix string) {
	if err := Quick(target, appName, envPrefix); err != nil {
		Exit(err)
	}
}

// Report prints the outcome of a failed load: a generated template goes to
// out, any other error except help goes to errOut. It returns the exit status.
func Report(out, errOut io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}

	var tmpl *TemplateGenerated
	switch {
	case errors.As(err, &tmpl):
		fmt.Fprint(out, tmpl.Text)
	case errors.Is(err, ErrHelp):
		// Help text was already printed by the argument parser
	default:
		red := color.New(color.FgRed, color.Bold)
		red.Fprint(errOut, "error: ")
		fmt.Fprintln(errOut, err.Error())
	}
	return ExitCode(err)
}

// Exit reports err and terminates the process with the matching exit status.
// It returns immediately when err is nil.
func Exit(err error) {
	if err == nil {
		return
	}
	os.Exit(Report(os.Stdout, os.Stderr, err))
}
