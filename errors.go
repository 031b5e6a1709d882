// FILE: lixenwraith/layerconf/errors.go
package layerconf

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Exit codes used by ExitCode and Exit.
const (
	// ExitSuccess covers normal completion, help output and template generation.
	ExitSuccess = 0

	// ExitUser indicates invalid arguments, unparsable or incomplete configuration.
	ExitUser = 1

	// ExitSystem indicates a configuration file could not be found or read.
	ExitSystem = 2
)

// Sentinel errors for the error kinds returned by resolution.
var (
	// ErrConfigNotFound indicates a configuration file does not exist.
	// It is fatal only for explicitly requested files.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigRead indicates a configuration file exists but could not be read.
	ErrConfigRead = errors.New("config file unreadable")

	// ErrConfigParse indicates a configuration file could not be decoded.
	ErrConfigParse = errors.New("config file parse error")

	// ErrArgument indicates the argument parser rejected the command line.
	ErrArgument = errors.New("invalid arguments")

	// ErrIncomplete indicates the merged configuration lacks required values.
	ErrIncomplete = errors.New("configuration incomplete")

	// ErrHelp is returned after help text was printed. It is not a failure.
	ErrHelp = errors.New("help requested")

	// ErrTemplateGenerated marks a TemplateGenerated signal. It is not a failure.
	ErrTemplateGenerated = errors.New("config template generated")
)

// FileNotFoundError reports a missing configuration file.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

func (e *FileNotFoundError) Is(target error) bool {
	return target == ErrConfigNotFound
}

// ReadError reports an I/O failure other than a missing file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read config file '%s': %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func (e *ReadError) Is(target error) bool {
	return target == ErrConfigRead
}

// ParseError reports a configuration file whose content could not be decoded.
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config file '%s': %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func (e *ParseError) Is(target error) bool {
	return target == ErrConfigParse
}

// ArgumentError wraps an error surfaced verbatim by the argument parser.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string {
	return e.Err.Error()
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgument
}

// IncompleteError is returned when a Partial cannot be converted to its Full value.
// Partial is the still-partial value so the caller can inspect what was insufficient.
type IncompleteError struct {
	Partial *Partial
	Missing []Path
}

func (e *IncompleteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = p.String()
	}
	return fmt.Sprintf("configuration incomplete, missing values for: %s", strings.Join(names, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// TemplateGenerated is a control-flow signal: the generate flag was set and Text
// holds the rendered template. Callers print Text to stdout and exit with status 0.
type TemplateGenerated struct {
	Text string
}

func (e *TemplateGenerated) Error() string {
	return "config template generated"
}

func (e *TemplateGenerated) Is(target error) bool {
	return target == ErrTemplateGenerated
}

// ExitCode maps an error returned by this package to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var tmpl *TemplateGenerated
	if errors.As(err, &tmpl) || errors.Is(err, ErrHelp) {
		return ExitSuccess
	}

	var notFound *FileNotFoundError
	var readErr *ReadError
	if errors.As(err, &notFound) || errors.As(err, &readErr) {
		return ExitSystem
	}

	return ExitUser
}
