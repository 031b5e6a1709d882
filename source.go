// FILE: lixenwraith/layerconf/source.go
package layerconf

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatAuto = "auto"
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// fileLoader reads configuration files into Partials.
type fileLoader struct {
	format      string
	strict      bool
	maxFileSize int64
	logger      *slog.Logger
}

// LoadFile parses one configuration file into a Partial of s.
// The format is detected from the extension, then from the content.
func LoadFile(s *Schema, path string) (*Partial, error) {
	l := &fileLoader{format: FormatAuto, logger: discardLogger()}
	return l.load(s, path)
}

// ParseBytes decodes an in-memory document of the given format into a Partial of s.
func ParseBytes(s *Schema, data []byte, format string) (*Partial, error) {
	table, err := parseDocument("", data, format)
	if err != nil {
		return nil, &ParseError{Path: "<bytes>", Cause: err}
	}
	p, err := decodeTable(s, table, false)
	if err != nil {
		return nil, &ParseError{Path: "<bytes>", Cause: err}
	}
	return p, nil
}

func (l *fileLoader) load(s *Schema, path string) (*Partial, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: path}
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	if fileInfo.IsDir() {
		return nil, &ReadError{Path: path, Err: errors.New("is a directory")}
	}
	if l.maxFileSize > 0 && fileInfo.Size() > l.maxFileSize {
		return nil, &ReadError{Path: path, Err: errors.Newf("exceeds maximum size %d bytes", l.maxFileSize)}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer file.Close()

	var reader io.Reader = file
	if l.maxFileSize > 0 {
		reader = io.LimitReader(file, l.maxFileSize)
	}

	fileData, err := io.ReadAll(reader)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	table, err := parseDocument(path, fileData, l.format)
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}

	p, err := decodeTable(s, table, l.strict)
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}
	return p, nil
}

// fold loads paths in order and merges them with Take, so later files win.
// Missing default files are skipped; missing explicit files are fatal.
func (l *fileLoader) fold(s *Schema, paths []string, source Source) (*Partial, error) {
	optional := source == SourceDefault
	acc := NewPartial(s)
	for _, path := range paths {
		p, err := l.load(s, path)
		if err != nil {
			var notFound *FileNotFoundError
			if optional && errors.As(err, &notFound) {
				l.logger.Debug("default config file not found, skipping", "source", source, "path", path)
				continue
			}
			return nil, err
		}
		l.logger.Debug("config file loaded", "source", source, "path", path)
		acc.Take(p)
	}
	return acc, nil
}

// parseDocument decodes file content into a generic table.
func parseDocument(path string, data []byte, format string) (map[string]any, error) {
	format = strings.ToLower(format)
	if format == "" || format == FormatAuto {
		// Try extension first
		format = detectFileFormat(path)
		if format == "" {
			// Fall back to content detection
			format = detectFormatFromContent(data)
			if format == "" {
				format = FormatTOML
			}
		}
	}

	table := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, errors.Wrap(err, "invalid TOML")
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&table); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "invalid JSON")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, errors.Wrap(err, "invalid YAML")
		}
		if table == nil {
			table = make(map[string]any)
		}
	default:
		return nil, errors.Newf("unsupported config format %q", format)
	}
	return table, nil
}

// detectFileFormat maps a file extension to a format, or "" when unknown.
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// TOML before YAML: a TOML document is often a valid YAML scalar
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}

// atomicWriteFile writes data to a temporary file in the target directory and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory '%s'", dir)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.Wrap(err, "failed to write temporary file")
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return errors.Wrap(err, "failed to sync temporary file")
	}

	if err := tempFile.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary file")
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return errors.Wrap(err, "failed to set permissions")
	}

	if err := os.Rename(tempPath, path); err != nil {
		return errors.Wrap(err, "failed to rename temporary file")
	}

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}
