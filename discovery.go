// FILE: lixenwraith/layerconf/discovery.go
package layerconf

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// FileDiscoveryOptions configures default config file discovery
type FileDiscoveryOptions struct {
	// Name is the application directory name under each config root
	Name string

	// Files are the file names to look for in each directory (in order)
	Files []string

	// Custom search directories, searched after the XDG directories
	Paths []string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search in current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns sensible defaults
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Files:         []string{"config.toml"},
		UseXDG:        true,
		UseCurrentDir: false,
	}
}

// XDGDefaultFiles returns the default config file candidates for appName,
// lowest priority first: system XDG directories, then the user config home.
// With no names, "config.toml" is used.
func XDGDefaultFiles(appName string, names ...string) []string {
	opts := DefaultDiscoveryOptions(appName)
	if len(names) > 0 {
		opts.Files = names
	}
	return DiscoverFiles(opts)
}

// DiscoverFiles lists candidate files in ascending priority, ready for
// WithDefaultFiles. Candidates need not exist; missing default files are skipped.
func DiscoverFiles(opts FileDiscoveryOptions) []string {
	var dirs []string

	if opts.UseXDG {
		dirs = append(dirs, getXDGConfigPaths(opts.Name)...)
	}

	dirs = append(dirs, opts.Paths...)

	// Current directory
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}

	var files []string
	for _, dir := range dirs {
		for _, name := range opts.Files {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files
}

// getXDGConfigPaths returns XDG-compliant config directories, lowest priority first
func getXDGConfigPaths(appName string) []string {
	var paths []string

	// XDG_CONFIG_DIRS, most important first in the variable
	for i := len(xdg.ConfigDirs) - 1; i >= 0; i-- {
		paths = append(paths, filepath.Join(xdg.ConfigDirs[i], appName))
	}

	// XDG_CONFIG_HOME
	if xdg.ConfigHome != "" {
		paths = append(paths, filepath.Join(xdg.ConfigHome, appName))
	}

	return paths
}
