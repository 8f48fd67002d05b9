package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/khulnasoft/ml-workspace/internal"
)

const (

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Name of the settings file inside the config directory.
	configFileName = "config.yaml"
)

// Path to the directory holding the settings file.
//
//	Linux:   $XDG_CONFIG_HOME/workspace-build
//	macOS:   ~/Library/Application Support/workspace-build
func Config() string {
	return filepath.Join(xdg.ConfigHome, internal.Name)
}

// Default path to the settings file.
//
//	Linux:   $XDG_CONFIG_HOME/workspace-build/config.yaml
//	macOS:   ~/Library/Application Support/workspace-build/config.yaml
func ConfigFile() string {
	return filepath.Join(Config(), configFileName)
}

// Path to the directory for cached files.
//
//	Linux:   $XDG_CACHE_HOME/workspace-build
//	macOS:   ~/Library/Caches/workspace-build
func Cache() string {
	return filepath.Join(xdg.CacheHome, internal.Name)
}

// Path to the directory where image archives are written before they are
// imported into containerd.
func Archives() string {
	return filepath.Join(Cache(), "archives")
}
