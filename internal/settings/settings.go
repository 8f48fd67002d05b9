package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/khulnasoft/ml-workspace/internal/paths"
	"github.com/khulnasoft/ml-workspace/internal/release"
	"github.com/khulnasoft/ml-workspace/internal/runtime"
	"github.com/khulnasoft/ml-workspace/internal/testrun"
)

// Container runtime backends for test containers.
const (
	BackendDocker     = "docker"
	BackendContainerd = "containerd"
)

// Tool settings.
type Settings struct {
	Product      string   `yaml:"product"`       // Base product name.
	ImagePrefix  string   `yaml:"image_prefix"`  // Registry namespace for releases.
	Dockerfile   string   `yaml:"dockerfile"`    // Dockerfile override for builds.
	TrackedFiles []string `yaml:"tracked_files"` // Files bumped on a workspace release.
	Test         Test     `yaml:"test"`
	Runtime      Runtime  `yaml:"runtime"`
}

// Test stage settings.
type Test struct {
	Command        []string      `yaml:"command"`         // Test command run inside the container.
	AccessPort     string        `yaml:"access_port"`     // Port the workspace listens on.
	NetworkTimeout time.Duration `yaml:"network_timeout"` // Bound on address discovery.
}

// Test container runtime settings.
type Runtime struct {
	Backend    string     `yaml:"backend"`  // "docker" or "containerd".
	Platform   string     `yaml:"platform"` // OCI platform for test containers.
	Containerd Containerd `yaml:"containerd"`
}

// Containerd connection settings.
type Containerd struct {
	Address     string `yaml:"address"`
	Namespace   string `yaml:"namespace"`
	Snapshotter string `yaml:"snapshotter"`
}

// Returns the settings used when no file overrides them.
func Default() *Settings {
	return &Settings{
		Product:      flavor.DefaultProduct,
		ImagePrefix:  release.DefaultImagePrefix,
		TrackedFiles: slices.Clone(release.WorkspaceFiles),
		Test: Test{
			Command:        slices.Clone(testrun.DefaultCommand),
			AccessPort:     testrun.DefaultAccessPort,
			NetworkTimeout: testrun.DefaultNetworkTimeout,
		},
		Runtime: Runtime{
			Backend: BackendDocker,
			Containerd: Containerd{
				Address:     runtime.DefaultAddress,
				Namespace:   runtime.DefaultNamespace,
				Snapshotter: runtime.DefaultSnapshotter,
			},
		},
	}
}

// Loads settings from path on top of the defaults.
//
// An empty path uses the default settings file, which may be absent. An
// explicitly given path must exist.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		path = paths.ConfigFile()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no settings file, using defaults", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}

	slog.Debug("settings loaded", "path", path)
	return s, nil
}

// Parses YAML settings on top of the defaults.
func Parse(data []byte) (*Settings, error) {
	s := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Checks that the settings are usable.
func (s *Settings) Validate() error {
	switch s.Runtime.Backend {
	case BackendDocker, BackendContainerd:
	default:
		return fmt.Errorf("%w: unknown runtime backend %q", ErrSettings, s.Runtime.Backend)
	}

	if s.Test.NetworkTimeout < 0 {
		return fmt.Errorf("%w: negative network timeout %s", ErrSettings, s.Test.NetworkTimeout)
	}

	if len(s.Test.Command) == 0 {
		return fmt.Errorf("%w: empty test command", ErrSettings)
	}

	return nil
}
