package pipeline

import (
	"fmt"
	"slices"

	"github.com/khulnasoft/ml-workspace/internal/buildinfo"
	"github.com/khulnasoft/ml-workspace/internal/flavor"
)

// Inputs for one pipeline run.
type Config struct {
	Selector    string // Flavor selector ("all" or a flavor name).
	Primary     string // Flavor tested and released. Empty uses the last resolved flavor.
	Version     string // Version used for build args, image tags, and the release.
	ImagePrefix string // Registry namespace for the release. Empty uses the releaser's default.
	Dockerfile  string // Dockerfile override for builds.
	Make        bool   // Build gate.
	Test        bool   // Test gate.
	Release     bool   // Release gate.
}

// Returns true if any stage gate is enabled.
func (c Config) anyGate() bool {
	return c.Make || c.Test || c.Release
}

// Checks the configuration against the resolved flavors and returns the
// primary flavor.
//
// The version must be a semantic version whenever a gate is enabled. An
// explicit primary flavor must be one of the resolved flavors.
func (c Config) validate(catalog *flavor.Catalog, flavors []flavor.Flavor) (flavor.Flavor, error) {
	if c.anyGate() {
		if c.Version == "" {
			return "", fmt.Errorf("%w: version is required", ErrConfig)
		}
		if err := buildinfo.ValidateVersion(c.Version); err != nil {
			return "", fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}

	if c.Primary == "" {
		return flavors[len(flavors)-1], nil
	}

	primary, err := catalog.Parse(c.Primary)
	if err != nil {
		return "", fmt.Errorf("%w: primary flavor: %w", ErrConfig, err)
	}
	if !slices.Contains(flavors, primary) {
		return "", fmt.Errorf("%w: primary flavor %q is not among the selected flavors %v", ErrConfig, primary, flavors)
	}
	return primary, nil
}
