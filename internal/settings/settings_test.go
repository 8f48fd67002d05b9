package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "ml-workspace", s.Product)
	assert.Equal(t, "khulnasoft/", s.ImagePrefix)
	assert.Equal(t, []string{"README.md", "deployment/google-cloud-run/Dockerfile"}, s.TrackedFiles)
	assert.Equal(t, []string{"pytest", "/resources/tests"}, s.Test.Command)
	assert.Equal(t, "8080", s.Test.AccessPort)
	assert.Equal(t, 2*time.Minute, s.Test.NetworkTimeout)
	assert.Equal(t, BackendDocker, s.Runtime.Backend)
	require.NoError(t, s.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	s, err := Parse([]byte(`
image_prefix: registry.example.com/ml/
test:
  network_timeout: 30s
runtime:
  backend: containerd
  platform: linux/arm64
  containerd:
    namespace: ci
`))
	require.NoError(t, err)

	assert.Equal(t, "registry.example.com/ml/", s.ImagePrefix)
	assert.Equal(t, 30*time.Second, s.Test.NetworkTimeout)
	assert.Equal(t, BackendContainerd, s.Runtime.Backend)
	assert.Equal(t, "linux/arm64", s.Runtime.Platform)
	assert.Equal(t, "ci", s.Runtime.Containerd.Namespace)

	// Untouched keys keep their defaults.
	assert.Equal(t, "ml-workspace", s.Product)
	assert.Equal(t, "overlayfs", s.Runtime.Containerd.Snapshotter)
	assert.Equal(t, []string{"pytest", "/resources/tests"}, s.Test.Command)
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "imageprefix: foo/\n"},
		{"unknown backend", "runtime:\n  backend: podman\n"},
		{"negative timeout", "test:\n  network_timeout: -1s\n"},
		{"empty command", "test:\n  command: []\n"},
		{"malformed", "product: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrSettings)
		})
	}
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("product: my-workspace\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-workspace", s.Product)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrSettings)
}
