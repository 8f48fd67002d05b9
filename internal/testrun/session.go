package testrun

import (
	"github.com/khulnasoft/ml-workspace/internal/flavor"
)

const (

	// Prefix of test container names; the flavor is appended.
	containerPrefix = "workspace-test-"

	// Port the workspace listens on inside the test container.
	DefaultAccessPort = "8080"

	// Environment variables injected into the test container.
	EnvWorkspaceName = "WORKSPACE_NAME"
	EnvAccessPort    = "WORKSPACE_ACCESS_PORT"

	// Environment variable passed to the test command.
	EnvWorkspaceIP = "WORKSPACE_IP"
)

// State of one ephemeral test container.
type session struct {
	name        string // Container name ("workspace-test-<flavor>").
	accessPort  string // Port the workspace listens on.
	containerID string // Runtime handle, set once the container exists.
	address     string // Network address, set once discovered.
}

// Creates a session for a flavor.
func newSession(f flavor.Flavor, accessPort string) *session {
	return &session{
		name:       ContainerName(f),
		accessPort: accessPort,
	}
}

// Returns the test container name for a flavor.
func ContainerName(f flavor.Flavor) string {
	return containerPrefix + f.String()
}

// Returns the environment of the test container.
func (s *session) containerEnv() []string {
	return []string{
		EnvWorkspaceName + "=" + s.name,
		EnvAccessPort + "=" + s.accessPort,
	}
}

// Returns the environment of the test command.
func (s *session) execEnv() []string {
	return []string{EnvWorkspaceIP + "=" + s.address}
}

// Returns the reference used to address the container: the runtime handle
// when known, otherwise the container name.
func (s *session) ref() string {
	if s.containerID != "" {
		return s.containerID
	}
	return s.name
}
