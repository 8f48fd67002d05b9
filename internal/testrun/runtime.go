package testrun

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// Container operations needed to host a test run.
type ContainerRuntime interface {

	// Verifies that the runtime is reachable.
	Ping(ctx context.Context) error

	// Creates and starts a detached container, returning its handle.
	//
	// Implementations may return a non-empty handle together with an error
	// when the container was created but failed to start.
	Start(ctx context.Context, spec ContainerSpec) (string, error)

	// Reads the container's network address once.
	//
	// Returns "" while the address is not yet available, and an error
	// wrapping [ErrContainerExited] if the container stopped running.
	Address(ctx context.Context, ref string) (string, error)

	// Runs a command inside the running container and returns its exit code.
	Exec(ctx context.Context, ref string, cmd []string, env []string) (int, error)

	// Stops and forcibly removes the container. Removing a container that
	// does not exist is not an error.
	Remove(ctx context.Context, ref string) error
}

// Describes the test container to start.
type ContainerSpec struct {
	Name    string            // Container name.
	Image   string            // Image reference ("name:tag").
	ImageID digest.Digest     // Image ID the build produced. Empty when unknown.
	Env     []string          // Environment as "KEY=value" entries.
	Labels  map[string]string // Metadata labels, where the runtime supports them.
}
