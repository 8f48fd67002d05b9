package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/khulnasoft/ml-workspace/internal/testrun"
)

const (

	// Network whose address the tests connect to.
	bridgeNetwork = "bridge"

	// Seconds a container gets to shut down before it is killed.
	stopTimeout = 10
)

// Controls how the Engine API client is created.
type EngineOptions struct {
	Host     string    // Daemon address. Empty uses DOCKER_HOST or the default socket.
	Platform string    // Platform for test containers (e.g., "linux/amd64"). Empty lets the daemon decide.
	Stdout   io.Writer // Destination for exec stdout. Nil uses os.Stdout.
	Stderr   io.Writer // Destination for exec stderr. Nil uses os.Stderr.
}

// Runs test containers through the Docker Engine API.
type Engine struct {
	client   client.APIClient  // Engine API client.
	platform *ocispec.Platform // Platform requested for created containers, or nil.
	stdout   io.Writer         // Destination for exec stdout.
	stderr   io.Writer         // Destination for exec stderr.
}

var _ testrun.ContainerRuntime = (*Engine)(nil)

// Creates an [Engine] from the environment (DOCKER_HOST, DOCKER_API_VERSION,
// DOCKER_CERT_PATH) with API version negotiation.
func NewEngine(opts EngineOptions) (*Engine, error) {
	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocker, err)
	}

	return newEngine(cli, opts)
}

func newEngine(cli client.APIClient, opts EngineOptions) (*Engine, error) {
	e := &Engine{
		client: cli,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	if opts.Platform != "" {
		p, err := platforms.Parse(opts.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDocker, err)
		}
		e.platform = &p
	}

	return e, nil
}

// Closes the Engine API client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Verifies that the daemon answers.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDocker, err)
	}
	return nil
}

// Creates and starts a detached container.
//
// Any leftover container with the same name (for example from an
// interrupted run) is removed first. If the container is created but fails
// to start, its ID is returned along with the error so it can be removed.
func (e *Engine) Start(ctx context.Context, spec testrun.ContainerSpec) (string, error) {
	if err := e.Remove(ctx, spec.Name); err != nil {
		slog.Warn("failed to remove stale container", "name", spec.Name, "error", err)
	}

	created, err := e.client.ContainerCreate(ctx,
		&container.Config{
			Image:  spec.Image,
			Env:    spec.Env,
			Labels: spec.Labels,
		},
		&container.HostConfig{},
		nil,
		e.platform,
		spec.Name,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDocker, err)
	}

	for _, w := range created.Warnings {
		slog.Warn("container create warning", "name", spec.Name, "warning", w)
	}

	if err := e.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return created.ID, fmt.Errorf("%w: %w", ErrDocker, err)
	}

	slog.Debug("container started", "name", spec.Name, "id", created.ID, "image", spec.Image)
	return created.ID, nil
}

// Reads the container's bridge network address.
//
// Returns "" while the container is starting or not yet attached to the
// bridge network.
func (e *Engine) Address(ctx context.Context, ref string) (string, error) {
	info, err := e.client.ContainerInspect(ctx, ref)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s no longer exists", testrun.ErrContainerExited, ref)
		}
		return "", fmt.Errorf("%w: %w", ErrDocker, err)
	}

	return bridgeAddress(info)
}

// Extracts the bridge address from inspect data.
func bridgeAddress(info types.ContainerJSON) (string, error) {
	if info.ContainerJSONBase != nil && info.State != nil && !info.State.Running {
		if info.State.Status == "exited" || info.State.Status == "dead" {
			return "", fmt.Errorf("%w: status %s, exit code %d", testrun.ErrContainerExited, info.State.Status, info.State.ExitCode)
		}
		return "", nil
	}

	if info.NetworkSettings == nil {
		return "", nil
	}

	endpoint, ok := info.NetworkSettings.Networks[bridgeNetwork]
	if !ok || endpoint == nil {
		return "", nil
	}
	return endpoint.IPAddress, nil
}

// Runs a command inside the container, streaming its output, and returns
// the exit code.
func (e *Engine) Exec(ctx context.Context, ref string, cmd []string, env []string) (int, error) {
	created, err := e.client.ContainerExecCreate(ctx, ref, types.ExecConfig{
		Cmd:          cmd,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDocker, err)
	}

	attached, err := e.client.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDocker, err)
	}
	defer attached.Close()

	if _, err := stdcopy.StdCopy(e.stdout, e.stderr, attached.Reader); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDocker, err)
	}

	inspect, err := e.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDocker, err)
	}

	return inspect.ExitCode, nil
}

// Stops and forcibly removes the container.
//
// A container that does not exist is treated as already removed.
func (e *Engine) Remove(ctx context.Context, ref string) error {
	timeout := stopTimeout
	if err := e.client.ContainerStop(ctx, ref, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		slog.Debug("container stop failed, forcing removal", "ref", ref, "error", err)
	}

	if err := e.client.ContainerRemove(ctx, ref, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrDocker, err)
	}

	slog.Debug("container removed", "ref", ref)
	return nil
}
