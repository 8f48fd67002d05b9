package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/khulnasoft/ml-workspace/internal/testrun"
)

// Address of a container sharing the host network namespace.
const hostAddress = "127.0.0.1"

// A test container backed by containerd.
type container struct {
	client      *containerd.Client // Containerd client for managing the container.
	id          string             // Containerd container ID (the container name).
	platform    string             // OCI platform (e.g., "linux/amd64").
	snapshotter string             // Snapshotter for the container filesystem.
}

// Reports the container's address based on its task state.
//
// Returns the loopback address once the task is running, "" while it is
// still being created, and an error wrapping [testrun.ErrContainerExited]
// once the task has stopped or the container is gone.
func (c *container) address(ctx context.Context) (string, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s no longer exists", testrun.ErrContainerExited, c.id)
		}
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s has no task", testrun.ErrContainerExited, c.id)
		}
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return addressFor(status)
}

// Maps a task status to an address.
func addressFor(status containerd.Status) (string, error) {
	switch status.Status {
	case containerd.Running:
		return hostAddress, nil
	case containerd.Stopped:
		return "", fmt.Errorf("%w: exit status %d", testrun.ErrContainerExited, status.ExitStatus)
	default:
		return "", nil
	}
}

// Kills the task and deletes the container along with its snapshot.
//
// A container that does not exist is treated as already removed.
func (c *container) destroy(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			slog.Warn("failed to delete task", "id", c.id, "error", err)
		}
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container removed", "id", c.id)
	return nil
}

// Creates the containerd container running the image's own entrypoint.
//
// The spec's environment is layered over the image config and the
// container joins the host network namespace.
func (c *container) create(ctx context.Context, image containerd.Image, spec testrun.ContainerSpec) (containerd.Container, error) {
	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(c.snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithContainerLabels(spec.Labels),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithEnv(spec.Env),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithHostHostsFile,
		),
	)
}

// Starts the container's task with no attached IO.
//
// The container is deleted again if the task cannot be started.
func (c *container) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return err
	}
	return nil
}

// Removes an existing container with this ID, if one exists.
func (c *container) remove(ctx context.Context) {
	if err := c.destroy(ctx); err != nil {
		slog.Warn("failed to remove stale container", "id", c.id, "error", err)
	}
}
