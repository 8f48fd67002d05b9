package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	goruntime "runtime"
	"slices"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	"github.com/khulnasoft/ml-workspace/internal/testrun"
)

const (

	// Default containerd socket.
	DefaultAddress = "/run/containerd/containerd.sock"

	// Default namespace. Matches the Docker daemon's namespace when Docker
	// runs on containerd, so images may already be present.
	DefaultNamespace = "moby"

	// Default snapshotter for container filesystems.
	DefaultSnapshotter = "overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Exports an image from another image store as an archive containerd can
// import.
type ImageArchiver interface {
	Archive(ctx context.Context, ref string) (string, error)
}

// Image records the runtime checks, imports, and unpacks.
type imageStore interface {

	// Returns the digests a stored image is known by: its target digest and
	// the config digest for the runtime's platform.
	ids(ctx context.Context, tag string) ([]digest.Digest, error)

	// Imports an image archive under the tag and unpacks it.
	importImage(ctx context.Context, path, tag string) error

	// Unpacks a stored image into the snapshotter.
	unpack(ctx context.Context, tag string) error
}

// Connection and container settings for a [Runtime].
type Options struct {
	Address     string    // Containerd socket. Empty uses [DefaultAddress].
	Namespace   string    // Containerd namespace. Empty uses [DefaultNamespace].
	Snapshotter string    // Snapshotter name. Empty uses [DefaultSnapshotter].
	Platform    string    // OCI platform (e.g., "linux/amd64"). Empty uses the host platform.
	Stdout      io.Writer // Destination for exec stdout. Nil uses os.Stdout.
	Stderr      io.Writer // Destination for exec stderr. Nil uses os.Stderr.
}

// Manages the containerd client and hosts test containers.
type Runtime struct {
	client      *containerd.Client // Containerd client for managing containers and images.
	archiver    ImageArchiver      // Source of archives for images missing from containerd.
	images      imageStore         // Image records in the containerd namespace.
	snapshotter string             // Snapshotter for container filesystems.
	platform    string             // OCI platform for unpacking and container specs.
	stdout      io.Writer          // Destination for exec stdout.
	stderr      io.Writer          // Destination for exec stderr.
}

var _ testrun.ContainerRuntime = (*Runtime)(nil)

// Creates a runtime connected to the containerd socket.
//
// The namespace scopes all containerd operations. The runtime must be
// closed when no longer needed.
func New(opts Options, archiver ImageArchiver) (*Runtime, error) {
	opts = withDefaults(opts)

	if _, err := platforms.Parse(opts.Platform); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	client, err := containerd.New(opts.Address, containerd.WithDefaultNamespace(opts.Namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	rt := &Runtime{
		client:      client,
		archiver:    archiver,
		snapshotter: opts.Snapshotter,
		platform:    opts.Platform,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
	}
	rt.images = clientImages{rt}
	return rt, nil
}

// Fills in defaults for unset options.
func withDefaults(opts Options) Options {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Snapshotter == "" {
		opts.Snapshotter = DefaultSnapshotter
	}
	if opts.Platform == "" {
		opts.Platform = defaultPlatform()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return opts
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Verifies that containerd is serving requests.
func (rt *Runtime) Ping(ctx context.Context) error {
	serving, err := rt.client.IsServing(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if !serving {
		return ErrUnreachable
	}
	return nil
}

// Makes the image available, then creates and starts the container.
//
// Any stale container with the same name is removed first. When the spec
// carries an image ID and the image stored under the tag does not match it,
// the image is imported again. The returned handle is the container name.
func (rt *Runtime) Start(ctx context.Context, spec testrun.ContainerSpec) (string, error) {
	tag, err := normalizeRef(spec.Image)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.ensureImage(ctx, spec.Image, tag, spec.ImageID); err != nil {
		return "", err
	}

	c := rt.container(spec.Name)
	c.remove(ctx)

	image, err := rt.resolveImage(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	ctr, err := c.create(ctx, image, spec)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		return spec.Name, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", spec.Name, "image", tag)
	return spec.Name, nil
}

// Reports the container's address.
func (rt *Runtime) Address(ctx context.Context, ref string) (string, error) {
	return rt.container(ref).address(ctx)
}

// Runs a command inside the container and returns its exit code.
func (rt *Runtime) Exec(ctx context.Context, ref string, cmd []string, env []string) (int, error) {
	return rt.container(ref).exec(ctx, cmd, env, rt.stdout, rt.stderr)
}

// Kills the container's task and deletes the container and its snapshot.
func (rt *Runtime) Remove(ctx context.Context, ref string) error {
	return rt.container(ref).destroy(ctx)
}

// Returns a handle for a container. The container is resolved lazily.
func (rt *Runtime) container(id string) *container {
	return &container{
		client:      rt.client,
		id:          id,
		platform:    rt.platform,
		snapshotter: rt.snapshotter,
	}
}

// Imports the image through the archiver unless containerd already has it.
//
// A stored image counts as present only if want is empty or matches one of
// its digests. Otherwise the tag is left over from an earlier build and is
// replaced.
func (rt *Runtime) ensureImage(ctx context.Context, ref, tag string, want digest.Digest) error {
	ids, err := rt.images.ids(ctx, tag)
	switch {
	case err == nil && (want == "" || slices.Contains(ids, want)):
		return rt.images.unpack(ctx, tag)
	case err == nil:
		slog.Info("stored image is out of date", "image", tag, "want", want, "have", ids)
	case !errdefs.IsNotFound(err):
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if rt.archiver == nil {
		return fmt.Errorf("%w: image %s not found", ErrRuntime, tag)
	}

	slog.Info("importing image into containerd", "image", ref)

	path, err := rt.archiver.Archive(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove image archive", "path", path, "error", err)
		}
	}()

	return rt.images.importImage(ctx, path, tag)
}

// Imports an image archive, tags it under the given name, and unpacks it
// for the runtime's platform.
func (rt *Runtime) ImportImage(ctx context.Context, path, tag string) error {
	source, err := rt.importArchive(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.tagImage(ctx, source, tag); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.unpackImage(ctx, tag); err != nil {
		return err
	}

	slog.Debug("image imported", "tag", tag, "digest", source.Target.Digest)
	return nil
}

// Imports an image archive into the content store.
//
// Both OCI and Docker (docker save) archives are accepted. The archive must
// contain exactly one image.
func (rt *Runtime) importArchive(ctx context.Context, path string) (images.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return images.Image{}, err
	}

	if len(imported) == 0 {
		return images.Image{}, ErrEmptyArchive
	} else if len(imported) > 1 {
		return images.Image{}, ErrMultipleImages
	}

	return imported[0], nil
}

// Tags an imported image.
//
// Updates the tag if it already exists. Removes the source record when its
// name differs from the tag to avoid duplicates.
func (rt *Runtime) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := rt.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}

// Unpacks the image layers for the runtime's platform into the snapshotter.
func (rt *Runtime) unpackImage(ctx context.Context, tag string) error {
	image, err := rt.resolveImage(ctx, tag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := image.Unpack(ctx, rt.snapshotter); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return nil
}

// Looks up a tagged image and selects the manifest for the runtime's
// platform.
func (rt *Runtime) resolveImage(ctx context.Context, tag string) (containerd.Image, error) {
	p, err := platforms.Parse(rt.platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

// [imageStore] backed by the runtime's containerd client.
type clientImages struct {
	rt *Runtime
}

func (s clientImages) ids(ctx context.Context, tag string) ([]digest.Digest, error) {
	image, err := s.rt.resolveImage(ctx, tag)
	if err != nil {
		return nil, err
	}

	ids := []digest.Digest{image.Target().Digest}

	config, err := image.Config(ctx)
	if err != nil {
		slog.Debug("image config unavailable", "image", tag, "error", err)
		return ids, nil
	}
	return append(ids, config.Digest), nil
}

func (s clientImages) importImage(ctx context.Context, path, tag string) error {
	return s.rt.ImportImage(ctx, path, tag)
}

func (s clientImages) unpack(ctx context.Context, tag string) error {
	return s.rt.unpackImage(ctx, tag)
}

// Returns the fully qualified form of a local image reference, the name
// under which containerd stores images imported from Docker (e.g.,
// "ml-workspace:1.0" becomes "docker.io/library/ml-workspace:1.0").
func normalizeRef(ref string) (string, error) {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return "", err
	}
	return named.String(), nil
}

// Returns the default OCI platform for the host architecture.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}
