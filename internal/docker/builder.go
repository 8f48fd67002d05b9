package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/khulnasoft/ml-workspace/internal/build"
	"github.com/khulnasoft/ml-workspace/internal/command"
	"github.com/opencontainers/go-digest"
)

// Builds images with `docker build`.
type Builder struct {
	runner command.Runner
	tmpDir string // Directory for image ID files. Empty uses the OS default.
}

var _ build.ImageBuilder = (*Builder)(nil)

// Creates a [Builder] that shells out through runner.
func NewBuilder(runner command.Runner) *Builder {
	return &Builder{runner: runner}
}

// Builds and tags the image described by spec.
//
// The image ID written by --iidfile is returned as a digest. A missing or
// malformed ID file is logged and yields an empty digest; only the build
// itself decides success.
func (b *Builder) Build(ctx context.Context, spec build.Spec) (digest.Digest, error) {
	iid, err := os.CreateTemp(b.tmpDir, "iid-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuild, err)
	}
	iid.Close()
	defer os.Remove(iid.Name())

	if err := b.runner.Run(ctx, "docker", buildArgs(spec, iid.Name())...); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBuild, spec.Ref(), err)
	}

	return readImageID(iid.Name()), nil
}

// Returns the docker CLI arguments for a build.
func buildArgs(spec build.Spec, iidFile string) []string {
	args := []string{"build", "-t", spec.Ref(), "--iidfile", iidFile}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}
	for _, pair := range spec.Args.Pairs() {
		args = append(args, "--build-arg", pair)
	}
	return append(args, spec.Context)
}

// Reads and validates the image ID written by `docker build --iidfile`.
func readImageID(path string) digest.Digest {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("image id unavailable", "error", err)
		return ""
	}

	id, err := digest.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("malformed image id", "id", string(data), "error", err)
		return ""
	}
	return id
}
