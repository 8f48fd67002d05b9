package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khulnasoft/ml-workspace/internal/command"
	"github.com/khulnasoft/ml-workspace/internal/paths"
)

// Exports images from the Docker image store as archives with `docker
// save`, so other runtimes can import them.
type Archiver struct {
	runner command.Runner
	dir    string // Destination directory for archives.
}

// Creates an [Archiver] writing to dir. An empty dir uses the cache
// directory from the paths package.
func NewArchiver(runner command.Runner, dir string) *Archiver {
	if dir == "" {
		dir = paths.Archives()
	}
	return &Archiver{runner: runner, dir: dir}
}

// Saves the image to an archive and returns the archive path.
//
// The archive is overwritten if it already exists. The caller owns the file.
func (a *Archiver) Archive(ctx context.Context, ref string) (string, error) {
	if err := os.MkdirAll(a.dir, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}

	path := filepath.Join(a.dir, archiveName(ref))
	if err := a.runner.Run(ctx, "docker", "save", "-o", path, ref); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSave, ref, err)
	}
	return path, nil
}

// Converts an image reference into a filesystem-safe archive name.
//
// Replaces slashes and colons with dashes (e.g., "khulnasoft/ml-workspace:1.0"
// becomes "khulnasoft-ml-workspace-1.0.tar").
func archiveName(ref string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(ref) + ".tar"
}
