package release

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Registry namespace used when no prefix is configured.
const DefaultImagePrefix = "khulnasoft/"

// Files whose version references are bumped on a workspace release.
var WorkspaceFiles = []string{
	"README.md",
	"deployment/google-cloud-run/Dockerfile",
}

// Finds the most recent release before a version.
type VersionSource interface {

	// Returns "" when no earlier release exists.
	PreviousVersion(ctx context.Context, current string) (string, error)
}

// Pushes a local image under a remote reference.
type Publisher interface {
	Publish(ctx context.Context, local, remote string) error
}

// Performs releases for one builder variant.
type Manager struct {
	versions  VersionSource // Previous version lookup.
	publisher Publisher     // Image publication.
	files     []string      // Tracked files, relative to dir.
	dir       string        // Repository root. Empty means the working directory.
}

// Creates a [Manager] bumping the given tracked files.
func NewManager(versions VersionSource, publisher Publisher, files []string) *Manager {
	return &Manager{
		versions:  versions,
		publisher: publisher,
		files:     append([]string(nil), files...),
	}
}

// Sets the directory tracked file paths are resolved against.
func (m *Manager) SetDir(dir string) {
	m.dir = dir
}

// Releases version of the named image.
//
// Version references in the tracked files are bumped first, then the local
// image "image:version" is published as "prefix+image:version".
func (m *Manager) Release(ctx context.Context, image, version, prefix string) error {
	if prefix == "" {
		prefix = DefaultImagePrefix
	}

	if previous := m.previousVersion(ctx, version); previous != "" && previous != version {
		slog.Info("bumping version references", "from", previous, "to", version, "files", len(m.files))
		for _, file := range m.files {
			if err := m.replaceInFile(file, previous, version); err != nil {
				return err
			}
		}
	}

	local := image + ":" + version
	remote := prefix + local

	if err := m.publisher.Publish(ctx, local, remote); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	slog.Info("image released", "image", remote)
	return nil
}

// Returns the previous release, or "" when it cannot be determined.
func (m *Manager) previousVersion(ctx context.Context, version string) string {
	previous, err := m.versions.PreviousVersion(ctx, version)
	if err != nil {
		slog.Warn("previous version undetermined, skipping version bump", "error", err)
		return ""
	}
	if previous == "" {
		slog.Debug("no previous release found")
	}
	return previous
}

// Rewrites every literal occurrence of from with to in the file, keeping
// its permissions. Files without an occurrence are left untouched.
func (m *Manager) replaceInFile(file, from, to string) error {
	path := m.path(file)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReleaseFile, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReleaseFile, err)
	}

	n := bytes.Count(data, []byte(from))
	if n == 0 {
		slog.Debug("no version references", "file", file)
		return nil
	}

	updated := bytes.ReplaceAll(data, []byte(from), []byte(to))
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: %w", ErrReleaseFile, err)
	}

	slog.Debug("version references replaced", "file", file, "count", n)
	return nil
}

func (m *Manager) path(file string) string {
	if m.dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.dir, file)
}
