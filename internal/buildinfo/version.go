package buildinfo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/khulnasoft/ml-workspace/internal/command"
)

// Validates a version string as a semantic version.
func ValidateVersion(v string) error {
	if _, err := semver.NewVersion(v); err != nil {
		return fmt.Errorf("%w: %q is not a semantic version: %w", ErrVersion, v, err)
	}
	return nil
}

// Finds the previously released version among the repository's git tags.
type GitTags struct {
	Runner command.Runner
}

// Returns the highest tagged version strictly lower than current, as it
// appears in the tag without a leading "v". Returns "" when no earlier
// release exists.
//
// Tags that are not semantic versions are ignored.
func (g *GitTags) PreviousVersion(ctx context.Context, current string) (string, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersion, err)
	}

	out, err := g.Runner.Output(ctx, "git", "tag", "--list")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersion, err)
	}

	var best *semver.Version
	for _, tag := range strings.Fields(out) {
		v, err := semver.NewVersion(tag)
		if err != nil {
			slog.Debug("ignoring non-version tag", "tag", tag)
			continue
		}
		if !v.LessThan(cur) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}

	if best == nil {
		return "", nil
	}
	return strings.TrimPrefix(best.Original(), "v"), nil
}
