package buildinfo

import (
	"context"
	"fmt"

	"github.com/khulnasoft/ml-workspace/internal/command"
)

// Reads the short commit hash of HEAD with git.
type GitRevision struct {
	Runner command.Runner
}

// Returns the short hash of the checked-out commit.
func (g *GitRevision) Revision(ctx context.Context) (string, error) {
	rev, err := g.Runner.Output(ctx, "git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRevision, err)
	}
	if rev == "" {
		return "", fmt.Errorf("%w: empty output", ErrRevision)
	}
	return rev, nil
}
