package cli

import (
	"context"
	"fmt"

	"github.com/khulnasoft/ml-workspace/internal"
)

// Represents the 'workspace-build version' command.
type VersionCmd struct{}

// Prints the tool version.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Printf("%s %s\n", internal.Name, internal.VersionString())
	return nil
}
