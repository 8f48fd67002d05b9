package cli

import (
	"context"

	"github.com/khulnasoft/ml-workspace/internal/flavor"
)

// Flags shared by the pipeline commands.
type StageFlags struct {
	Make              bool   `help:"Build the selected flavor images."`
	Test              bool   `help:"Run the test suite against the primary flavor image."`
	Release           bool   `help:"Bump version references and push the primary flavor image."`
	Version           string `help:"Version for build args, image tags, and the release (semantic version)." placeholder:"VERSION"`
	DockerImagePrefix string `name:"docker-image-prefix" help:"Registry namespace for released images. Defaults to the settings value or khulnasoft/." placeholder:"PREFIX"`
	PrimaryFlavor     string `help:"Flavor to test and release. Defaults to the last selected flavor." placeholder:"FLAVOR"`
	Dockerfile        string `help:"Dockerfile to build with, relative to the repository root." placeholder:"PATH"`
	Runtime           string `help:"Container runtime for test containers (docker or containerd)." placeholder:"BACKEND"`
	Dir               string `short:"C" help:"Repository root." default:"." type:"existingdir"`
}

// Represents the 'workspace-build run' command.
type RunCmd struct {
	StageFlags `embed:""`

	Flavor      string `help:"Flavor to build (all, minimal, light, full, gpu)." default:"all"`
	Derivatives bool   `help:"Run the derivative builder for selected flavors that have a derivative image." default:"true" negatable:""`
}

// Runs the pipeline for the workspace flavors.
func (c *RunCmd) Run(ctx context.Context) error {
	return runPipeline(ctx, variantWorkspace, c.Flavor, c.Derivatives, &c.StageFlags)
}

// Represents the 'workspace-build derivative' command.
type DerivativeCmd struct {
	StageFlags `embed:""`

	Flavor string `help:"Flavor to build (gpu)." default:"gpu"`
}

// Runs the pipeline for the derivative flavors.
func (c *DerivativeCmd) Run(ctx context.Context) error {
	return runPipeline(ctx, variantDerivative, c.Flavor, false, &c.StageFlags)
}

// Builder variant selected by a command.
type variant int

const (
	variantWorkspace variant = iota
	variantDerivative
)

// Returns the flavor catalog of the variant.
func (v variant) catalog(product string) *flavor.Catalog {
	if v == variantDerivative {
		return flavor.Derivative(product)
	}
	return flavor.Workspace(product)
}
