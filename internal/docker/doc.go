// Package docker adapts the Docker toolchain to the pipeline's capability
// interfaces.
//
// Image builds, tags, pushes, and saves go through the docker CLI via a
// [command.Runner], so they pick up the user's buildx configuration and
// registry credential helpers. The test container lifecycle goes through
// the Engine API client ([Engine]), which exposes the container's bridge
// network address directly.
//
// Example usage:
//
//	runner := &command.ExecRunner{}
//	builder := docker.NewBuilder(runner)
//
//	engine, err := docker.NewEngine(docker.EngineOptions{})
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
package docker
