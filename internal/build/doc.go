// Package build coordinates flavor image builds.
//
// For each flavor the [Coordinator] derives the local image name, gathers
// build metadata (version-control revision and build timestamp), assembles
// the ordered [Args] passed to the image build, and delegates the actual
// build to an [ImageBuilder]. Metadata lookups never fail a build: a missing
// revision becomes "unknown" and an unavailable clock source falls back to
// the process clock.
//
// Example usage:
//
//	c := build.NewCoordinator(flavor.Workspace(""), builder, build.Sources{
//	    Revision: &buildinfo.GitRevision{Runner: runner},
//	    Clock:    &buildinfo.DateClock{Runner: runner},
//	})
//
//	result, err := c.Build(ctx, flavor.Full, build.Request{Version: "1.2.0"})
//	if err != nil {
//	    return err
//	}
package build
