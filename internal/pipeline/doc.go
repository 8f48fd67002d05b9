// Package pipeline sequences one build, test, and release run.
//
// A run resolves the flavor selector once, builds every resolved flavor in
// order, then tests and releases the primary flavor. Each stage is gated by
// its [Config] switch. A build failure halts the run before any later
// build, test, or release. A test failure is recorded and the release gate
// refuses to publish. The outcome of every stage is collected in a
// [Report] whose exit code is 1 if anything failed.
//
// A workspace pipeline can chain a derivative pipeline with
// [Pipeline.SetDerivative]. After a successful run, each selected flavor
// that has a derivative image is handed to it with the same version and
// gates, so the derivative builds on top of the image just produced.
//
// Example usage:
//
//	p := pipeline.New(catalog, pipeline.Stages{
//	    Builder:  coordinator,
//	    Tester:   testRunner,
//	    Releaser: releaseManager,
//	})
//
//	report, err := p.Run(ctx, pipeline.Config{Selector: "all", Version: "1.3.0", Make: true})
//	if err != nil {
//	    return err
//	}
//	os.Exit(report.ExitCode())
package pipeline
