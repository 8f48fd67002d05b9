package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/build"
	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/khulnasoft/ml-workspace/internal/testrun"
	"github.com/opencontainers/go-digest"
)

// Builds the image for one flavor.
type Builder interface {
	Build(ctx context.Context, f flavor.Flavor, req build.Request) (*build.Result, error)
}

// Runs the test suite against a built image.
type Tester interface {
	Run(ctx context.Context, image, version string, f flavor.Flavor, id digest.Digest) (*testrun.Result, error)
}

// Bumps version references and publishes an image.
type Releaser interface {
	Release(ctx context.Context, image, version, prefix string) error
}

// Stage implementations. A stage may be nil when its gate is never enabled.
type Stages struct {
	Builder  Builder
	Tester   Tester
	Releaser Releaser
}

// Runs the stages of one builder variant.
type Pipeline struct {
	catalog    *flavor.Catalog
	stages     Stages
	derivative *Pipeline // Runs flavors that have a derivative image, or nil.
	now        func() time.Time
}

// Creates a [Pipeline] for the flavors of catalog.
func New(catalog *flavor.Catalog, stages Stages) *Pipeline {
	return &Pipeline{catalog: catalog, stages: stages, now: time.Now}
}

// Chains a derivative pipeline onto this one.
//
// After a successful run, every resolved flavor the derivative catalog
// supports is handed to d with the same version, prefix, and gates, so the
// derivative image layers on the image this run just built.
func (p *Pipeline) SetDerivative(d *Pipeline) {
	p.derivative = d
}

// Executes one run.
//
// An error is returned only when the run could not begin: an unknown flavor
// selector, an invalid configuration, or a missing stage implementation for
// an enabled gate. Stage failures are reported through the [Report].
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Report, error) {
	flavors, err := p.catalog.Resolve(cfg.Selector)
	if err != nil {
		return nil, err
	}

	primary, err := cfg.validate(p.catalog, flavors)
	if err != nil {
		return nil, err
	}

	if err := p.checkStages(cfg); err != nil {
		return nil, err
	}

	report := &Report{Flavors: flavors, Primary: primary}

	slog.Info("pipeline started",
		"builder", p.catalog.Name,
		"flavors", flavors,
		"primary", primary,
		"version", cfg.Version,
		"make", cfg.Make,
		"test", cfg.Test,
		"release", cfg.Release,
	)

	var built *build.Result
	if cfg.Make {
		results, ok := p.buildAll(ctx, cfg, flavors, report)
		if !ok {
			return report, nil
		}
		built = results[primary]
	}

	image := p.catalog.ImageName(primary)

	if cfg.Test {
		p.test(ctx, cfg, image, primary, built, report)
	}

	if cfg.Release {
		p.release(ctx, cfg, image, primary, report)
	}

	if p.derivative != nil && !report.Failed() {
		p.runDerivatives(ctx, cfg, flavors, report)
	}

	if report.Failed() {
		slog.Error("pipeline failed", "error", report.Err())
	} else {
		slog.Info("pipeline finished")
	}
	return report, nil
}

// Returns an error if an enabled gate has no stage implementation.
func (p *Pipeline) checkStages(cfg Config) error {
	switch {
	case cfg.Make && p.stages.Builder == nil:
		return fmt.Errorf("%w: build enabled without a builder", ErrConfig)
	case cfg.Test && p.stages.Tester == nil:
		return fmt.Errorf("%w: test enabled without a tester", ErrConfig)
	case cfg.Release && p.stages.Releaser == nil:
		return fmt.Errorf("%w: release enabled without a releaser", ErrConfig)
	}
	return nil
}

// Builds every flavor in order, stopping at the first failure. Returns the
// build results by flavor, and false if a build failed.
func (p *Pipeline) buildAll(ctx context.Context, cfg Config, flavors []flavor.Flavor, report *Report) (map[flavor.Flavor]*build.Result, bool) {
	req := build.Request{Version: cfg.Version, Dockerfile: cfg.Dockerfile}
	results := make(map[flavor.Flavor]*build.Result, len(flavors))

	for _, f := range flavors {
		start := p.now()
		res, err := p.stages.Builder.Build(ctx, f, req)
		report.record(StageResult{
			Stage:     StageBuild,
			Builder:   p.catalog.Name,
			Flavor:    f,
			Succeeded: err == nil,
			Err:       stageErr(StageBuild, f, err),
			Duration:  p.now().Sub(start),
		})
		if err != nil {
			slog.Error("build failed, halting", "flavor", f, "error", err)
			return results, false
		}
		results[f] = res
	}
	return results, true
}

// Runs the tests for the primary flavor and records the outcome.
//
// When the image was built in this run, its ID is handed to the tester so
// the container starts from exactly that image.
func (p *Pipeline) test(ctx context.Context, cfg Config, image string, f flavor.Flavor, built *build.Result, report *Report) {
	var id digest.Digest
	if built != nil {
		id = built.ImageID
	}

	start := p.now()
	res, err := p.stages.Tester.Run(ctx, image, cfg.Version, f, id)
	if err == nil && !res.Passed() {
		err = fmt.Errorf("%w: exit code %d", ErrTestsFailed, res.ExitCode)
	}

	report.record(StageResult{
		Stage:     StageTest,
		Builder:   p.catalog.Name,
		Flavor:    f,
		Succeeded: err == nil,
		Err:       stageErr(StageTest, f, err),
		Duration:  p.now().Sub(start),
	})
}

// Releases the primary flavor unless an earlier stage failed.
func (p *Pipeline) release(ctx context.Context, cfg Config, image string, f flavor.Flavor, report *Report) {
	if report.Failed() {
		slog.Warn("release skipped after failed stage", "flavor", f)
		report.record(StageResult{
			Stage:   StageRelease,
			Builder: p.catalog.Name,
			Flavor:  f,
			Skipped: true,
			Err:     stageErr(StageRelease, f, ErrReleaseDenied),
		})
		return
	}

	start := p.now()
	err := p.stages.Releaser.Release(ctx, image, cfg.Version, cfg.ImagePrefix)
	report.record(StageResult{
		Stage:     StageRelease,
		Builder:   p.catalog.Name,
		Flavor:    f,
		Succeeded: err == nil,
		Err:       stageErr(StageRelease, f, err),
		Duration:  p.now().Sub(start),
	})
}

// Runs the derivative pipeline for each resolved flavor it supports, in
// order, appending its results. Stops at the first failed derivative run.
func (p *Pipeline) runDerivatives(ctx context.Context, cfg Config, flavors []flavor.Flavor, report *Report) {
	for _, f := range flavors {
		if !p.derivative.catalog.Supports(f) {
			continue
		}

		slog.Info("running derivative builder", "builder", p.derivative.catalog.Name, "flavor", f)

		sub, err := p.derivative.Run(ctx, Config{
			Selector:    f.String(),
			Version:     cfg.Version,
			ImagePrefix: cfg.ImagePrefix,
			Make:        cfg.Make,
			Test:        cfg.Test,
			Release:     cfg.Release,
		})
		if err != nil {
			report.record(StageResult{
				Stage:   StageBuild,
				Builder: p.derivative.catalog.Name,
				Flavor:  f,
				Err:     stageErr(StageBuild, f, err),
			})
			return
		}

		report.Results = append(report.Results, sub.Results...)
		if sub.Failed() {
			return
		}
	}
}

// Wraps a stage error with the stage and flavor, or returns nil.
func stageErr(s Stage, f flavor.Flavor, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrStageFailed, s, f, err)
}
