package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/khulnasoft/ml-workspace/internal"
	"github.com/khulnasoft/ml-workspace/internal/build"
	"github.com/khulnasoft/ml-workspace/internal/buildinfo"
	"github.com/khulnasoft/ml-workspace/internal/command"
	"github.com/khulnasoft/ml-workspace/internal/docker"
	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/khulnasoft/ml-workspace/internal/pipeline"
	"github.com/khulnasoft/ml-workspace/internal/release"
	"github.com/khulnasoft/ml-workspace/internal/runtime"
	"github.com/khulnasoft/ml-workspace/internal/settings"
	"github.com/khulnasoft/ml-workspace/internal/testrun"
)

// Labels attached to test containers.
const (
	labelRunID   = "org.khulnasoft." + internal.Name + ".run-id"
	labelVersion = "org.khulnasoft." + internal.Name + ".version"
)

// Loads settings, assembles the stages, and runs the pipeline.
//
// When derivatives is set, the derivative builder runs after a successful
// workspace run for every selected flavor it supports. Returns an error if
// the run could not start or any stage failed.
func runPipeline(ctx context.Context, v variant, selector string, derivatives bool, flags *StageFlags) error {
	s, err := loadSettings(flags)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	slog.Debug("run", "id", runID, "dir", flags.Dir)

	runner := &command.ExecRunner{Dir: flags.Dir}

	tester, closer, err := newTester(s, runner, flags, runID)
	if err != nil {
		return err
	}
	defer closer.Close()

	p := newPipeline(v, s, runner, flags, tester, derivatives)

	report, err := p.Run(ctx, pipeline.Config{
		Selector:    selector,
		Primary:     flags.PrimaryFlavor,
		Version:     flags.Version,
		ImagePrefix: s.ImagePrefix,
		Dockerfile:  s.Dockerfile,
		Make:        flags.Make,
		Test:        flags.Test,
		Release:     flags.Release,
	})
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		slog.Debug("stage result", "builder", res.Builder, "stage", res.Stage, "flavor", res.Flavor, "succeeded", res.Succeeded, "skipped", res.Skipped, "duration", res.Duration)
	}

	if report.ExitCode() != 0 {
		return report.Err()
	}
	return nil
}

// Creates the pipeline for a variant, chaining the derivative pipeline onto
// the workspace one when requested. Both pipelines share the tester.
func newPipeline(v variant, s *settings.Settings, runner command.Runner, flags *StageFlags, tester pipeline.Tester, derivatives bool) *pipeline.Pipeline {
	catalog := v.catalog(s.Product)
	p := pipeline.New(catalog, newStages(v, catalog, runner, s, flags, tester))

	if v == variantWorkspace && derivatives {
		dc := variantDerivative.catalog(s.Product)
		p.SetDerivative(pipeline.New(dc, newStages(variantDerivative, dc, runner, s, flags, tester)))
	}
	return p
}

// Loads the settings file and applies flag overrides.
func loadSettings(flags *StageFlags) (*settings.Settings, error) {
	s, err := settings.Load(RootCmd.Config)
	if err != nil {
		return nil, err
	}

	if flags.DockerImagePrefix != "" {
		s.ImagePrefix = flags.DockerImagePrefix
	}
	if flags.Dockerfile != "" {
		s.Dockerfile = flags.Dockerfile
	}
	if flags.Runtime != "" {
		s.Runtime.Backend = flags.Runtime
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Creates the test stage, or returns a nil tester when the test gate is off.
//
// The returned closer releases the container runtime client, if one was
// created.
func newTester(s *settings.Settings, runner command.Runner, flags *StageFlags, runID string) (pipeline.Tester, io.Closer, error) {
	if !flags.Test {
		return nil, nopCloser{}, nil
	}

	rt, err := newContainerRuntime(s, runner)
	if err != nil {
		return nil, nopCloser{}, err
	}

	tester := testrun.NewRunner(rt, testrun.Options{
		Command:        s.Test.Command,
		AccessPort:     s.Test.AccessPort,
		NetworkTimeout: s.Test.NetworkTimeout,
		Labels: map[string]string{
			labelRunID:   runID,
			labelVersion: flags.Version,
		},
	})
	return tester, rt, nil
}

// Creates the stage implementations for the enabled gates.
func newStages(v variant, catalog *flavor.Catalog, runner command.Runner, s *settings.Settings, flags *StageFlags, tester pipeline.Tester) pipeline.Stages {
	var stages pipeline.Stages

	if flags.Make {
		stages.Builder = build.NewCoordinator(catalog, docker.NewBuilder(runner), build.Sources{
			Revision: &buildinfo.GitRevision{Runner: runner},
			Clock:    &buildinfo.DateClock{Runner: runner},
		})
	}

	if flags.Test {
		stages.Tester = tester
	}

	if flags.Release {
		var files []string
		if v == variantWorkspace {
			files = s.TrackedFiles
		}
		m := release.NewManager(&buildinfo.GitTags{Runner: runner}, docker.NewPublisher(runner), files)
		m.SetDir(flags.Dir)
		stages.Releaser = m
	}

	return stages
}

// Container runtime that must be closed after use.
type closableRuntime interface {
	testrun.ContainerRuntime
	io.Closer
}

// Connects to the configured test container runtime.
func newContainerRuntime(s *settings.Settings, runner command.Runner) (closableRuntime, error) {
	switch s.Runtime.Backend {
	case settings.BackendContainerd:
		rt, err := runtime.New(runtime.Options{
			Address:     s.Runtime.Containerd.Address,
			Namespace:   s.Runtime.Containerd.Namespace,
			Snapshotter: s.Runtime.Containerd.Snapshotter,
			Platform:    s.Runtime.Platform,
		}, docker.NewArchiver(runner, ""))
		if err != nil {
			return nil, err
		}
		return rt, nil
	case settings.BackendDocker:
		engine, err := docker.NewEngine(docker.EngineOptions{Platform: s.Runtime.Platform})
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("%w: unknown runtime backend %q", settings.ErrSettings, s.Runtime.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
