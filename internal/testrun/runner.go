package testrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/opencontainers/go-digest"
)

const (

	// Default bound on waiting for the container's network address.
	DefaultNetworkTimeout = 2 * time.Minute

	// Default first delay between address reads. Later delays grow
	// exponentially up to maxPollInterval.
	DefaultPollInterval = 250 * time.Millisecond

	// Upper bound on the delay between address reads.
	maxPollInterval = 5 * time.Second

	// Time allowed for stopping and removing the container.
	teardownTimeout = time.Minute
)

// Test command run when none is configured.
var DefaultCommand = []string{"pytest", "/resources/tests"}

// Returned to the backoff loop while the runtime has not assigned an
// address yet.
var errAddressPending = errors.New("address pending")

// Controls a test run.
type Options struct {
	Command        []string          // Test command run inside the container. Empty uses [DefaultCommand].
	AccessPort     string            // Port the workspace listens on. Empty uses [DefaultAccessPort].
	NetworkTimeout time.Duration     // Bound on address discovery. Zero uses [DefaultNetworkTimeout].
	PollInterval   time.Duration     // First delay between address reads. Zero uses [DefaultPollInterval].
	Labels         map[string]string // Labels attached to the test container.
}

// Outcome of a test run that got as far as executing the test command.
type Result struct {
	Container string // Test container name.
	Address   string // Network address the tests ran against.
	ExitCode  int    // Exit code of the test command.
}

// Returns true if the test command exited with status zero.
func (r *Result) Passed() bool {
	return r.ExitCode == 0
}

// Runs the test suite inside ephemeral containers.
type Runner struct {
	rt   ContainerRuntime
	opts Options
}

// Creates a [Runner] backed by the given runtime.
func NewRunner(rt ContainerRuntime, opts Options) *Runner {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.AccessPort == "" {
		opts.AccessPort = DefaultAccessPort
	}
	if opts.NetworkTimeout <= 0 {
		opts.NetworkTimeout = DefaultNetworkTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Runner{rt: rt, opts: opts}
}

// Runs the test suite against "image:version" for a flavor.
//
// The container is named "workspace-test-<flavor>" and receives
// WORKSPACE_NAME and WORKSPACE_ACCESS_PORT in its environment. Once its
// address is known, the test command runs inside it with WORKSPACE_IP set.
// A non-empty imageID is the image ID the build reported; runtimes that keep
// their own image store use it to detect a stale copy of the tag.
// A test command that exits nonzero is reported through [Result.Passed],
// not as an error. Errors are returned for an unreachable runtime, a failed
// start, an address that never appears, and a test command that cannot be
// executed.
//
// After the runtime has been reached, the container is removed exactly once
// on every return path, panics included.
func (r *Runner) Run(ctx context.Context, image, version string, f flavor.Flavor, imageID digest.Digest) (*Result, error) {
	s := newSession(f, r.opts.AccessPort)
	ref := image + ":" + version

	if err := r.rt.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntimeUnreachable, err)
	}

	defer r.teardown(ctx, s)

	slog.Info("starting test container", "name", s.name, "image", ref)

	id, err := r.rt.Start(ctx, ContainerSpec{
		Name:    s.name,
		Image:   ref,
		ImageID: imageID,
		Env:     s.containerEnv(),
		Labels:  r.opts.Labels,
	})
	s.containerID = id
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerStart, s.name, err)
	}

	if err := r.awaitAddress(ctx, s); err != nil {
		return nil, err
	}

	slog.Info("running tests", "name", s.name, "address", s.address, "command", r.opts.Command)

	code, err := r.rt.Exec(ctx, s.ref(), r.opts.Command, s.execEnv())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTestExecution, s.name, err)
	}

	if code != 0 {
		slog.Warn("tests failed", "name", s.name, "exit_code", code)
	} else {
		slog.Info("tests passed", "name", s.name)
	}

	return &Result{Container: s.name, Address: s.address, ExitCode: code}, nil
}

// Polls the runtime until the container reports a network address.
//
// Delays between reads grow exponentially from the poll interval. Waiting
// stops with [ErrContainerNetworkTimeout] once the network timeout elapses,
// or immediately if the container exits or the caller cancels.
func (r *Runner) awaitAddress(parent context.Context, s *session) error {
	ctx, cancel := context.WithTimeout(parent, r.opts.NetworkTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.PollInterval
	b.MaxInterval = maxPollInterval
	b.MaxElapsedTime = r.opts.NetworkTimeout

	var lastErr error
	err := backoff.Retry(func() error {
		addr, err := r.rt.Address(ctx, s.ref())
		switch {
		case errors.Is(err, ErrContainerExited):
			return backoff.Permanent(err)
		case err != nil:
			lastErr = err
			slog.Debug("container address not readable yet", "name", s.name, "error", err)
			return err
		case addr == "":
			return errAddressPending
		}
		s.address = addr
		return nil
	}, backoff.WithContext(b, ctx))

	if err == nil {
		slog.Debug("container address resolved", "name", s.name, "address", s.address)
		return nil
	}
	if errors.Is(err, ErrContainerExited) {
		return fmt.Errorf("%w: %s: %w", ErrContainerStart, s.name, err)
	}
	if cause := parent.Err(); cause != nil {
		return fmt.Errorf("waiting for %s address: %w", s.name, cause)
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s after %s: %w", ErrContainerNetworkTimeout, s.name, r.opts.NetworkTimeout, lastErr)
	}
	return fmt.Errorf("%w: %s after %s", ErrContainerNetworkTimeout, s.name, r.opts.NetworkTimeout)
}

// Stops and removes the test container.
//
// Runs on a context detached from the caller's cancellation so an
// interrupted run still cleans up. Removal failures are logged, not
// returned, so they never mask the stage outcome.
func (r *Runner) teardown(ctx context.Context, s *session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if err := r.rt.Remove(ctx, s.ref()); err != nil {
		slog.Warn("failed to remove test container", "name", s.name, "error", err)
		return
	}
	slog.Debug("test container removed", "name", s.name)
}
