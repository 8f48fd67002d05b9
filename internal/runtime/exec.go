package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Runs a command directly inside the container's running task.
//
// The environment overrides the container's own for this execution only.
// A non-zero exit code is not treated as an error; the caller decides.
func (c *container) exec(ctx context.Context, args []string, env []string, stdout, stderr io.Writer) (int, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	pspec, err := buildProcessSpec(ctx, ctr, env, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(nil, stdout, stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return awaitProcess(ctx, process)
}

// Builds an OCI process spec for running a command inside the container.
//
// The base values are copied from the container's own OCI spec, then the
// arguments are replaced and env is merged on top.
func buildProcessSpec(ctx context.Context, ctr containerd.Container, env []string, args ...string) (*specs.Process, error) {
	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	return result
}

// Waits for an exec process to exit and returns the exit code.
//
// The process is always deleted before returning.
func awaitProcess(ctx context.Context, process containerd.Process) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	var exitStatus containerd.ExitStatus
	select {
	case exitStatus = <-statusC:
	case <-ctx.Done():
		process.Delete(context.WithoutCancel(ctx), containerd.WithProcessKill)
		return 0, ctx.Err()
	}
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return int(code), nil
}
