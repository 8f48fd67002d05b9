package testrun

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scripted runtime that records every call.
type fakeRuntime struct {
	mu sync.Mutex

	pingErr    error
	startID    string
	startErr   error
	addresses  []string // Returned in order; the last value repeats.
	addressErr error
	exitCode   int
	execErr    error
	execPanic  bool
	removeErr  error

	started  []ContainerSpec
	execs    [][]string
	execEnvs [][]string
	removed  []string
	reads    int
}

func (f *fakeRuntime) Ping(context.Context) error { return f.pingErr }

func (f *fakeRuntime) Start(_ context.Context, spec ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, spec)
	return f.startID, f.startErr
}

func (f *fakeRuntime) Address(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.addressErr != nil {
		return "", f.addressErr
	}
	if len(f.addresses) == 0 {
		return "", nil
	}
	addr := f.addresses[0]
	if len(f.addresses) > 1 {
		f.addresses = f.addresses[1:]
	}
	return addr, nil
}

func (f *fakeRuntime) Exec(_ context.Context, _ string, cmd []string, env []string) (int, error) {
	f.mu.Lock()
	f.execs = append(f.execs, cmd)
	f.execEnvs = append(f.execEnvs, env)
	f.mu.Unlock()
	if f.execPanic {
		panic("exec exploded")
	}
	return f.exitCode, f.execErr
}

func (f *fakeRuntime) Remove(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	return f.removeErr
}

func fastOptions() Options {
	return Options{
		NetworkTimeout: 50 * time.Millisecond,
		PollInterval:   time.Millisecond,
	}
}

func TestRunPasses(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee", addresses: []string{"", "", "172.17.0.2"}}
	r := NewRunner(rt, fastOptions())

	res, err := r.Run(context.Background(), "ml-workspace-minimal", "1.2.0", flavor.Minimal, "")
	require.NoError(t, err)

	assert.True(t, res.Passed())
	assert.Equal(t, "workspace-test-minimal", res.Container)
	assert.Equal(t, "172.17.0.2", res.Address)

	require.Len(t, rt.started, 1)
	assert.Equal(t, ContainerSpec{
		Name:  "workspace-test-minimal",
		Image: "ml-workspace-minimal:1.2.0",
		Env:   []string{"WORKSPACE_NAME=workspace-test-minimal", "WORKSPACE_ACCESS_PORT=8080"},
	}, rt.started[0])

	assert.Equal(t, [][]string{DefaultCommand}, rt.execs)
	assert.Equal(t, [][]string{{"WORKSPACE_IP=172.17.0.2"}}, rt.execEnvs)
	assert.Equal(t, []string{"c0ffee"}, rt.removed)
	assert.GreaterOrEqual(t, rt.reads, 3)
}

func TestRunTestsFailStillRemoves(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee", addresses: []string{"172.17.0.2"}, exitCode: 2}
	r := NewRunner(rt, fastOptions())

	res, err := r.Run(context.Background(), "ml-workspace", "1.2.0", flavor.Full, "")
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, []string{"c0ffee"}, rt.removed)
}

func TestRunRemovesExactlyOnceOnEveryFailure(t *testing.T) {
	tests := []struct {
		name    string
		rt      *fakeRuntime
		wantErr error
		wantRef string
	}{
		{
			name:    "start fails before a handle exists",
			rt:      &fakeRuntime{startErr: errors.New("no such image")},
			wantErr: ErrContainerStart,
			wantRef: "workspace-test-full",
		},
		{
			name:    "start fails after create",
			rt:      &fakeRuntime{startID: "half", startErr: errors.New("port in use")},
			wantErr: ErrContainerStart,
			wantRef: "half",
		},
		{
			name:    "address never appears",
			rt:      &fakeRuntime{startID: "c0ffee"},
			wantErr: ErrContainerNetworkTimeout,
			wantRef: "c0ffee",
		},
		{
			name:    "address reads keep failing",
			rt:      &fakeRuntime{startID: "c0ffee", addressErr: errors.New("inspect failed")},
			wantErr: ErrContainerNetworkTimeout,
			wantRef: "c0ffee",
		},
		{
			name:    "container exits while waiting",
			rt:      &fakeRuntime{startID: "c0ffee", addressErr: ErrContainerExited},
			wantErr: ErrContainerStart,
			wantRef: "c0ffee",
		},
		{
			name:    "test command cannot start",
			rt:      &fakeRuntime{startID: "c0ffee", addresses: []string{"10.0.0.3"}, execErr: errors.New("exec create failed")},
			wantErr: ErrTestExecution,
			wantRef: "c0ffee",
		},
		{
			name:    "removal itself fails",
			rt:      &fakeRuntime{startID: "c0ffee", addresses: []string{"10.0.0.3"}, removeErr: errors.New("busy")},
			wantRef: "c0ffee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(tt.rt, fastOptions())

			_, err := r.Run(context.Background(), "ml-workspace", "1.2.0", flavor.Full, "")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []string{tt.wantRef}, tt.rt.removed)
		})
	}
}

func TestRunExitedFailsFast(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee", addressErr: ErrContainerExited}
	r := NewRunner(rt, Options{NetworkTimeout: time.Hour, PollInterval: time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "ml-workspace", "1.2.0", flavor.Full, "")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrContainerExited)
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept polling an exited container")
	}
	assert.Equal(t, 1, rt.reads)
}

func TestRunRemovesOnPanic(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee", addresses: []string{"10.0.0.3"}, execPanic: true}
	r := NewRunner(rt, fastOptions())

	assert.Panics(t, func() {
		r.Run(context.Background(), "ml-workspace", "1.2.0", flavor.Full, "")
	})
	assert.Equal(t, []string{"c0ffee"}, rt.removed)
}

func TestRunUnreachableRuntimeSkipsTeardown(t *testing.T) {
	rt := &fakeRuntime{pingErr: errors.New("connection refused")}
	r := NewRunner(rt, fastOptions())

	_, err := r.Run(context.Background(), "ml-workspace", "1.2.0", flavor.Full, "")
	require.ErrorIs(t, err, ErrRuntimeUnreachable)
	assert.Empty(t, rt.started)
	assert.Empty(t, rt.removed)
}

func TestRunTeardownSurvivesCancellation(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee"}
	r := NewRunner(rt, Options{NetworkTimeout: time.Hour, PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := r.Run(ctx, "ml-workspace", "1.2.0", flavor.Full, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrContainerNetworkTimeout)
	assert.Equal(t, []string{"c0ffee"}, rt.removed)
}

func TestRunCustomOptions(t *testing.T) {
	rt := &fakeRuntime{startID: "c0ffee", addresses: []string{"10.0.0.3"}}
	labels := map[string]string{"run": "abc"}
	r := NewRunner(rt, Options{
		Command:    []string{"pytest", "-x", "/tests"},
		AccessPort: "9090",
		Labels:     labels,
	})

	_, err := r.Run(context.Background(), "ml-workspace-gpu", "2.0.0", flavor.GPU, "sha256:"+imageHex)
	require.NoError(t, err)

	assert.Equal(t, digest.Digest("sha256:"+imageHex), rt.started[0].ImageID)

	assert.Equal(t, [][]string{{"pytest", "-x", "/tests"}}, rt.execs)
	assert.Contains(t, rt.started[0].Env, "WORKSPACE_ACCESS_PORT=9090")
	assert.Equal(t, labels, rt.started[0].Labels)
}

const imageHex = "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945"

func TestContainerName(t *testing.T) {
	assert.Equal(t, "workspace-test-gpu", ContainerName(flavor.GPU))
}
