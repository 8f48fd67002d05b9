package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerOutput(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}

	out, err := r.Output(context.Background(), "sh", "-c", "echo '  hello  '")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExecRunnerOutputExitError(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}

	_, err := r.Output(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.ErrorIs(t, err, ErrCommand)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, err.Error(), "oops")
}

func TestExecRunnerRunStreams(t *testing.T) {
	requireShell(t)
	var stdout, stderr bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &stderr}

	require.NoError(t, r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2"))
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecRunnerMissingProgram(t *testing.T) {
	r := &ExecRunner{}

	err := r.Run(context.Background(), "definitely-not-a-real-program-xyz")
	require.ErrorIs(t, err, ErrCommand)
	assert.Equal(t, -1, ExitCode(err))
}

func TestFake(t *testing.T) {
	boom := errors.New("boom")
	f := NewFake().
		On("git rev-parse --short HEAD", "abc123\n", nil).
		On("date -u", "", boom)

	out, err := f.Output(context.Background(), "git", "rev-parse", "--short", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "abc123", out)

	_, err = f.Output(context.Background(), "date", "-u")
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, f.Run(context.Background(), "docker", "push", "x"))

	assert.Equal(t, []string{
		"git rev-parse --short HEAD",
		"date -u",
		"docker push x",
	}, f.Calls())
}
