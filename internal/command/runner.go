package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Executes external programs.
type Runner interface {

	// Runs a program, streaming its output to the runner's writers.
	Run(ctx context.Context, name string, args ...string) error

	// Runs a program and returns its trimmed standard output.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// Runs programs with os/exec.
type ExecRunner struct {
	Dir    string    // Working directory. Empty uses the current directory.
	Stdout io.Writer // Destination for streamed stdout. Nil uses os.Stdout.
	Stderr io.Writer // Destination for streamed stderr. Nil uses os.Stderr.
}

var _ Runner = (*ExecRunner)(nil)

// Runs a program and streams its output.
//
// A nonzero exit is returned as an [*ExitError] wrapping [ErrCommand].
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	slog.Debug("running command", "command", name, "args", args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = writerOr(r.Stdout, os.Stdout)
	cmd.Stderr = writerOr(r.Stderr, os.Stderr)

	return classify(name, cmd.Run(), "")
}

// Runs a program and returns its standard output with surrounding
// whitespace removed.
//
// Standard error is captured and attached to the returned error.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	slog.Debug("running command", "command", name, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := classify(name, cmd.Run(), stderr.String()); err != nil {
		return "", err
	}

	out := strings.TrimSpace(stdout.String())
	slog.Debug("command output", "command", name, "output", out)
	return out, nil
}

// Nonzero exit of an external program.
type ExitError struct {
	Name   string // Program name.
	Code   int    // Exit code reported by the process.
	Stderr string // Captured standard error, if any.
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return ErrCommand
}

// Returns the exit code carried by err, or -1 if err does not describe a
// process exit.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// Converts an os/exec error into an [*ExitError] or a wrapped
// [ErrCommand]. A nil error stays nil.
func classify(name string, err error, stderr string) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Name: name, Code: exitErr.ExitCode(), Stderr: stderr}
	}

	return fmt.Errorf("%w: %s: %w", ErrCommand, name, err)
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
