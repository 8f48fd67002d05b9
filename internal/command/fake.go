package command

import (
	"context"
	"strings"
	"sync"
)

// Scripted [Runner] for tests.
//
// Responses are keyed by the full command line ("git rev-parse --short
// HEAD"). Unscripted commands succeed with empty output. Every invocation is
// recorded in order.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     []string
}

// Output and error returned for a scripted command line.
type FakeResponse struct {
	Output string
	Err    error
}

var _ Runner = (*Fake)(nil)

// Creates an empty [Fake].
func NewFake() *Fake {
	return &Fake{responses: make(map[string]FakeResponse)}
}

// Scripts the response for a command line.
func (f *Fake) On(line string, output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = FakeResponse{Output: output, Err: err}
	return f
}

// Returns the recorded command lines.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Run(_ context.Context, name string, args ...string) error {
	return f.respond(name, args).Err
}

func (f *Fake) Output(_ context.Context, name string, args ...string) (string, error) {
	r := f.respond(name, args)
	if r.Err != nil {
		return "", r.Err
	}
	return strings.TrimSpace(r.Output), nil
}

func (f *Fake) respond(name string, args []string) FakeResponse {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)
	return f.responses[line]
}
