package pipeline

import (
	"errors"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/flavor"
)

// Pipeline stage.
type Stage string

const (
	StageBuild   Stage = "build"
	StageTest    Stage = "test"
	StageRelease Stage = "release"
)

// Outcome of one stage invocation. Results are never modified once
// recorded.
type StageResult struct {
	Stage     Stage         // Stage that ran.
	Builder   string        // Catalog name of the builder variant ("workspace", "derivative").
	Flavor    flavor.Flavor // Flavor the stage operated on.
	Succeeded bool          // Whether the stage completed successfully.
	Skipped   bool          // Whether the stage was refused without running.
	Err       error         // Failure cause, if any.
	Duration  time.Duration // Time spent in the stage.
}

// Returns true if the stage ran and failed, or was refused.
func (r StageResult) Failed() bool {
	return !r.Succeeded
}

// Ordered stage results of one run.
type Report struct {
	Flavors []flavor.Flavor // Resolved flavors, in build order.
	Primary flavor.Flavor   // Flavor tested and released.
	Results []StageResult   // Stage outcomes, in execution order.
}

func (r *Report) record(res StageResult) {
	r.Results = append(r.Results, res)
}

// Returns true if any recorded stage failed or was refused.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Returns the joined errors of every failed stage, or nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Failed() && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Returns the process exit code for the run: 1 if any stage failed,
// otherwise 0.
func (r *Report) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Returns the results of a stage, in execution order.
func (r *Report) Stage(s Stage) []StageResult {
	var out []StageResult
	for _, res := range r.Results {
		if res.Stage == s {
			out = append(out, res)
		}
	}
	return out
}
