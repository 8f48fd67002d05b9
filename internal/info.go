package internal

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

const (

	// Name of the tool, used for logging, paths, and container labels.
	Name = "workspace-build"

	// Placeholder for an unset linker variable.
	defaultUndefined = "(undefined)"

	// Version string reported by binaries built outside the release process.
	defaultLocalBuild = "(local)"

	// Branch whose builds carry no stage suffix.
	mainBranch = "main"
)

// Set via -ldflags "-X github.com/khulnasoft/ml-workspace/internal.version=...".
var (
	version   = ""
	stage     = ""
	gitCommit = ""

	rawQuiet   = "false"
	rawDebug   = "false"
	rawVerbose = "false"
)

var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

func init() {
	quietMode.Store(parseFlag(rawQuiet))
	debugMode.Store(parseFlag(rawDebug))
	verboseMode.Store(parseFlag(rawVerbose))
}

func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) { quietMode.Store(enabled) }

// Returns true if quiet mode is enabled.
func IsQuiet() bool { return quietMode.Load() }

// Enables or disables debug mode.
func SetDebug(enabled bool) { debugMode.Store(enabled) }

// Returns true if debug mode is enabled.
func IsDebug() bool { return debugMode.Load() }

// Enables or disables verbose logging.
func SetVerbose(enabled bool) { verboseMode.Store(enabled) }

// Returns true if verbose logging is enabled.
func IsVerbose() bool { return verboseMode.Load() }

// Returns the tool version with any "v" prefix removed, or "(undefined)".
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(v, "v")
}

// Returns true if the binary was built without release linker flags.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns "<version>[+<stage>] <commit> [<arch>]", or "(local)" for local
// binaries. The stage suffix is omitted for the main branch.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	suffix := ""
	if s := strings.ToLower(strings.TrimSpace(stage)); s != mainBranch {
		suffix = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), suffix, strings.TrimSpace(gitCommit), runtime.GOARCH)
}
