package main

import (
	"log/slog"
	"os"

	"github.com/khulnasoft/ml-workspace/internal"
	"github.com/khulnasoft/ml-workspace/internal/cli"
)

// The entry point for workspace-build.
//
// Initializes logging, displays startup information, and executes the root
// command. Any error, including a failed pipeline stage, exits with code 1.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("workspace-build is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Creates a logger seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via cli.Execute.
func logger() *slog.Logger {
	internal.SetLogLevel(internal.LogLevel())
	return internal.NewLogger(os.Stderr, internal.LogFormatText, internal.IsVerbose())
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
