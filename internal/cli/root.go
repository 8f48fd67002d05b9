package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/khulnasoft/ml-workspace/internal"
)

// Represents the root command.
var RootCmd struct {
	Quiet      bool          `short:"q" help:"Suppress informational output."`
	Verbose    bool          `short:"v" help:"Enable verbose output."`
	Debug      bool          `short:"d" help:"Enable debug output."`
	Config     string        `short:"c" help:"Settings file. Defaults to the user config directory." placeholder:"PATH" type:"path"`
	LogFormat  string        `help:"Log output format (${enum})." enum:"text,json" default:"text"`
	Run        RunCmd        `cmd:"" help:"Build, test, and release workspace flavor images."`
	Derivative DerivativeCmd `cmd:"" help:"Build, test, and release the GPU derivative image."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds, tests, and releases the ml-workspace container images.\n\nFlavors are built in order with the Docker CLI, the primary flavor is tested inside an ephemeral container, and released images are pushed under the registry prefix."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	internal.SetDebug(debug)
	internal.SetQuiet(quiet)
	internal.SetVerbose(verbose)

	internal.SetLogLevel(internal.LogLevel())
	slog.SetDefault(internal.NewLogger(os.Stderr, RootCmd.LogFormat, verbose))
}
