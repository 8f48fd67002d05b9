// Parses flags, configures logging, and wires the build pipeline.
//
// The tool accepts the following global flags:
//
//	-q, --quiet        Suppress informational output.
//	-v, --verbose      Enable verbose output.
//	-d, --debug        Enable debug output.
//	-c, --config       Settings file path.
//	    --log-format   Log output format (text or json).
//
// The run command builds the workspace flavors; the derivative command
// builds the GPU derivative on top of a locally built workspace image. Both
// accept the stage gates (--make, --test, --release) together with
// --version, --docker-image-prefix, and --primary-flavor.
//
// Flags override build-time defaults set via linker flags and values from
// the settings file. After parsing, the global logger is reconfigured to
// reflect the final level and format before the command runs.
package cli
