// Package testrun runs the integration test suite against a live instance
// of a freshly built image.
//
// A [Runner] starts an ephemeral container from the image, waits for the
// runtime to report a network address for it, executes the test command
// inside the container, and always removes the container before returning.
// The runtime itself sits behind the [ContainerRuntime] interface; the
// docker and runtime packages provide Docker Engine and containerd backends.
//
// Teardown is unconditional once the runtime has been reached: a failed
// start, an address that never appears, a test command that cannot be
// started, or a panic inside the runtime all still end in exactly one
// removal of the test container.
//
// Example usage:
//
//	r := testrun.NewRunner(rt, testrun.Options{})
//	result, err := r.Run(ctx, "ml-workspace", "1.2.0", flavor.Full, "")
//	if err != nil {
//	    return err
//	}
//	if !result.Passed() {
//	    return errors.New("tests failed")
//	}
package testrun
