// Package runtime hosts test containers on containerd.
//
// A [Runtime] connects to a containerd daemon and implements the container
// lifecycle a test run needs. Images built by the Docker CLI live in the
// Docker image store, so a missing image is first exported with an
// [ImageArchiver] (docker save), imported into the content store, tagged
// under its normalized reference, and unpacked for the target platform.
//
// Test containers share the host network namespace, so the workspace is
// reachable on the loopback address once its task is running. Commands run
// as additional exec processes of that task with output streamed to the
// configured writers. Containers are removed with their snapshots when the
// run ends.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.Options{
//	    Address:   "/run/containerd/containerd.sock",
//	    Namespace: "workspace-build",
//	}, docker.NewArchiver(runner, ""))
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	runner := testrun.NewRunner(rt, testrun.Options{})
package runtime
