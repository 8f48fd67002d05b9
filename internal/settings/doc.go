// Package settings loads the optional workspace-build settings file.
//
// Settings are read from a YAML file, either given explicitly or found at
// the default location from the paths package. Keys missing from the file
// keep their defaults, and a missing default file simply yields the
// defaults. Unknown keys are rejected so typos surface early.
//
// Example file:
//
//	product: ml-workspace
//	image_prefix: khulnasoft/
//	test:
//	  command: [pytest, /resources/tests]
//	  network_timeout: 2m
//	runtime:
//	  backend: containerd
//	  containerd:
//	    namespace: moby
package settings
