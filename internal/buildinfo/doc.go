// Package buildinfo looks up build metadata from the environment: the
// version-control revision, the build timestamp, and the previously
// released version.
//
// Every lookup is fallible and reports its failure to the caller. Choosing
// a fallback value is left to the consumer, so a failed lookup is visible
// in one place instead of being swallowed here.
package buildinfo
