// Package command runs external programs (git, date, docker) on behalf of
// the pipeline.
//
// [Runner] is the seam every external-tool adapter goes through, so adapters
// can be tested against a scripted [Fake] without spawning processes.
package command
