// Package release bumps version references and publishes images.
//
// A [Manager] looks up the previously released version, rewrites every
// literal occurrence of it in a fixed list of tracked files, then tags the
// local image under the registry prefix and pushes it. Any file or publish
// failure aborts the release. A previous version that cannot be determined
// only skips the file rewrite.
//
// Example usage:
//
//	m := release.NewManager(&buildinfo.GitTags{Runner: runner}, docker.NewPublisher(runner), release.WorkspaceFiles)
//	if err := m.Release(ctx, "ml-workspace", "1.3.0", "khulnasoft/"); err != nil {
//	    return err
//	}
package release
