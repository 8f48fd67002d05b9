package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withLinkerVars(t *testing.T, v, s, c string) {
	t.Helper()
	oldV, oldS, oldC := version, stage, gitCommit
	version, stage, gitCommit = v, s, c
	t.Cleanup(func() { version, stage, gitCommit = oldV, oldS, oldC })
}

func TestVersionStringLocal(t *testing.T) {
	withLinkerVars(t, "1.0.0", "", "abc123")
	assert.True(t, IsLocal())
	assert.Equal(t, defaultLocalBuild, VersionString())
}

func TestVersionStringMainBranch(t *testing.T) {
	withLinkerVars(t, "v1.2.3", "main", "abc123")
	assert.Equal(t, "1.2.3", Version())
	assert.Regexp(t, `^1\.2\.3 abc123 \[.+\]$`, VersionString())
}

func TestVersionStringStage(t *testing.T) {
	withLinkerVars(t, "1.2.3", "Staging", "abc123")
	assert.Regexp(t, `^1\.2\.3\+staging abc123 \[.+\]$`, VersionString())
}

func TestVersionUndefined(t *testing.T) {
	withLinkerVars(t, "  ", "main", "abc")
	assert.Equal(t, defaultUndefined, Version())
}

func TestParseFlag(t *testing.T) {
	assert.True(t, parseFlag("true"))
	assert.True(t, parseFlag(" 1 "))
	assert.False(t, parseFlag("false"))
	assert.False(t, parseFlag("nope"))
}
