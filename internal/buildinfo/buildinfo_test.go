package buildinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	revLine  = "git rev-parse --short HEAD"
	dateLine = "date -u +%Y-%m-%dT%H:%M:%SZ"
	tagLine  = "git tag --list"
)

func TestGitRevision(t *testing.T) {
	g := &GitRevision{Runner: command.NewFake().On(revLine, "1a2b3c4\n", nil)}

	rev, err := g.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c4", rev)
}

func TestGitRevisionFailure(t *testing.T) {
	g := &GitRevision{Runner: command.NewFake().On(revLine, "", errors.New("not a git repository"))}

	_, err := g.Revision(context.Background())
	assert.ErrorIs(t, err, ErrRevision)
}

func TestGitRevisionEmpty(t *testing.T) {
	g := &GitRevision{Runner: command.NewFake()}

	_, err := g.Revision(context.Background())
	assert.ErrorIs(t, err, ErrRevision)
}

func TestDateClock(t *testing.T) {
	d := &DateClock{Runner: command.NewFake().On(dateLine, "2024-03-01T12:30:45Z", nil)}

	got, err := d.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC), got)
}

func TestDateClockUnparseable(t *testing.T) {
	d := &DateClock{Runner: command.NewFake().On(dateLine, "Fri Mar  1 12:30:45 UTC 2024", nil)}

	_, err := d.Now(context.Background())
	assert.ErrorIs(t, err, ErrClock)
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2024-03-01T10:30:45Z", FormatDate(time.Date(2024, 3, 1, 12, 30, 45, 999, loc)))
}

func TestValidateVersion(t *testing.T) {
	assert.NoError(t, ValidateVersion("1.2.3"))
	assert.NoError(t, ValidateVersion("0.13.2-rc.1"))
	assert.ErrorIs(t, ValidateVersion("latest"), ErrVersion)
	assert.ErrorIs(t, ValidateVersion(""), ErrVersion)
}

func TestPreviousVersion(t *testing.T) {
	tags := "v0.9.0\n1.2.0\nnightly\nv1.2.1-rc.1\n1.3.0\n2.0.0\n"

	tests := []struct {
		name    string
		current string
		want    string
	}{
		{name: "highest lower", current: "1.3.0", want: "1.2.1-rc.1"},
		{name: "excludes equal", current: "2.0.0", want: "1.3.0"},
		{name: "strips v prefix", current: "1.0.0", want: "0.9.0"},
		{name: "none lower", current: "0.1.0", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GitTags{Runner: command.NewFake().On(tagLine, tags, nil)}
			got, err := g.PreviousVersion(context.Background(), tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreviousVersionErrors(t *testing.T) {
	g := &GitTags{Runner: command.NewFake().On(tagLine, "", errors.New("no git"))}
	_, err := g.PreviousVersion(context.Background(), "1.0.0")
	assert.ErrorIs(t, err, ErrVersion)

	_, err = g.PreviousVersion(context.Background(), "not-a-version")
	assert.ErrorIs(t, err, ErrVersion)
}
