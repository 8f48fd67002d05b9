package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khulnasoft/ml-workspace/internal/build"
	"github.com/khulnasoft/ml-workspace/internal/command"
)

func testSpec() build.Spec {
	return build.Spec{
		Image:   "ml-workspace-minimal",
		Tag:     "1.3.0",
		Context: ".",
		Args: build.Args{
			{Name: build.ArgVCSRef, Value: "abc1234"},
			{Name: build.ArgWorkspaceFlavor, Value: "minimal"},
		},
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs(testSpec(), "/tmp/iid")

	assert.Equal(t, []string{
		"build", "-t", "ml-workspace-minimal:1.3.0", "--iidfile", "/tmp/iid",
		"--build-arg", "ARG_VCS_REF=abc1234",
		"--build-arg", "ARG_WORKSPACE_FLAVOR=minimal",
		".",
	}, args)
}

func TestBuildArgsDockerfile(t *testing.T) {
	spec := testSpec()
	spec.Dockerfile = "gpu-flavor/Dockerfile"
	spec.Context = "gpu-flavor"

	args := buildArgs(spec, "iid")

	assert.Equal(t, []string{"-f", "gpu-flavor/Dockerfile"}, args[5:7])
	assert.Equal(t, "gpu-flavor", args[len(args)-1])
}

func TestBuilderFailure(t *testing.T) {
	fake := command.NewFake()
	b := &Builder{runner: failingRunner{fake}, tmpDir: t.TempDir()}

	_, err := b.Build(context.Background(), testSpec())
	require.ErrorIs(t, err, ErrBuild)
	assert.Len(t, fake.Calls(), 1)
}

func TestBuilderMissingImageID(t *testing.T) {
	fake := command.NewFake()
	b := &Builder{runner: fake, tmpDir: t.TempDir()}

	id, err := b.Build(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestReadImageID(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid")
	require.NoError(t, os.WriteFile(valid, []byte("sha256:"+hex64+"\n"), 0o644))
	malformed := filepath.Join(dir, "malformed")
	require.NoError(t, os.WriteFile(malformed, []byte("not-a-digest"), 0o644))

	assert.Equal(t, "sha256:"+hex64, readImageID(valid).String())
	assert.Empty(t, readImageID(malformed))
	assert.Empty(t, readImageID(filepath.Join(dir, "missing")))
}

func TestPublish(t *testing.T) {
	fake := command.NewFake()
	p := NewPublisher(fake)

	err := p.Publish(context.Background(), "ml-workspace:1.3.0", "khulnasoft/ml-workspace:1.3.0")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"docker tag ml-workspace:1.3.0 khulnasoft/ml-workspace:1.3.0",
		"docker push khulnasoft/ml-workspace:1.3.0",
	}, fake.Calls())
}

func TestPublishTagFailure(t *testing.T) {
	fake := command.NewFake().
		On("docker tag ml-workspace:1.3.0 khulnasoft/ml-workspace:1.3.0", "", errors.New("no such image"))
	p := NewPublisher(fake)

	err := p.Publish(context.Background(), "ml-workspace:1.3.0", "khulnasoft/ml-workspace:1.3.0")
	require.ErrorIs(t, err, ErrPublish)
	assert.Len(t, fake.Calls(), 1, "push must not run after a failed tag")
}

func TestPublishPushFailure(t *testing.T) {
	fake := command.NewFake().
		On("docker push khulnasoft/ml-workspace:1.3.0", "", errors.New("denied"))
	p := NewPublisher(fake)

	err := p.Publish(context.Background(), "ml-workspace:1.3.0", "khulnasoft/ml-workspace:1.3.0")
	require.ErrorIs(t, err, ErrPublish)
}

func TestArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archives")
	fake := command.NewFake()
	a := NewArchiver(fake, dir)

	path, err := a.Archive(context.Background(), "ml-workspace:1.3.0")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ml-workspace-1.3.0.tar"), path)
	assert.DirExists(t, dir)
	assert.Equal(t, []string{"docker save -o " + path + " ml-workspace:1.3.0"}, fake.Calls())
}

func TestArchiveFailure(t *testing.T) {
	fake := command.NewFake()
	a := NewArchiver(failingRunner{fake}, t.TempDir())

	_, err := a.Archive(context.Background(), "ml-workspace:1.3.0")
	require.ErrorIs(t, err, ErrSave)
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"ml-workspace:1.0", "ml-workspace-1.0.tar"},
		{"khulnasoft/ml-workspace-gpu:1.0", "khulnasoft-ml-workspace-gpu-1.0.tar"},
		{"plain", "plain.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, archiveName(tt.ref))
		})
	}
}

const hex64 = "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945"

// Records calls through the wrapped fake and fails every command.
type failingRunner struct {
	*command.Fake
}

func (r failingRunner) Run(ctx context.Context, name string, args ...string) error {
	r.Fake.Run(ctx, name, args...)
	return errors.New("exit status 1")
}
