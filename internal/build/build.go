package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/buildinfo"
	"github.com/khulnasoft/ml-workspace/internal/flavor"
	"github.com/opencontainers/go-digest"
)

// Revision recorded when the version-control lookup fails.
const unknownRevision = "unknown"

// Builds a container image from a context directory.
type ImageBuilder interface {
	Build(ctx context.Context, spec Spec) (digest.Digest, error)
}

// Looks up the version-control revision of the source tree.
type RevisionSource interface {
	Revision(ctx context.Context) (string, error)
}

// Reads the current time from an external clock.
type ClockSource interface {
	Now(ctx context.Context) (time.Time, error)
}

// Everything an [ImageBuilder] needs to produce one image.
type Spec struct {
	Image      string // Local image name, without tag.
	Tag        string // Image tag (the pipeline version).
	Context    string // Build context directory.
	Dockerfile string // Dockerfile path. Empty uses the builder's default.
	Args       Args   // Build-time variables.
}

// Returns "image:tag".
func (s Spec) Ref() string {
	return s.Image + ":" + s.Tag
}

// Metadata lookups used by a [Coordinator].
type Sources struct {
	Revision RevisionSource
	Clock    ClockSource
}

// Per-run inputs shared by every flavor build.
type Request struct {
	Version    string // Version propagated into build args and the image tag.
	Dockerfile string // Optional Dockerfile override.
}

// Outcome of a successful flavor build.
type Result struct {
	Flavor  flavor.Flavor // Flavor that was built.
	Image   string        // Local image name, without tag.
	Ref     string        // Local image reference ("image:version").
	Args    Args          // Build arguments the image was built with.
	ImageID digest.Digest // Image ID reported by the builder, if any.
}

// Drives image builds for the flavors of one catalog.
type Coordinator struct {
	catalog *flavor.Catalog  // Flavor naming and layering rules.
	builder ImageBuilder     // External image builder.
	sources Sources          // Revision and clock lookups.
	now     func() time.Time // Process clock, used when the clock source fails.
}

// Creates a [Coordinator] for the given catalog.
func NewCoordinator(catalog *flavor.Catalog, builder ImageBuilder, sources Sources) *Coordinator {
	return &Coordinator{
		catalog: catalog,
		builder: builder,
		sources: sources,
		now:     time.Now,
	}
}

// Builds the image for one flavor.
//
// The image is tagged locally as "<image>:<version>" and becomes visible to
// later stages of the same run. Any builder failure is returned wrapped in
// [ErrBuild]; callers are expected to stop building further flavors.
func (c *Coordinator) Build(ctx context.Context, f flavor.Flavor, req Request) (*Result, error) {
	if !c.catalog.Supports(f) {
		return nil, fmt.Errorf("%w: %w: %q", ErrBuild, flavor.ErrInvalidFlavor, f)
	}

	meta := c.metadata(ctx)

	spec := Spec{
		Image:      c.catalog.ImageName(f),
		Tag:        req.Version,
		Context:    c.catalog.ContextDir(f),
		Dockerfile: req.Dockerfile,
		Args:       newArgs(meta, f.String(), req.Version, c.catalog.BaseImage(req.Version)),
	}

	slog.Info("building image",
		"flavor", f,
		"image", spec.Ref(),
		"context", spec.Context,
		"revision", meta.revision,
		"date", meta.date,
	)

	id, err := c.builder.Build(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: flavor %s: %w", ErrBuild, f, err)
	}

	slog.Info("image built", "flavor", f, "image", spec.Ref(), "id", id)

	return &Result{
		Flavor:  f,
		Image:   spec.Image,
		Ref:     spec.Ref(),
		Args:    spec.Args,
		ImageID: id,
	}, nil
}

// Build metadata with fallbacks already applied.
type metadata struct {
	revision string
	date     string
}

// Looks up the revision and build date, substituting fallbacks for failed
// lookups.
func (c *Coordinator) metadata(ctx context.Context) metadata {
	revision := unknownRevision
	if c.sources.Revision != nil {
		if rev, err := c.sources.Revision.Revision(ctx); err != nil {
			slog.Warn("revision unavailable, using fallback", "fallback", unknownRevision, "error", err)
		} else {
			revision = rev
		}
	}

	var ts time.Time
	if c.sources.Clock != nil {
		t, err := c.sources.Clock.Now(ctx)
		if err != nil {
			slog.Warn("clock source unavailable, using process clock", "error", err)
		} else {
			ts = t
		}
	}
	if ts.IsZero() {
		ts = c.now()
	}

	return metadata{revision: revision, date: buildinfo.FormatDate(ts)}
}
