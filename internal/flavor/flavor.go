package flavor

import (
	"fmt"
	"slices"
	"strings"
)

// Named build variant of the workspace image.
type Flavor string

const (
	Minimal Flavor = "minimal"
	Light   Flavor = "light"
	Full    Flavor = "full"
	GPU     Flavor = "gpu"
)

// Selector that expands to every flavor of a catalog.
const SelectorAll = "all"

// Default product name shared by all flavor images.
const DefaultProduct = "ml-workspace"

// Returns the flavor name.
func (f Flavor) String() string {
	return string(f)
}

// Describes the flavors a builder variant supports and how their images are
// named and layered.
type Catalog struct {
	Name       string   // Variant name, used in logs.
	Product    string   // Base product name (e.g., "ml-workspace").
	Flavors    []Flavor // Supported flavors, in "all" order.
	AllowAll   bool     // Whether the "all" selector is accepted.
	Derivative bool     // Whether images layer on top of the product image.
	Suffixed   []Flavor // Flavors whose image name carries a "-<flavor>" suffix.
}

// Returns the catalog of the top-level workspace builder.
//
// All four flavors are supported and "all" expands to minimal, light, full,
// gpu in that order. Only the minimal and light images carry a suffix; full
// and gpu are published under the bare product name.
func Workspace(product string) *Catalog {
	return &Catalog{
		Name:     "workspace",
		Product:  productOrDefault(product),
		Flavors:  []Flavor{Minimal, Light, Full, GPU},
		AllowAll: true,
		Suffixed: []Flavor{Minimal, Light},
	}
}

// Returns the catalog of the derivative builder.
//
// Derivative images are built from a separate context on top of the locally
// built product image. Only the gpu flavor exists and every image is
// suffixed.
func Derivative(product string) *Catalog {
	return &Catalog{
		Name:       "derivative",
		Product:    productOrDefault(product),
		Flavors:    []Flavor{GPU},
		Derivative: true,
		Suffixed:   []Flavor{GPU},
	}
}

func productOrDefault(product string) string {
	if p := strings.TrimSpace(product); p != "" {
		return p
	}
	return DefaultProduct
}

// Expands a selector into the ordered flavors to process.
//
// The selector is normalized (trimmed, lower-cased) first. "all" yields
// every flavor of the catalog when the catalog allows it; a supported
// flavor yields a single-element list. Anything else is rejected with
// [ErrInvalidFlavor]. The returned slice is never empty on success.
func (c *Catalog) Resolve(selector string) ([]Flavor, error) {
	s := strings.ToLower(strings.TrimSpace(selector))

	if s == SelectorAll && c.AllowAll {
		return slices.Clone(c.Flavors), nil
	}

	f, err := c.Parse(s)
	if err != nil {
		return nil, err
	}
	return []Flavor{f}, nil
}

// Parses a single flavor name, rejecting names the catalog does not support.
func (c *Catalog) Parse(name string) (Flavor, error) {
	f := Flavor(strings.ToLower(strings.TrimSpace(name)))
	if !c.Supports(f) {
		return "", fmt.Errorf("%w: %q (supported by %s builder: %s)", ErrInvalidFlavor, name, c.Name, c.describe())
	}
	return f, nil
}

// Returns true if the catalog supports the flavor.
func (c *Catalog) Supports(f Flavor) bool {
	return slices.Contains(c.Flavors, f)
}

// Returns the local image name for a flavor, without tag.
func (c *Catalog) ImageName(f Flavor) string {
	if slices.Contains(c.Suffixed, f) {
		return c.Product + "-" + string(f)
	}
	return c.Product
}

// Returns the local reference of the image a derivative flavor layers on,
// or "" for catalogs that build from scratch.
//
// The reference is always the local tag, never a registry-prefixed one, so
// a derivative build layers on the artifact produced earlier in the same
// run rather than on a remote image.
func (c *Catalog) BaseImage(version string) string {
	if !c.Derivative {
		return ""
	}
	return c.Product + ":" + version
}

// Returns the build context directory for a flavor, relative to the
// repository root.
func (c *Catalog) ContextDir(f Flavor) string {
	if c.Derivative {
		return string(f) + "-flavor"
	}
	return "."
}

func (c *Catalog) describe() string {
	names := make([]string, 0, len(c.Flavors)+1)
	if c.AllowAll {
		names = append(names, SelectorAll)
	}
	for _, f := range c.Flavors {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
