package build

// Names of the build-time variables passed to every image build.
const (
	ArgVCSRef           = "ARG_VCS_REF"
	ArgBuildDate        = "ARG_BUILD_DATE"
	ArgWorkspaceFlavor  = "ARG_WORKSPACE_FLAVOR"
	ArgWorkspaceVersion = "ARG_WORKSPACE_VERSION"
	ArgBaseImage        = "ARG_WORKSPACE_BASE_IMAGE" // Derivative builds only.
)

// Single build-time variable.
type Arg struct {
	Name  string
	Value string
}

// Ordered build-time variables for one image build.
//
// Args is a value type: it is built fresh per flavor and handed to the
// builder by value.
type Args []Arg

// Returns the value of the named argument.
func (a Args) Get(name string) (string, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return "", false
}

// Returns the argument names in order.
func (a Args) Names() []string {
	names := make([]string, len(a))
	for i, arg := range a {
		names[i] = arg.Name
	}
	return names
}

// Formats the arguments as "NAME=value" pairs.
func (a Args) Pairs() []string {
	pairs := make([]string, len(a))
	for i, arg := range a {
		pairs[i] = arg.Name + "=" + arg.Value
	}
	return pairs
}

// Assembles the build arguments for one flavor.
//
// The base image argument is only present when baseImage is non-empty.
func newArgs(meta metadata, flavor, version, baseImage string) Args {
	args := Args{
		{Name: ArgVCSRef, Value: meta.revision},
		{Name: ArgBuildDate, Value: meta.date},
		{Name: ArgWorkspaceFlavor, Value: flavor},
		{Name: ArgWorkspaceVersion, Value: version},
	}
	if baseImage != "" {
		args = append(args, Arg{Name: ArgBaseImage, Value: baseImage})
	}
	return args
}
