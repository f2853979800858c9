package workspace

import (
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/zclconf/go-cty/cty"
)

// Workspace is the loaded, read-only model of a multi-build workspace.
type Workspace struct {
	// Root is the build the engine runs for.
	Root *Build
	// Builds lists the root build first, then included builds in load order.
	Builds []*Build
	// Artifacts is the local repository of packaged artifacts.
	Artifacts []*Artifact
	// Requires lists the application's declared direct dependencies.
	Requires []coords.ArtifactCoords
	// Items and Steps are the declared build items and build steps.
	Items []*ItemDecl
	Steps []*StepDecl

	buildsByName    map[string]*Build
	artifactsByGAV  map[coords.ArtifactCoords]*Artifact
	projectsByCoord map[coords.ArtifactCoords]*Project
}

// Build is a set of projects sharing one project-path namespace.
type Build struct {
	Name     string
	Projects []*Project

	workspace *Workspace
	byPath    map[string]*Project
}

// Project is an in-workspace module.
type Project struct {
	Build   *Build
	Path    string
	Group   string
	Name    string
	Version string
	Dir     string
	// BuildDir is the project's output root (target dir).
	BuildDir string

	SourceDirs         []string
	ResourceDirs       []string
	ClassesDir         string
	ResourcesOutputDir string

	TestSourceDirs         []string
	TestResourceDirs       []string
	TestClassesDir         string
	TestResourcesOutputDir string

	// Dependencies lists project paths (":name") in the same build or
	// coordinates of repository artifacts.
	Dependencies []string
	// Extension is the project's extension configuration block, if any.
	Extension *ExtensionConfig
}

// ExtensionConfig mirrors the accessor-style extension configuration a
// runtime extension project may declare in place of, or in addition to, a
// descriptor resource.
type ExtensionConfig struct {
	DeploymentModule           string
	ConditionalDependencies    []string
	ConditionalDevDependencies []string
	DependencyConditions       []string
}

// Artifact is a packaged artifact in the local repository.
type Artifact struct {
	Coords coords.ArtifactCoords
	// File is a jar or an exploded directory. It may not exist.
	File         string
	Dependencies []coords.ArtifactCoords
}

// ItemDecl declares a build item type.
type ItemDecl struct {
	Name  string
	Multi bool
}

// StepDecl declares a build step executed through a named Go handler.
type StepDecl struct {
	ID      string
	Handler string
	// Extension is the key of the extension contributing the step. Steps
	// of extensions outside the resolved set are not scheduled. The zero
	// key marks an application step.
	Extension        coords.ArtifactKey
	Consumes         []string
	OptionalConsumes []string
	Produces         []string
	Phase            string
	Priority         int
	BestEffort       bool
	// Values is the evaluated `values` attribute, cty.NilVal when absent.
	Values cty.Value
}

// HasExtension reports whether the step belongs to an extension.
func (s *StepDecl) HasExtension() bool {
	return s.Extension != coords.ArtifactKey{}
}

// Candidate is what the dependency graph provider knows about one
// coordinate: whether it is backed by a local project or by a packaged
// artifact file.
type Candidate struct {
	Coords  coords.ArtifactCoords
	Project *Project
	File    string
}

// IsProject reports whether the candidate is an in-workspace project.
func (c Candidate) IsProject() bool {
	return c.Project != nil
}
