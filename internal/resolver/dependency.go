package resolver

import (
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// Kind tells the two extension dependency shapes apart.
type Kind int

const (
	// KindProject is an extension backed by an in-workspace project.
	KindProject Kind = iota + 1
	// KindArtifact is an extension backed by a packaged artifact.
	KindArtifact
)

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// ExtensionDependency is a resolved extension. Which fields are set
// depends on Kind; values are not mutated after construction.
type ExtensionDependency struct {
	Kind Kind
	// Coords are the runtime artifact coordinates of the extension.
	Coords coords.ArtifactCoords

	// Project and DeploymentProject are set for KindProject.
	Project           *workspace.Project
	DeploymentProject *workspace.Project
	// IncludedBuild is true when the extension project lives outside the
	// root build.
	IncludedBuild bool

	// Deployment is set for KindArtifact.
	Deployment coords.ArtifactCoords

	ConditionalDependencies    []coords.ArtifactCoords
	ConditionalDevDependencies []coords.ArtifactCoords
	DependencyConditions       []coords.ArtifactKey
}

// Key returns the key of the runtime artifact.
func (d *ExtensionDependency) Key() coords.ArtifactKey {
	return d.Coords.Key()
}

// DeploymentCoords returns the coordinates of the deployment side,
// whichever variant supplied it.
func (d *ExtensionDependency) DeploymentCoords() coords.ArtifactCoords {
	if d.Kind == KindProject {
		return d.DeploymentProject.Coords()
	}
	return d.Deployment
}

// Conditional reports whether the extension has a non-empty condition set.
func (d *ExtensionDependency) Conditional() bool {
	return len(d.DependencyConditions) > 0
}

func (d *ExtensionDependency) String() string {
	if d.Kind == KindProject {
		return d.Coords.String() + " (project " + d.Project.String() + ")"
	}
	return d.Coords.String()
}
