package conditional

import (
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/resolver"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// Artifact is one entry of the resolved set.
type Artifact struct {
	Coords    coords.ArtifactCoords
	Candidate workspace.Candidate
	// Extension is nil when the artifact is not an extension.
	Extension *resolver.ExtensionDependency
	// Dev marks artifacts only reachable through conditional dev
	// dependencies or dev-scoped activations.
	Dev bool
	// AddedBy is the extension whose activation first reached this
	// artifact; zero for artifacts of the base walk.
	AddedBy coords.ArtifactCoords
}

// Activation records the dependencies an extension contributed when its
// condition set was satisfied.
type Activation struct {
	Extension coords.ArtifactCoords
	Pass      int
	// Added lists conditional dependencies that were new to the resolved
	// set, in declaration order.
	Added []coords.ArtifactCoords
	// AddedDev is the same for conditional dev dependencies, and for
	// conditional dependencies of a dev-scoped activation.
	AddedDev []coords.ArtifactCoords
}

// Result is the closure of a base dependency set.
type Result struct {
	// Artifacts is the runtime set in discovery order.
	Artifacts []*Artifact
	// DevArtifacts holds dev-only artifacts in discovery order.
	DevArtifacts []*Artifact
	// Extensions lists every resolved extension in discovery order.
	Extensions  []*resolver.ExtensionDependency
	Activations []Activation
	// Passes counts the fixed-point passes, including the final one that
	// found nothing to activate.
	Passes int
}

// Contains reports whether an artifact with the key is in the runtime set.
func (r *Result) Contains(k coords.ArtifactKey) bool {
	for _, a := range r.Artifacts {
		if a.Coords.Key() == k {
			return true
		}
	}
	return false
}

// Coords lists the runtime set's coordinates in discovery order.
func (r *Result) Coords() []coords.ArtifactCoords {
	return coordsOf(r.Artifacts)
}

// DevCoords lists the dev-only coordinates in discovery order.
func (r *Result) DevCoords() []coords.ArtifactCoords {
	return coordsOf(r.DevArtifacts)
}

// Activated reports whether the extension with the key was activated.
func (r *Result) Activated(k coords.ArtifactKey) bool {
	for _, a := range r.Activations {
		if a.Extension.Key() == k {
			return true
		}
	}
	return false
}

func coordsOf(list []*Artifact) []coords.ArtifactCoords {
	out := make([]coords.ArtifactCoords, 0, len(list))
	for _, a := range list {
		out = append(out, a.Coords)
	}
	return out
}
