package workspace

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/extforge/internal/coords"
)

// Build returns the build with the given name.
func (w *Workspace) Build(name string) (*Build, bool) {
	b, ok := w.buildsByName[name]
	return b, ok
}

// Project returns the project with the given path in this build.
func (b *Build) Project(path string) (*Project, bool) {
	p, ok := b.byPath[path]
	return p, ok
}

// IsRoot reports whether this is the workspace's root build.
func (b *Build) IsRoot() bool {
	return b.workspace != nil && b.workspace.Root == b
}

// FindProject looks a project path up in the root build first and then in
// the named included build, if any.
func (w *Workspace) FindProject(buildName, path string) (*Project, bool) {
	if p, ok := w.Root.Project(path); ok {
		return p, true
	}
	if buildName == "" {
		return nil, false
	}
	b, ok := w.Build(buildName)
	if !ok {
		return nil, false
	}
	return b.Project(path)
}

// FindLocalProject finds a project of any build whose group, name and
// version match the coordinates. Classifier and type are ignored.
func (w *Workspace) FindLocalProject(c coords.ArtifactCoords) (*Project, bool) {
	p, ok := w.projectsByCoord[coords.NewJar(c.GroupID, c.ArtifactID, c.Version)]
	return p, ok
}

// Artifact returns the repository entry with exactly these coordinates.
func (w *Workspace) Artifact(c coords.ArtifactCoords) (*Artifact, bool) {
	a, ok := w.artifactsByGAV[c]
	return a, ok
}

// Candidate answers the dependency graph provider question for one
// coordinate. Local projects shadow repository artifacts with the same
// group, name and version.
func (w *Workspace) Candidate(c coords.ArtifactCoords) (Candidate, error) {
	if p, ok := w.FindLocalProject(c); ok {
		return Candidate{Coords: c, Project: p}, nil
	}
	if a, ok := w.Artifact(c); ok {
		return Candidate{Coords: c, File: a.File}, nil
	}
	return Candidate{}, fmt.Errorf("artifact %s is neither a workspace project nor present in the repository", c)
}

// DependenciesOf lists the direct dependencies of a candidate in
// declaration order. Project dependencies are expressed as the coordinates
// of the referenced projects.
func (w *Workspace) DependenciesOf(c Candidate) ([]coords.ArtifactCoords, error) {
	if c.Project != nil {
		deps := make([]coords.ArtifactCoords, 0, len(c.Project.Dependencies))
		for _, raw := range c.Project.Dependencies {
			if !isProjectPath(raw) {
				dep, err := coords.Parse(raw)
				if err != nil {
					return nil, fmt.Errorf("project %s: %w", c.Project, err)
				}
				deps = append(deps, dep)
				continue
			}
			dep, ok := c.Project.Build.Project(raw)
			if !ok {
				return nil, fmt.Errorf("project %s depends on unknown project %s in build %q", c.Project, raw, c.Project.Build.Name)
			}
			deps = append(deps, dep.Coords())
		}
		return deps, nil
	}
	if a, ok := w.Artifact(c.Coords); ok {
		return a.Dependencies, nil
	}
	return nil, nil
}

// Coords returns the project's published coordinates.
func (p *Project) Coords() coords.ArtifactCoords {
	return coords.NewJar(p.Group, p.Name, p.Version)
}

// Key returns the project's artifact key.
func (p *Project) Key() coords.ArtifactKey {
	return p.Coords().Key()
}

// String identifies the project for messages.
func (p *Project) String() string {
	if p.Build != nil && !p.Build.IsRoot() {
		return p.Build.Name + p.Path
	}
	return p.Path
}

// ProjectDependencies returns the projects of the same build this project
// depends on, in declaration order. Coordinate dependencies are skipped.
func (p *Project) ProjectDependencies() []*Project {
	var out []*Project
	for _, raw := range p.Dependencies {
		if !isProjectPath(raw) {
			continue
		}
		if dep, ok := p.Build.Project(raw); ok {
			out = append(out, dep)
		}
	}
	return out
}

func isProjectPath(s string) bool {
	return strings.HasPrefix(s, ":")
}
