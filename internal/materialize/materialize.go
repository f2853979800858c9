// Package materialize turns resolved extensions into the dependency
// references a build tool adds to its deployment configuration.
package materialize

import (
	"fmt"

	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/resolver"
)

// RefKind tells external module references from project references.
type RefKind int

const (
	// External references a module by group:name:version.
	External RefKind = iota + 1
	// Project references a project of the current build by path.
	Project
)

func (k RefKind) String() string {
	switch k {
	case External:
		return "external"
	case Project:
		return "project"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k RefKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Reference is one materialized dependency. Notation is set for External
// references, Path for Project references.
type Reference struct {
	Kind     RefKind `json:"kind"`
	Notation string  `json:"notation,omitempty"`
	Path     string  `json:"path,omitempty"`
	// Key identifies the referenced artifact for deduplication.
	Key coords.ArtifactKey `json:"-"`
}

func (r Reference) String() string {
	if r.Kind == Project {
		return "project(" + r.Path + ")"
	}
	return r.Notation
}

// ForExtension returns the reference to an extension's deployment side.
// A deployment project of an included build cannot be referenced by path
// from the root build, so it is referenced by its published coordinates.
func ForExtension(d *resolver.ExtensionDependency) (Reference, error) {
	switch d.Kind {
	case resolver.KindProject:
		dp := d.DeploymentProject
		if dp == nil {
			return Reference{}, fmt.Errorf("extension %s has no deployment project", d.Coords)
		}
		if d.IncludedBuild {
			return external(dp.Coords()), nil
		}
		return Reference{Kind: Project, Path: dp.Path, Key: dp.Key()}, nil
	case resolver.KindArtifact:
		return external(d.Deployment), nil
	default:
		return Reference{}, fmt.Errorf("extension %s has unknown kind %s", d.Coords, d.Kind)
	}
}

// ForCoords returns an external reference to the coordinates.
func ForCoords(c coords.ArtifactCoords) Reference {
	return external(c)
}

// Deployment materializes the deployment references of extensions in
// order, dropping repeats of a key.
func Deployment(exts []*resolver.ExtensionDependency) ([]Reference, error) {
	var b builder
	for _, d := range exts {
		ref, err := ForExtension(d)
		if err != nil {
			return nil, err
		}
		b.add(ref)
	}
	return b.refs, nil
}

// Conditional materializes conditional dependency coordinates as external
// references, deduplicated by key in input order.
func Conditional(deps []coords.ArtifactCoords) []Reference {
	var b builder
	for _, c := range deps {
		b.add(ForCoords(c))
	}
	return b.refs
}

func external(c coords.ArtifactCoords) Reference {
	return Reference{
		Kind:     External,
		Notation: c.GAV(),
		Key:      c.Key(),
	}
}

type builder struct {
	refs []Reference
	seen map[coords.ArtifactKey]bool
}

func (b *builder) add(r Reference) {
	if b.seen == nil {
		b.seen = make(map[coords.ArtifactKey]bool)
	}
	if b.seen[r.Key] {
		return
	}
	b.seen[r.Key] = true
	b.refs = append(b.refs, r)
}
