// Package resolver decides whether a dependency candidate is an extension
// and, if so, where its deployment side and conditional dependencies come
// from.
package resolver

import (
	"context"

	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/descriptor"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// Resolver resolves candidates against one workspace. Results are memoized
// per normalized coordinate, so every coordinate maps to one stable
// *ExtensionDependency (or nil) for the lifetime of the Resolver. A
// Resolver is not safe for concurrent use.
type Resolver struct {
	ws       *workspace.Workspace
	cache    *DescriptorCache
	projects map[coords.ArtifactCoords]*ExtensionDependency
	packaged map[coords.ArtifactCoords]*ExtensionDependency
}

// New creates a resolver. The cache may be nil, in which case packaged
// descriptors are read on every miss of the memo.
func New(ws *workspace.Workspace, cache *DescriptorCache) *Resolver {
	return &Resolver{
		ws:       ws,
		cache:    cache,
		projects: make(map[coords.ArtifactCoords]*ExtensionDependency),
		packaged: make(map[coords.ArtifactCoords]*ExtensionDependency),
	}
}

// Resolve returns the extension dependency for a candidate, or nil when the
// candidate is not an extension.
func (r *Resolver) Resolve(ctx context.Context, cand workspace.Candidate) (*ExtensionDependency, error) {
	if cand.Project != nil {
		dep, err := r.resolveProject(ctx, cand.Project)
		if err != nil || dep != nil {
			return dep, err
		}
	}

	// Local sources shadow a packaged artifact with the same coordinates.
	if p, ok := r.ws.FindLocalProject(cand.Coords); ok && p != cand.Project {
		dep, err := r.resolveProject(ctx, p)
		if err != nil || dep != nil {
			return dep, err
		}
	}

	return r.resolveArtifact(ctx, cand)
}

// ResolveCoords asks the workspace for the candidate behind c and resolves
// it.
func (r *Resolver) ResolveCoords(ctx context.Context, c coords.ArtifactCoords) (*ExtensionDependency, error) {
	cand, err := r.ws.Candidate(c)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, cand)
}

// ResolveProject resolves a project referenced by path, looked up in the
// root build first and then in the named included build. An unknown
// project is not an extension.
func (r *Resolver) ResolveProject(ctx context.Context, buildName, path string) (*ExtensionDependency, error) {
	p, ok := r.ws.FindProject(buildName, path)
	if !ok {
		return nil, nil
	}
	return r.resolveProject(ctx, p)
}

func (r *Resolver) resolveProject(ctx context.Context, p *workspace.Project) (*ExtensionDependency, error) {
	key := p.Coords()
	if dep, ok := r.projects[key]; ok {
		return dep, nil
	}

	desc, err := findProjectDescriptor(p)
	if err != nil {
		return nil, err
	}
	if p.Extension == nil && desc == nil {
		r.projects[key] = nil
		return nil, nil
	}

	dep, err := r.newProjectDependency(p, p.Extension, desc)
	if err != nil {
		return nil, err
	}
	r.projects[key] = dep

	ctxlog.FromContext(ctx).Debug("Resolved project extension.",
		"extension", dep.Coords.String(),
		"project", p.String(),
		"deployment", dep.DeploymentProject.String(),
		"included_build", dep.IncludedBuild,
		"conditions", len(dep.DependencyConditions))
	return dep, nil
}

// findProjectDescriptor returns the first descriptor found under the
// project's resource roots.
func findProjectDescriptor(p *workspace.Project) (*descriptor.Descriptor, error) {
	for _, dir := range p.ResourceDirs {
		desc, err := descriptor.FindInDir(dir)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			return desc, nil
		}
	}
	return nil, nil
}

// newProjectDependency merges the extension block and the descriptor. The
// block's deployment module wins; conditional and condition lists from
// both sources are concatenated, block entries first.
func (r *Resolver) newProjectDependency(p *workspace.Project, cfg *workspace.ExtensionConfig, desc *descriptor.Descriptor) (*ExtensionDependency, error) {
	ext := p.Coords()
	if cfg == nil && desc == nil {
		return nil, configErrorf(ext, ErrNoDeploymentSource, "project %s", p)
	}

	dep := &ExtensionDependency{
		Kind:          KindProject,
		Coords:        ext,
		Project:       p,
		IncludedBuild: !p.Build.IsRoot(),
	}

	if cfg != nil {
		if cfg.DeploymentModule == "" {
			return nil, configErrorf(ext, nil, "extension block of project %s declares no deployment_module", p)
		}
		dp, ok := p.Build.Project(cfg.DeploymentModule)
		if !ok {
			return nil, configErrorf(ext, nil, "cannot find deployment project at path %s", cfg.DeploymentModule)
		}
		dep.DeploymentProject = dp

		var err error
		if dep.ConditionalDependencies, err = parseCoordsList(ext, "conditional_dependencies", cfg.ConditionalDependencies); err != nil {
			return nil, err
		}
		if dep.ConditionalDevDependencies, err = parseCoordsList(ext, "conditional_dev_dependencies", cfg.ConditionalDevDependencies); err != nil {
			return nil, err
		}
		for _, raw := range cfg.DependencyConditions {
			k, err := coords.ParseKey(raw)
			if err != nil {
				return nil, configErrorf(ext, err, "dependency_conditions of project %s", p)
			}
			dep.DependencyConditions = append(dep.DependencyConditions, k)
		}
	} else {
		dc, ok, err := desc.DeploymentArtifact()
		if err != nil {
			return nil, configErrorf(ext, err, "invalid descriptor")
		}
		if !ok {
			return nil, configErrorf(ext, nil, "descriptor %s has no %s", desc.Source, descriptor.PropDeploymentArtifact)
		}
		dp, found := r.ws.FindLocalProject(dc)
		if !found {
			return nil, configErrorf(ext, nil, "cannot find deployment project with artifact coordinates %s", dc)
		}
		dep.DeploymentProject = dp
	}

	if desc != nil {
		if err := appendDescriptorLists(dep, desc); err != nil {
			return nil, err
		}
	}
	return dep, nil
}

func (r *Resolver) resolveArtifact(ctx context.Context, cand workspace.Candidate) (*ExtensionDependency, error) {
	if dep, ok := r.packaged[cand.Coords]; ok {
		return dep, nil
	}
	if cand.File == "" {
		r.packaged[cand.Coords] = nil
		return nil, nil
	}

	desc, err := r.cache.Load(cand.Coords, cand.File)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		r.packaged[cand.Coords] = nil
		return nil, nil
	}

	deployment, ok, err := desc.DeploymentArtifact()
	if err != nil {
		return nil, configErrorf(cand.Coords, err, "invalid descriptor")
	}
	if !ok {
		return nil, configErrorf(cand.Coords, nil, "descriptor %s has no %s", desc.Source, descriptor.PropDeploymentArtifact)
	}

	dep := &ExtensionDependency{
		Kind:       KindArtifact,
		Coords:     cand.Coords,
		Deployment: deployment,
	}
	if err := appendDescriptorLists(dep, desc); err != nil {
		return nil, err
	}
	r.packaged[cand.Coords] = dep

	ctxlog.FromContext(ctx).Debug("Resolved artifact extension.",
		"extension", dep.Coords.String(),
		"deployment", deployment.String(),
		"conditions", len(dep.DependencyConditions))
	return dep, nil
}

func appendDescriptorLists(dep *ExtensionDependency, desc *descriptor.Descriptor) error {
	conditional, err := desc.ConditionalDependencies()
	if err != nil {
		return configErrorf(dep.Coords, err, "invalid descriptor")
	}
	dev, err := desc.ConditionalDevDependencies()
	if err != nil {
		return configErrorf(dep.Coords, err, "invalid descriptor")
	}
	conditions, err := desc.DependencyConditions()
	if err != nil {
		return configErrorf(dep.Coords, err, "invalid descriptor")
	}

	dep.ConditionalDependencies = appendGAV(dep.ConditionalDependencies, conditional)
	dep.ConditionalDevDependencies = appendGAV(dep.ConditionalDevDependencies, dev)
	dep.DependencyConditions = append(dep.DependencyConditions, conditions...)
	return nil
}

func parseCoordsList(ext coords.ArtifactCoords, field string, raw []string) ([]coords.ArtifactCoords, error) {
	out := make([]coords.ArtifactCoords, 0, len(raw))
	for _, s := range raw {
		c, err := coords.Parse(s)
		if err != nil {
			return nil, configErrorf(ext, err, "%s", field)
		}
		out = append(out, asGAV(c))
	}
	return out, nil
}

func appendGAV(dst, src []coords.ArtifactCoords) []coords.ArtifactCoords {
	for _, c := range src {
		dst = append(dst, asGAV(c))
	}
	return dst
}

// asGAV drops classifier and type; conditional dependencies are declared as
// plain module references.
func asGAV(c coords.ArtifactCoords) coords.ArtifactCoords {
	return coords.NewJar(c.GroupID, c.ArtifactID, c.Version)
}
