// Package devmode computes the module layout a dev-mode launcher watches:
// the application project plus every local project it depends on.
package devmode

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/fsutil"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// ModuleInfo describes the source and output locations of one local
// project. Values are built once and not modified afterwards.
type ModuleInfo struct {
	Key              coords.ArtifactKey `json:"-"`
	Name             string             `json:"name"`
	ProjectDir       string             `json:"project_dir"`
	SourcePaths      []string           `json:"source_paths"`
	SourceParents    []string           `json:"source_parents"`
	ResourcePaths    []string           `json:"resource_paths"`
	ClassesPath      string             `json:"classes_path"`
	ResourcesOutput  string             `json:"resources_output_path"`
	TargetDir        string             `json:"target_dir"`
	GeneratedSources string             `json:"generated_sources_dir"`

	// Test holds the test side; nil when the project has no test output.
	Test *TestInfo `json:"test,omitempty"`
}

// TestInfo is the test side of a ModuleInfo.
type TestInfo struct {
	SourcePaths     []string `json:"source_paths"`
	ResourcePaths   []string `json:"resource_paths"`
	ClassesPath     string   `json:"classes_path"`
	ResourcesOutput string   `json:"resources_output_path"`
}

// Layout is the dev-mode module set. Dependencies are in post-order, so
// every module comes after the modules it depends on.
type Layout struct {
	Main         *ModuleInfo   `json:"main,omitempty"`
	Dependencies []*ModuleInfo `json:"dependencies"`
}

// Modules lists dependencies followed by the main module.
func (l *Layout) Modules() []*ModuleInfo {
	out := append([]*ModuleInfo(nil), l.Dependencies...)
	if l.Main != nil {
		out = append(out, l.Main)
	}
	return out
}

// Collect walks root and its project dependencies depth first. Projects
// without compiled output are skipped; Main is nil when root itself has
// none.
func Collect(ctx context.Context, root *workspace.Project) (*Layout, error) {
	c := &collector{
		ctx:     ctx,
		visited: make(map[*workspace.Project]bool),
		added:   make(map[coords.ArtifactKey]bool),
		layout:  &Layout{},
	}
	if err := c.visit(root, true); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Dev-mode layout collected.",
		"root", root.String(), "main", c.layout.Main != nil, "dependencies", len(c.layout.Dependencies))
	return c.layout, nil
}

type collector struct {
	ctx     context.Context
	visited map[*workspace.Project]bool
	added   map[coords.ArtifactKey]bool
	layout  *Layout
}

func (c *collector) visit(p *workspace.Project, root bool) error {
	if c.visited[p] {
		return nil
	}
	c.visited[p] = true
	for _, dep := range p.ProjectDependencies() {
		if err := c.visit(dep, false); err != nil {
			return err
		}
	}

	key := p.Key()
	if c.added[key] {
		return nil
	}
	info, err := moduleInfo(p)
	if err != nil {
		return fmt.Errorf("project %s: %w", p, err)
	}
	if info == nil {
		ctxlog.FromContext(c.ctx).Debug("Skipping project without compiled output.", "project", p.String())
		return nil
	}

	if root {
		c.layout.Main = info
	} else {
		c.layout.Dependencies = append(c.layout.Dependencies, info)
	}
	c.added[key] = true
	return nil
}

// moduleInfo returns nil when the project has neither existing sources
// nor resources output, or when its classes dir is missing.
func moduleInfo(p *workspace.Project) (*ModuleInfo, error) {
	sources, parents, err := existingSources(p.SourceDirs)
	if err != nil {
		return nil, err
	}
	hasResources, err := fsutil.Exists(p.ResourcesOutputDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 && !hasResources {
		return nil, nil
	}
	hasClasses, err := fsutil.Exists(p.ClassesDir)
	if err != nil || !hasClasses {
		return nil, err
	}

	resourcesOutput := p.ClassesDir
	if hasResources {
		resourcesOutput = p.ResourcesOutputDir
	}

	info := &ModuleInfo{
		Key:              p.Key(),
		Name:             p.Name,
		ProjectDir:       p.Dir,
		SourcePaths:      sources,
		SourceParents:    parents,
		ResourcePaths:    append([]string(nil), p.ResourceDirs...),
		ClassesPath:      p.ClassesDir,
		ResourcesOutput:  resourcesOutput,
		TargetDir:        p.BuildDir,
		GeneratedSources: filepath.Join(p.BuildDir, "generated-sources"),
	}
	info.Test, err = testInfo(p)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func testInfo(p *workspace.Project) (*TestInfo, error) {
	sources, _, err := existingSources(p.TestSourceDirs)
	if err != nil {
		return nil, err
	}
	hasResources, err := fsutil.Exists(p.TestResourcesOutputDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 && !hasResources {
		return nil, nil
	}
	hasClasses, err := fsutil.Exists(p.TestClassesDir)
	if err != nil || !hasClasses {
		return nil, err
	}

	resourcesOutput := p.TestClassesDir
	if hasResources {
		resourcesOutput = p.TestResourcesOutputDir
	}
	return &TestInfo{
		SourcePaths:     sources,
		ResourcePaths:   append([]string(nil), p.TestResourceDirs...),
		ClassesPath:     p.TestClassesDir,
		ResourcesOutput: resourcesOutput,
	}, nil
}

// existingSources keeps the source dirs that exist and collects their
// distinct parents, both in declaration order.
func existingSources(dirs []string) (sources, parents []string, err error) {
	seenParent := make(map[string]bool)
	for _, dir := range dirs {
		ok, err := fsutil.Exists(dir)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		sources = append(sources, dir)
		if parent := filepath.Dir(dir); !seenParent[parent] {
			seenParent[parent] = true
			parents = append(parents, parent)
		}
	}
	return sources, parents, nil
}
