package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// DefaultHandler is used by steps that do not name a handler.
const DefaultHandler = "emit"

// Loader reads workspace HCL files into a Workspace.
type Loader struct{}

// NewLoader creates a new HCL workspace loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file below the given paths and merges their
// blocks. Relative paths inside a file are resolved against the file's
// directory.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Workspace, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Workspace loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no workspace files found in %v", paths)
	}
	logger.Debug("Discovered workspace files.", "count", len(files))

	ws := newWorkspace()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.merge(ws, &root, filepath.Dir(file)); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := ws.finish(); err != nil {
		return nil, err
	}

	logger.Debug("Workspace loading complete.",
		"builds", len(ws.Builds), "artifacts", len(ws.Artifacts),
		"requires", len(ws.Requires), "items", len(ws.Items), "steps", len(ws.Steps))
	return ws, nil
}

func newWorkspace() *Workspace {
	return &Workspace{
		buildsByName:    make(map[string]*Build),
		artifactsByGAV:  make(map[coords.ArtifactCoords]*Artifact),
		projectsByCoord: make(map[coords.ArtifactCoords]*Project),
	}
}

func (l *Loader) merge(ws *Workspace, root *fileRoot, baseDir string) error {
	for _, b := range root.Builds {
		if err := ws.addBuild(b, baseDir); err != nil {
			return err
		}
	}
	for _, a := range root.Artifacts {
		if err := ws.addArtifact(a, baseDir); err != nil {
			return err
		}
	}
	for _, raw := range root.Requires {
		c, err := coords.Parse(raw)
		if err != nil {
			return fmt.Errorf("requires: %w", err)
		}
		ws.Requires = append(ws.Requires, c)
	}
	for _, it := range root.Items {
		ws.Items = append(ws.Items, &ItemDecl{Name: it.Name, Multi: it.Multi})
	}
	for _, s := range root.Steps {
		decl, err := translateStep(s)
		if err != nil {
			return err
		}
		ws.Steps = append(ws.Steps, decl)
	}
	return nil
}

func (ws *Workspace) addBuild(b *buildBlock, baseDir string) error {
	if _, exists := ws.buildsByName[b.Name]; exists {
		return fmt.Errorf("build %q is declared more than once", b.Name)
	}
	build := &Build{Name: b.Name, workspace: ws, byPath: make(map[string]*Project)}

	for _, pb := range b.Projects {
		if !isProjectPath(pb.Path) {
			return fmt.Errorf("project path %q in build %q must start with ':'", pb.Path, b.Name)
		}
		if _, exists := build.byPath[pb.Path]; exists {
			return fmt.Errorf("project %s is declared more than once in build %q", pb.Path, b.Name)
		}
		p := translateProject(pb, baseDir)
		p.Build = build
		build.byPath[p.Path] = p
		build.Projects = append(build.Projects, p)
	}

	if b.Root {
		if ws.Root != nil {
			return fmt.Errorf("build %q and build %q are both marked as root", ws.Root.Name, b.Name)
		}
		ws.Root = build
		ws.Builds = append([]*Build{build}, ws.Builds...)
	} else {
		ws.Builds = append(ws.Builds, build)
	}
	ws.buildsByName[b.Name] = build
	return nil
}

func (ws *Workspace) addArtifact(a *artifactBlock, baseDir string) error {
	c, err := coords.Parse(a.Coords)
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if _, exists := ws.artifactsByGAV[c]; exists {
		return fmt.Errorf("artifact %s is declared more than once", c)
	}

	art := &Artifact{Coords: c}
	if a.File != nil {
		art.File = resolvePath(baseDir, *a.File)
	}
	for _, raw := range a.Dependencies {
		dep, err := coords.Parse(raw)
		if err != nil {
			return fmt.Errorf("artifact %s: %w", c, err)
		}
		art.Dependencies = append(art.Dependencies, dep)
	}

	ws.Artifacts = append(ws.Artifacts, art)
	ws.artifactsByGAV[c] = art
	return nil
}

// finish picks the root build when none was marked and indexes projects by
// their coordinates.
func (ws *Workspace) finish() error {
	if len(ws.Builds) == 0 {
		return fmt.Errorf("workspace declares no build")
	}
	if ws.Root == nil {
		ws.Root = ws.Builds[0]
	}

	for _, b := range ws.Builds {
		for _, p := range b.Projects {
			c := p.Coords()
			if other, exists := ws.projectsByCoord[c]; exists {
				return fmt.Errorf("projects %s and %s both publish %s", other, p, c)
			}
			ws.projectsByCoord[c] = p
		}
	}
	return nil
}

func translateProject(pb *projectBlock, baseDir string) *Project {
	p := &Project{
		Path:         pb.Path,
		Group:        pb.Group,
		Version:      pb.Version,
		Name:         pb.Path[strings.LastIndex(pb.Path, ":")+1:],
		Dependencies: pb.Dependencies,
	}
	if pb.Name != nil {
		p.Name = *pb.Name
	} else if p.Name == "" {
		p.Name = "root"
	}

	p.Dir = resolvePath(baseDir, filepath.FromSlash(defaultProjectDir(pb.Path)))
	if pb.Dir != nil {
		p.Dir = resolvePath(baseDir, *pb.Dir)
	}
	p.BuildDir = resolvePath(p.Dir, stringOr(pb.BuildDir, "build"))

	// Gradle source-set conventions apply to everything left unset.
	p.SourceDirs = resolveAll(p.Dir, listOr(pb.SourceDirs, "src/main/java"))
	p.ResourceDirs = resolveAll(p.Dir, listOr(pb.ResourceDirs, "src/main/resources"))
	p.ClassesDir = dirOr(p.Dir, pb.ClassesDir, filepath.Join(p.BuildDir, "classes", "java", "main"))
	p.ResourcesOutputDir = dirOr(p.Dir, pb.ResourcesOutputDir, filepath.Join(p.BuildDir, "resources", "main"))

	p.TestSourceDirs = resolveAll(p.Dir, listOr(pb.TestSourceDirs, "src/test/java"))
	p.TestResourceDirs = resolveAll(p.Dir, listOr(pb.TestResourceDirs, "src/test/resources"))
	p.TestClassesDir = dirOr(p.Dir, pb.TestClassesDir, filepath.Join(p.BuildDir, "classes", "java", "test"))
	p.TestResourcesOutputDir = dirOr(p.Dir, pb.TestResourcesOutputDir, filepath.Join(p.BuildDir, "resources", "test"))

	if pb.Extension != nil {
		p.Extension = &ExtensionConfig{
			ConditionalDependencies:    pb.Extension.ConditionalDependencies,
			ConditionalDevDependencies: pb.Extension.ConditionalDevDependencies,
			DependencyConditions:       pb.Extension.DependencyConditions,
		}
		if pb.Extension.DeploymentModule != nil {
			p.Extension.DeploymentModule = *pb.Extension.DeploymentModule
		}
	}
	return p
}

func translateStep(s *stepBlock) (*StepDecl, error) {
	decl := &StepDecl{
		ID:               s.ID,
		Handler:          stringOr(s.Handler, DefaultHandler),
		Consumes:         s.Consumes,
		OptionalConsumes: s.OptionalConsumes,
		Produces:         s.Produces,
		Phase:            stringOr(s.Phase, ""),
		BestEffort:       s.BestEffort,
		Values:           cty.NilVal,
	}
	if s.Extension != nil {
		key, err := coords.ParseKey(*s.Extension)
		if err != nil {
			return nil, fmt.Errorf("step %q extension: %w", s.ID, err)
		}
		decl.Extension = key
	}
	if s.Priority != nil {
		decl.Priority = *s.Priority
	}
	if s.Values != nil {
		val, diags := s.Values.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("step %q values: %w", s.ID, diags)
		}
		if !val.IsNull() {
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return nil, fmt.Errorf("step %q values must be an object, got %s", s.ID, val.Type().FriendlyName())
			}
			decl.Values = val
		}
	}
	return decl, nil
}

// defaultProjectDir maps ":a:b" to "a/b" and the root project ":" to ".".
func defaultProjectDir(projectPath string) string {
	rel := strings.ReplaceAll(projectPath[1:], ":", "/")
	if rel == "" {
		return "."
	}
	return rel
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func resolveAll(base string, ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, resolvePath(base, p))
	}
	return out
}

// dirOr resolves a configured directory against base, or returns the
// already-resolved fallback.
func dirOr(base string, v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return resolvePath(base, *v)
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func listOr(v []string, def ...string) []string {
	if v == nil {
		return def
	}
	return v
}
