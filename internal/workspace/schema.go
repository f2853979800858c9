package workspace

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks a workspace file may contain.
type fileRoot struct {
	Builds    []*buildBlock    `hcl:"build,block"`
	Artifacts []*artifactBlock `hcl:"artifact,block"`
	Requires  []string         `hcl:"requires,optional"`
	Items     []*itemBlock     `hcl:"item,block"`
	Steps     []*stepBlock     `hcl:"step,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type buildBlock struct {
	Name     string          `hcl:"name,label"`
	Root     bool            `hcl:"root,optional"`
	Projects []*projectBlock `hcl:"project,block"`
}

type projectBlock struct {
	Path    string  `hcl:"path,label"`
	Group   string  `hcl:"group"`
	Name    *string `hcl:"name,optional"`
	Version string  `hcl:"version"`
	Dir     *string `hcl:"dir,optional"`
	// BuildDir defaults to "build" below Dir.
	BuildDir *string `hcl:"build_dir,optional"`

	SourceDirs         []string `hcl:"source_dirs,optional"`
	ResourceDirs       []string `hcl:"resource_dirs,optional"`
	ClassesDir         *string  `hcl:"classes_dir,optional"`
	ResourcesOutputDir *string  `hcl:"resources_output_dir,optional"`

	TestSourceDirs         []string `hcl:"test_source_dirs,optional"`
	TestResourceDirs       []string `hcl:"test_resource_dirs,optional"`
	TestClassesDir         *string  `hcl:"test_classes_dir,optional"`
	TestResourcesOutputDir *string  `hcl:"test_resources_output_dir,optional"`

	Dependencies []string        `hcl:"dependencies,optional"`
	Extension    *extensionBlock `hcl:"extension,block"`
}

type extensionBlock struct {
	DeploymentModule           *string  `hcl:"deployment_module,optional"`
	ConditionalDependencies    []string `hcl:"conditional_dependencies,optional"`
	ConditionalDevDependencies []string `hcl:"conditional_dev_dependencies,optional"`
	DependencyConditions       []string `hcl:"dependency_conditions,optional"`
}

type artifactBlock struct {
	Coords       string   `hcl:"coords,label"`
	File         *string  `hcl:"file,optional"`
	Dependencies []string `hcl:"dependencies,optional"`
}

type itemBlock struct {
	Name  string `hcl:"name,label"`
	Multi bool   `hcl:"multi,optional"`
}

type stepBlock struct {
	ID               string         `hcl:"id,label"`
	Handler          *string        `hcl:"handler,optional"`
	Extension        *string        `hcl:"extension,optional"`
	Consumes         []string       `hcl:"consumes,optional"`
	OptionalConsumes []string       `hcl:"optional_consumes,optional"`
	Produces         []string       `hcl:"produces,optional"`
	Phase            *string        `hcl:"phase,optional"`
	Priority         *int           `hcl:"priority,optional"`
	BestEffort       bool           `hcl:"best_effort,optional"`
	Values           hcl.Expression `hcl:"values,optional"`
}
