package app_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/extforge/internal/app"
	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/journal"
	"github.com/specialistvlad/extforge/internal/materialize"
	"github.com/specialistvlad/extforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const workspaceHCL = `
build "app" {
  root = true

  project ":" {
    group   = "org.acme"
    name    = "app"
    version = "1.0"
  }
  project ":greeting" {
    group   = "org.acme"
    version = "1.0"
    extension {
      deployment_module = ":greeting-deployment"
    }
  }
  project ":greeting-deployment" {
    group   = "org.acme"
    version = "1.0"
  }
}

artifact "io.quarkus:quarkus-rest:3.0" {
  file         = "repo/quarkus-rest"
  dependencies = ["io.quarkus:quarkus-core:3.0"]
}
artifact "io.quarkus:quarkus-core:3.0" {}
artifact "io.quarkus:quarkus-jackson:3.0" {
  file = "repo/quarkus-jackson"
}
artifact "io.quarkus:quarkus-rest-jackson:3.0" {
  file = "repo/quarkus-rest-jackson"
}
artifact "io.quarkus:quarkus-devtools:3.0" {}
artifact "io.quarkus:quarkus-unused:3.0" {
  file = "repo/quarkus-unused"
}

requires = [
  "io.quarkus:quarkus-rest:3.0",
  "io.quarkus:quarkus-jackson:3.0",
  "org.acme:greeting:1.0",
]
`

const stepsHCL = `
item "feature" {
  multi = true
}
item "config" {}
item "report" {}

step "rest-feature" {
  extension = "io.quarkus:quarkus-rest"
  produces  = ["feature"]
  phase     = "static-init"
  values    = { feature = "rest" }
}

step "jackson-feature" {
  extension = "io.quarkus:quarkus-rest-jackson"
  produces  = ["feature"]
  phase     = "static-init"
  priority  = 10
  values    = { feature = ["jackson", "json"] }
}

step "unused-feature" {
  extension = "io.quarkus:quarkus-unused"
  produces  = ["feature"]
  values    = { feature = "unused" }
}

step "config" {
  produces = ["config"]
  values   = { config = { name = "demo" } }
}

step "assemble" {
  handler  = "collect"
  consumes = ["feature", "config"]
  produces = ["report"]
  phase    = "runtime-init"
}

step "print" {
  handler  = "print"
  consumes = ["report"]
}
`

func files(extra map[string]string) map[string]string {
	fs := map[string]string{
		"workspace.hcl": workspaceHCL,
		"repo/quarkus-rest/META-INF/quarkus-extension.properties": `
			deployment-artifact=io.quarkus:quarkus-rest-deployment:3.0
		`,
		"repo/quarkus-jackson/META-INF/quarkus-extension.properties": `
			deployment-artifact=io.quarkus:quarkus-jackson-deployment:3.0
			conditional-dependencies=io.quarkus:quarkus-rest-jackson:3.0
			conditional-dev-dependencies=io.quarkus:quarkus-devtools:3.0
		`,
		"repo/quarkus-rest-jackson/META-INF/quarkus-extension.properties": `
			deployment-artifact=io.quarkus:quarkus-rest-jackson-deployment:3.0
			dependency-condition=io.quarkus:quarkus-rest
		`,
		"repo/quarkus-unused/META-INF/quarkus-extension.properties": `
			deployment-artifact=io.quarkus:quarkus-unused-deployment:3.0
		`,
	}
	for k, v := range extra {
		fs[k] = v
	}
	return fs
}

func TestRun_Build(t *testing.T) {
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": stepsHCL}), app.Config{})
	require.NoError(t, result.Err)
	r := result.Report

	assert.Equal(t, []string{
		"io.quarkus:quarkus-rest:3.0",
		"io.quarkus:quarkus-core:3.0",
		"io.quarkus:quarkus-jackson:3.0",
		"org.acme:greeting:1.0",
		"io.quarkus:quarkus-rest-jackson:3.0",
	}, r.RuntimeClasspath)
	assert.Empty(t, r.DevClasspath, "dev dependencies are only walked in dev mode")
	assert.Equal(t, 2, r.Passes)

	var activated []string
	for _, act := range r.Activations {
		assert.Equal(t, 1, act.Pass)
		activated = append(activated, act.Extension)
	}
	assert.Equal(t, []string{
		"io.quarkus:quarkus-rest:3.0",
		"io.quarkus:quarkus-jackson:3.0",
		"org.acme:greeting:1.0",
		"io.quarkus:quarkus-rest-jackson:3.0",
	}, activated)

	var deployment []string
	for _, ref := range r.Deployment {
		deployment = append(deployment, ref.String())
	}
	assert.Equal(t, []string{
		"io.quarkus:quarkus-rest-deployment:3.0",
		"io.quarkus:quarkus-jackson-deployment:3.0",
		"project(:greeting-deployment)",
		"io.quarkus:quarkus-rest-jackson-deployment:3.0",
	}, deployment)
	require.Len(t, r.ConditionalDependencies, 1)
	assert.Equal(t, materialize.External, r.ConditionalDependencies[0].Kind)
	assert.Equal(t, "io.quarkus:quarkus-rest-jackson:3.0", r.ConditionalDependencies[0].Notation)

	var plan []string
	for _, s := range r.Plan {
		plan = append(plan, s.ID)
	}
	assert.Equal(t, []string{"jackson-feature", "rest-feature", "config", "assemble", "print"}, plan,
		"steps of extensions outside the resolved set are not planned")

	require.NotNil(t, r.Build)
	for _, id := range plan {
		testutil.AssertStepRan(t, result, id)
	}

	reports := r.Build.Items["report"]
	require.Len(t, reports, 1)
	assert.Equal(t, "assemble", reports[0].Producer)
	summary := reports[0].Value.Value
	assert.True(t, cty.TupleVal([]cty.Value{
		cty.StringVal("jackson"), cty.StringVal("json"), cty.StringVal("rest"),
	}).RawEquals(summary.GetAttr("feature")), "features come in producer plan order")
	assert.Equal(t, "demo", summary.GetAttr("config").Index(cty.NumberIntVal(0)).GetAttr("name").AsString())

	assert.Contains(t, result.LogOutput, "Build item.")
	assert.Contains(t, result.LogOutput, "Build finished.")
}

func TestRun_ReportIsJSON(t *testing.T) {
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": stepsHCL}), app.Config{})
	require.NoError(t, result.Err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Output), &decoded))
	assert.Equal(t, "build", decoded["mode"])

	build := decoded["build"].(map[string]any)
	items := build["items"].(map[string]any)
	features := items["feature"].([]any)
	require.Len(t, features, 3)
	assert.Equal(t, map[string]any{"producer": "jackson-feature", "value": "jackson"}, features[0])

	deployment := decoded["deployment"].([]any)
	assert.Equal(t, map[string]any{"kind": "project", "path": ":greeting-deployment"}, deployment[2])
}

func TestRun_Modes(t *testing.T) {
	fs := files(map[string]string{"steps.hcl": stepsHCL})

	resolved := testutil.RunIntegrationTest(t, fs, app.Config{Mode: app.ModeResolve})
	require.NoError(t, resolved.Err)
	assert.NotEmpty(t, resolved.Report.RuntimeClasspath)
	assert.Empty(t, resolved.Report.Plan)
	assert.Nil(t, resolved.Report.Build)

	planned := testutil.RunIntegrationTest(t, fs, app.Config{Mode: app.ModePlan})
	require.NoError(t, planned.Err)
	require.Len(t, planned.Report.Plan, 5)
	assert.Nil(t, planned.Report.Build)

	assemble := planned.Report.Plan[3]
	assert.Equal(t, "assemble", assemble.ID)
	assert.Equal(t, "collect", assemble.Handler)
	assert.Equal(t, "runtime-init", assemble.Phase)
	assert.Equal(t, []string{"rest-feature", "jackson-feature", "config"}, assemble.DependsOn)
	assert.Equal(t, "io.quarkus:quarkus-rest-jackson", planned.Report.Plan[0].Extension)
}

func TestRun_DevMode(t *testing.T) {
	fs := files(map[string]string{
		"src/main/java/App.java":           "class App {}",
		"build/classes/java/main/App.class": "cafebabe",
	})

	result := testutil.RunIntegrationTest(t, fs, app.Config{Mode: app.ModeResolve, DevMode: true})
	require.NoError(t, result.Err)
	r := result.Report

	assert.Equal(t, []string{"io.quarkus:quarkus-devtools:3.0"}, r.DevClasspath)
	require.Len(t, r.Activations, 4)
	assert.Equal(t, []string{"io.quarkus:quarkus-devtools:3.0"}, r.Activations[1].AddedDev)
	assert.Equal(t, "io.quarkus:quarkus-devtools:3.0", r.ConditionalDependencies[1].Notation)

	require.NotNil(t, r.DevLayout)
	require.NotNil(t, r.DevLayout.Main)
	assert.Equal(t, "app", r.DevLayout.Main.Name)
	assert.Equal(t, []string{filepath.Join(result.Dir, "src", "main", "java")}, r.DevLayout.Main.SourcePaths)
	assert.Empty(t, r.DevLayout.Dependencies)
}

func TestRun_StepFailureAbortsBuild(t *testing.T) {
	steps := `
		item "a" {}
		item "b" {}

		step "broken" {
		  handler  = "fail"
		  produces = ["a"]
		  values   = { message = "disk full" }
		}
		step "downstream" {
		  consumes = ["a"]
		  produces = ["b"]
		}
	`
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": steps}), app.Config{})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, buildstep.ErrStepFailed)
	assert.ErrorContains(t, result.Err, `step "broken" failed: disk full`)

	require.NotNil(t, result.Report, "a failed build still reports")
	require.NotNil(t, result.Report.Build)
	assert.Equal(t, "Failed", result.Report.Build.States["broken"])
	assert.Equal(t, "Pending", result.Report.Build.States["downstream"])
	testutil.AssertStepNotStarted(t, result, "downstream")
	assert.NotEmpty(t, result.Output)
	assert.Equal(t, "failed", result.App.Stage())
}

func TestRun_BestEffortFailure(t *testing.T) {
	steps := `
		item "feature" {
		  multi = true
		}

		step "flaky" {
		  handler     = "fail"
		  produces    = ["feature"]
		  best_effort = true
		}
		step "solid" {
		  produces = ["feature"]
		  values   = { feature = "solid" }
		}
		step "summary" {
		  handler  = "collect"
		  consumes = ["feature"]
		}
	`
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": steps}), app.Config{})
	require.NoError(t, result.Err)

	testutil.AssertStepRan(t, result, "summary")
	require.Len(t, result.Report.Build.Failures, 1)
	assert.Equal(t, app.FailureReport{Step: "flaky", BestEffort: true, Error: "step failed"}, result.Report.Build.Failures[0])
	require.Len(t, result.Report.Build.Items["feature"], 1)
	assert.Equal(t, "solid", result.Report.Build.Items["feature"][0].Producer)
	assert.Equal(t, "done", result.App.Stage())
}

func TestRun_GraphErrors(t *testing.T) {
	testCases := []struct {
		name    string
		steps   string
		target  error
		errText string
	}{
		{
			name: "cycle",
			steps: `
				item "a" {}
				item "b" {}
				step "one" {
				  consumes = ["b"]
				  produces = ["a"]
				}
				step "two" {
				  consumes = ["a"]
				  produces = ["b"]
				}
			`,
			target:  buildstep.ErrCycle,
			errText: "one -> two -> one",
		},
		{
			name: "dangling consumer",
			steps: `
				item "a" {}
				step "lonely" {
				  consumes = ["a"]
				}
			`,
			target:  buildstep.ErrDanglingConsumer,
			errText: `step "lonely" consumes item type "a", but no step produces it`,
		},
		{
			name: "unknown handler",
			steps: `
				step "s" {
				  handler = "teleport"
				}
			`,
			errText: `step "s": unknown step handler "teleport"`,
		},
		{
			name: "unknown phase",
			steps: `
				step "s" {
				  phase = "later"
				}
			`,
			errText: `step "s": unknown phase "later"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": tc.steps}), app.Config{Mode: app.ModePlan})
			require.Error(t, result.Err)
			assert.ErrorContains(t, result.Err, "invalid build step graph")
			assert.ErrorContains(t, result.Err, tc.errText)
			if tc.target != nil {
				assert.ErrorIs(t, result.Err, tc.target)
			}
			assert.Nil(t, result.Report)
			assert.Empty(t, result.Output)
		})
	}
}

func TestRun_ResolutionError(t *testing.T) {
	fs := files(map[string]string{
		"repo/quarkus-rest/META-INF/quarkus-extension.properties": "dependency-condition=io.quarkus:quarkus-core\n",
	})
	result := testutil.RunIntegrationTest(t, fs, app.Config{Mode: app.ModeResolve})

	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "failed to resolve dependencies")
	assert.ErrorContains(t, result.Err, "io.quarkus:quarkus-rest:3.0")
	assert.ErrorContains(t, result.Err, "deployment-artifact")
}

func TestRun_PhaseBarrierAndParallelism(t *testing.T) {
	steps := `
		step "static-1" {
		  handler = "sleeper"
		  phase   = "static-init"
		}
		step "static-2" {
		  handler = "sleeper"
		  phase   = "static-init"
		}
		step "runtime" {
		  handler  = "sleeper"
		  phase    = "runtime-init"
		  priority = 100
		}
	`
	sleeper := testutil.NewMockSleeperModule(nil, 50*time.Millisecond)
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": steps}), app.Config{}, sleeper)
	require.NoError(t, result.Err)

	s1, ok := sleeper.Record("static-1")
	require.True(t, ok)
	s2, ok := sleeper.Record("static-2")
	require.True(t, ok)
	rt, ok := sleeper.Record("runtime")
	require.True(t, ok)

	assert.True(t, s1.Overlaps(s2), "independent static-init steps run in parallel")
	assert.True(t, s1.FinishedBefore(rt))
	assert.True(t, s2.FinishedBefore(rt))
}

func TestRun_Journal(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": stepsHCL}), app.Config{JournalDSN: dsn})
	require.NoError(t, result.Err)

	j, err := journal.Open(dsn)
	require.NoError(t, err)
	defer j.Close()

	events, err := j.Events(context.Background(), result.Report.Build.ID)
	require.NoError(t, err)
	require.Len(t, events, 2+2*len(result.Report.Plan))
	assert.Equal(t, journal.EventBuildStart, events[0].Type)
	assert.Equal(t, journal.EventBuildFinished, events[len(events)-1].Type)
}

func TestRun_OutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	result := testutil.RunIntegrationTest(t, files(nil), app.Config{Mode: app.ModeResolve, OutputPath: out})
	require.NoError(t, result.Err)
	assert.Empty(t, result.Output)
	assert.FileExists(t, out)
}

func TestRun_CustomModules(t *testing.T) {
	steps := `
		item "name" {}
		item "greeting" {}

		step "name" {
		  handler  = "noop"
		  produces = []
		}
		step "source" {
		  handler  = "shout"
		  produces = ["greeting"]
		  values   = { text = "hello" }
		}
	`
	shout := &testutil.SimpleModule{
		Name: "shout",
		Fn: func(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
			return sc.Produce("greeting", cty.StringVal(values.GetAttr("text").AsString()+"!"))
		},
	}
	result := testutil.RunIntegrationTest(t, files(map[string]string{"steps.hcl": steps}), app.Config{},
		&testutil.NoOpModule{}, shout)
	require.NoError(t, result.Err)

	assert.Equal(t, []string{"noop", "shout"}, result.App.Handlers().Names(), "explicit modules replace the core set")
	testutil.AssertStepRan(t, result, "name")
	greetings := result.Report.Build.Items["greeting"]
	require.Len(t, greetings, 1)
	assert.Equal(t, "hello!", greetings[0].Value.Value.AsString())
}

func TestRun_PackagedJarExtension(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"workspace.hcl": `
			build "app" {
			  project ":" {
			    group   = "org.acme"
			    name    = "app"
			    version = "1.0"
			  }
			}
			artifact "io.quarkus:quarkus-vertx:3.0" {
			  file = "repo/quarkus-vertx-3.0.jar"
			}
			requires = ["io.quarkus:quarkus-vertx:3.0"]
		`,
	})
	testutil.WriteJar(t, filepath.Join(dir, "repo", "quarkus-vertx-3.0.jar"), map[string]string{
		"META-INF/MANIFEST.MF":                  "Manifest-Version: 1.0\n",
		"META-INF/quarkus-extension.properties": "deployment-artifact=io.quarkus:quarkus-vertx-deployment:3.0\n",
	})

	result := testutil.RunIntegrationTest(t, nil, app.Config{WorkspacePath: dir, Mode: app.ModeResolve})
	require.NoError(t, result.Err)

	require.Len(t, result.Report.Extensions, 1)
	ext := result.Report.Extensions[0]
	assert.Equal(t, "io.quarkus:quarkus-vertx:3.0", ext.Coords)
	assert.Equal(t, "io.quarkus:quarkus-vertx-deployment:3.0", ext.Deployment)
	assert.True(t, ext.Activated)
	assert.Equal(t, "io.quarkus:quarkus-vertx-deployment:3.0", result.Report.Deployment[0].String())
}
