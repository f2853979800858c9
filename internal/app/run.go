package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/conditional"
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/devmode"
	"github.com/specialistvlad/extforge/internal/journal"
	"github.com/specialistvlad/extforge/internal/materialize"
	"github.com/specialistvlad/extforge/internal/resolver"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// Run executes one run up to the configured mode and writes the JSON
// report. A failed build still writes the report of what ran.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode, "workspace", a.config.WorkspacePath)

	if a.config.HealthcheckPort > 0 {
		if _, err := a.startHealthcheckServer(ctx, a.config.HealthcheckPort); err != nil {
			return nil, err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	report, err := a.run(ctx)
	if err != nil {
		a.setStage(stageFailed)
	} else {
		a.setStage(stageDone)
	}
	if report != nil {
		if werr := a.writeReport(report); werr != nil && err == nil {
			err = werr
		}
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return report, err
}

func (a *App) run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	a.setStage(stageLoading)
	ws, err := a.loader.Load(ctx, a.config.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	logger.Info("Workspace loaded.",
		"root_build", ws.Root.Name, "builds", len(ws.Builds), "requires", len(ws.Requires), "steps", len(ws.Steps))

	a.setStage(stageResolving)
	res := resolver.New(ws, a.cache)
	closure, err := conditional.New(ws, res, conditional.WithDevMode(a.config.DevMode)).Closure(ctx, ws.Requires)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	report := newReport(a.config, closure)
	if report.Deployment, err = materialize.Deployment(closure.Extensions); err != nil {
		return nil, fmt.Errorf("failed to materialize deployment dependencies: %w", err)
	}
	report.ConditionalDependencies = materialize.Conditional(conditionalCoords(closure))
	logger.Info("Dependencies resolved.",
		"artifacts", len(report.RuntimeClasspath),
		"extensions", len(report.Extensions),
		"deployment", len(report.Deployment))

	if a.config.DevMode {
		if p := applicationProject(ws); p != nil {
			if report.DevLayout, err = devmode.Collect(ctx, p); err != nil {
				return nil, fmt.Errorf("failed to collect dev-mode layout: %w", err)
			}
		} else {
			logger.Warn("Dev mode requested but the root build has no projects.")
		}
	}
	if a.config.Mode == ModeResolve {
		return report, nil
	}

	a.setStage(stagePlanning)
	graph, decls, err := a.buildGraph(ctx, ws, closure)
	if err != nil {
		return nil, fmt.Errorf("invalid build step graph: %w", err)
	}
	report.Plan = planReport(graph, decls)
	logger.Info("Build plan ready.", "steps", len(report.Plan))
	if a.config.Mode == ModePlan {
		return report, nil
	}

	a.setStage(stageBuilding)
	observer := journal.Observer(journal.Logging{})
	if a.config.JournalDSN != "" {
		j, err := journal.Open(a.config.JournalDSN)
		if err != nil {
			return nil, err
		}
		defer j.Close()
		observer = journal.NewComposite(observer, j)
	}

	exec := buildstep.NewExecutor(graph,
		buildstep.WithWorkers(a.config.WorkerCount),
		buildstep.WithObserver(observer))
	result, err := exec.Run(ctx)
	if result != nil {
		report.Build = buildReport(result)
	}
	if err != nil {
		return report, fmt.Errorf("build failed: %w", err)
	}
	return report, nil
}

// buildGraph turns the declared steps into a validated graph. Steps of
// extensions outside the resolved set are left out.
func (a *App) buildGraph(ctx context.Context, ws *workspace.Workspace, closure *conditional.Result) (*buildstep.Graph, map[string]*workspace.StepDecl, error) {
	logger := ctxlog.FromContext(ctx)

	resolved := make(map[coords.ArtifactKey]bool, len(closure.Extensions))
	for _, ext := range closure.Extensions {
		resolved[ext.Key()] = true
	}

	types := make([]buildstep.ItemType, 0, len(ws.Items))
	for _, it := range ws.Items {
		types = append(types, buildstep.ItemType{Name: it.Name, Multi: it.Multi})
	}

	decls := make(map[string]*workspace.StepDecl, len(ws.Steps))
	steps := make([]*buildstep.Step, 0, len(ws.Steps))
	for _, d := range ws.Steps {
		if d.HasExtension() && !resolved[d.Extension] {
			logger.Debug("Skipping step of unresolved extension.", "step", d.ID, "extension", d.Extension.String())
			continue
		}
		phase, err := buildstep.ParsePhase(d.Phase)
		if err != nil {
			return nil, nil, fmt.Errorf("step %q: %w", d.ID, err)
		}
		run, err := a.handlers.Bind(d.Handler, d.Values)
		if err != nil {
			return nil, nil, fmt.Errorf("step %q: %w", d.ID, err)
		}
		decls[d.ID] = d
		steps = append(steps, &buildstep.Step{
			ID:               d.ID,
			Consumes:         d.Consumes,
			OptionalConsumes: d.OptionalConsumes,
			Produces:         d.Produces,
			Phase:            phase,
			Priority:         d.Priority,
			BestEffort:       d.BestEffort,
			Run:              run,
		})
	}

	g, err := buildstep.NewGraph(types, steps)
	if err != nil {
		return nil, nil, err
	}
	return g, decls, nil
}

// conditionalCoords lists what activations added to the resolved set, dev
// additions last.
func conditionalCoords(closure *conditional.Result) []coords.ArtifactCoords {
	var out, dev []coords.ArtifactCoords
	for _, act := range closure.Activations {
		out = append(out, act.Added...)
		dev = append(dev, act.AddedDev...)
	}
	return append(out, dev...)
}

// applicationProject is the root build's ":" project, or its first project.
func applicationProject(ws *workspace.Workspace) *workspace.Project {
	if p, ok := ws.Root.Project(":"); ok {
		return p
	}
	if len(ws.Root.Projects) > 0 {
		return ws.Root.Projects[0]
	}
	return nil
}
