package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/conditional"
	"github.com/specialistvlad/extforge/internal/coords"
	"github.com/specialistvlad/extforge/internal/devmode"
	"github.com/specialistvlad/extforge/internal/materialize"
	"github.com/specialistvlad/extforge/internal/workspace"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Report is the assembled application description of one run. Sections
// past the run's mode are left empty.
type Report struct {
	Mode    Mode `json:"mode"`
	DevMode bool `json:"dev_mode"`

	RuntimeClasspath []string           `json:"runtime_classpath"`
	DevClasspath     []string           `json:"dev_classpath,omitempty"`
	Extensions       []ExtensionReport  `json:"extensions"`
	Activations      []ActivationReport `json:"activations"`
	Passes           int                `json:"passes"`

	Deployment              []materialize.Reference `json:"deployment"`
	ConditionalDependencies []materialize.Reference `json:"conditional_dependencies"`
	DevLayout               *devmode.Layout         `json:"dev_layout,omitempty"`

	Plan  []PlanStep   `json:"plan,omitempty"`
	Build *BuildReport `json:"build,omitempty"`
}

type ExtensionReport struct {
	Coords     string   `json:"coords"`
	Kind       string   `json:"kind"`
	Deployment string   `json:"deployment"`
	Conditions []string `json:"conditions,omitempty"`
	Activated  bool     `json:"activated"`
}

type ActivationReport struct {
	Extension string   `json:"extension"`
	Pass      int      `json:"pass"`
	Added     []string `json:"added,omitempty"`
	AddedDev  []string `json:"added_dev,omitempty"`
}

type PlanStep struct {
	ID         string   `json:"id"`
	Handler    string   `json:"handler"`
	Extension  string   `json:"extension,omitempty"`
	Phase      string   `json:"phase"`
	Priority   int      `json:"priority"`
	BestEffort bool     `json:"best_effort,omitempty"`
	DependsOn  []string `json:"depends_on,omitempty"`
}

type BuildReport struct {
	ID       string                  `json:"id"`
	States   map[string]string       `json:"states"`
	Started  []string                `json:"started"`
	Failures []FailureReport         `json:"failures,omitempty"`
	Skipped  []string                `json:"skipped,omitempty"`
	Items    map[string][]ItemReport `json:"items"`
}

type FailureReport struct {
	Step       string `json:"step"`
	BestEffort bool   `json:"best_effort"`
	Error      string `json:"error"`
}

type ItemReport struct {
	Producer string                  `json:"producer"`
	Value    ctyjson.SimpleJSONValue `json:"value"`
}

func newReport(cfg *Config, closure *conditional.Result) *Report {
	r := &Report{
		Mode:             cfg.Mode,
		DevMode:          cfg.DevMode,
		RuntimeClasspath: coordStrings(closure.Coords()),
		DevClasspath:     coordStrings(closure.DevCoords()),
		Passes:           closure.Passes,
	}
	for _, ext := range closure.Extensions {
		er := ExtensionReport{
			Coords:     ext.Coords.String(),
			Kind:       ext.Kind.String(),
			Deployment: ext.DeploymentCoords().String(),
			Activated:  closure.Activated(ext.Key()),
		}
		for _, k := range ext.DependencyConditions {
			er.Conditions = append(er.Conditions, k.String())
		}
		r.Extensions = append(r.Extensions, er)
	}
	for _, act := range closure.Activations {
		r.Activations = append(r.Activations, ActivationReport{
			Extension: act.Extension.String(),
			Pass:      act.Pass,
			Added:     coordStrings(act.Added),
			AddedDev:  coordStrings(act.AddedDev),
		})
	}
	return r
}

func planReport(g *buildstep.Graph, decls map[string]*workspace.StepDecl) []PlanStep {
	plan := g.Plan()
	out := make([]PlanStep, 0, len(plan))
	for _, id := range plan {
		s, _ := g.Step(id)
		ps := PlanStep{
			ID:         id,
			Handler:    decls[id].Handler,
			Phase:      s.Phase.String(),
			Priority:   s.Priority,
			BestEffort: s.BestEffort,
			DependsOn:  g.Dependencies(id),
		}
		if decls[id].HasExtension() {
			ps.Extension = decls[id].Extension.String()
		}
		out = append(out, ps)
	}
	return out
}

func buildReport(res *buildstep.Result) *BuildReport {
	br := &BuildReport{
		ID:      res.BuildID,
		States:  make(map[string]string, len(res.States)),
		Started: res.Started,
		Skipped: res.Skipped,
		Items:   make(map[string][]ItemReport, len(res.Items)),
	}
	for id, st := range res.States {
		br.States[id] = st.String()
	}
	for _, f := range res.Failures {
		br.Failures = append(br.Failures, FailureReport{Step: f.StepID, BestEffort: f.BestEffort, Error: f.Err.Error()})
	}
	for typ, items := range res.Items {
		list := make([]ItemReport, 0, len(items))
		for _, it := range items {
			list = append(list, ItemReport{Producer: it.Producer, Value: ctyjson.SimpleJSONValue{Value: it.Value}})
		}
		br.Items[typ] = list
	}
	return br
}

func coordStrings(cs []coords.ArtifactCoords) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.String())
	}
	return out
}

// writeReport writes r as indented JSON to the configured output file or
// the app's writer.
func (a *App) writeReport(r *Report) error {
	var w io.Writer = a.outW
	if a.config.OutputPath != "" {
		f, err := os.Create(a.config.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
