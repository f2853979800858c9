// Package steptest runs a single step handler inside a minimal build graph.
package steptest

import (
	"context"
	"fmt"
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// SubjectID is the id of the step running the handler under test.
const SubjectID = "subject"

// Input feeds items of one type to the subject, one producer step per
// value in order.
type Input struct {
	Type   string
	Multi  bool
	Values []cty.Value
}

// Run executes fn as step SubjectID with logging discarded. The subject
// consumes every input type optionally and produces the given types.
func Run(t *testing.T, fn handlers.Func, values cty.Value, produces []buildstep.ItemType, inputs ...Input) (*buildstep.Result, error) {
	t.Helper()
	return RunContext(ctxlog.Discard(context.Background()), t, fn, values, produces, inputs...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, t *testing.T, fn handlers.Func, values cty.Value, produces []buildstep.ItemType, inputs ...Input) (*buildstep.Result, error) {
	t.Helper()

	var types []buildstep.ItemType
	var steps []*buildstep.Step
	subject := &buildstep.Step{
		ID: SubjectID,
		Run: func(ctx context.Context, sc *buildstep.StepContext) error {
			return fn(ctx, sc, values)
		},
	}

	for _, in := range inputs {
		types = append(types, buildstep.ItemType{Name: in.Type, Multi: in.Multi})
		subject.OptionalConsumes = append(subject.OptionalConsumes, in.Type)
		for i, v := range in.Values {
			typ, v := in.Type, v
			steps = append(steps, &buildstep.Step{
				ID:       fmt.Sprintf("feed-%s-%d", typ, i),
				Produces: []string{typ},
				Run: func(_ context.Context, sc *buildstep.StepContext) error {
					return sc.Produce(typ, v)
				},
			})
		}
	}
	for _, p := range produces {
		types = append(types, p)
		subject.Produces = append(subject.Produces, p.Name)
	}
	steps = append(steps, subject)

	g, err := buildstep.NewGraph(types, steps)
	require.NoError(t, err)
	return buildstep.NewExecutor(g, buildstep.WithWorkers(1)).Run(ctx)
}

// Values returns the values of the published items of one type.
func Values(res *buildstep.Result, typ string) []cty.Value {
	var out []cty.Value
	for _, it := range res.ItemsOf(typ) {
		out = append(out, it.Value)
	}
	return out
}
