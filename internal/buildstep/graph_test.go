package buildstep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *StepContext) error { return nil }

func step(id string, consumes, produces []string) *Step {
	return &Step{ID: id, Consumes: consumes, Produces: produces, Run: noop}
}

func types(names ...string) []ItemType {
	out := make([]ItemType, 0, len(names))
	for _, n := range names {
		out = append(out, ItemType{Name: n})
	}
	return out
}

func TestNewGraph_CycleIsReportedInOrder(t *testing.T) {
	steps := []*Step{
		step("S1", []string{"c"}, []string{"a"}),
		step("S2", []string{"a"}, []string{"b"}),
		step("S3", []string{"b"}, []string{"c"}),
	}

	_, err := NewGraph(types("a", "b", "c"), steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
	assert.ErrorContains(t, err, "S1 -> S2 -> S3 -> S1")

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, []string{"S1", "S2", "S3", "S1"}, graphErr.Cycle)

	// Dropping the S3 -> S1 edge makes the same steps schedulable.
	steps[0] = step("S1", nil, []string{"a"})
	g, err := NewGraph(types("a", "b", "c"), steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, g.Plan())
}

func TestNewGraph_SelfConsumingStepIsACycle(t *testing.T) {
	_, err := NewGraph(types("a"), []*Step{step("loop", []string{"a"}, []string{"a"})})
	require.ErrorIs(t, err, ErrCycle)
	assert.ErrorContains(t, err, "loop -> loop")
}

func TestNewGraph_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		types   []ItemType
		steps   []*Step
		kind    error
		errText string
	}{
		{
			name:    "dangling consumer",
			types:   types("config"),
			steps:   []*Step{step("reader", []string{"config"}, nil)},
			kind:    ErrDanglingConsumer,
			errText: `step "reader" consumes item type "config", but no step produces it`,
		},
		{
			name:    "undeclared consumed type",
			types:   types("a"),
			steps:   []*Step{step("s", []string{"ghost"}, nil)},
			kind:    ErrInvalidGraph,
			errText: `step "s" consumes undeclared item type "ghost"`,
		},
		{
			name:    "undeclared produced type",
			types:   types("a"),
			steps:   []*Step{step("s", nil, []string{"ghost"})},
			kind:    ErrInvalidGraph,
			errText: `step "s" produces undeclared item type "ghost"`,
		},
		{
			name:    "duplicate step id",
			types:   types("a"),
			steps:   []*Step{step("s", nil, nil), step("s", nil, nil)},
			kind:    ErrInvalidGraph,
			errText: `step "s" is declared more than once`,
		},
		{
			name:    "single type with two producers",
			types:   types("a"),
			steps:   []*Step{step("p1", nil, []string{"a"}), step("p2", nil, []string{"a"})},
			kind:    ErrInvalidGraph,
			errText: `single item type "a" has 2 producers: p1, p2`,
		},
		{
			name:    "duplicate item type",
			types:   types("a", "a"),
			kind:    ErrInvalidGraph,
			errText: `item type "a" is declared more than once`,
		},
		{
			name:    "missing body",
			types:   types("a"),
			steps:   []*Step{{ID: "s"}},
			kind:    ErrInvalidGraph,
			errText: `step "s" has no body`,
		},
		{
			name:    "missing id",
			steps:   []*Step{{Run: noop}},
			kind:    ErrInvalidGraph,
			errText: "step #0 has no id",
		},
		{
			name:    "phase barrier against data flow",
			types:   types("late"),
			kind:    ErrCycle,
			errText: "static -> runtime -> static",
			steps: []*Step{
				{ID: "static", Consumes: []string{"late"}, Phase: PhaseStaticInit, Run: noop},
				{ID: "runtime", Produces: []string{"late"}, Phase: PhaseRuntimeInit, Run: noop},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewGraph(tc.types, tc.steps)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tc.kind)
			assert.ErrorContains(t, err, tc.errText)
		})
	}
}

func TestNewGraph_OptionalConsumerNeedsNoProducer(t *testing.T) {
	g, err := NewGraph(types("maybe", "out"), []*Step{
		{ID: "s", OptionalConsumes: []string{"maybe"}, Produces: []string{"out"}, Run: noop},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, g.Plan())
}

func TestNewGraph_OptionalConsumerRunsAfterProducer(t *testing.T) {
	g, err := NewGraph(types("maybe"), []*Step{
		{ID: "consumer", OptionalConsumes: []string{"maybe"}, Run: noop},
		step("producer", nil, []string{"maybe"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"producer", "consumer"}, g.Plan())
	assert.Equal(t, []string{"producer"}, g.Dependencies("consumer"))
}

func TestPlan_PriorityThenDeclarationOrder(t *testing.T) {
	steps := []*Step{
		{ID: "low", Run: noop},
		{ID: "high", Priority: 10, Run: noop},
		{ID: "low-too", Run: noop},
		{ID: "mid", Priority: 5, Run: noop},
	}
	g, err := NewGraph(nil, steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "low", "low-too"}, g.Plan())

	again, err := NewGraph(nil, steps)
	require.NoError(t, err)
	assert.Equal(t, g.Plan(), again.Plan(), "plan must be reproducible")
}

func TestPlan_PriorityNeverOverridesDependencies(t *testing.T) {
	g, err := NewGraph(types("a"), []*Step{
		{ID: "consumer", Consumes: []string{"a"}, Priority: 100, Run: noop},
		{ID: "producer", Produces: []string{"a"}, Run: noop},
		{ID: "independent", Priority: 1, Run: noop},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"independent", "producer", "consumer"}, g.Plan())
}

func TestPlan_PhaseBarrier(t *testing.T) {
	g, err := NewGraph(nil, []*Step{
		{ID: "runtime-1", Phase: PhaseRuntimeInit, Priority: 10, Run: noop},
		{ID: "plain", Run: noop},
		{ID: "static-1", Phase: PhaseStaticInit, Run: noop},
		{ID: "static-2", Phase: PhaseStaticInit, Run: noop},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"plain", "static-1", "static-2", "runtime-1"}, g.Plan())
	assert.Equal(t, []string{"static-1", "static-2"}, g.Dependencies("runtime-1"))
	assert.Empty(t, g.Dependencies("plain"))
}

func TestGraphAccessors(t *testing.T) {
	g, err := NewGraph([]ItemType{{Name: "feature", Multi: true}}, []*Step{
		step("b", nil, []string{"feature"}),
		step("a", nil, []string{"feature"}),
		step("collect", []string{"feature"}, nil),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, g.Producers("feature"))
	assert.Equal(t, []string{"b", "a"}, g.Dependencies("collect"))
	assert.Nil(t, g.Dependencies("missing"))
	assert.Equal(t, []ItemType{{Name: "feature", Multi: true}}, g.ItemTypes())
	assert.Len(t, g.Steps(), 3)

	s, ok := g.Step("collect")
	require.True(t, ok)
	assert.Equal(t, "collect", s.ID)
	_, ok = g.Step("missing")
	assert.False(t, ok)
}

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{
		"":             PhaseNone,
		"none":         PhaseNone,
		"static-init":  PhaseStaticInit,
		"runtime-init": PhaseRuntimeInit,
	} {
		got, err := ParsePhase(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePhase("boot")
	assert.ErrorContains(t, err, `unknown phase "boot"`)
	assert.Equal(t, "static-init", PhaseStaticInit.String())
	assert.Equal(t, "Completed", Completed.String())
}
