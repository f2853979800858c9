package buildstep

import (
	"sort"
	"strings"
)

// Graph is a validated, immutable build-step graph. One Graph may be run
// by several executors.
type Graph struct {
	types  []ItemType
	byType map[string]ItemType
	steps  []*Step
	index  map[string]int

	// producers lists producer indices per item type in declaration order.
	producers map[string][]int
	// outgoing and incoming are sorted by declaration index.
	outgoing [][]int
	incoming [][]int

	plan    []int
	planPos []int
}

// NewGraph validates the declarations and links producers to consumers.
// It fails on undeclared item types, duplicate step ids, single types with
// several producers, consumers without a producer, and cycles.
func NewGraph(types []ItemType, steps []*Step) (*Graph, error) {
	g := &Graph{
		byType:    make(map[string]ItemType, len(types)),
		index:     make(map[string]int, len(steps)),
		producers: make(map[string][]int),
	}

	for _, t := range types {
		if t.Name == "" {
			return nil, invalidf("item type with an empty name")
		}
		if _, exists := g.byType[t.Name]; exists {
			return nil, invalidf("item type %q is declared more than once", t.Name)
		}
		g.byType[t.Name] = t
		g.types = append(g.types, t)
	}

	for i, s := range steps {
		if err := g.addStep(i, s); err != nil {
			return nil, err
		}
	}

	for _, t := range g.types {
		if p := g.producers[t.Name]; !t.Multi && len(p) > 1 {
			return nil, invalidf("single item type %q has %d producers: %s", t.Name, len(p), strings.Join(g.names(p), ", "))
		}
	}

	for _, s := range g.steps {
		for _, typ := range s.Consumes {
			if len(g.producers[typ]) == 0 {
				return nil, danglingf("step %q consumes item type %q, but no step produces it", s.ID, typ)
			}
		}
	}

	g.link()
	if err := g.computePlan(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addStep(i int, s *Step) error {
	if s == nil {
		return invalidf("step #%d is nil", i)
	}
	if s.ID == "" {
		return invalidf("step #%d has no id", i)
	}
	if _, exists := g.index[s.ID]; exists {
		return invalidf("step %q is declared more than once", s.ID)
	}
	if s.Run == nil {
		return invalidf("step %q has no body", s.ID)
	}

	for _, typ := range concat(s.Consumes, s.OptionalConsumes) {
		if _, ok := g.byType[typ]; !ok {
			return invalidf("step %q consumes undeclared item type %q", s.ID, typ)
		}
	}
	seen := make(map[string]bool, len(s.Produces))
	for _, typ := range s.Produces {
		if _, ok := g.byType[typ]; !ok {
			return invalidf("step %q produces undeclared item type %q", s.ID, typ)
		}
		if seen[typ] {
			return invalidf("step %q lists item type %q more than once", s.ID, typ)
		}
		seen[typ] = true
		g.producers[typ] = append(g.producers[typ], i)
	}

	g.index[s.ID] = i
	g.steps = append(g.steps, s)
	return nil
}

// link adds producer-to-consumer edges, then the phase barrier: every
// static-init step precedes every runtime-init step.
func (g *Graph) link() {
	n := len(g.steps)
	g.outgoing = make([][]int, n)
	g.incoming = make([][]int, n)
	seen := make(map[[2]int]bool)
	add := func(from, to int) {
		if seen[[2]int{from, to}] {
			return
		}
		seen[[2]int{from, to}] = true
		g.outgoing[from] = append(g.outgoing[from], to)
		g.incoming[to] = append(g.incoming[to], from)
	}

	for j, s := range g.steps {
		for _, typ := range concat(s.Consumes, s.OptionalConsumes) {
			for _, i := range g.producers[typ] {
				add(i, j)
			}
		}
	}
	for i, s := range g.steps {
		if s.Phase != PhaseStaticInit {
			continue
		}
		for j, t := range g.steps {
			if t.Phase == PhaseRuntimeInit {
				add(i, j)
			}
		}
	}

	for i := range g.steps {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}
}

// Plan returns the step ids in execution order.
func (g *Graph) Plan() []string {
	return g.names(g.plan)
}

// Steps returns the steps in declaration order.
func (g *Graph) Steps() []*Step {
	out := make([]*Step, len(g.steps))
	copy(out, g.steps)
	return out
}

// Step returns the step with the given id.
func (g *Graph) Step(id string) (*Step, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.steps[i], true
}

// ItemTypes returns the declared item types in declaration order.
func (g *Graph) ItemTypes() []ItemType {
	out := make([]ItemType, len(g.types))
	copy(out, g.types)
	return out
}

// Dependencies lists the steps that must settle before id may run.
func (g *Graph) Dependencies(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// Producers lists the producers of an item type in declaration order.
func (g *Graph) Producers(typ string) []string {
	return g.names(g.producers[typ])
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.steps[i].ID)
	}
	return out
}

// producersInPlanOrder lists the producers of typ by plan position.
func (g *Graph) producersInPlanOrder(typ string) []int {
	out := append([]int(nil), g.producers[typ]...)
	sort.Slice(out, func(a, b int) bool { return g.planPos[out[a]] < g.planPos[out[b]] })
	return out
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
