package buildstep

import "container/heap"

// readyQueue orders step indices by priority, higher first, then by
// declaration index.
type readyQueue struct {
	idx   []int
	steps []*Step
}

func newReadyQueue(steps []*Step) *readyQueue {
	return &readyQueue{steps: steps}
}

func (q *readyQueue) Len() int { return len(q.idx) }
func (q *readyQueue) Less(i, j int) bool {
	a, b := q.idx[i], q.idx[j]
	if pa, pb := q.steps[a].Priority, q.steps[b].Priority; pa != pb {
		return pa > pb
	}
	return a < b
}
func (q *readyQueue) Swap(i, j int) { q.idx[i], q.idx[j] = q.idx[j], q.idx[i] }
func (q *readyQueue) Push(x any)    { q.idx = append(q.idx, x.(int)) }
func (q *readyQueue) Pop() any {
	old := q.idx
	n := len(old)
	x := old[n-1]
	q.idx = old[:n-1]
	return x
}

// computePlan runs Kahn's algorithm over the ready queue. If some steps are
// never released the graph has a cycle, and one is extracted for the error.
func (g *Graph) computePlan() error {
	indeg := make([]int, len(g.steps))
	for i := range g.steps {
		indeg[i] = len(g.incoming[i])
	}

	ready := newReadyQueue(g.steps)
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	g.plan = make([]int, 0, len(g.steps))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		g.plan = append(g.plan, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(g.plan) != len(g.steps) {
		return cycleError(g.findCycle())
	}

	g.planPos = make([]int, len(g.steps))
	for pos, i := range g.plan {
		g.planPos[i] = pos
	}
	return nil
}

// findCycle returns one cycle as a closed path in edge order, found by a
// depth-first search in declaration order, so the same graph always yields
// the same witness.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.steps))
	parent := make([]int, len(g.steps))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back edge u -> v closes v ... u -> v; walk parents back to v.
				cycle = append(cycle, v)
				for cur := u; cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.steps {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.steps[cycle[i]].ID)
	}
	return out
}
