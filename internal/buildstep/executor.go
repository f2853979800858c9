package buildstep

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/journal"
	"golang.org/x/sync/errgroup"
)

// Executor runs a Graph. Each Run is independent.
type Executor struct {
	graph      *Graph
	numWorkers int
	observer   journal.Observer
	buildID    string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithWorkers bounds the number of concurrently running steps. Values
// below one fall back to GOMAXPROCS.
func WithWorkers(n int) ExecutorOption {
	return func(e *Executor) { e.numWorkers = n }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o journal.Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithBuildID fixes the build id reported to the observer. By default
// every Run gets a random one.
func WithBuildID(id string) ExecutorOption {
	return func(e *Executor) { e.buildID = id }
}

// NewExecutor creates an executor for g.
func NewExecutor(g *Graph, opts ...ExecutorOption) *Executor {
	e := &Executor{graph: g}
	for _, opt := range opts {
		opt(e)
	}
	if e.numWorkers < 1 {
		e.numWorkers = runtime.GOMAXPROCS(0)
	}
	if e.observer == nil {
		e.observer = journal.Noop{}
	}
	return e
}

// Result is the outcome of one Run.
type Result struct {
	BuildID string
	// States holds the final state of every step.
	States map[string]State
	// Started lists steps in dispatch order.
	Started []string
	// Items holds the published items per type, in producer plan order.
	Items map[string][]Item
	// Failures lists failed steps, best-effort ones included, in plan
	// order.
	Failures []*StepError
	// Skipped lists steps left Pending because every producer of a type
	// they require failed best-effort, in the order they were skipped.
	Skipped []string
}

// ItemsOf returns the published items of one type.
func (r *Result) ItemsOf(typ string) []Item {
	return r.Items[typ]
}

type stepResult struct {
	idx      int
	sc       *StepContext
	err      error
	duration time.Duration
}

// run holds the scheduling state of one Run. Only the scheduling loop
// touches it.
type run struct {
	g         *Graph
	states    []State
	remaining []int
	published [][]Item
	errs      []*StepError
	skipped   []int
	ready     *readyQueue
}

// Run executes the graph. Steps run on at most numWorkers goroutines; the
// calling goroutine schedules them. When a step that is not best-effort
// fails, the run context is cancelled, no further step is started, and Run
// waits for running steps before returning the failure. Steps that never
// started keep their Pending or Ready state.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	g := e.graph
	buildID := e.buildID
	if buildID == "" {
		buildID = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("build_id", buildID)
	ctx = ctxlog.WithLogger(ctx, logger)

	r := &run{
		g:         g,
		states:    make([]State, len(g.steps)),
		remaining: make([]int, len(g.steps)),
		published: make([][]Item, len(g.steps)),
		errs:      make([]*StepError, len(g.steps)),
		ready:     newReadyQueue(g.steps),
	}
	for i := range g.steps {
		r.remaining[i] = len(g.incoming[i])
		if r.remaining[i] == 0 {
			r.markReady(i)
		}
	}

	start := time.Now()
	e.observer.OnBuildStart(ctx, journal.BuildEvent{BuildID: buildID, At: start, Steps: len(g.steps)})
	logger.Debug("Starting step executor.", "steps", len(g.steps), "workers", e.numWorkers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var eg errgroup.Group
	eg.SetLimit(e.numWorkers)
	results := make(chan stepResult, len(g.steps))
	started := make([]string, 0, len(g.steps))

	var abortErr error
	done := ctx.Done()
	running := 0

	for {
		if abortErr == nil && ctx.Err() != nil {
			abortErr = ctx.Err()
			cancel()
		}
		for abortErr == nil && running < e.numWorkers && r.ready.Len() > 0 {
			i := heap.Pop(r.ready).(int)
			sc := r.newStepContext(i)
			r.states[i] = Running
			running++
			started = append(started, g.steps[i].ID)

			e.observer.OnStepStart(ctx, journal.StepEvent{
				BuildID: buildID, Step: g.steps[i].ID, Phase: g.steps[i].Phase.String(), At: time.Now(),
			})
			eg.Go(func() error {
				results <- runStep(runCtx, i, sc)
				return nil
			})
		}

		if running == 0 {
			break
		}

		select {
		case res := <-results:
			running--
			if err := r.settle(ctx, res); err != nil && abortErr == nil {
				logger.Error("Aborting build after step failure.", "step", g.steps[res.idx].ID, "error", err)
				abortErr = err
				cancel()
			}
			e.observer.OnStepFinished(ctx, journal.StepEvent{
				BuildID:  buildID,
				Step:     g.steps[res.idx].ID,
				Phase:    g.steps[res.idx].Phase.String(),
				At:       time.Now(),
				State:    r.states[res.idx].String(),
				Duration: res.duration,
				Items:    len(r.published[res.idx]),
				Err:      res.err,
			})
		case <-done:
			done = nil
			if abortErr == nil {
				logger.Warn("Build cancelled, waiting for running steps.", "running", running)
				abortErr = ctx.Err()
				cancel()
			}
		}
	}
	_ = eg.Wait()

	result := r.result(buildID, started)
	e.observer.OnBuildFinished(ctx, journal.BuildEvent{
		BuildID: buildID, At: time.Now(), Steps: len(g.steps), Duration: time.Since(start), Err: abortErr,
	})

	if abortErr != nil {
		return result, fmt.Errorf("build %s aborted: %w", buildID, abortErr)
	}
	logger.Debug("Step executor finished.", "started", len(started))
	return result, nil
}

func runStep(ctx context.Context, i int, sc *StepContext) (res stepResult) {
	start := time.Now()
	res = stepResult{idx: i, sc: sc}
	defer func() {
		if p := recover(); p != nil {
			res.err = fmt.Errorf("panic: %v", p)
		}
		res.duration = time.Since(start)
	}()

	stepCtx := ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("step", sc.step.ID))
	res.err = sc.step.Run(stepCtx, sc)
	return res
}

func (r *run) markReady(i int) {
	r.states[i] = Ready
	heap.Push(r.ready, i)
}

// newStepContext snapshots the items of every consumed type. All producers
// of those types have settled by now.
func (r *run) newStepContext(i int) *StepContext {
	s := r.g.steps[i]
	sc := &StepContext{step: s, types: r.g.byType, inputs: make(map[string][]Item)}
	for _, typ := range concat(s.Consumes, s.OptionalConsumes) {
		if _, done := sc.inputs[typ]; done {
			continue
		}
		sc.inputs[typ] = r.collect(typ)
	}
	return sc
}

func (r *run) collect(typ string) []Item {
	var items []Item
	for _, p := range r.g.producersInPlanOrder(typ) {
		for _, it := range r.published[p] {
			if it.Type == typ {
				items = append(items, it)
			}
		}
	}
	return items
}

// settle records a finished step and releases its dependents. It returns
// the step error when the build must abort.
func (r *run) settle(ctx context.Context, res stepResult) error {
	logger := ctxlog.FromContext(ctx)
	s := r.g.steps[res.idx]

	if res.err != nil {
		r.states[res.idx] = Failed
		stepErr := &StepError{StepID: s.ID, BestEffort: s.BestEffort, Err: res.err}
		r.errs[res.idx] = stepErr
		if !s.BestEffort {
			return stepErr
		}
		logger.Warn("Best-effort step failed, continuing without its items.", "step", s.ID, "error", res.err)
	} else {
		r.states[res.idx] = Completed
		r.published[res.idx] = res.sc.staged
		logger.Debug("Step completed.", "step", s.ID, "items", len(res.sc.staged), "duration", res.duration)
	}

	for _, m := range r.g.outgoing[res.idx] {
		r.remaining[m]--
		if r.remaining[m] != 0 || r.states[m] != Pending {
			continue
		}
		if typ, ok := r.starved(m); ok {
			// m and everything downstream of it stay Pending.
			r.skipped = append(r.skipped, m)
			logger.Warn("Skipping step, no producer of a consumed item type completed.",
				"step", r.g.steps[m].ID, "item_type", typ)
			continue
		}
		r.markReady(m)
	}
	return nil
}

// starved returns a required consumed type of step i none of whose
// producers completed. Only best-effort failures get this far.
func (r *run) starved(i int) (string, bool) {
	for _, typ := range r.g.steps[i].Consumes {
		completed := false
		for _, p := range r.g.producers[typ] {
			if r.states[p] == Completed {
				completed = true
				break
			}
		}
		if !completed {
			return typ, true
		}
	}
	return "", false
}

func (r *run) result(buildID string, started []string) *Result {
	res := &Result{
		BuildID: buildID,
		States:  make(map[string]State, len(r.g.steps)),
		Started: started,
		Items:   make(map[string][]Item, len(r.g.types)),
	}
	for i, s := range r.g.steps {
		res.States[s.ID] = r.states[i]
	}
	for _, t := range r.g.types {
		if items := r.collect(t.Name); len(items) > 0 {
			res.Items[t.Name] = items
		}
	}
	res.Skipped = r.g.names(r.skipped)
	for _, i := range r.g.plan {
		if r.errs[i] != nil {
			res.Failures = append(res.Failures, r.errs[i])
		}
	}
	return res
}
