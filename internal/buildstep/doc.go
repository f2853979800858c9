// Package buildstep builds and runs the build-step graph.
//
// A build step consumes and produces typed build items. Steps are linked
// producer to consumer: step A runs before step B when A produces an item
// type that B consumes. Steps tagged static-init additionally run before
// every step tagged runtime-init, even without a data dependency.
//
// NewGraph validates the declarations and computes a deterministic plan:
// among steps whose dependencies are satisfied, higher priority runs first,
// then the step declared first. An Executor runs the graph with a bounded
// number of workers. A single scheduling loop owns the item registry; a
// step's items are published only when the step completes.
package buildstep
