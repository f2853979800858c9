// Package journal records build lifecycle events. Observers receive
// callbacks from the build-step executor; implementations log them, store
// them in SQLite or PostgreSQL, or fan them out.
package journal

import (
	"context"
	"time"
)

// BuildEvent describes the start or end of one build.
type BuildEvent struct {
	BuildID string
	At      time.Time
	// Steps is the number of steps in the plan.
	Steps int
	// Duration and Err are set on finish.
	Duration time.Duration
	Err      error
}

// StepEvent describes the start or end of one step.
type StepEvent struct {
	BuildID string
	Step    string
	Phase   string
	At      time.Time
	// State, Duration, Items and Err are set on finish.
	State    string
	Duration time.Duration
	Items    int
	Err      error
}

// Observer receives build callbacks. The executor calls it from a single
// goroutine; implementations should return quickly.
type Observer interface {
	OnBuildStart(ctx context.Context, ev BuildEvent)
	OnStepStart(ctx context.Context, ev StepEvent)
	OnStepFinished(ctx context.Context, ev StepEvent)
	OnBuildFinished(ctx context.Context, ev BuildEvent)
}

// Noop is an Observer that does nothing.
type Noop struct{}

func (Noop) OnBuildStart(context.Context, BuildEvent)    {}
func (Noop) OnStepStart(context.Context, StepEvent)      {}
func (Noop) OnStepFinished(context.Context, StepEvent)   {}
func (Noop) OnBuildFinished(context.Context, BuildEvent) {}

// Composite fans events out to several observers in order.
type Composite struct {
	observers []Observer
}

// NewComposite combines the non-nil observers. It returns Noop for none
// and the observer itself for one.
func NewComposite(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	switch len(filtered) {
	case 0:
		return Noop{}
	case 1:
		return filtered[0]
	}
	return &Composite{observers: filtered}
}

func (c *Composite) OnBuildStart(ctx context.Context, ev BuildEvent) {
	for _, o := range c.observers {
		o.OnBuildStart(ctx, ev)
	}
}

func (c *Composite) OnStepStart(ctx context.Context, ev StepEvent) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, ev)
	}
}

func (c *Composite) OnStepFinished(ctx context.Context, ev StepEvent) {
	for _, o := range c.observers {
		o.OnStepFinished(ctx, ev)
	}
}

func (c *Composite) OnBuildFinished(ctx context.Context, ev BuildEvent) {
	for _, o := range c.observers {
		o.OnBuildFinished(ctx, ev)
	}
}
