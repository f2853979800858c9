package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It records the execution time of each step that uses it.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns the execution record of a step.
func (m *MockSleeperModule) Record(stepID string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[stepID]
	return r, ok
}

// Register registers the "sleeper" handler. It sleeps, then produces the
// step id for every declared output type.
func (m *MockSleeperModule) Register(r *handlers.Handlers) {
	r.RegisterHandler("sleeper", &handlers.RegisteredHandler{
		Description: "sleeps and records its execution window",
		Fn: func(ctx context.Context, sc *buildstep.StepContext, _ cty.Value) error {
			startTime := time.Now()
			select {
			case <-time.After(m.sleepDuration):
			case <-ctx.Done():
				return ctx.Err()
			}
			endTime := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[sc.StepID()] = &ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			if m.completionChan != nil {
				m.completionChan <- sc.StepID()
			}
			for _, typ := range sc.ProducedTypes() {
				if err := sc.Produce(typ, cty.StringVal(sc.StepID())); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
