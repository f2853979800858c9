package journal

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/extforge/internal/ctxlog"
)

// Logging writes events to the logger carried in the callback context.
type Logging struct{}

func (Logging) OnBuildStart(ctx context.Context, ev BuildEvent) {
	ctxlog.FromContext(ctx).Info("Build started.", "build_id", ev.BuildID, "steps", ev.Steps)
}

func (Logging) OnStepStart(ctx context.Context, ev StepEvent) {
	ctxlog.FromContext(ctx).Debug("Step started.", "build_id", ev.BuildID, "step", ev.Step, "phase", ev.Phase)
}

func (Logging) OnStepFinished(ctx context.Context, ev StepEvent) {
	level := slog.LevelDebug
	if ev.Err != nil {
		level = slog.LevelWarn
	}
	ctxlog.FromContext(ctx).Log(ctx, level, "Step finished.",
		"build_id", ev.BuildID,
		"step", ev.Step,
		"state", ev.State,
		"items", ev.Items,
		"duration", ev.Duration,
		"error", ev.Err)
}

func (Logging) OnBuildFinished(ctx context.Context, ev BuildEvent) {
	logger := ctxlog.FromContext(ctx)
	if ev.Err != nil {
		logger.Error("Build failed.", "build_id", ev.BuildID, "duration", ev.Duration, "error", ev.Err)
		return
	}
	logger.Info("Build finished.", "build_id", ev.BuildID, "duration", ev.Duration)
}
