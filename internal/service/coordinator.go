package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/template"
)

var (
	ErrStepNotEditable = errors.New("step is locked or does not accept edits")
	ErrStepNotLockable = errors.New("step cannot be locked or unlocked")
	ErrStepNotFound    = errors.New("step does not belong to this workshop")

	// ErrAggregateStale means the step write landed but the workshop
	// aggregate write that follows it failed. The two writes are not
	// transactional; the aggregate is repaired on the next open.
	ErrAggregateStale = errors.New("step saved but workshop progress is stale")
)

// SaveCoordinator persists content edits and lock toggles and keeps the
// workshop aggregate in step with them.
type SaveCoordinator interface {
	SaveContent(ctx context.Context, actor model.Principal, workshop *model.Workshop, step model.Step, content json.RawMessage) (*ContentResult, error)
	ToggleLock(ctx context.Context, actor model.Principal, workshop *model.Workshop, steps []model.Step, stepID int64) (*ToggleResult, error)
}

type ContentResult struct {
	Workshop model.Workshop
	Step     model.Step
}

type ToggleResult struct {
	Workshop  model.Workshop
	Step      model.Step
	Steps     []model.Step
	Effective []model.Step
	Progress  progression.Progress
}

type saveCoordinator struct {
	steps     store.StepStore
	templates *template.Registry
	events    queue.Producer
	now       func() time.Time
}

func NewSaveCoordinator(steps store.StepStore, templates *template.Registry, events queue.Producer) SaveCoordinator {
	if events == nil {
		events = queue.NewNoopProducer()
	}
	return &saveCoordinator{
		steps:     steps,
		templates: templates,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *saveCoordinator) SaveContent(ctx context.Context, actor model.Principal, workshop *model.Workshop, step model.Step, content json.RawMessage) (*ContentResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkshopID: logger.Ptr(workshop.ID),
		StepID:     logger.Ptr(step.ID),
		Component:  "inception.service.coordinator",
	})

	if !step.Editable() {
		return nil, ErrStepNotEditable
	}
	if err := c.templates.Validate(step, content); err != nil {
		return nil, err
	}

	// Writes are not cancellable once issued.
	ctx = context.WithoutCancel(ctx)
	sc := logger.StartSpan(ctx, "coordinator.save_content")
	defer sc.End()
	ctx = sc.Context()

	if err := c.steps.UpdateStepContent(ctx, workshop.ID, step.ID, content); err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("saving step content: %w", err)
	}

	now := c.now()
	saved := step.Clone()
	saved.Content = model.CloneContent(content)
	saved.UpdatedAt = now

	result := &ContentResult{Workshop: *workshop, Step: saved}

	agg := model.WorkshopAggregate{UpdatedAt: now}
	if err := c.steps.UpdateWorkshopAggregate(ctx, workshop.ID, agg); err != nil {
		sc.RecordError(err)
		slog.WarnContext(ctx, "step content saved but workshop timestamp update failed", "error", err)
		return result, errors.Join(ErrAggregateStale, err)
	}
	agg.Apply(&result.Workshop)

	c.publish(ctx, queue.WorkshopEvent{
		Type:        queue.EventTypeContentSaved,
		WorkshopID:  workshop.ID,
		StepID:      logger.Ptr(step.ID),
		CurrentStep: workshop.CurrentStep,
		TotalSteps:  workshop.TotalSteps,
		Actor:       actor.Identity(),
		OccurredAt:  now,
	})

	slog.InfoContext(ctx, "step content saved")
	return result, nil
}

// ToggleLock flips the lock on a copy of steps, writes it, and then writes
// the recomputed aggregate. steps is never modified, so on a failed first
// write the caller's list still matches the store.
func (c *saveCoordinator) ToggleLock(ctx context.Context, actor model.Principal, workshop *model.Workshop, steps []model.Step, stepID int64) (*ToggleResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkshopID: logger.Ptr(workshop.ID),
		StepID:     logger.Ptr(stepID),
		Component:  "inception.service.coordinator",
	})

	if stepID == progression.ReportStepID {
		return nil, ErrStepNotLockable
	}

	local := model.CloneSteps(progression.Persisted(steps))
	idx := indexOfStep(local, stepID)
	if idx < 0 {
		return nil, ErrStepNotFound
	}
	if !local[idx].Kind().Capabilities().Lockable {
		return nil, ErrStepNotLockable
	}

	ctx = context.WithoutCancel(ctx)
	sc := logger.StartSpan(ctx, "coordinator.toggle_lock")
	defer sc.End()
	ctx = sc.Context()

	before := progression.Compute(local)
	local[idx].IsLocked = !local[idx].IsLocked

	if err := c.steps.UpdateStepLock(ctx, workshop.ID, stepID, local[idx].IsLocked); err != nil {
		local[idx].IsLocked = !local[idx].IsLocked
		sc.RecordError(err)
		return nil, fmt.Errorf("saving step lock: %w", err)
	}

	now := c.now()
	local[idx].UpdatedAt = now
	progress := progression.Compute(local)

	result := &ToggleResult{
		Workshop:  *workshop,
		Step:      local[idx],
		Steps:     local,
		Effective: progression.DeriveEffectiveList(local, progress.AllComplete),
		Progress:  progress,
	}

	agg := progression.Aggregate(progress, now)
	if err := c.steps.UpdateWorkshopAggregate(ctx, workshop.ID, agg); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "step lock saved but workshop aggregate update failed",
			"error", err,
			"locked", local[idx].IsLocked)
		return result, errors.Join(ErrAggregateStale, err)
	}
	agg.Apply(&result.Workshop)

	c.publishToggle(ctx, actor, result, before)

	slog.InfoContext(ctx, "step lock toggled",
		"locked", local[idx].IsLocked,
		"current_step", progress.CompletedCount,
		"total_steps", progress.TotalCounted,
		"status", result.Workshop.Status)

	return result, nil
}

func (c *saveCoordinator) publishToggle(ctx context.Context, actor model.Principal, result *ToggleResult, before progression.Progress) {
	event := queue.WorkshopEvent{
		Type:        queue.EventTypeStepUnlocked,
		WorkshopID:  result.Workshop.ID,
		StepID:      logger.Ptr(result.Step.ID),
		CurrentStep: result.Progress.CompletedCount,
		TotalSteps:  result.Progress.TotalCounted,
		Actor:       actor.Identity(),
		OccurredAt:  result.Step.UpdatedAt,
	}
	if result.Step.IsLocked {
		event.Type = queue.EventTypeStepLocked
	}
	c.publish(ctx, event)

	switch {
	case result.Progress.AllComplete && !before.AllComplete:
		event.Type = queue.EventTypeWorkshopCompleted
		c.publish(ctx, event)
	case !result.Progress.AllComplete && before.AllComplete:
		event.Type = queue.EventTypeWorkshopReopened
		c.publish(ctx, event)
	}
}

// Activity events are best effort; a lost event never fails a save.
func (c *saveCoordinator) publish(ctx context.Context, event queue.WorkshopEvent) {
	if event.TraceID == nil {
		event.TraceID = logger.TraceID(ctx)
	}
	if err := c.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish workshop event",
			"error", err,
			"event_type", event.Type)
	}
}

func indexOfStep(steps []model.Step, stepID int64) int {
	for i := range steps {
		if steps[i].ID == stepID {
			return i
		}
	}
	return -1
}
