package queue

import "time"

type EventType string

const (
	EventTypeContentSaved      EventType = "content_saved"
	EventTypeStepLocked        EventType = "step_locked"
	EventTypeStepUnlocked      EventType = "step_unlocked"
	EventTypeWorkshopCompleted EventType = "workshop_completed"
	EventTypeWorkshopReopened  EventType = "workshop_reopened"
	EventTypeWorkshopRenamed   EventType = "workshop_renamed"
)

// WorkshopEvent records one piece of workshop activity for downstream
// consumers such as report export or notification fan-out.
type WorkshopEvent struct {
	Type        EventType
	WorkshopID  int64
	StepID      *int64
	CurrentStep int
	TotalSteps  int
	Actor       string
	TraceID     *string
	OccurredAt  time.Time
}
