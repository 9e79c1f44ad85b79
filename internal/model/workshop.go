package model

import "time"

type WorkshopStatus string

const (
	WorkshopStatusInProgress WorkshopStatus = "in_progress"
	WorkshopStatusCompleted  WorkshopStatus = "completed"
)

type Workshop struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	CreatedBy    string         `json:"created_by"`
	WorkspaceID  *int64         `json:"workspace_id,omitempty"`
	Participants []string       `json:"participants"`
	IsPublic     bool           `json:"is_public"`
	ShareToken   *string        `json:"share_token,omitempty"`
	Status       WorkshopStatus `json:"status"`
	CurrentStep  int            `json:"current_step"`
	TotalSteps   int            `json:"total_steps"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// HasParticipant reports whether the principal takes part in the workshop.
func (w *Workshop) HasParticipant(principal string) bool {
	if w.CreatedBy == principal {
		return true
	}
	for _, p := range w.Participants {
		if p == principal {
			return true
		}
	}
	return false
}

// WorkshopAggregate is a partial update of the workshop's progress fields.
// Nil fields are left untouched by the store.
type WorkshopAggregate struct {
	Status      *WorkshopStatus
	CurrentStep *int
	TotalSteps  *int
	UpdatedAt   time.Time
}

// Apply copies the set fields of the aggregate onto the workshop.
func (a WorkshopAggregate) Apply(w *Workshop) {
	if a.Status != nil {
		w.Status = *a.Status
	}
	if a.CurrentStep != nil {
		w.CurrentStep = *a.CurrentStep
	}
	if a.TotalSteps != nil {
		w.TotalSteps = *a.TotalSteps
	}
	if !a.UpdatedAt.IsZero() {
		w.UpdatedAt = a.UpdatedAt
	}
}
