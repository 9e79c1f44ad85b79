package dto

import (
	"encoding/json"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
)

type CreateWorkshopRequest struct {
	Name         string   `json:"name" binding:"required,min=1,max=120"`
	WorkspaceID  *int64   `json:"workspace_id,omitempty"`
	Participants []string `json:"participants,omitempty" binding:"omitempty,max=100,dive,max=255"`
	IsPublic     bool     `json:"is_public"`
}

type RenameWorkshopRequest struct {
	Name string `json:"name" binding:"required,min=1,max=120"`
}

type WorkshopResponse struct {
	ID           int64     `json:"id,string"`
	Name         string    `json:"name"`
	CreatedBy    string    `json:"created_by"`
	WorkspaceID  *int64    `json:"workspace_id,omitempty"`
	Participants []string  `json:"participants"`
	IsPublic     bool      `json:"is_public"`
	ShareToken   *string   `json:"share_token,omitempty"`
	Status       string    `json:"status"`
	CurrentStep  int       `json:"current_step"`
	TotalSteps   int       `json:"total_steps"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToWorkshopResponse(w *model.Workshop) *WorkshopResponse {
	return &WorkshopResponse{
		ID:           w.ID,
		Name:         w.Name,
		CreatedBy:    w.CreatedBy,
		WorkspaceID:  w.WorkspaceID,
		Participants: w.Participants,
		IsPublic:     w.IsPublic,
		ShareToken:   w.ShareToken,
		Status:       string(w.Status),
		CurrentStep:  w.CurrentStep,
		TotalSteps:   w.TotalSteps,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

type StepResponse struct {
	ID         int64           `json:"id,string"`
	StepNumber int             `json:"step_number"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Content    json.RawMessage `json:"content"`
	IsLocked   bool            `json:"is_locked"`
	IsCounted  bool            `json:"is_counted"`
	Lockable   bool            `json:"lockable"`
	Editable   bool            `json:"editable"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func ToStepResponse(s model.Step) StepResponse {
	return StepResponse{
		ID:         s.ID,
		StepNumber: s.StepNumber,
		Name:       s.Name,
		Kind:       s.Kind().String(),
		Content:    s.Content,
		IsLocked:   s.IsLocked,
		IsCounted:  s.IsCounted,
		Lockable:   s.Kind().Capabilities().Lockable,
		Editable:   s.Editable(),
		UpdatedAt:  s.UpdatedAt,
	}
}

func ToStepResponses(steps []model.Step) []StepResponse {
	out := make([]StepResponse, len(steps))
	for i, s := range steps {
		out[i] = ToStepResponse(s)
	}
	return out
}

// WorkshopViewResponse carries the effective step list, which includes the
// report step once every counted step is locked.
type WorkshopViewResponse struct {
	Workshop *WorkshopResponse    `json:"workshop"`
	Steps    []StepResponse       `json:"steps"`
	Progress progression.Progress `json:"progress"`
}

func ToWorkshopViewResponse(v *service.WorkshopView) *WorkshopViewResponse {
	return &WorkshopViewResponse{
		Workshop: ToWorkshopResponse(&v.Workshop),
		Steps:    ToStepResponses(v.Effective),
		Progress: v.Progress,
	}
}
