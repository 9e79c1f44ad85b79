package dto

import (
	"encoding/json"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/session"
)

type DraftRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

type NavigateRequest struct {
	Action string `json:"action" binding:"required,oneof=step next back leave"`
	StepID int64  `json:"step_id,string,omitempty"`
}

type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=save discard cancel"`
}

type ActionResponse struct {
	Kind   string `json:"action"`
	StepID *int64 `json:"step_id,omitempty,string"`
}

type NoticeResponse struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type SessionResponse struct {
	ID             string               `json:"id"`
	Workshop       *WorkshopResponse    `json:"workshop"`
	Steps          []StepResponse       `json:"steps"`
	Progress       progression.Progress `json:"progress"`
	SelectedStepID int64                `json:"selected_step_id,string"`
	Guard          string               `json:"guard"`
	DirtyStepID    *int64               `json:"dirty_step_id,omitempty,string"`
	Pending        *ActionResponse      `json:"pending_action,omitempty"`
	Busy           bool                 `json:"busy"`
	Closed         bool                 `json:"closed"`
	Notices        []NoticeResponse     `json:"notices"`
}

func ToSessionResponse(v session.View) *SessionResponse {
	resp := &SessionResponse{
		ID:             v.ID,
		Workshop:       ToWorkshopResponse(&v.Workshop),
		Steps:          ToStepResponses(v.Effective),
		Progress:       v.Progress,
		SelectedStepID: v.SelectedStepID,
		Guard:          string(v.Guard),
		Busy:           v.Busy,
		Closed:         v.Closed,
		Notices:        make([]NoticeResponse, len(v.Notices)),
	}
	if v.DirtyStepID != 0 {
		resp.DirtyStepID = &v.DirtyStepID
	}
	if v.Pending != nil {
		resp.Pending = &ActionResponse{Kind: string(v.Pending.Kind)}
		if v.Pending.Kind == session.ActionNavigateToStep {
			resp.Pending.StepID = &v.Pending.StepID
		}
	}
	for i, n := range v.Notices {
		resp.Notices[i] = NoticeResponse{Level: string(n.Level), Message: n.Message, At: n.At}
	}
	return resp
}
