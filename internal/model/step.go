package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// EmptyContent is the content every freshly seeded step starts with.
var EmptyContent = json.RawMessage(`{}`)

// Step is one page of the workshop. Content is owned by the template editor
// registered for the step's name and is never interpreted here.
type Step struct {
	ID         int64           `json:"id"`
	WorkshopID int64           `json:"workshop_id"`
	StepNumber int             `json:"step_number"`
	Name       string          `json:"name"`
	Content    json.RawMessage `json:"content"`
	IsLocked   bool            `json:"is_locked"`
	IsCounted  bool            `json:"is_counted"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s Step) Kind() StepKind {
	return KindForName(s.Name)
}

// Editable reports whether content edits are accepted right now.
func (s Step) Editable() bool {
	return s.Kind().Capabilities().Editable && !s.IsLocked
}

// Clone returns a copy whose content does not alias the original.
func (s Step) Clone() Step {
	s.Content = CloneContent(s.Content)
	return s
}

func CloneContent(content json.RawMessage) json.RawMessage {
	if content == nil {
		return nil
	}
	out := make(json.RawMessage, len(content))
	copy(out, content)
	return out
}

// ContentEqual compares two content blobs semantically, ignoring whitespace
// and key order differences introduced by stores that re-encode JSON.
func ContentEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	ca, errA := json.Marshal(va)
	cb, errB := json.Marshal(vb)
	return errA == nil && errB == nil && bytes.Equal(ca, cb)
}

// CloneSteps deep-copies a step list.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
