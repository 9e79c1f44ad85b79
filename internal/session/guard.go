package session

import (
	"encoding/json"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

type GuardState string

const (
	GuardClean           GuardState = "clean"
	GuardDirty           GuardState = "dirty"
	GuardPendingDecision GuardState = "pending_decision"
)

type Decision string

const (
	DecisionSave    Decision = "save"
	DecisionDiscard Decision = "discard"
	DecisionCancel  Decision = "cancel"
)

// DirtyStateGuard tracks unsaved edits on the open step and holds at most one
// navigation deferred until the user decides what to do with them.
// Transitions never fail; the guard does no I/O.
type DirtyStateGuard struct {
	state    GuardState
	stepID   int64
	baseline json.RawMessage
	draft    json.RawMessage
	pending  *Action
}

func NewDirtyStateGuard() *DirtyStateGuard {
	return &DirtyStateGuard{state: GuardClean}
}

func (g *DirtyStateGuard) State() GuardState { return g.state }

func (g *DirtyStateGuard) IsClean() bool { return g.state == GuardClean }

// StepID is the step holding unsaved edits, or 0 when clean.
func (g *DirtyStateGuard) StepID() int64 { return g.stepID }

func (g *DirtyStateGuard) Draft() json.RawMessage { return model.CloneContent(g.draft) }

// Baseline is the last persisted content of the dirty step.
func (g *DirtyStateGuard) Baseline() json.RawMessage { return model.CloneContent(g.baseline) }

func (g *DirtyStateGuard) Pending() (Action, bool) {
	if g.pending == nil {
		return Action{}, false
	}
	return *g.pending, true
}

// Edit records new content for step and reports whether it was accepted.
// Locked and non-editable steps are ignored and the state is unchanged, as
// are edits while a decision is pending.
func (g *DirtyStateGuard) Edit(step model.Step, content json.RawMessage) bool {
	if !step.Editable() || g.state == GuardPendingDecision {
		return false
	}
	if g.state == GuardDirty && g.stepID != step.ID {
		return false
	}
	if g.state == GuardClean {
		g.stepID = step.ID
		g.baseline = model.CloneContent(step.Content)
	}
	g.draft = model.CloneContent(content)
	g.state = GuardDirty
	return true
}

// Request reports whether a can run now. When dirty, a is deferred and the
// guard waits for a decision; a request made while one is already pending is
// refused and the first one kept.
func (g *DirtyStateGuard) Request(a Action) bool {
	switch g.state {
	case GuardClean:
		return true
	case GuardDirty:
		g.pending = &a
		g.state = GuardPendingDecision
	}
	return false
}

// Saved marks the draft as persisted and hands back the deferred action.
func (g *DirtyStateGuard) Saved() (Action, bool) {
	return g.reset()
}

// Discard drops the draft. It returns the step id and the content to restore,
// plus the deferred action.
func (g *DirtyStateGuard) Discard() (int64, json.RawMessage, *Action) {
	stepID, baseline := g.stepID, g.Baseline()
	a, ok := g.reset()
	if !ok {
		return stepID, baseline, nil
	}
	return stepID, baseline, &a
}

// Cancel abandons the deferred action and keeps the edits.
func (g *DirtyStateGuard) Cancel() {
	if g.state != GuardPendingDecision {
		return
	}
	g.pending = nil
	g.state = GuardDirty
}

func (g *DirtyStateGuard) reset() (Action, bool) {
	pending := g.pending
	*g = DirtyStateGuard{state: GuardClean}
	if pending == nil {
		return Action{}, false
	}
	return *pending, true
}
