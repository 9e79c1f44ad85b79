package session

import (
	"fmt"
	"strconv"
)

type ActionKind string

const (
	ActionNavigateToStep ActionKind = "step"
	ActionNavigateNext   ActionKind = "next"
	ActionNavigateBack   ActionKind = "back"
	ActionLeaveWorkshop  ActionKind = "leave"
)

// Action is a navigation request. While the open step has unsaved edits it is
// held by the guard and run by the session's dispatcher once resolved.
type Action struct {
	Kind   ActionKind
	StepID int64 // only for ActionNavigateToStep
}

func NavigateToStep(stepID int64) Action {
	return Action{Kind: ActionNavigateToStep, StepID: stepID}
}

func NavigateNext() Action { return Action{Kind: ActionNavigateNext} }

func NavigateBack() Action { return Action{Kind: ActionNavigateBack} }

func LeaveWorkshop() Action { return Action{Kind: ActionLeaveWorkshop} }

// ParseAction builds an action from its wire form.
func ParseAction(kind string, stepID int64) (Action, error) {
	switch ActionKind(kind) {
	case ActionNavigateToStep:
		return NavigateToStep(stepID), nil
	case ActionNavigateNext:
		return NavigateNext(), nil
	case ActionNavigateBack:
		return NavigateBack(), nil
	case ActionLeaveWorkshop:
		return LeaveWorkshop(), nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

func (a Action) String() string {
	if a.Kind == ActionNavigateToStep {
		return string(a.Kind) + ":" + strconv.FormatInt(a.StepID, 10)
	}
	return string(a.Kind)
}
