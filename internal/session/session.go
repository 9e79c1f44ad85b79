// Package session holds the editing state of one client over one workshop:
// the loaded steps, the selected step, the dirty guard and the notices that
// report failures back to the user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

var (
	ErrDirty             = errors.New("the open step has unsaved changes")
	ErrBusy              = errors.New("a save is already in progress")
	ErrNoPendingDecision = errors.New("no navigation is waiting for a decision")
	ErrDecisionPending   = errors.New("a navigation is waiting for a decision")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownDecision   = errors.New("unknown decision")
	ErrNoSelection       = errors.New("no step is selected")
	ErrClosed            = errors.New("session has left the workshop")
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message. Each is delivered by exactly one snapshot.
type Notice struct {
	Level   NoticeLevel
	Message string
	At      time.Time
}

// View is a consistent copy of the session state.
type View struct {
	ID             string
	Workshop       model.Workshop
	Effective      []model.Step
	Progress       progression.Progress
	SelectedStepID int64
	Guard          GuardState
	DirtyStepID    int64
	Pending        *Action
	Busy           bool
	Closed         bool
	Notices        []Notice
}

type Dependencies struct {
	Workshops   service.WorkshopService
	Coordinator service.SaveCoordinator
}

type Session struct {
	id        string
	principal model.Principal
	deps      Dependencies
	now       func() time.Time

	mu         sync.Mutex
	busy       bool
	closed     bool
	workshop   model.Workshop
	steps      []model.Step
	effective  []model.Step
	progress   progression.Progress
	selected   int64
	guard      *DirtyStateGuard
	notices    []Notice
	lastActive time.Time
}

// Open loads the workshop, bootstrapping its steps when needed, and selects
// the first step.
func Open(ctx context.Context, deps Dependencies, principal model.Principal, workshopID int64) (*Session, error) {
	sid := uuid.NewString()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sid),
		Component: "inception.session",
	})

	view, err := deps.Workshops.Open(ctx, principal, workshopID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        sid,
		principal: principal,
		deps:      deps,
		now:       time.Now,
		workshop:  view.Workshop,
		steps:     view.Steps,
		effective: view.Effective,
		progress:  view.Progress,
		guard:     NewDirtyStateGuard(),
	}
	if len(s.effective) > 0 {
		s.selected = s.effective[0].ID
	}
	s.lastActive = s.now()

	slog.InfoContext(ctx, "workshop session opened",
		"workshop_id", workshopID,
		"steps", len(s.steps),
		"status", s.workshop.Status)
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Authorize admits only the principal that opened the session.
func (s *Session) Authorize(principal model.Principal) error {
	if principal.Identity() != s.principal.Identity() {
		return service.ErrNotAuthorized
	}
	return nil
}

func (s *Session) WorkshopID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workshop.ID
}

// Snapshot returns the current state and drains pending notices.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		Workshop:       s.workshop,
		Effective:      model.CloneSteps(s.effective),
		Progress:       s.progress,
		SelectedStepID: s.selected,
		Guard:          s.guard.State(),
		DirtyStepID:    s.guard.StepID(),
		Busy:           s.busy,
		Closed:         s.closed,
		Notices:        s.notices,
	}
	v.Workshop.Participants = append([]string(nil), s.workshop.Participants...)
	if a, ok := s.guard.Pending(); ok {
		v.Pending = &a
	}
	s.notices = nil
	return v
}

func (s *Session) Select(stepID int64) error { return s.Navigate(NavigateToStep(stepID)) }

func (s *Session) Next() error { return s.Navigate(NavigateNext()) }

func (s *Session) Prev() error { return s.Navigate(NavigateBack()) }

func (s *Session) Leave() error { return s.Navigate(LeaveWorkshop()) }

// Navigate runs a immediately when there are no unsaved edits. Otherwise it
// is deferred and the session waits for Decide.
func (s *Session) Navigate(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if s.guard.State() == GuardPendingDecision {
		return ErrDecisionPending
	}
	if a.Kind == ActionNavigateToStep && s.indexOf(a.StepID) < 0 {
		return service.ErrStepNotFound
	}
	if s.guard.Request(a) {
		s.dispatch(a)
	}
	return nil
}

// Edit replaces the draft content of the selected step. Locked and
// non-editable steps are left untouched.
func (s *Session) Edit(content json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if s.guard.State() == GuardPendingDecision {
		return ErrDecisionPending
	}
	idx := s.stepIndex(s.selected)
	if idx < 0 {
		if s.indexOf(s.selected) >= 0 {
			// the report step
			return service.ErrStepNotEditable
		}
		return ErrNoSelection
	}
	if !s.guard.Edit(s.steps[idx], content) {
		return service.ErrStepNotEditable
	}
	s.steps[idx].Content = s.guard.Draft()
	s.refresh()
	return nil
}

// Save persists the draft of the open step. With a navigation pending it
// behaves like Decide(DecisionSave).
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if s.guard.IsClean() {
		return nil
	}
	return s.save(ctx)
}

// Decide resolves the navigation deferred by unsaved edits.
func (s *Session) Decide(ctx context.Context, d Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if s.guard.State() != GuardPendingDecision {
		return ErrNoPendingDecision
	}

	switch d {
	case DecisionSave:
		return s.save(ctx)
	case DecisionDiscard:
		stepID, baseline, pending := s.guard.Discard()
		if idx := s.stepIndex(stepID); idx >= 0 {
			s.steps[idx].Content = baseline
		}
		s.refresh()
		if pending != nil {
			s.dispatch(*pending)
		}
		return nil
	case DecisionCancel:
		s.guard.Cancel()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDecision, d)
	}
}

// ToggleLock locks or unlocks a step. It is refused with a warning while any
// step has unsaved edits.
func (s *Session) ToggleLock(ctx context.Context, stepID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if !s.guard.IsClean() {
		s.notify(NoticeWarning, "Save or discard your changes before locking or unlocking a step.")
		return ErrDirty
	}

	ctx = s.logContext(ctx, stepID)
	workshop, steps := s.workshop, s.steps

	s.busy = true
	s.mu.Unlock()
	result, err := s.deps.Coordinator.ToggleLock(ctx, s.principal, &workshop, steps, stepID)
	s.mu.Lock()
	s.busy = false
	s.lastActive = s.now()

	if result != nil {
		s.workshop = result.Workshop
		s.steps = result.Steps
		s.effective = result.Effective
		s.progress = result.Progress
		if s.indexOf(s.selected) < 0 && len(s.effective) > 0 {
			s.selected = s.effective[len(s.effective)-1].ID
		}
	}
	if err != nil {
		s.fail(ctx, "Could not update the step lock", err)
		return err
	}
	return nil
}

func (s *Session) Rename(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	ctx = s.logContext(ctx, 0)
	workshopID := s.workshop.ID

	s.busy = true
	s.mu.Unlock()
	w, err := s.deps.Workshops.Rename(ctx, s.principal, workshopID, name)
	s.mu.Lock()
	s.busy = false
	s.lastActive = s.now()

	if err != nil {
		s.fail(ctx, "Could not rename the workshop", err)
		return err
	}
	s.workshop.Name = w.Name
	return nil
}

func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && s.lastActive.Before(cutoff)
}

// save writes the draft. Called with mu held; releases it during I/O.
func (s *Session) save(ctx context.Context) error {
	idx := s.stepIndex(s.guard.StepID())
	if idx < 0 {
		return ErrNoSelection
	}

	ctx = s.logContext(ctx, s.steps[idx].ID)
	workshop := s.workshop
	step := s.steps[idx].Clone()
	step.Content = s.guard.Baseline()
	draft := s.guard.Draft()

	s.busy = true
	s.mu.Unlock()
	result, err := s.deps.Coordinator.SaveContent(ctx, s.principal, &workshop, step, draft)
	s.mu.Lock()
	s.busy = false
	s.lastActive = s.now()

	if result == nil {
		s.fail(ctx, "Could not save your changes", err)
		return err
	}

	// The content is stored even when the timestamp update after it failed.
	s.workshop = result.Workshop
	if idx = s.stepIndex(result.Step.ID); idx >= 0 {
		s.steps[idx] = result.Step
	}
	s.refresh()
	pending, hasPending := s.guard.Saved()

	if err != nil {
		s.fail(ctx, "Changes saved, but the workshop could not be updated", err)
	}
	if hasPending {
		s.dispatch(pending)
	}
	return err
}

// dispatch executes a resolved action. Called with mu held.
func (s *Session) dispatch(a Action) {
	s.lastActive = s.now()
	cur := s.indexOf(s.selected)

	switch a.Kind {
	case ActionNavigateToStep:
		if s.indexOf(a.StepID) >= 0 {
			s.selected = a.StepID
		}
	case ActionNavigateNext:
		if cur >= 0 && cur+1 < len(s.effective) {
			s.selected = s.effective[cur+1].ID
		}
	case ActionNavigateBack:
		if cur > 0 {
			s.selected = s.effective[cur-1].ID
		}
	case ActionLeaveWorkshop:
		s.closed = true
	}
}

func (s *Session) ready() error {
	if s.closed {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	return nil
}

func (s *Session) refresh() {
	s.effective = progression.DeriveEffectiveList(s.steps, s.progress.AllComplete)
}

func (s *Session) notify(level NoticeLevel, msg string) {
	s.notices = append(s.notices, Notice{Level: level, Message: msg, At: s.now()})
}

func (s *Session) fail(ctx context.Context, msg string, err error) {
	slog.ErrorContext(ctx, msg, "error", err)

	level := NoticeError
	switch {
	case errors.Is(err, service.ErrAggregateStale):
		level = NoticeWarning
	case errors.Is(err, store.ErrPermissionDenied):
		msg += ": you do not have permission"
	case errors.Is(err, store.ErrNotFound):
		msg += ": it no longer exists"
	}
	s.notify(level, msg+".")
}

func (s *Session) logContext(ctx context.Context, stepID int64) context.Context {
	fields := logger.LogFields{
		WorkshopID: logger.Ptr(s.workshop.ID),
		SessionID:  logger.Ptr(s.id),
		Component:  "inception.session",
	}
	if stepID != 0 {
		fields.StepID = logger.Ptr(stepID)
	}
	if !s.principal.IsZero() {
		fields.UserID = logger.Ptr(s.principal.Identity())
	}
	return logger.WithLogFields(ctx, fields)
}

// indexOf searches the effective list, which may include the report step.
func (s *Session) indexOf(stepID int64) int {
	for i := range s.effective {
		if s.effective[i].ID == stepID {
			return i
		}
	}
	return -1
}

func (s *Session) stepIndex(stepID int64) int {
	for i := range s.steps {
		if s.steps[i].ID == stepID {
			return i
		}
	}
	return -1
}
