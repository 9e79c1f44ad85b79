package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

// MemoryStore keeps workshop documents in process memory. Every read returns
// deep copies so callers can never mutate stored state in place.
type MemoryStore struct {
	mu        sync.RWMutex
	workshops map[int64]model.Workshop
	steps     map[int64]map[int64]model.Step
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workshops: make(map[int64]model.Workshop),
		steps:     make(map[int64]map[int64]model.Step),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) LoadWorkshop(_ context.Context, id int64) (*model.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workshops[id]
	if !ok {
		return nil, ErrNotFound
	}
	w = cloneWorkshop(w)
	return &w, nil
}

func (s *MemoryStore) LoadSteps(_ context.Context, workshopID int64) ([]model.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedSteps(workshopID), nil
}

func (s *MemoryStore) CreateWorkshopWithSteps(_ context.Context, workshop *model.Workshop, steps []model.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workshops[workshop.ID]; exists {
		return ErrAlreadyExists
	}

	s.workshops[workshop.ID] = cloneWorkshop(*workshop)
	byID := make(map[int64]model.Step, len(steps))
	for _, st := range steps {
		byID[st.ID] = st.Clone()
	}
	s.steps[workshop.ID] = byID
	return nil
}

func (s *MemoryStore) SeedSteps(_ context.Context, workshopID int64, steps []model.Step) ([]model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workshops[workshopID]; !ok {
		return nil, ErrNotFound
	}
	if len(s.steps[workshopID]) > 0 {
		return s.sortedSteps(workshopID), nil
	}

	byID := make(map[int64]model.Step, len(steps))
	for _, st := range steps {
		byID[st.ID] = st.Clone()
	}
	s.steps[workshopID] = byID
	return s.sortedSteps(workshopID), nil
}

func (s *MemoryStore) UpdateStepContent(_ context.Context, workshopID, stepID int64, content json.RawMessage) error {
	return s.updateStep(workshopID, stepID, func(st *model.Step) {
		st.Content = model.CloneContent(content)
	})
}

func (s *MemoryStore) UpdateStepLock(_ context.Context, workshopID, stepID int64, locked bool) error {
	return s.updateStep(workshopID, stepID, func(st *model.Step) {
		st.IsLocked = locked
	})
}

func (s *MemoryStore) UpdateWorkshopAggregate(_ context.Context, id int64, agg model.WorkshopAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workshops[id]
	if !ok {
		return ErrNotFound
	}
	if agg.UpdatedAt.IsZero() {
		agg.UpdatedAt = s.now()
	}
	agg.Apply(&w)
	s.workshops[id] = w
	return nil
}

func (s *MemoryStore) RenameWorkshop(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workshops[id]
	if !ok {
		return ErrNotFound
	}
	w.Name = name
	w.UpdatedAt = s.now()
	s.workshops[id] = w
	return nil
}

func (s *MemoryStore) updateStep(workshopID, stepID int64, mutate func(st *model.Step)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.steps[workshopID][stepID]
	if !ok {
		return ErrNotFound
	}
	mutate(&st)
	st.UpdatedAt = s.now()
	s.steps[workshopID][stepID] = st
	return nil
}

func (s *MemoryStore) sortedSteps(workshopID int64) []model.Step {
	byID := s.steps[workshopID]
	out := make([]model.Step, 0, len(byID))
	for _, st := range byID {
		out = append(out, st.Clone())
	}
	sortSteps(out)
	return out
}

func sortSteps(steps []model.Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})
}

func cloneWorkshop(w model.Workshop) model.Workshop {
	if w.Participants != nil {
		w.Participants = append([]string(nil), w.Participants...)
	}
	if w.WorkspaceID != nil {
		v := *w.WorkspaceID
		w.WorkspaceID = &v
	}
	if w.ShareToken != nil {
		v := *w.ShareToken
		w.ShareToken = &v
	}
	return w
}
