package service_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

// mockStepStore delegates to an in-memory store unless a function field
// overrides the call.
type mockStepStore struct {
	inner *store.MemoryStore

	loadWorkshopFn    func(ctx context.Context, id int64) (*model.Workshop, error)
	loadStepsFn       func(ctx context.Context, workshopID int64) ([]model.Step, error)
	seedStepsFn       func(ctx context.Context, workshopID int64, steps []model.Step) ([]model.Step, error)
	updateContentFn   func(ctx context.Context, workshopID, stepID int64, content json.RawMessage) error
	updateLockFn      func(ctx context.Context, workshopID, stepID int64, locked bool) error
	updateAggregateFn func(ctx context.Context, id int64, agg model.WorkshopAggregate) error

	mu             sync.Mutex
	seedCalls      int
	lockCalls      int
	contentCalls   int
	aggregateCalls []model.WorkshopAggregate
}

func newMockStepStore() *mockStepStore {
	return &mockStepStore{inner: store.NewMemoryStore()}
}

func (m *mockStepStore) LoadWorkshop(ctx context.Context, id int64) (*model.Workshop, error) {
	if m.loadWorkshopFn != nil {
		return m.loadWorkshopFn(ctx, id)
	}
	return m.inner.LoadWorkshop(ctx, id)
}

func (m *mockStepStore) LoadSteps(ctx context.Context, workshopID int64) ([]model.Step, error) {
	if m.loadStepsFn != nil {
		return m.loadStepsFn(ctx, workshopID)
	}
	return m.inner.LoadSteps(ctx, workshopID)
}

func (m *mockStepStore) CreateWorkshopWithSteps(ctx context.Context, workshop *model.Workshop, steps []model.Step) error {
	return m.inner.CreateWorkshopWithSteps(ctx, workshop, steps)
}

func (m *mockStepStore) SeedSteps(ctx context.Context, workshopID int64, steps []model.Step) ([]model.Step, error) {
	m.mu.Lock()
	m.seedCalls++
	m.mu.Unlock()
	if m.seedStepsFn != nil {
		return m.seedStepsFn(ctx, workshopID, steps)
	}
	return m.inner.SeedSteps(ctx, workshopID, steps)
}

func (m *mockStepStore) UpdateStepContent(ctx context.Context, workshopID, stepID int64, content json.RawMessage) error {
	m.mu.Lock()
	m.contentCalls++
	m.mu.Unlock()
	if m.updateContentFn != nil {
		return m.updateContentFn(ctx, workshopID, stepID, content)
	}
	return m.inner.UpdateStepContent(ctx, workshopID, stepID, content)
}

func (m *mockStepStore) UpdateStepLock(ctx context.Context, workshopID, stepID int64, locked bool) error {
	m.mu.Lock()
	m.lockCalls++
	m.mu.Unlock()
	if m.updateLockFn != nil {
		return m.updateLockFn(ctx, workshopID, stepID, locked)
	}
	return m.inner.UpdateStepLock(ctx, workshopID, stepID, locked)
}

func (m *mockStepStore) UpdateWorkshopAggregate(ctx context.Context, id int64, agg model.WorkshopAggregate) error {
	m.mu.Lock()
	m.aggregateCalls = append(m.aggregateCalls, agg)
	m.mu.Unlock()
	if m.updateAggregateFn != nil {
		return m.updateAggregateFn(ctx, id, agg)
	}
	return m.inner.UpdateWorkshopAggregate(ctx, id, agg)
}

func (m *mockStepStore) RenameWorkshop(ctx context.Context, id int64, name string) error {
	return m.inner.RenameWorkshop(ctx, id, name)
}

type mockProducer struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, event queue.WorkshopEvent) error
	events    []queue.WorkshopEvent
}

func (m *mockProducer) Publish(ctx context.Context, event queue.WorkshopEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) types() []queue.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
