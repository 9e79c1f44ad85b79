package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/id"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/catalog"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

// BootstrapSeeder clones the default catalog into a workshop's steps.
type BootstrapSeeder interface {
	// NewSteps builds unsaved steps for a brand-new workshop.
	NewSteps(workshopID int64, now time.Time) []model.Step
	// EnsureSteps loads the workshop's steps, seeding them first when there are none.
	EnsureSteps(ctx context.Context, workshop *model.Workshop) ([]model.Step, error)
}

type bootstrapSeeder struct {
	steps   store.StepStore
	catalog *catalog.Catalog
	now     func() time.Time

	// Collapses concurrent first loads of one workshop into a single seed.
	// Seeders in other processes are absorbed by the store's existence check.
	inflight singleflight.Group
}

func NewBootstrapSeeder(steps store.StepStore, cat *catalog.Catalog) BootstrapSeeder {
	return &bootstrapSeeder{
		steps:   steps,
		catalog: cat,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *bootstrapSeeder) NewSteps(workshopID int64, now time.Time) []model.Step {
	return s.catalog.Steps(workshopID, now, id.New)
}

func (s *bootstrapSeeder) EnsureSteps(ctx context.Context, workshop *model.Workshop) ([]model.Step, error) {
	steps, err := s.steps.LoadSteps(ctx, workshop.ID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	if len(steps) > 0 {
		return steps, nil
	}

	// Callers that join the seed share its result, so one caller going away
	// must not cancel it for the rest.
	seedCtx := context.WithoutCancel(ctx)
	v, err, shared := s.inflight.Do(id.Key(workshop.ID), func() (any, error) {
		seeded, err := s.steps.SeedSteps(seedCtx, workshop.ID, s.NewSteps(workshop.ID, s.now()))
		if err != nil {
			return nil, err
		}
		slog.InfoContext(seedCtx, "workshop steps bootstrapped",
			"workshop_id", workshop.ID,
			"steps", len(seeded))
		return seeded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("seeding steps: %w", err)
	}
	if shared {
		slog.DebugContext(ctx, "joined in-flight bootstrap", "workshop_id", workshop.ID)
	}

	return model.CloneSteps(v.([]model.Step)), nil
}
