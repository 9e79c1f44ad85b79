package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/id"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

const (
	ShareTokenLength     = 24
	MaxWorkshopNameRunes = 120
)

var (
	ErrInvalidName   = errors.New("workshop name must be between 1 and 120 characters")
	ErrNoPrincipal   = errors.New("no authenticated principal")
	ErrNotAuthorized = errors.New("principal does not take part in this workshop")
)

type CreateWorkshopParams struct {
	Name         string
	WorkspaceID  *int64
	Participants []string
	IsPublic     bool
}

// WorkshopView is a workshop as presented to clients: the persisted steps,
// the effective list derived from them and the recomputed progress.
type WorkshopView struct {
	Workshop  model.Workshop
	Steps     []model.Step
	Effective []model.Step
	Progress  progression.Progress
}

type WorkshopService interface {
	Create(ctx context.Context, principal model.Principal, params CreateWorkshopParams) (*WorkshopView, error)
	Open(ctx context.Context, principal model.Principal, workshopID int64) (*WorkshopView, error)
	Rename(ctx context.Context, principal model.Principal, workshopID int64, name string) (*model.Workshop, error)
}

type workshopService struct {
	steps  store.StepStore
	seeder BootstrapSeeder
	events queue.Producer
	now    func() time.Time
}

func NewWorkshopService(steps store.StepStore, seeder BootstrapSeeder, events queue.Producer) WorkshopService {
	if events == nil {
		events = queue.NewNoopProducer()
	}
	return &workshopService{
		steps:  steps,
		seeder: seeder,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *workshopService) Create(ctx context.Context, principal model.Principal, params CreateWorkshopParams) (*WorkshopView, error) {
	if principal.IsZero() {
		return nil, ErrNoPrincipal
	}
	name, err := normalizeName(params.Name)
	if err != nil {
		return nil, err
	}

	token, err := generateShareToken(ShareTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generating share token: %w", err)
	}

	now := s.now()
	creator := principal.Identity()
	w := &model.Workshop{
		ID:           id.New(),
		Name:         name,
		CreatedBy:    creator,
		WorkspaceID:  params.WorkspaceID,
		Participants: participantsWith(creator, params.Participants),
		IsPublic:     params.IsPublic,
		ShareToken:   &token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	steps := s.seeder.NewSteps(w.ID, now)
	progress := progression.Compute(steps)
	*w = progression.Apply(*w, progress)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkshopID: logger.Ptr(w.ID),
		UserID:     logger.Ptr(creator),
		Component:  "inception.service.workshop",
	})

	if err := s.steps.CreateWorkshopWithSteps(ctx, w, steps); err != nil {
		return nil, fmt.Errorf("creating workshop: %w", err)
	}

	slog.InfoContext(ctx, "workshop created",
		"steps", len(steps),
		"total_steps", w.TotalSteps)

	return &WorkshopView{
		Workshop:  *w,
		Steps:     steps,
		Effective: progression.DeriveEffectiveList(steps, progress.AllComplete),
		Progress:  progress,
	}, nil
}

// Open loads a workshop for display. Progress is always recomputed from the
// steps; a stored aggregate that disagrees, for example after a failed
// second write of a lock toggle, is rewritten best effort.
func (s *workshopService) Open(ctx context.Context, principal model.Principal, workshopID int64) (*WorkshopView, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkshopID: logger.Ptr(workshopID),
		Component:  "inception.service.workshop",
	})

	w, err := s.steps.LoadWorkshop(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("loading workshop: %w", err)
	}
	if err := authorize(w, principal); err != nil {
		return nil, err
	}

	steps, err := s.seeder.EnsureSteps(ctx, w)
	if err != nil {
		return nil, err
	}
	steps = progression.Persisted(steps)

	progress := progression.Compute(steps)
	if !progression.InSync(w, progress) {
		agg := progression.Aggregate(progress, s.now())
		if err := s.steps.UpdateWorkshopAggregate(ctx, w.ID, agg); err != nil {
			slog.WarnContext(ctx, "failed to reconcile stale workshop aggregate",
				"error", err,
				"stored_current_step", w.CurrentStep,
				"current_step", progress.CompletedCount)
		} else {
			slog.InfoContext(ctx, "reconciled stale workshop aggregate",
				"stored_current_step", w.CurrentStep,
				"current_step", progress.CompletedCount,
				"total_steps", progress.TotalCounted)
			agg.Apply(w)
		}
	}

	return &WorkshopView{
		Workshop:  progression.Apply(*w, progress),
		Steps:     steps,
		Effective: progression.DeriveEffectiveList(steps, progress.AllComplete),
		Progress:  progress,
	}, nil
}

func (s *workshopService) Rename(ctx context.Context, principal model.Principal, workshopID int64, name string) (*model.Workshop, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkshopID: logger.Ptr(workshopID),
		Component:  "inception.service.workshop",
	})

	w, err := s.steps.LoadWorkshop(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("loading workshop: %w", err)
	}
	if err := authorize(w, principal); err != nil {
		return nil, err
	}

	if err := s.steps.RenameWorkshop(ctx, workshopID, name); err != nil {
		return nil, fmt.Errorf("renaming workshop: %w", err)
	}
	w.Name = name

	if err := s.events.Publish(ctx, queue.WorkshopEvent{
		Type:        queue.EventTypeWorkshopRenamed,
		WorkshopID:  workshopID,
		CurrentStep: w.CurrentStep,
		TotalSteps:  w.TotalSteps,
		Actor:       principal.Identity(),
		TraceID:     logger.TraceID(ctx),
		OccurredAt:  s.now(),
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish workshop event", "error", err, "event_type", queue.EventTypeWorkshopRenamed)
	}

	slog.InfoContext(ctx, "workshop renamed")
	return w, nil
}

// authorize admits anyone to public workshops and participants to private
// ones. A zero principal is an internal caller and is not checked.
func authorize(w *model.Workshop, principal model.Principal) error {
	if principal.IsZero() || w.IsPublic || w.HasParticipant(principal.Identity()) {
		return nil
	}
	return ErrNotAuthorized
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxWorkshopNameRunes {
		return "", ErrInvalidName
	}
	return name, nil
}

// participantsWith puts the creator first and drops blanks and duplicates.
func participantsWith(creator string, others []string) []string {
	seen := map[string]bool{creator: true}
	out := []string{creator}
	for _, p := range others {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func generateShareToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
