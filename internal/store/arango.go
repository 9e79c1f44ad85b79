package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/arangodb"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/id"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

// Snowflake ids exceed the integer range of JSON doubles, so every id is
// stored as a string key.
type arangoWorkshop struct {
	Key          string               `json:"_key"`
	Name         string               `json:"name"`
	CreatedBy    string               `json:"created_by"`
	WorkspaceKey *string              `json:"workspace_key,omitempty"`
	Participants []string             `json:"participants"`
	IsPublic     bool                 `json:"is_public"`
	ShareToken   *string              `json:"share_token,omitempty"`
	Status       model.WorkshopStatus `json:"status"`
	CurrentStep  int                  `json:"current_step"`
	TotalSteps   int                  `json:"total_steps"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type arangoStep struct {
	Key         string          `json:"_key"`
	WorkshopKey string          `json:"workshop_key"`
	StepNumber  int             `json:"step_number"`
	Name        string          `json:"name"`
	Content     json.RawMessage `json:"content"`
	IsLocked    bool            `json:"is_locked"`
	IsCounted   bool            `json:"is_counted"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type arangoStore struct {
	client arangodb.Client
	now    func() time.Time
}

func NewArangoStore(client arangodb.Client) StepStore {
	return &arangoStore{client: client, now: func() time.Time { return time.Now().UTC() }}
}

func (s *arangoStore) LoadWorkshop(ctx context.Context, workshopID int64) (*model.Workshop, error) {
	const query = `
		FOR w IN workshops
			FILTER w._key == @key
			LIMIT 1
			RETURN w
	`

	var docs []arangoWorkshop
	if err := s.readAll(ctx, query, map[string]any{"key": id.Key(workshopID)}, func() any {
		docs = append(docs, arangoWorkshop{})
		return &docs[len(docs)-1]
	}); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return fromArangoWorkshop(docs[0])
}

func (s *arangoStore) LoadSteps(ctx context.Context, workshopID int64) ([]model.Step, error) {
	const query = `
		FOR s IN workshop_steps
			FILTER s.workshop_key == @workshop
			SORT s.step_number ASC
			RETURN s
	`

	var docs []arangoStep
	if err := s.readAll(ctx, query, map[string]any{"workshop": id.Key(workshopID)}, func() any {
		docs = append(docs, arangoStep{})
		return &docs[len(docs)-1]
	}); err != nil {
		return nil, err
	}

	steps := make([]model.Step, 0, len(docs))
	for _, d := range docs {
		st, err := fromArangoStep(d)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func (s *arangoStore) CreateWorkshopWithSteps(ctx context.Context, workshop *model.Workshop, steps []model.Step) error {
	const query = `
		LET created = FIRST(INSERT @workshop INTO workshops RETURN NEW._key)
		FOR s IN @steps
			INSERT s INTO workshop_steps
			RETURN NEW._key
	`

	err := s.exec(ctx, query, map[string]any{
		"workshop": toArangoWorkshop(workshop),
		"steps":    toArangoSteps(steps),
	})
	if arangodb.IsConflict(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *arangoStore) SeedSteps(ctx context.Context, workshopID int64, steps []model.Step) ([]model.Step, error) {
	if _, err := s.LoadWorkshop(ctx, workshopID); err != nil {
		return nil, err
	}

	// The existence check covers seeders that arrive after this one finished.
	// Two statements racing past it collide on the unique step number index;
	// the loser's statement aborts as a whole and it reads the winner's steps.
	const query = `
		LET existing = (
			FOR s IN workshop_steps
				FILTER s.workshop_key == @workshop
				LIMIT 1
				RETURN 1
		)
		FOR s IN (LENGTH(existing) == 0 ? @steps : [])
			INSERT s INTO workshop_steps
			RETURN NEW._key
	`

	err := s.exec(ctx, query, map[string]any{
		"workshop": id.Key(workshopID),
		"steps":    toArangoSteps(steps),
	})
	if err != nil && !arangodb.IsConflict(err) {
		return nil, err
	}
	return s.LoadSteps(ctx, workshopID)
}

func (s *arangoStore) UpdateStepContent(ctx context.Context, workshopID, stepID int64, content json.RawMessage) error {
	return s.updateStep(ctx, workshopID, stepID, map[string]any{
		"content":    content,
		"updated_at": s.now(),
	})
}

func (s *arangoStore) UpdateStepLock(ctx context.Context, workshopID, stepID int64, locked bool) error {
	return s.updateStep(ctx, workshopID, stepID, map[string]any{
		"is_locked":  locked,
		"updated_at": s.now(),
	})
}

func (s *arangoStore) UpdateWorkshopAggregate(ctx context.Context, workshopID int64, agg model.WorkshopAggregate) error {
	updatedAt := agg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	patch := map[string]any{"updated_at": updatedAt}
	if agg.Status != nil {
		patch["status"] = *agg.Status
	}
	if agg.CurrentStep != nil {
		patch["current_step"] = *agg.CurrentStep
	}
	if agg.TotalSteps != nil {
		patch["total_steps"] = *agg.TotalSteps
	}
	return s.updateWorkshop(ctx, workshopID, patch)
}

func (s *arangoStore) RenameWorkshop(ctx context.Context, workshopID int64, name string) error {
	return s.updateWorkshop(ctx, workshopID, map[string]any{
		"name":       name,
		"updated_at": s.now(),
	})
}

func (s *arangoStore) updateWorkshop(ctx context.Context, workshopID int64, patch map[string]any) error {
	const query = `
		FOR w IN workshops
			FILTER w._key == @key
			UPDATE w WITH @patch IN workshops
			RETURN NEW._key
	`
	return s.updateOne(ctx, query, map[string]any{"key": id.Key(workshopID), "patch": patch})
}

// mergeObjects is off so a new content blob replaces the old one instead of
// being deep-merged into it.
func (s *arangoStore) updateStep(ctx context.Context, workshopID, stepID int64, patch map[string]any) error {
	const query = `
		FOR s IN workshop_steps
			FILTER s._key == @key AND s.workshop_key == @workshop
			UPDATE s WITH @patch IN workshop_steps OPTIONS { mergeObjects: false }
			RETURN NEW._key
	`
	return s.updateOne(ctx, query, map[string]any{
		"key":      id.Key(stepID),
		"workshop": id.Key(workshopID),
		"patch":    patch,
	})
}

func (s *arangoStore) updateOne(ctx context.Context, query string, bindVars map[string]any) error {
	var keys []string
	if err := s.readAll(ctx, query, bindVars, func() any {
		keys = append(keys, "")
		return &keys[len(keys)-1]
	}); err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *arangoStore) exec(ctx context.Context, query string, bindVars map[string]any) error {
	return s.readAll(ctx, query, bindVars, func() any {
		var discard json.RawMessage
		return &discard
	})
}

// readAll drains a cursor, asking next for a fresh destination per document.
func (s *arangoStore) readAll(ctx context.Context, query string, bindVars map[string]any, next func() any) error {
	cursor, err := s.client.Query(ctx, query, bindVars)
	if err != nil {
		return mapArangoError(err)
	}
	defer cursor.Close()

	for cursor.HasMore() {
		if err := cursor.ReadDocument(ctx, next()); err != nil {
			return mapArangoError(err)
		}
	}
	return nil
}

func mapArangoError(err error) error {
	if arangodb.IsForbidden(err) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

func toArangoWorkshop(w *model.Workshop) arangoWorkshop {
	doc := arangoWorkshop{
		Key:          id.Key(w.ID),
		Name:         w.Name,
		CreatedBy:    w.CreatedBy,
		Participants: w.Participants,
		IsPublic:     w.IsPublic,
		ShareToken:   w.ShareToken,
		Status:       w.Status,
		CurrentStep:  w.CurrentStep,
		TotalSteps:   w.TotalSteps,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
	if w.WorkspaceID != nil {
		key := id.Key(*w.WorkspaceID)
		doc.WorkspaceKey = &key
	}
	if doc.Participants == nil {
		doc.Participants = []string{}
	}
	return doc
}

func fromArangoWorkshop(doc arangoWorkshop) (*model.Workshop, error) {
	workshopID, err := id.Parse(doc.Key)
	if err != nil {
		return nil, fmt.Errorf("decode workshop key %q: %w", doc.Key, err)
	}
	w := &model.Workshop{
		ID:           workshopID,
		Name:         doc.Name,
		CreatedBy:    doc.CreatedBy,
		Participants: doc.Participants,
		IsPublic:     doc.IsPublic,
		ShareToken:   doc.ShareToken,
		Status:       doc.Status,
		CurrentStep:  doc.CurrentStep,
		TotalSteps:   doc.TotalSteps,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.WorkspaceKey != nil {
		workspaceID, err := id.Parse(*doc.WorkspaceKey)
		if err != nil {
			return nil, fmt.Errorf("decode workspace key %q: %w", *doc.WorkspaceKey, err)
		}
		w.WorkspaceID = &workspaceID
	}
	return w, nil
}

func toArangoSteps(steps []model.Step) []arangoStep {
	docs := make([]arangoStep, len(steps))
	for i, st := range steps {
		docs[i] = arangoStep{
			Key:         id.Key(st.ID),
			WorkshopKey: id.Key(st.WorkshopID),
			StepNumber:  st.StepNumber,
			Name:        st.Name,
			Content:     st.Content,
			IsLocked:    st.IsLocked,
			IsCounted:   st.IsCounted,
			UpdatedAt:   st.UpdatedAt,
		}
	}
	return docs
}

func fromArangoStep(doc arangoStep) (model.Step, error) {
	stepID, err := id.Parse(doc.Key)
	if err != nil {
		return model.Step{}, fmt.Errorf("decode step key %q: %w", doc.Key, err)
	}
	workshopID, err := id.Parse(doc.WorkshopKey)
	if err != nil {
		return model.Step{}, fmt.Errorf("decode workshop key %q: %w", doc.WorkshopKey, err)
	}
	return model.Step{
		ID:         stepID,
		WorkshopID: workshopID,
		StepNumber: doc.StepNumber,
		Name:       doc.Name,
		Content:    doc.Content,
		IsLocked:   doc.IsLocked,
		IsCounted:  doc.IsCounted,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}
