package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/core/db"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

const (
	pgInsufficientPrivilege = "42501"
	pgUniqueViolation       = "23505"
)

type postgresStore struct {
	db  *db.DB
	now func() time.Time
}

// NewPostgresStore stores workshops as rows with step content in JSONB.
// Batched writes share one transaction.
func NewPostgresStore(database *db.DB) StepStore {
	return &postgresStore{db: database, now: func() time.Time { return time.Now().UTC() }}
}

func (s *postgresStore) LoadWorkshop(ctx context.Context, workshopID int64) (*model.Workshop, error) {
	row := s.db.Querier().QueryRow(ctx, `
		SELECT id, name, created_by, workspace_id, participants, is_public, share_token,
		       status, current_step, total_steps, created_at, updated_at
		FROM workshops
		WHERE id = $1`, workshopID)

	var w model.Workshop
	err := row.Scan(&w.ID, &w.Name, &w.CreatedBy, &w.WorkspaceID, &w.Participants, &w.IsPublic,
		&w.ShareToken, &w.Status, &w.CurrentStep, &w.TotalSteps, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapPgError(err)
	}
	return &w, nil
}

func (s *postgresStore) LoadSteps(ctx context.Context, workshopID int64) ([]model.Step, error) {
	return loadPgSteps(ctx, s.db.Querier(), workshopID)
}

func (s *postgresStore) CreateWorkshopWithSteps(ctx context.Context, workshop *model.Workshop, steps []model.Step) error {
	err := s.db.WithTx(ctx, func(q db.Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO workshops (id, name, created_by, workspace_id, participants, is_public, share_token,
			                       status, current_step, total_steps, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			workshop.ID, workshop.Name, workshop.CreatedBy, workshop.WorkspaceID, participantsOrEmpty(workshop.Participants),
			workshop.IsPublic, workshop.ShareToken, workshop.Status, workshop.CurrentStep, workshop.TotalSteps,
			workshop.CreatedAt, workshop.UpdatedAt)
		if err != nil {
			return err
		}
		return insertPgSteps(ctx, q, steps)
	})
	if isPgCode(err, pgUniqueViolation) {
		return ErrAlreadyExists
	}
	return mapPgError(err)
}

func (s *postgresStore) SeedSteps(ctx context.Context, workshopID int64, steps []model.Step) ([]model.Step, error) {
	var out []model.Step
	err := s.db.WithTx(ctx, func(q db.Querier) error {
		// Row lock on the workshop serializes concurrent seeders.
		var locked int64
		err := q.QueryRow(ctx, `SELECT id FROM workshops WHERE id = $1 FOR UPDATE`, workshopID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		existing, err := loadPgSteps(ctx, q, workshopID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			out = existing
			return nil
		}

		if err := insertPgSteps(ctx, q, steps); err != nil {
			return err
		}
		out, err = loadPgSteps(ctx, q, workshopID)
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (s *postgresStore) UpdateStepContent(ctx context.Context, workshopID, stepID int64, content json.RawMessage) error {
	tag, err := s.db.Querier().Exec(ctx, `
		UPDATE workshop_steps SET content = $3, updated_at = $4
		WHERE id = $2 AND workshop_id = $1`,
		workshopID, stepID, []byte(content), s.now())
	return affectedOne(tag, err)
}

func (s *postgresStore) UpdateStepLock(ctx context.Context, workshopID, stepID int64, locked bool) error {
	tag, err := s.db.Querier().Exec(ctx, `
		UPDATE workshop_steps SET is_locked = $3, updated_at = $4
		WHERE id = $2 AND workshop_id = $1`,
		workshopID, stepID, locked, s.now())
	return affectedOne(tag, err)
}

func (s *postgresStore) UpdateWorkshopAggregate(ctx context.Context, workshopID int64, agg model.WorkshopAggregate) error {
	updatedAt := agg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	var status *string
	if agg.Status != nil {
		v := string(*agg.Status)
		status = &v
	}
	tag, err := s.db.Querier().Exec(ctx, `
		UPDATE workshops SET
			status       = COALESCE($2, status),
			current_step = COALESCE($3, current_step),
			total_steps  = COALESCE($4, total_steps),
			updated_at   = $5
		WHERE id = $1`,
		workshopID, status, agg.CurrentStep, agg.TotalSteps, updatedAt)
	return affectedOne(tag, err)
}

func (s *postgresStore) RenameWorkshop(ctx context.Context, workshopID int64, name string) error {
	tag, err := s.db.Querier().Exec(ctx, `
		UPDATE workshops SET name = $2, updated_at = $3 WHERE id = $1`,
		workshopID, name, s.now())
	return affectedOne(tag, err)
}

func loadPgSteps(ctx context.Context, q db.Querier, workshopID int64) ([]model.Step, error) {
	rows, err := q.Query(ctx, `
		SELECT id, workshop_id, step_number, name, content, is_locked, is_counted, updated_at
		FROM workshop_steps
		WHERE workshop_id = $1
		ORDER BY step_number ASC`, workshopID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	steps := []model.Step{}
	for rows.Next() {
		var (
			st      model.Step
			content []byte
		)
		if err := rows.Scan(&st.ID, &st.WorkshopID, &st.StepNumber, &st.Name, &content,
			&st.IsLocked, &st.IsCounted, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Content = json.RawMessage(content)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return steps, nil
}

func insertPgSteps(ctx context.Context, q db.Querier, steps []model.Step) error {
	for _, st := range steps {
		_, err := q.Exec(ctx, `
			INSERT INTO workshop_steps (id, workshop_id, step_number, name, content, is_locked, is_counted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			st.ID, st.WorkshopID, st.StepNumber, st.Name, []byte(st.Content), st.IsLocked, st.IsCounted, st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert step %q: %w", st.Name, err)
		}
	}
	return nil
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if isPgCode(err, pgInsufficientPrivilege) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func participantsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
