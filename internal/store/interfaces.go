package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrPermissionDenied is returned when the backing store refuses a read or write.
var ErrPermissionDenied = errors.New("permission denied")

// ErrAlreadyExists is returned when a workshop id is created twice.
var ErrAlreadyExists = errors.New("already exists")

// StepStore is the document boundary for one workshop aggregate and its
// ordered steps. Any other error is a transport failure; nothing retries.
type StepStore interface {
	LoadWorkshop(ctx context.Context, id int64) (*model.Workshop, error)
	// LoadSteps returns the workshop's steps ordered by step number.
	LoadSteps(ctx context.Context, workshopID int64) ([]model.Step, error)

	// CreateWorkshopWithSteps writes the workshop and its steps all-or-nothing.
	CreateWorkshopWithSteps(ctx context.Context, workshop *model.Workshop, steps []model.Step) error
	// SeedSteps writes steps all-or-nothing unless the workshop already has
	// steps, in which case nothing is written and the existing steps are returned.
	SeedSteps(ctx context.Context, workshopID int64, steps []model.Step) ([]model.Step, error)

	UpdateStepContent(ctx context.Context, workshopID, stepID int64, content json.RawMessage) error
	UpdateStepLock(ctx context.Context, workshopID, stepID int64, locked bool) error
	UpdateWorkshopAggregate(ctx context.Context, id int64, agg model.WorkshopAggregate) error
	RenameWorkshop(ctx context.Context, id int64, name string) error
}
