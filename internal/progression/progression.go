// Package progression derives workshop completion state from step lock
// states. Everything here is pure: callers pass the step list they hold and
// get new values back.
package progression

import (
	"sort"
	"time"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

// ReportStepID identifies the synthetic report step. Real ids are positive snowflakes.
const ReportStepID int64 = -1

type Progress struct {
	CompletedCount int  `json:"completed_count"`
	TotalCounted   int  `json:"total_counted"`
	AllComplete    bool `json:"all_complete"`
}

// Compute counts counted steps and how many of them are locked.
func Compute(steps []model.Step) Progress {
	var p Progress
	for _, s := range steps {
		if !s.IsCounted || s.Kind() == model.StepKindReport {
			continue
		}
		p.TotalCounted++
		if s.IsLocked {
			p.CompletedCount++
		}
	}
	p.AllComplete = p.TotalCounted > 0 && p.CompletedCount == p.TotalCounted
	return p
}

func StatusFor(allComplete bool) model.WorkshopStatus {
	if allComplete {
		return model.WorkshopStatusCompleted
	}
	return model.WorkshopStatusInProgress
}

// DeriveEffectiveList returns the list presented to clients: the persisted
// steps plus the report step when allComplete. The input is returned as-is
// when the report's presence already matches; applying it to its own output
// is a no-op.
func DeriveEffectiveList(steps []model.Step, allComplete bool) []model.Step {
	present := hasReport(steps)
	if present == allComplete {
		return steps
	}

	if !allComplete {
		out := make([]model.Step, 0, len(steps))
		for _, s := range steps {
			if s.Kind() != model.StepKindReport {
				out = append(out, s)
			}
		}
		return out
	}

	out := make([]model.Step, 0, len(steps)+1)
	out = append(out, steps...)
	out = append(out, ReportStep(steps))
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out
}

// ReportStep builds the synthetic terminal step placed after the last step.
// Its timestamp is the newest step timestamp so the value is deterministic
// for a given list.
func ReportStep(steps []model.Step) model.Step {
	var (
		workshopID int64
		last       int
		updatedAt  time.Time
	)
	for _, s := range steps {
		if s.StepNumber > last {
			last = s.StepNumber
		}
		if s.UpdatedAt.After(updatedAt) {
			updatedAt = s.UpdatedAt
		}
		workshopID = s.WorkshopID
	}

	return model.Step{
		ID:         ReportStepID,
		WorkshopID: workshopID,
		StepNumber: last + 1,
		Name:       model.ReportStepName,
		Content:    model.CloneContent(model.EmptyContent),
		IsLocked:   true,
		IsCounted:  false,
		UpdatedAt:  updatedAt,
	}
}

// Aggregate is the workshop update written after a lock toggle.
func Aggregate(p Progress, now time.Time) model.WorkshopAggregate {
	status := StatusFor(p.AllComplete)
	current := p.CompletedCount
	total := p.TotalCounted
	return model.WorkshopAggregate{
		Status:      &status,
		CurrentStep: &current,
		TotalSteps:  &total,
		UpdatedAt:   now,
	}
}

// InSync reports whether the stored workshop counters already match p.
func InSync(w *model.Workshop, p Progress) bool {
	return w.Status == StatusFor(p.AllComplete) &&
		w.CurrentStep == p.CompletedCount &&
		w.TotalSteps == p.TotalCounted
}

// Persisted strips the synthetic report step so callers never hand it to a store.
func Persisted(steps []model.Step) []model.Step {
	return DeriveEffectiveList(steps, false)
}

func hasReport(steps []model.Step) bool {
	for _, s := range steps {
		if s.Kind() == model.StepKindReport {
			return true
		}
	}
	return false
}

// Apply returns a copy of w with its counters and status recomputed from p.
func Apply(w model.Workshop, p Progress) model.Workshop {
	w.Status = StatusFor(p.AllComplete)
	w.CurrentStep = p.CompletedCount
	w.TotalSteps = p.TotalCounted
	return w
}
