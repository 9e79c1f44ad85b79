package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/id"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

var (
	workshopsBucket = []byte("workshops")
	stepsBucket     = []byte("workshop_steps")
)

// BoltStore keeps workshop documents in an embedded bbolt file. Workshops
// live in one bucket; each workshop's steps live in a nested bucket keyed by
// the workshop id, so one update transaction covers a whole batch.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt file: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{workshopsBucket, stepsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) LoadWorkshop(_ context.Context, workshopID int64) (*model.Workshop, error) {
	var w model.Workshop
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(workshopsBucket).Get([]byte(id.Key(workshopID)))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &w)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *BoltStore) LoadSteps(_ context.Context, workshopID int64) ([]model.Step, error) {
	var steps []model.Step
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		steps, err = readSteps(tx, workshopID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *BoltStore) CreateWorkshopWithSteps(_ context.Context, workshop *model.Workshop, steps []model.Step) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		workshops := tx.Bucket(workshopsBucket)
		key := []byte(id.Key(workshop.ID))
		if workshops.Get(key) != nil {
			return ErrAlreadyExists
		}
		if err := putJSON(workshops, key, workshop); err != nil {
			return err
		}
		return writeSteps(tx, workshop.ID, steps)
	})
}

func (s *BoltStore) SeedSteps(_ context.Context, workshopID int64, steps []model.Step) ([]model.Step, error) {
	var out []model.Step
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(workshopsBucket).Get([]byte(id.Key(workshopID))) == nil {
			return ErrNotFound
		}

		existing, err := readSteps(tx, workshopID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			out = existing
			return nil
		}

		if err := writeSteps(tx, workshopID, steps); err != nil {
			return err
		}
		out, err = readSteps(tx, workshopID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) UpdateStepContent(_ context.Context, workshopID, stepID int64, content json.RawMessage) error {
	return s.updateStep(workshopID, stepID, func(st *model.Step) {
		st.Content = model.CloneContent(content)
	})
}

func (s *BoltStore) UpdateStepLock(_ context.Context, workshopID, stepID int64, locked bool) error {
	return s.updateStep(workshopID, stepID, func(st *model.Step) {
		st.IsLocked = locked
	})
}

func (s *BoltStore) UpdateWorkshopAggregate(_ context.Context, workshopID int64, agg model.WorkshopAggregate) error {
	if agg.UpdatedAt.IsZero() {
		agg.UpdatedAt = s.now()
	}
	return s.updateWorkshop(workshopID, func(w *model.Workshop) {
		agg.Apply(w)
	})
}

func (s *BoltStore) RenameWorkshop(_ context.Context, workshopID int64, name string) error {
	now := s.now()
	return s.updateWorkshop(workshopID, func(w *model.Workshop) {
		w.Name = name
		w.UpdatedAt = now
	})
}

func (s *BoltStore) updateWorkshop(workshopID int64, mutate func(w *model.Workshop)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		workshops := tx.Bucket(workshopsBucket)
		key := []byte(id.Key(workshopID))
		raw := workshops.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		var w model.Workshop
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("decode workshop %d: %w", workshopID, err)
		}
		mutate(&w)
		return putJSON(workshops, key, &w)
	})
}

func (s *BoltStore) updateStep(workshopID, stepID int64, mutate func(st *model.Step)) error {
	now := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(stepsBucket).Bucket([]byte(id.Key(workshopID)))
		if bucket == nil {
			return ErrNotFound
		}
		key := []byte(id.Key(stepID))
		raw := bucket.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		var st model.Step
		if err := json.Unmarshal(raw, &st); err != nil {
			return fmt.Errorf("decode step %d: %w", stepID, err)
		}
		mutate(&st)
		st.UpdatedAt = now
		return putJSON(bucket, key, &st)
	})
}

func readSteps(tx *bolt.Tx, workshopID int64) ([]model.Step, error) {
	bucket := tx.Bucket(stepsBucket).Bucket([]byte(id.Key(workshopID)))
	if bucket == nil {
		return []model.Step{}, nil
	}

	steps := make([]model.Step, 0, bucket.Stats().KeyN)
	err := bucket.ForEach(func(k, v []byte) error {
		var st model.Step
		if err := json.Unmarshal(v, &st); err != nil {
			return fmt.Errorf("decode step %s: %w", k, err)
		}
		steps = append(steps, st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSteps(steps)
	return steps, nil
}

func writeSteps(tx *bolt.Tx, workshopID int64, steps []model.Step) error {
	bucket, err := tx.Bucket(stepsBucket).CreateBucketIfNotExists([]byte(id.Key(workshopID)))
	if err != nil {
		return fmt.Errorf("create steps bucket for workshop %d: %w", workshopID, err)
	}
	for i := range steps {
		if err := putJSON(bucket, []byte(id.Key(steps[i].ID)), &steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put(key, raw)
}
