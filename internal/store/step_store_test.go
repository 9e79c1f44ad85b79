package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

var created = time.Date(2024, 2, 9, 14, 0, 0, 0, time.UTC)

func newWorkshop(id int64) *model.Workshop {
	token := "share-token"
	return &model.Workshop{
		ID:           id,
		Name:         "Checkout revamp",
		CreatedBy:    "user-1",
		Participants: []string{"user-1", "user-2"},
		ShareToken:   &token,
		Status:       model.WorkshopStatusInProgress,
		TotalSteps:   2,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func newSteps(workshopID int64, firstID int64) []model.Step {
	return []model.Step{
		{ID: firstID + 2, WorkshopID: workshopID, StepNumber: 3, Name: "Personas", Content: json.RawMessage(`{}`), IsCounted: true, UpdatedAt: created},
		{ID: firstID, WorkshopID: workshopID, StepNumber: 1, Name: model.AgendaStepName, Content: json.RawMessage(`{}`), UpdatedAt: created},
		{ID: firstID + 1, WorkshopID: workshopID, StepNumber: 2, Name: "Kickoff", Content: json.RawMessage(`{}`), IsCounted: true, UpdatedAt: created},
	}
}

func stepNumbers(steps []model.Step) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.StepNumber
	}
	return out
}

// describeStepStore runs the behaviour every StepStore backend shares.
func describeStepStore(name string, open func() store.StepStore) {
	Describe(name, func() {
		var (
			ctx context.Context
			s   store.StepStore
		)

		BeforeEach(func() {
			ctx = context.Background()
			s = open()
		})

		Describe("CreateWorkshopWithSteps", func() {
			It("stores the workshop and its steps ordered by step number", func() {
				Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(1), newSteps(1, 10))).To(Succeed())

				w, err := s.LoadWorkshop(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(w.Name).To(Equal("Checkout revamp"))
				Expect(w.Participants).To(Equal([]string{"user-1", "user-2"}))
				Expect(*w.ShareToken).To(Equal("share-token"))
				Expect(w.TotalSteps).To(Equal(2))

				steps, err := s.LoadSteps(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(stepNumbers(steps)).To(Equal([]int{1, 2, 3}))
				Expect(steps[2].IsCounted).To(BeTrue())
			})

			It("refuses to create the same workshop twice", func() {
				Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(1), newSteps(1, 10))).To(Succeed())
				Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(1), newSteps(1, 20))).To(MatchError(store.ErrAlreadyExists))

				steps, err := s.LoadSteps(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(steps[0].ID).To(Equal(int64(10)))
			})
		})

		It("returns ErrNotFound for a missing workshop", func() {
			_, err := s.LoadWorkshop(ctx, 404)
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("returns no steps for a workshop without steps", func() {
			steps, err := s.LoadSteps(ctx, 404)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(BeEmpty())
		})

		Describe("SeedSteps", func() {
			BeforeEach(func() {
				Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(2), nil)).To(Succeed())
			})

			It("writes the batch when the workshop has no steps", func() {
				steps, err := s.SeedSteps(ctx, 2, newSteps(2, 30))
				Expect(err).NotTo(HaveOccurred())
				Expect(stepNumbers(steps)).To(Equal([]int{1, 2, 3}))
			})

			It("keeps the first batch when seeded again", func() {
				_, err := s.SeedSteps(ctx, 2, newSteps(2, 30))
				Expect(err).NotTo(HaveOccurred())

				steps, err := s.SeedSteps(ctx, 2, newSteps(2, 40))
				Expect(err).NotTo(HaveOccurred())
				Expect(steps).To(HaveLen(3))
				Expect(steps[0].ID).To(Equal(int64(30)))
			})

			It("seeds once under concurrent callers", func() {
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer GinkgoRecover()
						defer wg.Done()
						_, err := s.SeedSteps(ctx, 2, newSteps(2, int64(100+i*10)))
						Expect(err).NotTo(HaveOccurred())
					}(i)
				}
				wg.Wait()

				steps, err := s.LoadSteps(ctx, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(steps).To(HaveLen(3))
			})

			It("fails for an unknown workshop", func() {
				_, err := s.SeedSteps(ctx, 404, newSteps(404, 50))
				Expect(err).To(MatchError(store.ErrNotFound))
			})
		})

		Describe("updates", func() {
			BeforeEach(func() {
				Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(3), newSteps(3, 60))).To(Succeed())
			})

			It("replaces step content", func() {
				Expect(s.UpdateStepContent(ctx, 3, 61, json.RawMessage(`{"goals":["ship"]}`))).To(Succeed())

				steps, err := s.LoadSteps(ctx, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(model.ContentEqual(steps[1].Content, json.RawMessage(`{"goals":["ship"]}`))).To(BeTrue())
				Expect(steps[1].UpdatedAt).To(BeTemporally(">", created))
			})

			It("sets the lock flag", func() {
				Expect(s.UpdateStepLock(ctx, 3, 62, true)).To(Succeed())

				steps, err := s.LoadSteps(ctx, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(steps[2].IsLocked).To(BeTrue())
				Expect(steps[1].IsLocked).To(BeFalse())
			})

			It("returns ErrNotFound for an unknown step", func() {
				Expect(s.UpdateStepLock(ctx, 3, 999, true)).To(MatchError(store.ErrNotFound))
				Expect(s.UpdateStepContent(ctx, 999, 61, json.RawMessage(`{}`))).To(MatchError(store.ErrNotFound))
			})

			It("updates only the aggregate fields that are set", func() {
				status := model.WorkshopStatusCompleted
				current := 2
				later := created.Add(time.Hour)
				Expect(s.UpdateWorkshopAggregate(ctx, 3, model.WorkshopAggregate{
					Status:      &status,
					CurrentStep: &current,
					UpdatedAt:   later,
				})).To(Succeed())

				w, err := s.LoadWorkshop(ctx, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(w.Status).To(Equal(model.WorkshopStatusCompleted))
				Expect(w.CurrentStep).To(Equal(2))
				Expect(w.TotalSteps).To(Equal(2))
				Expect(w.UpdatedAt).To(BeTemporally("==", later))
			})

			It("renames the workshop", func() {
				Expect(s.RenameWorkshop(ctx, 3, "Checkout v2")).To(Succeed())

				w, err := s.LoadWorkshop(ctx, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(w.Name).To(Equal("Checkout v2"))
				Expect(s.RenameWorkshop(ctx, 404, "x")).To(MatchError(store.ErrNotFound))
			})
		})

		It("never hands out references to stored state", func() {
			Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(4), newSteps(4, 70))).To(Succeed())

			steps, err := s.LoadSteps(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			steps[0].IsLocked = true
			steps[0].Content[0] = '['

			w, err := s.LoadWorkshop(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			w.Participants[0] = "intruder"

			again, err := s.LoadSteps(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(again[0].IsLocked).To(BeFalse())
			Expect(model.ContentEqual(again[0].Content, model.EmptyContent)).To(BeTrue())

			wAgain, err := s.LoadWorkshop(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(wAgain.Participants[0]).To(Equal("user-1"))
		})
	})
}

var _ = Describe("StepStore", func() {
	describeStepStore("MemoryStore", func() store.StepStore {
		return store.NewMemoryStore()
	})

	describeStepStore("BoltStore", func() store.StepStore {
		s, err := store.OpenBoltStore(filepath.Join(GinkgoT().TempDir(), "inception.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)
		return s
	})
})
