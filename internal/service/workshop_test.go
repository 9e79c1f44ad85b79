package service_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/catalog"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/progression"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/template"
)

var _ = Describe("WorkshopService", func() {
	var (
		ctx       context.Context
		steps     *mockStepStore
		events    *mockProducer
		workshops service.WorkshopService
	)

	BeforeEach(func() {
		ctx = context.Background()
		steps = newMockStepStore()
		events = &mockProducer{}

		cat, err := catalog.Default()
		Expect(err).NotTo(HaveOccurred())
		workshops = service.NewServices(steps, cat, template.NewRegistry(), events).Workshops()
	})

	Describe("Create", func() {
		It("creates the workshop with its catalog steps", func() {
			view, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{
				Name:         "  Checkout revamp ",
				Participants: []string{"user-bea", "user-ana", " ", "user-bea"},
			})
			Expect(err).NotTo(HaveOccurred())

			w := view.Workshop
			Expect(w.Name).To(Equal("Checkout revamp"))
			Expect(w.CreatedBy).To(Equal("user-ana"))
			Expect(w.Participants).To(Equal([]string{"user-ana", "user-bea"}))
			Expect(w.ShareToken).NotTo(BeNil())
			Expect(*w.ShareToken).NotTo(BeEmpty())
			Expect(w.TotalSteps).To(Equal(13))
			Expect(w.CurrentStep).To(Equal(0))
			Expect(w.Status).To(Equal(model.WorkshopStatusInProgress))
			Expect(view.Effective).To(HaveLen(14))

			stored, err := steps.LoadWorkshop(ctx, w.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TotalSteps).To(Equal(13))
			Expect(steps.seedCalls).To(BeZero())
		})

		It("requires a principal", func() {
			_, err := workshops.Create(ctx, model.Principal{}, service.CreateWorkshopParams{Name: "x"})
			Expect(err).To(MatchError(service.ErrNoPrincipal))
		})

		DescribeTable("validates the name",
			func(name string) {
				_, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: name})
				Expect(err).To(MatchError(service.ErrInvalidName))
			},
			Entry("blank", "   "),
			Entry("too long", strings.Repeat("a", 121)),
		)
	})

	Describe("Open", func() {
		It("returns ErrNotFound for an unknown workshop", func() {
			_, err := workshops.Open(ctx, ana, 404)
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("bootstraps a workshop that has no steps", func() {
			legacy := &model.Workshop{ID: 500, Name: "Legacy", CreatedBy: "user-ana", Status: model.WorkshopStatusInProgress}
			Expect(steps.CreateWorkshopWithSteps(ctx, legacy, nil)).To(Succeed())

			view, err := workshops.Open(ctx, ana, 500)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Steps).To(HaveLen(14))
			Expect(view.Workshop.TotalSteps).To(Equal(13))
			Expect(steps.seedCalls).To(Equal(1))
		})

		It("reconciles a stale aggregate", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())
			Expect(steps.UpdateStepLock(ctx, created.Workshop.ID, created.Steps[1].ID, true)).To(Succeed())
			steps.aggregateCalls = nil

			view, err := workshops.Open(ctx, ana, created.Workshop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Workshop.CurrentStep).To(Equal(1))
			Expect(steps.aggregateCalls).To(HaveLen(1))

			stored, err := steps.LoadWorkshop(ctx, created.Workshop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.CurrentStep).To(Equal(1))
		})

		It("still opens when the reconciliation write fails", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())
			Expect(steps.UpdateStepLock(ctx, created.Workshop.ID, created.Steps[1].ID, true)).To(Succeed())
			steps.updateAggregateFn = func(context.Context, int64, model.WorkshopAggregate) error {
				return errTransport
			}

			view, err := workshops.Open(ctx, ana, created.Workshop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Workshop.CurrentStep).To(Equal(1))
		})

		It("shows the report step once every counted step is locked", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())
			for _, s := range created.Steps {
				if s.IsCounted {
					Expect(steps.UpdateStepLock(ctx, created.Workshop.ID, s.ID, true)).To(Succeed())
				}
			}

			view, err := workshops.Open(ctx, ana, created.Workshop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Workshop.Status).To(Equal(model.WorkshopStatusCompleted))
			Expect(view.Effective).To(HaveLen(15))
			Expect(view.Effective[14].ID).To(Equal(progression.ReportStepID))
			Expect(view.Steps).To(HaveLen(14))
		})

		It("refuses an outsider on a private workshop before touching its steps", func() {
			legacy := &model.Workshop{ID: 501, Name: "Legacy", CreatedBy: "user-ana"}
			Expect(steps.CreateWorkshopWithSteps(ctx, legacy, nil)).To(Succeed())

			eve := model.Principal{UserID: "user-eve", Email: "eve@example.com"}
			_, err := workshops.Open(ctx, eve, 501)
			Expect(err).To(MatchError(service.ErrNotAuthorized))
			Expect(steps.seedCalls).To(BeZero())
		})

		It("lets an outsider open a public workshop", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout", IsPublic: true})
			Expect(err).NotTo(HaveOccurred())

			eve := model.Principal{UserID: "user-eve", Email: "eve@example.com"}
			view, err := workshops.Open(ctx, eve, created.Workshop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Workshop.ID).To(Equal(created.Workshop.ID))
		})
	})

	Describe("Rename", func() {
		It("renames and publishes an event", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())

			w, err := workshops.Rename(ctx, ana, created.Workshop.ID, " Checkout v2 ")
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Name).To(Equal("Checkout v2"))
			Expect(events.types()).To(Equal([]queue.EventType{queue.EventTypeWorkshopRenamed}))
			Expect(events.events[0].TraceID).To(BeNil())
		})

		It("carries the request trace id on the rename event", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())

			traced, traceID := tracedContext()
			_, err = workshops.Rename(traced, ana, created.Workshop.ID, "Checkout v2")
			Expect(err).NotTo(HaveOccurred())
			Expect(events.events).To(HaveLen(1))
			Expect(*events.events[0].TraceID).To(Equal(traceID))
		})

		It("refuses outsiders on private workshops", func() {
			created, err := workshops.Create(ctx, ana, service.CreateWorkshopParams{Name: "Checkout"})
			Expect(err).NotTo(HaveOccurred())

			_, err = workshops.Rename(ctx, model.Principal{UserID: "user-eve"}, created.Workshop.ID, "Mine")
			Expect(err).To(MatchError(service.ErrNotAuthorized))
		})

		It("returns ErrNotFound for an unknown workshop", func() {
			_, err := workshops.Rename(ctx, ana, 404, "x")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
