package service

import (
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/catalog"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/queue"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/template"
)

type Services struct {
	steps     store.StepStore
	templates *template.Registry
	events    queue.Producer
	seeder    BootstrapSeeder
}

// NewServices wires the services over one store. The seeder is shared so
// its in-flight deduplication spans every caller.
func NewServices(steps store.StepStore, cat *catalog.Catalog, templates *template.Registry, events queue.Producer) *Services {
	if events == nil {
		events = queue.NewNoopProducer()
	}
	return &Services{
		steps:     steps,
		templates: templates,
		events:    events,
		seeder:    NewBootstrapSeeder(steps, cat),
	}
}

func (s *Services) Workshops() WorkshopService {
	return NewWorkshopService(s.steps, s.seeder, s.events)
}

func (s *Services) Coordinator() SaveCoordinator {
	return NewSaveCoordinator(s.steps, s.templates, s.events)
}
