package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/catalog"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

var _ = Describe("Catalog", func() {
	Describe("Default", func() {
		It("has the agenda plus 13 counted steps in order", func() {
			cat, err := catalog.Default()
			Expect(err).NotTo(HaveOccurred())

			Expect(cat.Len()).To(Equal(14))
			Expect(cat.CountedLen()).To(Equal(13))

			entries := cat.Entries()
			Expect(entries[0].Kind()).To(Equal(model.StepKindAgenda))
			Expect(entries[0].IsCounted()).To(BeFalse())
			for i := 1; i < len(entries); i++ {
				Expect(entries[i].StepNumber).To(BeNumerically(">", entries[i-1].StepNumber))
				Expect(entries[i].Kind()).To(Equal(model.StepKindTemplate))
			}
		})
	})

	Describe("Steps", func() {
		It("clones entries into unlocked steps with fresh ids", func() {
			cat, err := catalog.Default()
			Expect(err).NotTo(HaveOccurred())

			now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
			next := int64(0)
			steps := cat.Steps(7, now, func() int64 { next++; return next })

			Expect(steps).To(HaveLen(14))
			ids := map[int64]bool{}
			for _, s := range steps {
				Expect(s.WorkshopID).To(Equal(int64(7)))
				Expect(s.IsLocked).To(BeFalse())
				Expect(s.UpdatedAt).To(Equal(now))
				Expect(model.ContentEqual(s.Content, model.EmptyContent)).To(BeTrue())
				ids[s.ID] = true
			}
			Expect(ids).To(HaveLen(14))
		})

		It("does not share content between workshops", func() {
			cat, err := catalog.Parse([]byte(`
steps:
  - step_number: 1
    name: Kickoff
    content:
      goals: []
`))
			Expect(err).NotTo(HaveOccurred())

			a := cat.Steps(1, time.Now(), func() int64 { return 1 })
			b := cat.Steps(2, time.Now(), func() int64 { return 2 })
			a[0].Content[0] = ' '

			Expect(model.ContentEqual(b[0].Content, []byte(`{"goals":[]}`))).To(BeTrue())
		})
	})

	Describe("Parse", func() {
		It("sorts entries by step number", func() {
			cat, err := catalog.Parse([]byte(`
steps:
  - step_number: 3
    name: Personas
  - step_number: 1
    name: Agenda
  - step_number: 2
    name: Kickoff
`))
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, e := range cat.Entries() {
				names = append(names, e.Name)
			}
			Expect(names).To(Equal([]string{"Agenda", "Kickoff", "Personas"}))
			Expect(cat.CountedLen()).To(Equal(2))
		})

		DescribeTable("rejects invalid catalogs",
			func(raw string, want error) {
				_, err := catalog.Parse([]byte(raw))
				Expect(err).To(MatchError(want))
			},
			Entry("empty", `steps: []`, catalog.ErrEmptyCatalog),
			Entry("duplicate numbers", `
steps:
  - {step_number: 1, name: Kickoff}
  - {step_number: 1, name: Personas}
`, catalog.ErrDuplicateStep),
			Entry("seeded report step", `
steps:
  - {step_number: 1, name: Workshop Report}
`, catalog.ErrReservedStepName),
			Entry("counted agenda", `
steps:
  - {step_number: 1, name: Agenda, counted: true}
`, catalog.ErrUncountableCounted),
			Entry("missing name", `
steps:
  - {step_number: 1, name: " "}
`, catalog.ErrMissingStepName),
			Entry("non-positive number", `
steps:
  - {step_number: 0, name: Kickoff}
`, catalog.ErrInvalidStepNumber),
		)

		It("reports malformed YAML", func() {
			_, err := catalog.Read(strings.NewReader("steps: ["))
			Expect(err).To(MatchError(ContainSubstring("parsing catalog")))
		})
	})

	Describe("Load", func() {
		It("reads a catalog file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "catalog.yaml")
			Expect(os.WriteFile(path, []byte(`
steps:
  - {step_number: 1, name: Kickoff}
  - {step_number: 2, name: MVP Canvas, counted: false}
`), 0o600)).To(Succeed())

			cat, err := catalog.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Len()).To(Equal(2))
			Expect(cat.CountedLen()).To(Equal(1))
		})

		It("falls back to the default catalog", func() {
			cat, err := catalog.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Len()).To(Equal(14))
		})
	})
})
