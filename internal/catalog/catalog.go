// Package catalog holds the ordered list of step definitions cloned into
// every new workshop.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

var (
	ErrEmptyCatalog       = errors.New("catalog has no steps")
	ErrDuplicateStep      = errors.New("duplicate step number")
	ErrReservedStepName   = errors.New("reserved step name")
	ErrMissingStepName    = errors.New("step name is required")
	ErrInvalidStepNumber  = errors.New("step number must be positive")
	ErrUncountableCounted = errors.New("step kind cannot be counted")
)

// Entry is one default step definition.
type Entry struct {
	StepNumber int            `yaml:"step_number"`
	Name       string         `yaml:"name"`
	Counted    *bool          `yaml:"counted"`
	Content    map[string]any `yaml:"content"`
	content    json.RawMessage
}

// IsCounted defaults to true unless the entry opts out.
func (e Entry) IsCounted() bool {
	if e.Counted == nil {
		return e.Kind().Capabilities().Counted
	}
	return *e.Counted
}

func (e Entry) Kind() model.StepKind {
	return model.KindForName(e.Name)
}

// InitialContent returns the seed content for the step, "{}" when none is configured.
func (e Entry) InitialContent() json.RawMessage {
	if len(e.content) == 0 {
		return model.CloneContent(model.EmptyContent)
	}
	return model.CloneContent(e.content)
}

type Catalog struct {
	entries []Entry
}

type catalogFile struct {
	Steps []Entry `yaml:"steps"`
}

// Default returns the embedded Lean Inception catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file, falling back to the default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for i := range file.Steps {
		if file.Steps[i].Content == nil {
			continue
		}
		encoded, err := json.Marshal(file.Steps[i].Content)
		if err != nil {
			return nil, fmt.Errorf("encoding content for step %q: %w", file.Steps[i].Name, err)
		}
		file.Steps[i].content = encoded
	}

	c := &Catalog{entries: file.Steps}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].StepNumber < c.entries[j].StepNumber
	})
	return c, nil
}

// Validate enforces unique positive step numbers and keeps reserved kinds out
// of the counted set. The report step is synthetic and may never be seeded.
func (c *Catalog) Validate() error {
	if len(c.entries) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[int]string, len(c.entries))
	for _, e := range c.entries {
		if strings.TrimSpace(e.Name) == "" {
			return ErrMissingStepName
		}
		if e.StepNumber <= 0 {
			return fmt.Errorf("%w: %q has %d", ErrInvalidStepNumber, e.Name, e.StepNumber)
		}
		if prev, ok := seen[e.StepNumber]; ok {
			return fmt.Errorf("%w: %d used by %q and %q", ErrDuplicateStep, e.StepNumber, prev, e.Name)
		}
		seen[e.StepNumber] = e.Name

		if e.Kind() == model.StepKindReport {
			return fmt.Errorf("%w: %q is derived, not seeded", ErrReservedStepName, e.Name)
		}
		if e.IsCounted() && !e.Kind().Capabilities().Counted {
			return fmt.Errorf("%w: %q", ErrUncountableCounted, e.Name)
		}
	}
	return nil
}

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// CountedLen is the totalSteps value of a freshly seeded workshop.
func (c *Catalog) CountedLen() int {
	n := 0
	for _, e := range c.entries {
		if e.IsCounted() {
			n++
		}
	}
	return n
}

// Steps clones the catalog into unlocked steps for a workshop, drawing ids from newID.
func (c *Catalog) Steps(workshopID int64, now time.Time, newID func() int64) []model.Step {
	steps := make([]model.Step, len(c.entries))
	for i, e := range c.entries {
		steps[i] = model.Step{
			ID:         newID(),
			WorkshopID: workshopID,
			StepNumber: e.StepNumber,
			Name:       e.Name,
			Content:    e.InitialContent(),
			IsLocked:   false,
			IsCounted:  e.IsCounted(),
			UpdatedAt:  now,
		}
	}
	return steps
}
