// Package template is the dispatch table between a step's name and the editor
// that owns the shape of its content. Editors live outside the core; the
// registry only needs them to validate and to produce empty content.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

var ErrInvalidContent = errors.New("invalid step content")

// Editor interprets the content of one template.
type Editor interface {
	Name() string
	Empty() json.RawMessage
	Validate(content json.RawMessage) error
}

type Registry struct {
	mu       sync.RWMutex
	editors  map[string]Editor
	fallback Editor
}

// NewRegistry returns a registry whose unknown names resolve to an opaque
// JSON-object editor.
func NewRegistry(editors ...Editor) *Registry {
	r := &Registry{
		editors:  make(map[string]Editor, len(editors)),
		fallback: OpaqueEditor{name: "*"},
	}
	for _, e := range editors {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editors[e.Name()] = e
}

func (r *Registry) EditorFor(step model.Step) Editor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.editors[step.Name]; ok {
		return e
	}
	return r.fallback
}

// Validate runs the step's editor over the candidate content.
func (r *Registry) Validate(step model.Step, content json.RawMessage) error {
	if err := r.EditorFor(step).Validate(content); err != nil {
		return fmt.Errorf("%w for %q: %v", ErrInvalidContent, step.Name, err)
	}
	return nil
}

// OpaqueEditor accepts any JSON object.
type OpaqueEditor struct {
	name string
}

func NewOpaqueEditor(name string) OpaqueEditor {
	return OpaqueEditor{name: name}
}

func (e OpaqueEditor) Name() string { return e.name }

func (e OpaqueEditor) Empty() json.RawMessage {
	return model.CloneContent(model.EmptyContent)
}

func (e OpaqueEditor) Validate(content json.RawMessage) error {
	if len(content) == 0 {
		return errors.New("content is empty")
	}
	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err != nil || obj == nil {
		return errors.New("content must be a JSON object")
	}
	return nil
}
