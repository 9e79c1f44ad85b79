package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb/shared"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/arangodb"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
)

type mockArangoClient struct {
	queryFn func(ctx context.Context, query string, bindVars map[string]any) (arangodb.Cursor, error)
	queries []string
}

func (m *mockArangoClient) EnsureDatabase(context.Context) error    { return nil }
func (m *mockArangoClient) EnsureCollections(context.Context) error { return nil }
func (m *mockArangoClient) Close() error                            { return nil }

func (m *mockArangoClient) Query(ctx context.Context, query string, bindVars map[string]any) (arangodb.Cursor, error) {
	m.queries = append(m.queries, query)
	if m.queryFn != nil {
		return m.queryFn(ctx, query, bindVars)
	}
	return &sliceCursor{}, nil
}

// sliceCursor replays documents through a JSON round trip, as the driver does.
type sliceCursor struct {
	docs []any
}

func (c *sliceCursor) HasMore() bool { return len(c.docs) > 0 }

func (c *sliceCursor) ReadDocument(_ context.Context, result any) error {
	raw, err := json.Marshal(c.docs[0])
	if err != nil {
		return err
	}
	c.docs = c.docs[1:]
	return json.Unmarshal(raw, result)
}

func (c *sliceCursor) Close() error { return nil }

func cursorOf(docs ...any) *sliceCursor { return &sliceCursor{docs: docs} }

func uniqueViolation() error {
	return fmt.Errorf("execute query: %w", shared.ArangoError{
		HasError:     true,
		Code:         http.StatusConflict,
		ErrorNum:     shared.ErrArangoUniqueConstraintViolated,
		ErrorMessage: "unique constraint violated - in index workshop_step_number",
	})
}

var _ = Describe("arangoStore", func() {
	var (
		ctx    context.Context
		client *mockArangoClient
		s      store.StepStore
	)

	workshopDoc := map[string]any{
		"_key":          "42",
		"name":          "Checkout revamp",
		"created_by":    "user-1",
		"workspace_key": "7",
		"participants":  []string{"user-1"},
		"status":        "in_progress",
		"current_step":  1,
		"total_steps":   2,
		"created_at":    created,
		"updated_at":    created,
	}
	stepDoc := func(key string, number int, locked bool) map[string]any {
		return map[string]any{
			"_key":         key,
			"workshop_key": "42",
			"step_number":  number,
			"name":         "Kickoff",
			"content":      map[string]any{"goal": "ship"},
			"is_locked":    locked,
			"is_counted":   true,
			"updated_at":   created,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockArangoClient{}
		s = store.NewArangoStore(client)
	})

	Describe("LoadWorkshop", func() {
		It("decodes string keys back into ids", func() {
			var gotKey any
			client.queryFn = func(_ context.Context, _ string, bindVars map[string]any) (arangodb.Cursor, error) {
				gotKey = bindVars["key"]
				return cursorOf(workshopDoc), nil
			}

			w, err := s.LoadWorkshop(ctx, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotKey).To(Equal("42"))
			Expect(w.ID).To(Equal(int64(42)))
			Expect(*w.WorkspaceID).To(Equal(int64(7)))
			Expect(w.Status).To(Equal(model.WorkshopStatusInProgress))
			Expect(w.CurrentStep).To(Equal(1))
			Expect(w.CreatedAt).To(BeTemporally("==", created))
		})

		It("returns ErrNotFound when nothing matches", func() {
			_, err := s.LoadWorkshop(ctx, 42)
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("maps forbidden responses to ErrPermissionDenied", func() {
			client.queryFn = func(context.Context, string, map[string]any) (arangodb.Cursor, error) {
				return nil, fmt.Errorf("execute query: %w", shared.ArangoError{HasError: true, Code: http.StatusForbidden})
			}
			_, err := s.LoadWorkshop(ctx, 42)
			Expect(err).To(MatchError(store.ErrPermissionDenied))
		})
	})

	It("loads steps with their content", func() {
		client.queryFn = func(context.Context, string, map[string]any) (arangodb.Cursor, error) {
			return cursorOf(stepDoc("100", 1, true), stepDoc("101", 2, false)), nil
		}

		steps, err := s.LoadSteps(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps).To(HaveLen(2))
		Expect(steps[0].ID).To(Equal(int64(100)))
		Expect(steps[0].WorkshopID).To(Equal(int64(42)))
		Expect(steps[0].IsLocked).To(BeTrue())
		Expect(string(steps[0].Content)).To(MatchJSON(`{"goal":"ship"}`))
	})

	It("encodes ids as string keys on create", func() {
		var bound map[string]any
		client.queryFn = func(_ context.Context, _ string, bindVars map[string]any) (arangodb.Cursor, error) {
			bound = bindVars
			return cursorOf(), nil
		}

		Expect(s.CreateWorkshopWithSteps(ctx, newWorkshop(42), newSteps(42, 100))).To(Succeed())

		raw, err := json.Marshal(bound)
		Expect(err).NotTo(HaveOccurred())
		var decoded struct {
			Workshop map[string]any   `json:"workshop"`
			Steps    []map[string]any `json:"steps"`
		}
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded.Workshop).To(HaveKeyWithValue("_key", "42"))
		Expect(decoded.Steps).To(HaveLen(3))
		Expect(decoded.Steps[0]).To(HaveKeyWithValue("_key", "102"))
		Expect(decoded.Steps[0]).To(HaveKeyWithValue("workshop_key", "42"))
	})

	It("reports a duplicate create as ErrAlreadyExists", func() {
		client.queryFn = func(context.Context, string, map[string]any) (arangodb.Cursor, error) {
			return nil, uniqueViolation()
		}
		err := s.CreateWorkshopWithSteps(ctx, newWorkshop(42), newSteps(42, 100))
		Expect(err).To(MatchError(store.ErrAlreadyExists))
	})

	Describe("SeedSteps", func() {
		It("returns the steps of a seeder that won the step number index", func() {
			client.queryFn = func(_ context.Context, query string, _ map[string]any) (arangodb.Cursor, error) {
				switch {
				case strings.Contains(query, "FOR w IN workshops"):
					return cursorOf(workshopDoc), nil
				case strings.Contains(query, "INSERT s INTO workshop_steps"):
					return nil, uniqueViolation()
				default:
					return cursorOf(stepDoc("500", 1, false), stepDoc("501", 2, false)), nil
				}
			}

			steps, err := s.SeedSteps(ctx, 42, newSteps(42, 100))
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(HaveLen(2))
			Expect(steps[0].ID).To(Equal(int64(500)))
		})

		It("does not seed a missing workshop", func() {
			_, err := s.SeedSteps(ctx, 42, newSteps(42, 100))
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(client.queries).To(HaveLen(1))
		})
	})

	It("returns ErrNotFound when an update matches no step", func() {
		err := s.UpdateStepLock(ctx, 42, 100, true)
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("treats unique index violations as conflicts", func() {
		Expect(arangodb.IsConflict(uniqueViolation())).To(BeTrue())
		Expect(arangodb.IsConflict(shared.ArangoError{HasError: true, ErrorNum: shared.ErrArangoUniqueConstraintViolated})).To(BeTrue())
		Expect(arangodb.IsConflict(fmt.Errorf("dial tcp: refused"))).To(BeFalse())
	})
})
