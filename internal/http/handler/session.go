package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/dto"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/middleware"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/session"
)

// SessionHandler drives editing sessions. Every response carries the session
// snapshot, including after a failed operation, so notices reach the user.
type SessionHandler struct {
	deps     session.Dependencies
	sessions *session.Registry
}

func NewSessionHandler(deps session.Dependencies, sessions *session.Registry) *SessionHandler {
	return &SessionHandler{deps: deps, sessions: sessions}
}

func (h *SessionHandler) Open(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workshop id"})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WorkshopID: logger.Ptr(id)})

	s, err := session.Open(ctx, h.deps, middleware.PrincipalFrom(c), id)
	if err != nil {
		status := statusFor(err)
		slog.ErrorContext(ctx, "failed to open workshop session", "error", err, "status", status)
		c.JSON(status, gin.H{"error": messageFor(status, err, "failed to load workshop")})
		return
	}
	h.sessions.Add(s)

	c.JSON(http.StatusCreated, dto.ToSessionResponse(s.Snapshot()))
}

func (h *SessionHandler) Get(c *gin.Context) {
	h.run(c, "", func(context.Context, *session.Session) error { return nil })
}

func (h *SessionHandler) Draft(c *gin.Context) {
	var req dto.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, "failed to edit step", func(_ context.Context, s *session.Session) error {
		return s.Edit(req.Content)
	})
}

func (h *SessionHandler) Save(c *gin.Context) {
	h.run(c, "failed to save step", func(ctx context.Context, s *session.Session) error {
		return s.Save(ctx)
	})
}

func (h *SessionHandler) Navigate(c *gin.Context) {
	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := session.ParseAction(req.Action, req.StepID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, "failed to navigate", func(_ context.Context, s *session.Session) error {
		return s.Navigate(action)
	})
}

func (h *SessionHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, "failed to resolve decision", func(ctx context.Context, s *session.Session) error {
		return s.Decide(ctx, session.Decision(req.Decision))
	})
}

func (h *SessionHandler) ToggleLock(c *gin.Context) {
	stepID, ok := parseID(c.Param("stepId"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step id"})
		return
	}
	h.run(c, "failed to toggle step lock", func(ctx context.Context, s *session.Session) error {
		return s.ToggleLock(ctx, stepID)
	})
}

func (h *SessionHandler) Close(c *gin.Context) {
	sid := c.Param("sid")
	s, err := h.sessions.Get(sid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := s.Authorize(middleware.PrincipalFrom(c)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	h.sessions.Remove(sid)
	c.Status(http.StatusNoContent)
}

// run looks the session up, applies op and writes the resulting snapshot.
// A session that left its workshop is dropped from the registry.
func (h *SessionHandler) run(c *gin.Context, failure string, op func(context.Context, *session.Session) error) {
	sid := c.Param("sid")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{SessionID: logger.Ptr(sid)})

	s, err := h.sessions.Get(sid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := s.Authorize(middleware.PrincipalFrom(c)); err != nil {
		slog.WarnContext(ctx, "session used by another principal", "error", err)
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{WorkshopID: logger.Ptr(s.WorkshopID())})

	opErr := op(ctx, s)
	view := s.Snapshot()
	if view.Closed {
		h.sessions.Remove(sid)
	}

	if opErr != nil {
		status := statusFor(opErr)
		slog.WarnContext(ctx, failure, "error", opErr, "status", status)
		c.JSON(status, gin.H{
			"error":   messageFor(status, opErr, failure),
			"session": dto.ToSessionResponse(view),
		})
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(view))
}
