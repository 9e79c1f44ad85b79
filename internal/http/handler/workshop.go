package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/dto"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/middleware"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
)

type WorkshopHandler struct {
	workshops service.WorkshopService
}

func NewWorkshopHandler(workshops service.WorkshopService) *WorkshopHandler {
	return &WorkshopHandler{workshops: workshops}
}

func (h *WorkshopHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.workshops.Create(ctx, middleware.PrincipalFrom(c), service.CreateWorkshopParams{
		Name:         req.Name,
		WorkspaceID:  req.WorkspaceID,
		Participants: req.Participants,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		status := statusFor(err)
		slog.ErrorContext(ctx, "failed to create workshop", "error", err, "status", status)
		c.JSON(status, gin.H{"error": messageFor(status, err, "failed to create workshop")})
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkshopViewResponse(view))
}

func (h *WorkshopHandler) Get(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workshop id"})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WorkshopID: logger.Ptr(id)})

	view, err := h.workshops.Open(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		status := statusFor(err)
		slog.ErrorContext(ctx, "failed to open workshop", "error", err, "status", status)
		c.JSON(status, gin.H{"error": messageFor(status, err, "failed to load workshop")})
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkshopViewResponse(view))
}

func (h *WorkshopHandler) Rename(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workshop id"})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WorkshopID: logger.Ptr(id)})

	var req dto.RenameWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.workshops.Rename(ctx, middleware.PrincipalFrom(c), id, req.Name)
	if err != nil {
		status := statusFor(err)
		slog.ErrorContext(ctx, "failed to rename workshop", "error", err, "status", status)
		c.JSON(status, gin.H{"error": messageFor(status, err, "failed to rename workshop")})
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkshopResponse(w))
}
