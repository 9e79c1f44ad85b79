package router

import (
	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/handler"
)

// SessionRouter sets up editing session routes
// - sessions are opened under their workshop
// - everything else addresses the session by id
func SessionRouter(workshops *gin.RouterGroup, rg *gin.RouterGroup, h *handler.SessionHandler) {
	workshops.POST("/:id/sessions", h.Open)

	rg.GET("/:sid", h.Get)
	rg.DELETE("/:sid", h.Close)
	rg.PUT("/:sid/draft", h.Draft)
	rg.POST("/:sid/save", h.Save)
	rg.POST("/:sid/navigate", h.Navigate)
	rg.POST("/:sid/decision", h.Decide)
	rg.POST("/:sid/steps/:stepId/lock", h.ToggleLock)
}
