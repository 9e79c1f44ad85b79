package router

import (
	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/handler"
)

func WorkshopRouter(rg *gin.RouterGroup, h *handler.WorkshopHandler) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Rename)
}
