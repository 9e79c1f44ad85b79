package router

import (
	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/handler"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/http/middleware"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/session"
)

func SetupRoutes(router *gin.Engine, services *service.Services, sessions *session.Registry) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Principal())
	{
		workshopHandler := handler.NewWorkshopHandler(services.Workshops())
		WorkshopRouter(v1.Group("/workshops"), workshopHandler)

		sessionHandler := handler.NewSessionHandler(session.Dependencies{
			Workshops:   services.Workshops(),
			Coordinator: services.Coordinator(),
		}, sessions)
		SessionRouter(v1.Group("/workshops"), v1.Group("/sessions"), sessionHandler)
	}
}
