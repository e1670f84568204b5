package routes

import (
	"github.com/ArowuTest/bmd-member-registry/internal/config"
	"github.com/ArowuTest/bmd-member-registry/internal/handlers"
	"github.com/ArowuTest/bmd-member-registry/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HandlerDependencies holds everything the router wires to routes
type HandlerDependencies struct {
	HealthHandler  *handlers.HealthHandler
	MemberHandler  *handlers.MemberHandler
	SessionHandler *handlers.SessionHandler
	Tokens         middleware.SessionParser
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies, logger zerolog.Logger) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", deps.HealthHandler.Health)
		public.GET("/members", deps.MemberHandler.GetMembers)
		public.POST("/sessions", deps.SessionHandler.OpenSession)
	}

	// Session routes
	protected := router.Group("/api/v1/session")
	protected.Use(middleware.SessionAuthMiddleware(deps.Tokens, logger))
	{
		protected.GET("", deps.SessionHandler.GetSession)
		protected.GET("/stream", deps.SessionHandler.Stream)
		protected.POST("/identify", deps.SessionHandler.Identify)
		protected.POST("/members", deps.SessionHandler.Register)
		protected.POST("/delete", deps.SessionHandler.DeleteMember)
		protected.DELETE("", deps.SessionHandler.CloseSession)
	}

	return router
}
