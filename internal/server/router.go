package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/canonengine/canonengine/internal/handlers"
	keycanonhandlers "github.com/canonengine/canonengine/internal/handlers/keycanon"
	"github.com/canonengine/canonengine/internal/middleware"
)

type RouterConfig struct {
	CanonHandler    *handlers.CanonHandler
	KeyCanonHandler *keycanonhandlers.Handler
	AuthMiddleware  *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/resolve", cfg.CanonHandler.Resolve)
		api.GET("/is-ancestor", cfg.CanonHandler.IsAncestor)
		api.GET("/semantic-implies", cfg.CanonHandler.SemanticImplies)
		api.POST("/listings/canonicalize", cfg.CanonHandler.CanonicalizeListing)
		api.GET("/ontology/stats", cfg.CanonHandler.OntologyStats)
		api.POST("/keys/canonicalize", cfg.KeyCanonHandler.Canonicalize)
	}

	operator := api.Group("/")
	operator.Use(cfg.AuthMiddleware.RequireOperator())
	{
		operator.GET("/review-queue", cfg.KeyCanonHandler.ListPending)
		operator.POST("/review-queue/:id/approve", cfg.KeyCanonHandler.Approve)
		operator.POST("/review-queue/:id/reject", cfg.KeyCanonHandler.Reject)
	}

	return router
}
