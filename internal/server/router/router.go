package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", handler.Authenticate())
	v1.GET("/profile", handler.GetProfile)
	v1.PUT("/profile", handler.PutProfile)
	v1.GET("/profile/goals", handler.GetGoals)
	v1.DELETE("/account", handler.DeleteAccount)
	v1.GET("/subscription", handler.GetSubscription)
	v1.PUT("/subscription", handler.PutSubscription)
	v1.GET("/quota", handler.GetQuota)

	v1.POST("/recipes/generate", handler.GenerateRecipe)
	v1.POST("/recipes", handler.AddRecipe)
	v1.GET("/recipes", handler.ListRecipes)
	v1.GET("/recipes/:id", handler.GetRecipe)
	v1.DELETE("/recipes/:id", handler.DeleteRecipe)
	v1.POST("/recipes/:id/done", handler.MarkDone)
	v1.GET("/history", handler.ListHistory)

	premium := v1.Group("", handler.RequirePremium())
	premium.POST("/recipes/:id/favorite", handler.ToggleFavorite)
	premium.GET("/favorites", handler.ListFavorites)
	premium.GET("/recipes/:id/cook", handler.CookMode)

	premium.GET("/schedule/week", handler.GetWeek)
	premium.GET("/schedule/available", handler.ListAvailable)
	premium.POST("/schedule/days/:date/recipes", handler.AssignRecipe)
	premium.DELETE("/schedule/days/:date/recipes/:recipeId", handler.UnassignRecipe)

	premium.GET("/chat", handler.GetChat)
	premium.POST("/chat", handler.PostChat)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
