package http

import (
	"time"

	"todo_api/internal/config"
	"todo_api/internal/http/handlers"
	"todo_api/internal/http/middleware"
	"todo_api/internal/metrics"
	"todo_api/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP surface is built from. A nil Limiter disables
// rate limiting.
type Deps struct {
	Config  *config.Config
	Todos   *service.TodoService
	Metrics *metrics.Metrics
	Limiter middleware.Limiter
}

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	// Recovery runs inside the logger and metrics: a panic is logged and counted as a 500
	r.Use(
		middleware.RequestLogger(),
		middleware.Metrics(d.Metrics),
		gin.Recovery(),
		cors.New(corsConfig(d.Config.HTTP.CORSOrigins)),
	)
	RegisterRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Todos)
	healthHandler := handlers.NewHealthHandler(d.Todos, d.Config.App.Version)

	// Health checks and metrics (no rate limiting)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	r.GET("/health/live", healthHandler.Liveness)
	r.GET("/health/ready", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	todos := r.Group("/todos")
	if d.Limiter != nil {
		todos.Use(middleware.RateLimit(d.Limiter, d.Metrics))
	}
	auth := middleware.APIKey(d.Config.Auth.APIKey)

	// both spellings of the collection are served, no redirect
	for _, root := range []string{"", "/"} {
		todos.GET(root, h.ListTodos)
		todos.POST(root, auth, h.CreateTodo)
	}
	todos.GET("/:id", h.GetTodo)
	todos.PUT("/:id", auth, h.UpdateTodo)
	todos.DELETE("/:id", auth, h.DeleteTodo)
	todos.POST("/:id/restore", auth, h.RestoreTodo)
}
