// Package api exposes the todo services over HTTP.
package api

import (
	"context"
	"fmt"

	"github.com/example/todo-evolution/modules/activity"
	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/cache"
	"github.com/example/todo-evolution/modules/ratelimit"
	"github.com/example/todo-evolution/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule is the HTTP API module.
type APIModule struct {
	addr            string
	logger          types.Logger
	app             *fiber.App
	authAdapter     auth.AuthPort
	taskAdapter     task.TaskPort
	activityAdapter activity.ActivityPort
	rateLimitModule *ratelimit.Module
	cacheModule     *cache.Module
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates an APIModule listening on addr.
func NewModule(addr string, logger types.Logger) *APIModule {
	return &APIModule{
		addr:   addr,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	case "task":
		m.taskAdapter = task.NewTaskAdapter(container)
	case "activity":
		m.activityAdapter = activity.NewActivityAdapter(container)
	}
}

// SetRateLimitModule sets the rate limiting module dependency.
func (m *APIModule) SetRateLimitModule(rlm *ratelimit.Module) {
	m.rateLimitModule = rlm
}

// SetCacheModule sets the cache used for profile reads.
func (m *APIModule) SetCacheModule(cm *cache.Module) {
	m.cacheModule = cm
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskAdapter == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.activityAdapter == nil {
		return fmt.Errorf("activity dependency not set")
	}

	var limit fiber.Handler
	if m.rateLimitModule != nil {
		if mw := m.rateLimitModule.GetMiddleware(); mw != nil {
			limit = mw.IPRateLimit()
		}
	}
	authPort := m.authAdapter
	if m.cacheModule != nil {
		if c := m.cacheModule.Port(); c != nil {
			authPort = newCachedAuthPort(authPort, c, m.logger)
		}
	}

	m.app = newApp(NewHandlers(authPort, m.taskAdapter, m.activityAdapter, m.logger), limit)

	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.addr, "rate_limited", limit != nil)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// newApp builds the Fiber app with all routes. limit may be nil.
func newApp(h *Handlers, limit fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Todo Evolution API",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())
	if limit != nil {
		app.Use(limit)
	}

	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)

	protected := v1.Group("", AuthMiddleware(h.auth, h.logger))

	protected.Get("/users/me", h.Me)
	protected.Patch("/users/me", h.UpdateMe)

	protected.Get("/tasks", h.ListTasks)
	protected.Post("/tasks", h.CreateTask)
	protected.Get("/tasks/activity", h.Activity)
	protected.Get("/tasks/:id", h.GetTask)
	protected.Put("/tasks/:id", h.UpdateTask)
	protected.Delete("/tasks/:id", h.DeleteTask)
	protected.Patch("/tasks/:id/toggle-status", h.ToggleTaskStatus)

	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
