package api

import (
	"strings"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	"github.com/example/todo-evolution/modules/activity"
	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth     auth.AuthPort
	tasks    task.TaskPort
	activity activity.ActivityPort
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, taskPort task.TaskPort, activityPort activity.ActivityPort, logger types.Logger) *Handlers {
	return &Handlers{
		auth:     authPort,
		tasks:    taskPort,
		activity: activityPort,
		logger:   logger,
	}
}

// Health reports liveness without touching any dependency.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	user, err := h.auth.Register(c.UserContext(), &auth.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login exchanges credentials for a bearer token. Any failure is reported
// with the same message so callers cannot enumerate accounts.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	email := req.Email
	if email == "" {
		email = req.Username
	}
	if email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	token, err := h.auth.Login(c.UserContext(), email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return h.writeError(c, err)
		}
		return unauthorized(c, "Incorrect email or password")
	}

	return c.JSON(TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	})
}

// Me returns the caller's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	user, err := h.auth.GetUser(c.UserContext(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe applies a partial update to the caller's profile.
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	var req UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.auth.UpdateUser(c.UserContext(), &auth.UpdateUserRequest{
		UserID:   userID,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

// ListTasks returns the caller's tasks filtered and sorted by query parameters.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	resp, err := h.tasks.ListTasks(c.UserContext(), &task.ListTasksRequest{
		UserID:   userID,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Tag:      c.Query("tag"),
		SortBy:   c.Query("sort_by"),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	tasks := resp.Tasks
	if tasks == nil {
		tasks = []task.TaskResponse{}
	}
	return c.JSON(TaskListResponse{Tasks: tasks, Total: resp.Total})
}

// CreateTask adds a task for the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.tasks.CreateTask(c.UserContext(), &task.CreateTaskRequest{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetTask returns one of the caller's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	t, err := h.tasks.GetTask(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// UpdateTask applies a partial update to one of the caller's tasks.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := h.tasks.UpdateTask(c.UserContext(), &task.UpdateTaskRequest{
		UserID:      userID,
		TaskID:      c.Params("id"),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(updated)
}

// DeleteTask removes one of the caller's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	if err := h.tasks.DeleteTask(c.UserContext(), userID, c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(MessageResponse{Message: "Task deleted successfully"})
}

// ToggleTaskStatus flips a task between pending and completed.
func (h *Handlers) ToggleTaskStatus(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	t, err := h.tasks.ToggleTaskStatus(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// Activity returns the caller's recent task changes, newest first.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c, "User not authenticated")
	}

	entries, err := h.activity.ListActivity(c.UserContext(), userID, c.QueryInt("limit", 0))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"entries":      entries,
		"generated_at": time.Now().UTC(),
	})
}

// currentUser returns the user id stored by AuthMiddleware.
func currentUser(c *fiber.Ctx) (string, bool) {
	claims, ok := claimsFrom(c)
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return "", false
	}
	return claims.UserID, true
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// writeError maps service errors to HTTP responses without exposing internals.
func (h *Handlers) writeError(c *fiber.Ctx, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return badRequest(c, apperr.Message(err))
	case apperr.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: apperr.Message(err),
		})
	case apperr.KindAlreadyExists:
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: apperr.Message(err),
		})
	case apperr.KindAuthentication:
		return unauthorized(c, apperr.Message(err))
	default:
		return internalError(c, h.logger, err)
	}
}

func internalError(c *fiber.Ctx, logger types.Logger, err error) error {
	logger.Error("Internal error", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
