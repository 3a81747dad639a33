package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/user"
	"github.com/example/todo-evolution/modules/activity"
	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/ratelimit"
	"github.com/example/todo-evolution/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	createFunc func(ctx context.Context, req *task.CreateTaskRequest) (*task.TaskResponse, error)
	listFunc   func(ctx context.Context, req *task.ListTasksRequest) (*task.ListTasksResponse, error)
	getFunc    func(ctx context.Context, userID, taskID string) (*task.TaskResponse, error)
	updateFunc func(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error)
	deleteFunc func(ctx context.Context, userID, taskID string) error
	toggleFunc func(ctx context.Context, userID, taskID string) (*task.TaskResponse, error)
}

var _ task.TaskPort = (*mockTaskPort)(nil)

var errNotImplemented = errors.New("not implemented")

func (m *mockTaskPort) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.TaskResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) ListTasks(ctx context.Context, req *task.ListTasksRequest) (*task.ListTasksResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) GetTask(ctx context.Context, userID, taskID string) (*task.TaskResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, userID, taskID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, taskID)
	}
	return errNotImplemented
}

func (m *mockTaskPort) ToggleTaskStatus(ctx context.Context, userID, taskID string) (*task.TaskResponse, error) {
	if m.toggleFunc != nil {
		return m.toggleFunc(ctx, userID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) CountTasks(_ context.Context, _ string) (int, error) {
	return 0, errNotImplemented
}

type mockActivityPort struct {
	listFunc func(ctx context.Context, userID string, limit int) ([]activity.Entry, error)
}

func (m *mockActivityPort) ListActivity(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, limit)
	}
	return nil, errNotImplemented
}

const testToken = "good-token"

// authedPort accepts testToken for user-1.
func authedPort() *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(_ context.Context, token string) (*domain.Claims, error) {
			if token != testToken {
				return nil, auth.ErrInvalidToken
			}
			return &domain.Claims{UserID: "user-1", Email: "user@example.com"}, nil
		},
	}
}

func newTestApp(a *mockAuthPort, tp *mockTaskPort, ap *mockActivityPort) *fiber.App {
	return newApp(NewHandlers(a, tp, ap, &mockLogger{}), nil)
}

func do(t *testing.T, app *fiber.App, method, path, body string, authed bool) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func sampleTask(id string) *task.TaskResponse {
	now := time.Now().UTC()
	return &task.TaskResponse{
		ID:        id,
		Title:     "Buy milk",
		Status:    "pending",
		Priority:  "medium",
		Tags:      []string{},
		UserID:    "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(&mockAuthPort{}, &mockTaskPort{}, &mockActivityPort{})

	resp, body := do(t, app, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestRegister(t *testing.T) {
	a := &mockAuthPort{
		registerFunc: func(_ context.Context, req *auth.RegisterRequest) (*auth.UserResponse, error) {
			if req.Email == "taken@example.com" {
				return nil, apperr.AlreadyExists("user with email %s already exists", req.Email)
			}
			if len(req.Password) < 8 {
				return nil, apperr.Validation("password must be at least 8 characters")
			}
			return &auth.UserResponse{ID: "user-1", Email: req.Email, FullName: req.FullName, IsActive: true}, nil
		},
	}
	app := newTestApp(a, &mockTaskPort{}, &mockActivityPort{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"secret123","full_name":"Ada"}`, false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "Ada", body["full_name"])

	resp, body = do(t, app, http.MethodPost, "/api/v1/auth/register",
		`{"email":"taken@example.com","password":"secret123"}`, false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])

	resp, _ = do(t, app, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"short"}`, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/v1/auth/register", `{"email":""}`, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	a := &mockAuthPort{
		loginFunc: func(_ context.Context, email, password string) (*domain.Token, error) {
			if email != "ada@example.com" || password != "secret123" {
				return nil, apperr.Authentication("invalid email or password")
			}
			return &domain.Token{AccessToken: "jwt", TokenType: "bearer", ExpiresIn: 1800}, nil
		},
	}
	app := newTestApp(a, &mockTaskPort{}, &mockActivityPort{})

	t.Run("json", func(t *testing.T) {
		resp, body := do(t, app, http.MethodPost, "/api/v1/auth/login",
			`{"email":"ada@example.com","password":"secret123"}`, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "jwt", body["access_token"])
		assert.Equal(t, "bearer", body["token_type"])
		assert.EqualValues(t, 1800, body["expires_in"])
	})

	t.Run("form", func(t *testing.T) {
		form := url.Values{"username": {"ada@example.com"}, "password": {"secret123"}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bad credentials", func(t *testing.T) {
		resp, body := do(t, app, http.MethodPost, "/api/v1/auth/login",
			`{"email":"ada@example.com","password":"wrong-password"}`, false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Incorrect email or password", body["message"])
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})
}

func TestUsersMe(t *testing.T) {
	a := authedPort()
	a.getUserFunc = func(_ context.Context, userID string) (*auth.UserResponse, error) {
		return &auth.UserResponse{ID: userID, Email: "user@example.com", IsActive: true}, nil
	}
	var captured *auth.UpdateUserRequest
	a.updateUserFunc = func(_ context.Context, req *auth.UpdateUserRequest) (*auth.UserResponse, error) {
		captured = req
		return &auth.UserResponse{ID: req.UserID, Email: "user@example.com", FullName: req.FullName}, nil
	}
	app := newTestApp(a, &mockTaskPort{}, &mockActivityPort{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/users/me", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", body["id"])

	resp, _ = do(t, app, http.MethodPatch, "/api/v1/users/me", `{"full_name":"Ada","is_active":false}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.UserID)
	require.NotNil(t, captured.FullName)
	assert.Equal(t, "Ada", *captured.FullName)
	assert.Nil(t, captured.IsActive)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/users/me", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTasksCRUD(t *testing.T) {
	var listReq *task.ListTasksRequest
	tp := &mockTaskPort{
		createFunc: func(_ context.Context, req *task.CreateTaskRequest) (*task.TaskResponse, error) {
			if strings.TrimSpace(req.Title) == "" {
				return nil, apperr.Validation("title must not be empty")
			}
			return sampleTask("t1"), nil
		},
		listFunc: func(_ context.Context, req *task.ListTasksRequest) (*task.ListTasksResponse, error) {
			listReq = req
			return &task.ListTasksResponse{Tasks: []task.TaskResponse{*sampleTask("t1")}, Total: 1}, nil
		},
		getFunc: func(_ context.Context, userID, taskID string) (*task.TaskResponse, error) {
			if taskID != "t1" {
				return nil, apperr.NotFound("task %s not found", taskID)
			}
			return sampleTask(taskID), nil
		},
		updateFunc: func(_ context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error) {
			out := sampleTask(req.TaskID)
			if req.Title != nil {
				out.Title = *req.Title
			}
			return out, nil
		},
		deleteFunc: func(_ context.Context, userID, taskID string) error {
			if taskID != "t1" {
				return apperr.NotFound("task %s not found", taskID)
			}
			return nil
		},
		toggleFunc: func(_ context.Context, userID, taskID string) (*task.TaskResponse, error) {
			out := sampleTask(taskID)
			out.Status = "completed"
			return out, nil
		},
	}
	app := newTestApp(authedPort(), tp, &mockActivityPort{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/tasks", `{"title":"Buy milk","tags":["home"]}`, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "t1", body["id"])

	resp, body = do(t, app, http.MethodPost, "/api/v1/tasks", `{"title":"   "}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title must not be empty", body["message"])

	resp, body = do(t, app, http.MethodGet, "/api/v1/tasks?search=milk&status=pending&priority=high&tag=home&sort_by=-priority", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])
	require.NotNil(t, listReq)
	assert.Equal(t, task.ListTasksRequest{
		UserID: "user-1", Search: "milk", Status: "pending", Priority: "high", Tag: "home", SortBy: "-priority",
	}, *listReq)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/tasks/t1", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, app, http.MethodGet, "/api/v1/tasks/nope", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	resp, body = do(t, app, http.MethodPut, "/api/v1/tasks/t1", `{"title":"Buy oat milk"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Buy oat milk", body["title"])

	resp, body = do(t, app, http.MethodPatch, "/api/v1/tasks/t1/toggle-status", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])

	resp, body = do(t, app, http.MethodDelete, "/api/v1/tasks/t1", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Task deleted successfully", body["message"])

	resp, _ = do(t, app, http.MethodDelete, "/api/v1/tasks/nope", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/tasks", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	tp := &mockTaskPort{
		listFunc: func(_ context.Context, _ *task.ListTasksRequest) (*task.ListTasksResponse, error) {
			return nil, errors.New("pq: connection refused at 10.0.0.5")
		},
	}
	app := newTestApp(authedPort(), tp, &mockActivityPort{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/tasks", "", true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "An internal error occurred", body["message"])
}

func TestActivityRoute(t *testing.T) {
	ap := &mockActivityPort{
		listFunc: func(_ context.Context, userID string, limit int) ([]activity.Entry, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, 5, limit)
			return []activity.Entry{{TaskID: "t1", Action: activity.ActionCreated}}, nil
		},
	}
	tp := &mockTaskPort{
		getFunc: func(_ context.Context, _, _ string) (*task.TaskResponse, error) {
			t.Error("activity must not be routed to get-task")
			return nil, errNotImplemented
		},
	}
	app := newTestApp(authedPort(), tp, ap)

	resp, body := do(t, app, http.MethodGet, "/api/v1/tasks/activity?limit=5", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestRateLimitedApp(t *testing.T) {
	cfg := ratelimit.Config{RequestsPerWindow: 1, WindowSize: time.Minute}
	limiter := ratelimit.NewTokenBucketLimiter(cfg)
	defer limiter.Close()

	h := NewHandlers(&mockAuthPort{}, &mockTaskPort{}, &mockActivityPort{}, &mockLogger{})
	app := newApp(h, ratelimit.NewMiddleware(limiter, cfg, &mockLogger{}).IPRateLimit())

	resp, _ := do(t, app, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, _ = do(t, app, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestModuleStartRequiresDependencies(t *testing.T) {
	m := NewModule(":0", &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.ElementsMatch(t, []string{"auth", "task", "activity"}, m.Dependencies())
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}
