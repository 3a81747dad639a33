package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/domain/apperr"
	"github.com/example/todo-evolution/modules/activity"
	"github.com/example/todo-evolution/modules/auth"
	"github.com/example/todo-evolution/modules/task"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startStack boots the task, auth, activity and api modules inside a real
// mono application so every call crosses the request-reply boundary.
func startStack(t *testing.T) *APIModule {
	t.Helper()

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
	)
	require.NoError(t, err)

	logger := app.Logger()
	store := config.StoreConfig{Driver: config.DriverMemory}
	jwtCfg := config.JWTConfig{
		SecretKey: "integration-secret",
		Algorithm: config.DefaultJWTAlgorithm,
		Issuer:    config.DefaultJWTIssuer,
		TTL:       time.Hour,
	}

	apiModule := NewModule("127.0.0.1:0", logger)
	app.Register(task.NewModule(store, logger))
	app.Register(auth.NewModule(store, jwtCfg, logger))
	app.Register(activity.NewModule(config.RedisConfig{}, logger))
	app.Register(apiModule)

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	require.NotNil(t, apiModule.app)
	return apiModule
}

func send(t *testing.T, m *APIModule, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := m.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, m *APIModule, email string) string {
	t.Helper()
	creds := `{"email":"` + email + `","password":"password123"}`

	status, _ := send(t, m, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, status)

	status, body := send(t, m, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, status)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAdapters_ErrorKindsSurviveRequestReply(t *testing.T) {
	m := startStack(t)
	ctx := context.Background()

	_, err := m.taskAdapter.GetTask(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = m.taskAdapter.CreateTask(ctx, &task.CreateTaskRequest{UserID: "u1", Title: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.taskAdapter.CreateTask(ctx, &task.CreateTaskRequest{UserID: "u1", Title: "ok", Priority: "urgent"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = m.taskAdapter.DeleteTask(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	req := &auth.RegisterRequest{Email: "ada@example.com", Password: "password123"}
	_, err = m.authAdapter.Register(ctx, req)
	require.NoError(t, err)
	_, err = m.authAdapter.Register(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = m.authAdapter.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, err = m.authAdapter.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, err = m.activityAdapter.ListActivity(ctx, "", 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAdapters_UpdateKeepsPresenceOfOptionalFields(t *testing.T) {
	m := startStack(t)
	ctx := context.Background()

	desc := "two litres"
	created, err := m.taskAdapter.CreateTask(ctx, &task.CreateTaskRequest{
		UserID:      "u1",
		Title:       "Buy milk",
		Description: &desc,
		Tags:        []string{"shopping", "home"},
	})
	require.NoError(t, err)

	title := "Buy oat milk"
	renamed, err := m.taskAdapter.UpdateTask(ctx, &task.UpdateTaskRequest{UserID: "u1", TaskID: created.ID, Title: &title})
	require.NoError(t, err)
	require.NotNil(t, renamed.Description)
	assert.Equal(t, "two litres", *renamed.Description)
	assert.Equal(t, []string{"shopping", "home"}, renamed.Tags)

	empty := ""
	noTags := []string{}
	cleared, err := m.taskAdapter.UpdateTask(ctx, &task.UpdateTaskRequest{
		UserID:      "u1",
		TaskID:      created.ID,
		Description: &empty,
		Tags:        &noTags,
	})
	require.NoError(t, err)
	require.NotNil(t, cleared.Description)
	assert.Equal(t, "", *cleared.Description)
	assert.Empty(t, cleared.Tags)
	assert.Equal(t, "Buy oat milk", cleared.Title)
	assert.True(t, cleared.UpdatedAt.After(created.UpdatedAt))

	_, err = m.taskAdapter.GetTask(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = m.taskAdapter.UpdateTask(ctx, &task.UpdateTaskRequest{UserID: "u2", TaskID: created.ID, Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAPIModule_EndToEnd(t *testing.T) {
	m := startStack(t)

	status, _ := send(t, m, http.MethodPost, "/api/v1/auth/register", "", `{"email":"dup@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = send(t, m, http.MethodPost, "/api/v1/auth/register", "", `{"email":"dup@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body := send(t, m, http.MethodPost, "/api/v1/auth/login", "", `{"email":"dup@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Incorrect email or password", body["message"])

	owner := registerAndLogin(t, m, "owner@example.com")
	other := registerAndLogin(t, m, "other@example.com")

	status, body = send(t, m, http.MethodGet, "/api/v1/users/me", owner, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "owner@example.com", body["email"])

	status, _ = send(t, m, http.MethodPost, "/api/v1/tasks", owner, `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = send(t, m, http.MethodPost, "/api/v1/tasks", owner, `{"title":"Buy milk","description":"two litres","tags":["home"]}`)
	require.Equal(t, http.StatusCreated, status)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	path := "/api/v1/tasks/" + id

	status, body = send(t, m, http.MethodPut, path, owner, `{"description":""}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", body["description"])
	assert.Equal(t, []any{"home"}, body["tags"])

	status, body = send(t, m, http.MethodPatch, path+"/toggle-status", owner, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, _ = send(t, m, http.MethodGet, path, other, "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = send(t, m, http.MethodDelete, path, other, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = send(t, m, http.MethodDelete, path, owner, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = send(t, m, http.MethodDelete, path, owner, "")
	assert.Equal(t, http.StatusNotFound, status)

	// created, updated, completed, deleted; events arrive asynchronously
	assert.Eventually(t, func() bool {
		status, body := send(t, m, http.MethodGet, "/api/v1/tasks/activity", owner, "")
		entries, _ := body["entries"].([]any)
		return status == http.StatusOK && len(entries) == 4
	}, 5*time.Second, 50*time.Millisecond)

	status, body = send(t, m, http.MethodGet, "/api/v1/tasks/activity", other, "")
	require.Equal(t, http.StatusOK, status)
	entries, _ := body["entries"].([]any)
	assert.Empty(t, entries)
}
