package api

import (
	"github.com/example/todo-evolution/modules/task"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

// LoginRequest accepts either a JSON body with email or an OAuth2 style
// form with username.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UpdateMeRequest changes the caller's own profile. Omitted fields are kept.
type UpdateMeRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// UpdateTaskRequest is the body of PUT /tasks/:id. Omitted or null fields are
// kept; an empty string or list clears the field.
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
}

// TaskListResponse is the body of GET /tasks.
type TaskListResponse struct {
	Tasks []task.TaskResponse `json:"tasks"`
	Total int                 `json:"total"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
