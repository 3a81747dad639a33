package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/todo-evolution/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	if container == nil {
		panic("auth adapter requires non-nil ServiceContainer")
	}
	return &AuthAdapter{
		container: container,
	}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

func userCall[Req any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*UserResponse, error) {
	var resp UserReply
	if err := call(ctx, container, service, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%s returned no user", service)
	}
	return resp.User, nil
}

// Register creates an account via the register service.
func (a *AuthAdapter) Register(ctx context.Context, req *RegisterRequest) (*UserResponse, error) {
	return userCall(ctx, a.container, ServiceRegister, req)
}

// Login checks credentials and returns a bearer token.
func (a *AuthAdapter) Login(ctx context.Context, email, password string) (*domain.Token, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp LoginResponse
	if err := call(ctx, a.container, ServiceLogin, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return &domain.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, ServiceValidateToken, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if !resp.Valid {
		return nil, ErrInvalidToken
	}

	return &domain.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	return userCall(ctx, a.container, ServiceGetUser, &GetUserRequest{UserID: userID})
}

// UpdateUser changes a user's profile via the update-user service.
func (a *AuthAdapter) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*UserResponse, error) {
	return userCall(ctx, a.container, ServiceUpdateUser, req)
}
