package auth

import (
	"context"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/user"
	"github.com/example/todo-evolution/events"
	"github.com/go-monolith/mono"
)

func (m *AuthModule) fail(op string, err error) *apperr.Payload {
	if apperr.KindOf(err) == apperr.KindInternal {
		m.logger.Error("Auth operation failed", "operation", op, "error", err)
	}
	return apperr.ToPayload(err)
}

// handleRegister handles user registration.
func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (UserReply, error) {
	user, err := m.service.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		return UserReply{Error: m.fail(ServiceRegister, err)}, nil
	}

	m.logger.Info("User registered", "user_id", user.ID)
	m.publishRegistered(user)
	return UserReply{User: toUserResponse(user)}, nil
}

// handleLogin handles user login.
func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	_, token, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{Error: m.fail(ServiceLogin, err)}, nil
	}

	return LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	}, nil
}

// handleValidateToken returns a response, not an error, for validation failures.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{
			Valid: false,
			Error: m.fail(ServiceValidateToken, err),
		}, nil
	}

	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// handleGetUser handles get user requests.
func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserReply, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return UserReply{Error: m.fail(ServiceGetUser, err)}, nil
	}
	return UserReply{User: toUserResponse(user)}, nil
}

func (m *AuthModule) handleUpdateUser(ctx context.Context, req UpdateUserRequest, _ *mono.Msg) (UserReply, error) {
	user, err := m.service.UpdateProfile(ctx, req.UserID, ProfileUpdate{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		return UserReply{Error: m.fail(ServiceUpdateUser, err)}, nil
	}
	return UserReply{User: toUserResponse(user)}, nil
}

func (m *AuthModule) publishRegistered(user *domain.User) {
	if m.eventBus == nil {
		return
	}
	event := events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		RegisteredAt: time.Now().UTC(),
	}
	if user.FullName != nil {
		event.FullName = *user.FullName
	}
	if err := events.UserRegisteredV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish UserRegistered event", "user_id", user.ID, "error", err)
	}
}
