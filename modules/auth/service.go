package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/user"
	"github.com/google/uuid"
)

const (
	msgInvalidCredentials = "invalid email or password"
	msgInactiveUser       = "user is inactive"
	msgInvalidToken       = "invalid or expired token"
)

// ProfileUpdate holds the changes a user may request for their account.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	Email    *string
	FullName *string
	Password *string
	IsActive *bool
}

// AuthService handles authentication business logic.
type AuthService struct {
	repo   domain.Repository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo domain.Repository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new, active user account.
func (s *AuthService) Register(ctx context.Context, email, password string, fullName *string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to hash password")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     cleanName(fullName),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and returns the matching active user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Authentication(msgInvalidCredentials)
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apperr.Authentication(msgInactiveUser)
	}
	return user, nil
}

// CreateToken issues a bearer token for user.
func (s *AuthService) CreateToken(user *domain.User) (*domain.Token, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to generate access token")
	}

	return &domain.Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   s.jwt.TokenDuration(),
	}, nil
}

// Login authenticates and issues a token in one step.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Token, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.CreateToken(user)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// ValidateToken validates an access token and returns claims. Tokens of
// users that no longer exist or were deactivated are rejected.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, err, msgInvalidToken)
	}

	user, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Authentication("user no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Authentication(msgInactiveUser)
	}

	return &domain.Claims{
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile applies a partial change to a user's account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*domain.User, error) {
	var update domain.UserUpdate

	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(ctx, email, userID); err != nil {
			return nil, err
		}
		update.Email = &email
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		update.FullName = &name
	}

	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to hash password")
		}
		update.PasswordHash = &hash
	}

	update.IsActive = in.IsActive
	return s.repo.Update(ctx, userID, update)
}

// ensureEmailFree fails with AlreadyExists when email belongs to a user other than ownerID.
func (s *AuthService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID == ownerID {
			return nil
		}
		return apperr.AlreadyExists("user with email %s already exists", email)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email format")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return apperr.Validation("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
