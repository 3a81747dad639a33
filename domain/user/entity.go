package user

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           string    `gorm:"primaryKey;type:text"`
	Email        string    `gorm:"uniqueIndex;not null;type:text"`
	FullName     *string   `gorm:"type:text"`
	PasswordHash string    `gorm:"not null;type:text" json:"-"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// UserUpdate holds optional changes to a user. Nil fields are left untouched;
// an empty FullName clears it.
type UserUpdate struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	IsActive     *bool
}

// Apply copies the non-nil fields onto u.
func (p UserUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		if *p.FullName == "" {
			u.FullName = nil
		} else {
			name := *p.FullName
			u.FullName = &name
		}
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

// Repository is the persistence port for users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, update UserUpdate) (*User, error)
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Claims is the identity carried by a validated token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
