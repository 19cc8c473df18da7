package domain

import (
	"context"
	"time"
)

// Gender values accepted for an account profile.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Account is an administrator or member, created on first identity verification.
// swagger:model Account
type Account struct {
	ID          string    `json:"id"`
	IdentityKey string    `json:"identity_key"`
	DisplayName string    `json:"display_name"`
	Phone       string    `json:"phone"`
	BirthDate   time.Time `json:"birth_date"`
	Gender      Gender    `json:"gender"`
	IsAdmin     bool      `json:"is_admin"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAccount returns a new Account with the given fields. ID is set by the repository on create.
func NewAccount(identityKey, displayName, phone string, birthDate time.Time, gender Gender, isAdmin bool, createdAt time.Time) *Account {
	return &Account{
		IdentityKey: identityKey,
		DisplayName: displayName,
		Phone:       phone,
		BirthDate:   birthDate,
		Gender:      gender,
		IsAdmin:     isAdmin,
		CreatedAt:   createdAt,
	}
}

// AccountProfileUpdate holds the optional profile fields an account may change about itself.
type AccountProfileUpdate struct {
	DisplayName *string    `validate:"omitempty,min=1,max=50"`
	Phone       *string    `validate:"omitempty,min=1,max=20"`
	BirthDate   *time.Time `validate:"omitempty"`
	Gender      *Gender    `validate:"omitempty,oneof=M F O"`
	AvatarURL   *string    `validate:"omitempty,url"`
}

// SignUpInput is the profile submitted when an identity signs up for the first time.
type SignUpInput struct {
	IdentityKey string    `validate:"required,max=64"`
	DisplayName string    `validate:"required,max=50"`
	Phone       string    `validate:"required,max=20"`
	BirthDate   time.Time `validate:"required"`
	Gender      Gender    `validate:"required,oneof=M F O"`
	AvatarURL   *string   `validate:"omitempty,url"`
}

// AccountRepository defines storage for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByIdentityKey(ctx context.Context, identityKey string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	List(ctx context.Context, p PaginationParams) ([]*Account, int, error)
	Delete(ctx context.Context, id string) error
}

// TokenIssuer issues bearer tokens for an account.
type TokenIssuer interface {
	Issue(accountID string, isAdmin bool, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated account ID.
type TokenVerifier interface {
	Verify(token string) (accountID string, err error)
}

// IdentityResolver maps an identity-provider key to the account that owns it.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, identityKey string) (accountID string, err error)
}

// AccountService covers sign up, identity exchange and profile management.
type AccountService interface {
	SignUp(ctx context.Context, in SignUpInput) (*Account, error)
	// ExchangeIdentity returns a bearer token for the account bound to identityKey.
	ExchangeIdentity(ctx context.Context, identityKey string) (token string, account *Account, err error)
	ResolveIdentity(ctx context.Context, identityKey string) (string, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	UpdateProfile(ctx context.Context, accountID string, upd AccountProfileUpdate) (*Account, error)
	// List and Delete are restricted to administrators; actingAccountID is checked.
	List(ctx context.Context, actingAccountID string, p PaginationParams) (Page[*Account], error)
	Delete(ctx context.Context, actingAccountID, accountID string) error
}
