// Package auth is the identity and session core of Quill. It handles user
// registration, local and Google login, password reset, plan entitlement,
// and bearer-token authorization for the chat and AI plugins.
//
// Sessions are stateless HS256 JWTs: nothing is stored server-side and
// nothing is revoked -- a token stays valid until its expiry.
package auth

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// Provider identifies how an identity authenticates.
type Provider string

const (
	// ProviderLocal is password-based authentication owned by Quill.
	ProviderLocal Provider = "local"

	// ProviderGoogle is an identity asserted by Google sign-in.
	ProviderGoogle Provider = "google"
)

// emailRe is the email format check applied to every identity.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User represents a registered Quill identity. This is the domain model used
// throughout the application; database scanning uses this struct directly.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	Provider     Provider  `json:"provider"`
	Pro          int       `json:"pro"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// IsLocal reports whether the identity authenticates with a password.
func (u *User) IsLocal() bool {
	return u.Provider == ProviderLocal
}

// NewLocalUser builds a password-based identity. Username, email, and the
// already-computed password hash are all required for the local provider;
// the email must be normalized and well-formed. Hashing happens in the
// service before this constructor runs, never as a persistence side effect.
func NewLocalUser(username, email, passwordHash string) (*User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if username == "" || email == "" || passwordHash == "" {
		return nil, apperror.NewValidation("Username, email, and password are required.")
	}
	if !emailRe.MatchString(email) {
		return nil, apperror.NewValidation("Please provide a valid email.")
	}

	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Provider:     ProviderLocal,
		Pro:          0,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NewFederatedUser builds an identity asserted by an external provider.
// Federated identities carry no password hash; the username is seeded from
// the provider-supplied display name and may be empty or clash with others.
func NewFederatedUser(provider Provider, email, displayName string) (*User, error) {
	email = NormalizeEmail(email)

	if provider == "" || provider == ProviderLocal {
		return nil, apperror.NewValidation("A federated provider is required.")
	}
	if email == "" || !emailRe.MatchString(email) {
		return nil, apperror.NewValidation("Please provide a valid email.")
	}

	return &User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(displayName),
		Email:     email,
		Provider:  provider,
		Pro:       0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NormalizeEmail applies the canonical email normalization: trim + lowercase.
// Uniqueness and lookups operate on the normalized form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted to POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest holds the data submitted to POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest holds the data submitted to POST /api/auth/google.
type GoogleLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name"`
	GoogleID string `json:"googleId" validate:"required"`
}

// ResetPasswordRequest holds the data submitted to PUT /api/auth/password.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// --- Service input DTOs ---

// RegisterInput is the validated input for creating a new local identity.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the validated input for authenticating a local identity.
type LoginInput struct {
	Email    string
	Password string
}

// GoogleLoginInput is the validated input for the federated login flow.
type GoogleLoginInput struct {
	Email    string
	Name     string
	GoogleID string
}

// ResetPasswordInput is the validated input for the password reset flow.
type ResetPasswordInput struct {
	Email    string
	Password string
}

// UserUpdate describes a partial identity mutation. Nil fields are left
// untouched. The repository bumps updated_at on every write.
type UserUpdate struct {
	Provider     *Provider
	PasswordHash *string
	Pro          *int
}

// UserPayload is the public representation of an identity returned by every
// auth endpoint. The password hash never appears here.
type UserPayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Provider  Provider  `json:"provider"`
	Pro       int       `json:"pro"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payload converts a User to its public representation.
func (u *User) Payload() UserPayload {
	return UserPayload{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Provider:  u.Provider,
		Pro:       u.Pro,
		CreatedAt: u.CreatedAt,
	}
}
