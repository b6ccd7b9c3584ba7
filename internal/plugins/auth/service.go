package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// genericLoginError is the single message for every failed credential check.
// Wrong password and unknown email must be indistinguishable to the caller.
const genericLoginError = "Invalid email or password."

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 6

// AuthService defines the business logic contract for identity and session
// management. Handlers call these methods -- they never touch the repository
// or the hasher directly.
type AuthService interface {
	// Register creates a local identity and returns it with a session token.
	Register(ctx context.Context, input RegisterInput) (*User, string, error)

	// Login authenticates a local identity and returns it with a session token.
	Login(ctx context.Context, input LoginInput) (*User, string, error)

	// GoogleLogin resolves a Google-asserted identity, creating it on first
	// sight, and returns it with a reduced-lifetime session token.
	GoogleLogin(ctx context.Context, input GoogleLoginInput) (*User, string, error)

	// ResetPassword sets a new password for the identity with the given
	// email. Succeeds silently when the email is unknown.
	ResetPassword(ctx context.Context, input ResetPasswordInput) error

	// UpdatePlan sets the pro entitlement flag on an identity.
	UpdatePlan(ctx context.Context, userID string, pro int) (*User, error)

	// GetUser loads an identity by id, without the password hash.
	GetUser(ctx context.Context, id string) (*User, error)

	// Authenticate verifies a bearer token and loads the identity it
	// references. Used by the authorization gate on every protected request.
	Authenticate(ctx context.Context, token string) (*User, *Claims, error)
}

// authService implements AuthService with bcrypt hashing and JWT sessions.
type authService struct {
	repo   UserRepository
	tokens *TokenService
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, tokens *TokenService) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
	}
}

// Register creates a new local identity. It normalizes the credentials,
// checks for conflicts, hashes the password, persists the identity, and
// issues a standard session token.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, string, error) {
	username := strings.TrimSpace(input.Username)
	email := NormalizeEmail(input.Email)

	// Check for an existing identity before doing expensive hashing. The
	// unique email index still backstops racing registrations.
	existing, err := s.repo.FindByEmailOrUsername(ctx, email, username)
	if err != nil && !isNotFound(err) {
		return nil, "", apperror.NewInternal(fmt.Errorf("checking for existing user: %w", err))
	}
	if existing != nil {
		return nil, "", apperror.NewConflict("User with this email or username already exists.")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", apperror.NewInternal(err)
	}

	user, err := NewLocalUser(username, email, hash)
	if err != nil {
		return nil, "", err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, "", appErr
		}
		return nil, "", apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	token, err := s.tokens.Issue(user.ID, TokenTTL)
	if err != nil {
		return nil, "", apperror.NewInternal(err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	user.PasswordHash = ""
	return user, token, nil
}

// Login authenticates a local identity by email and password. An unknown
// email, a federated identity, and a wrong password all produce the same
// generic 401.
func (s *authService) Login(ctx context.Context, input LoginInput) (*User, string, error) {
	user, err := s.repo.FindByEmailWithHash(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, "", apperror.NewUnauthorized(genericLoginError)
		}
		return nil, "", apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	// Federated identities have no local credential; refuse before touching
	// bcrypt so no hash comparison ever runs for them.
	if !user.IsLocal() || user.PasswordHash == "" {
		return nil, "", apperror.NewUnauthorized(genericLoginError)
	}

	if !VerifyPassword(input.Password, user.PasswordHash) {
		return nil, "", apperror.NewUnauthorized(genericLoginError)
	}

	token, err := s.tokens.Issue(user.ID, TokenTTL)
	if err != nil {
		return nil, "", apperror.NewInternal(err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	user.PasswordHash = ""
	return user, token, nil
}

// GoogleLogin resolves a Google-asserted identity. First sight creates a
// federated identity with no password hash and the username seeded from the
// display name. The issued token gets the reduced federated lifetime.
//
// The client-supplied assertion is NOT verified against Google here; the
// trust boundary assumes the frontend completed the Google sign-in flow.
func (s *authService) GoogleLogin(ctx context.Context, input GoogleLoginInput) (*User, string, error) {
	if input.Email == "" || input.GoogleID == "" {
		return nil, "", apperror.NewValidation("Invalid Google user data")
	}

	email := NormalizeEmail(input.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			return nil, "", apperror.NewInternal(fmt.Errorf("finding user: %w", err))
		}

		user, err = NewFederatedUser(ProviderGoogle, email, input.Name)
		if err != nil {
			return nil, "", err
		}
		if err := s.repo.Create(ctx, user); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return nil, "", appErr
			}
			return nil, "", apperror.NewInternal(fmt.Errorf("creating federated user: %w", err))
		}

		slog.Info("federated user created",
			slog.String("user_id", user.ID),
			slog.String("provider", string(ProviderGoogle)),
		)
	}

	token, err := s.tokens.Issue(user.ID, FederatedTokenTTL)
	if err != nil {
		return nil, "", apperror.NewInternal(err)
	}

	return user, token, nil
}

// ResetPassword sets a new password for the identity with the given email.
// An unknown email is NOT an error: the caller gets the same success as for
// a known one, so the endpoint can't be used to enumerate accounts.
//
// A federated identity that resets a password becomes local -- a one-way
// transition. The provider flip and the new hash land in a single update.
func (s *authService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if len(input.Password) < minPasswordLen {
		return apperror.NewValidation("Password must be at least 6 characters long.")
	}

	user, err := s.repo.FindByEmailWithHash(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return apperror.NewInternal(err)
	}

	local := ProviderLocal
	if _, err := s.repo.Update(ctx, user.ID, UserUpdate{Provider: &local, PasswordHash: &hash}); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password reset",
		slog.String("user_id", user.ID),
	)

	return nil
}

// UpdatePlan sets the pro entitlement flag. The caller has already coerced
// pro to {0,1}.
func (s *authService) UpdatePlan(ctx context.Context, userID string, pro int) (*User, error) {
	if pro != 0 && pro != 1 {
		pro = 0
	}

	user, err := s.repo.Update(ctx, userID, UserUpdate{Pro: &pro})
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("User not found.")
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating plan: %w", err))
	}

	return user, nil
}

// GetUser loads an identity by id without the password hash.
func (s *authService) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("User not found.")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// Authenticate verifies a bearer token and loads the identity it references.
// A bad token and a vanished identity both produce a 401; authorization
// never mutates the identity.
func (s *authService) Authenticate(ctx context.Context, token string) (*User, *Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("Invalid or expired token.")
	}

	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("Invalid token. User not found.")
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("loading user for token: %w", err))
	}

	return user, claims, nil
}

// isNotFound reports whether err is a 404-class AppError.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}
