package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn                func(ctx context.Context, user *User) error
	findByIDFn              func(ctx context.Context, id string) (*User, error)
	findByEmailFn           func(ctx context.Context, email string) (*User, error)
	findByEmailWithHashFn   func(ctx context.Context, email string) (*User, error)
	findByEmailOrUsernameFn func(ctx context.Context, email, username string) (*User, error)
	updateFn                func(ctx context.Context, id string, update UserUpdate) (*User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("User not found.")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("User not found.")
}

func (m *mockUserRepo) FindByEmailWithHash(ctx context.Context, email string) (*User, error) {
	if m.findByEmailWithHashFn != nil {
		return m.findByEmailWithHashFn(ctx, email)
	}
	return nil, apperror.NewNotFound("User not found.")
}

func (m *mockUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	if m.findByEmailOrUsernameFn != nil {
		return m.findByEmailOrUsernameFn(ctx, email, username)
	}
	return nil, apperror.NewNotFound("User not found.")
}

func (m *mockUserRepo) Update(ctx context.Context, id string, update UserUpdate) (*User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, apperror.NewNotFound("User not found.")
}

// --- Test Helpers ---

func newTestAuthService(repo *mockUserRepo) AuthService {
	return NewAuthService(repo, NewTokenService("test-secret"))
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// assertLoginError checks for the single generic 401 every credential
// failure must produce.
func assertLoginError(t *testing.T, err error) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != 401 {
		t.Errorf("expected status 401, got %d", appErr.Code)
	}
	if appErr.Message != genericLoginError {
		t.Errorf("expected message %q, got %q", genericLoginError, appErr.Message)
	}
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}

	svc := newTestAuthService(repo)
	user, token, err := svc.Register(context.Background(), RegisterInput{
		Username: "  alice  ",
		Email:    "  Alice@Example.COM ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.Username != "alice" {
		t.Errorf("expected trimmed username, got %s", created.Username)
	}
	if created.Provider != ProviderLocal {
		t.Errorf("expected local provider, got %s", created.Provider)
	}
	if created.PasswordHash == "" {
		t.Error("expected password hash to be set on the persisted user")
	}
	if created.Pro != 0 {
		t.Errorf("expected pro to default to 0, got %d", created.Pro)
	}

	if user.PasswordHash != "" {
		t.Error("expected password hash to be cleared on the returned user")
	}

	claims, err := NewTokenService("test-secret").Verify(token)
	if err != nil {
		t.Fatalf("expected a verifiable token: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("expected token subject %s, got %s", user.ID, claims.Subject)
	}
}

func TestRegister_Conflict(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailOrUsernameFn: func(ctx context.Context, email, username string) (*User, error) {
			return &User{ID: "existing"}, nil
		},
	}

	svc := newTestAuthService(repo)
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "taken@example.com",
		Password: "secret123",
	})
	assertAppError(t, err, 409)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "not-an-email",
		Password: "secret123",
	})
	assertAppError(t, err, 400)
}

func TestRegister_CreateRace(t *testing.T) {
	// A racing registration slips past the pre-check; the unique index fires
	// on insert and the conflict must surface as a 409, not a 500.
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict("User with this email or username already exists.")
		},
	}

	svc := newTestAuthService(repo)
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assertAppError(t, err, 409)
}

func TestRegister_CreateError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return errors.New("db write error")
		},
	}

	svc := newTestAuthService(repo)
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assertAppError(t, err, 500)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := &mockUserRepo{
		findByEmailWithHashFn: func(ctx context.Context, email string) (*User, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized lookup email, got %s", email)
			}
			return &User{
				ID:           "user-1",
				Email:        email,
				Username:     "alice",
				PasswordHash: hash,
				Provider:     ProviderLocal,
			}, nil
		},
	}

	svc := newTestAuthService(repo)
	user, token, err := svc.Login(context.Background(), LoginInput{
		Email:    " Alice@Example.com ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("expected password hash to be cleared on the returned user")
	}
	if token == "" {
		t.Error("expected a session token")
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assertLoginError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := HashPassword("the-real-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := &mockUserRepo{
		findByEmailWithHashFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", PasswordHash: hash, Provider: ProviderLocal}, nil
		},
	}

	svc := newTestAuthService(repo)
	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "a-guess",
	})
	assertLoginError(t, err)
}

func TestLogin_FederatedIdentityRefused(t *testing.T) {
	// A Google identity has no local credential. The password path must
	// refuse it with the same generic 401 as a wrong password.
	repo := &mockUserRepo{
		findByEmailWithHashFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", Provider: ProviderGoogle}, nil
		},
	}

	svc := newTestAuthService(repo)
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "anything",
	})
	assertLoginError(t, err)
}

// --- Google Login Tests ---

func TestGoogleLogin_FirstSightCreates(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}

	svc := newTestAuthService(repo)
	user, token, err := svc.GoogleLogin(context.Background(), GoogleLoginInput{
		Email:    "Alice@Example.com",
		Name:     "Alice Smith",
		GoogleID: "google-sub-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected a federated identity to be created")
	}
	if created.Provider != ProviderGoogle {
		t.Errorf("expected google provider, got %s", created.Provider)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.Username != "Alice Smith" {
		t.Errorf("expected username seeded from display name, got %s", created.Username)
	}
	if created.PasswordHash != "" {
		t.Error("expected federated identity to carry no password hash")
	}

	// Federated sessions get the reduced lifetime.
	claims, err := NewTokenService("test-secret").Verify(token)
	if err != nil {
		t.Fatalf("expected a verifiable token: %v", err)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > FederatedTokenTTL || ttl < FederatedTokenTTL-time.Minute {
		t.Errorf("expected federated lifetime near %v, got %v", FederatedTokenTTL, ttl)
	}
	if user.ID != created.ID {
		t.Errorf("expected returned user to be the created one")
	}
}

func TestGoogleLogin_ExistingIdentity(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", Email: email, Provider: ProviderGoogle}, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			t.Error("expected no create for an existing identity")
			return nil
		},
	}

	svc := newTestAuthService(repo)
	user, _, err := svc.GoogleLogin(context.Background(), GoogleLoginInput{
		Email:    "alice@example.com",
		GoogleID: "google-sub-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected existing identity, got %s", user.ID)
	}
}

func TestGoogleLogin_MissingAssertionData(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})

	_, _, err := svc.GoogleLogin(context.Background(), GoogleLoginInput{Email: "a@b.co"})
	assertAppError(t, err, 400)

	_, _, err = svc.GoogleLogin(context.Background(), GoogleLoginInput{GoogleID: "sub"})
	assertAppError(t, err, 400)
}

// --- Reset Password Tests ---

func TestResetPassword_UnknownEmailSilentSuccess(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	err := svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "nobody@example.com",
		Password: "newsecret",
	})
	if err != nil {
		t.Fatalf("expected silent success for unknown email, got %v", err)
	}
}

func TestResetPassword_TooShort(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	err := svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "alice@example.com",
		Password: "short",
	})
	assertAppError(t, err, 400)
}

func TestResetPassword_FederatedBecomesLocal(t *testing.T) {
	var captured UserUpdate
	repo := &mockUserRepo{
		findByEmailWithHashFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", Email: email, Provider: ProviderGoogle}, nil
		},
		updateFn: func(ctx context.Context, id string, update UserUpdate) (*User, error) {
			captured = update
			return &User{ID: id, Provider: ProviderLocal}, nil
		},
	}

	svc := newTestAuthService(repo)
	if err := svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "alice@example.com",
		Password: "newsecret",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Provider == nil || *captured.Provider != ProviderLocal {
		t.Error("expected provider to flip to local in the same update")
	}
	if captured.PasswordHash == nil || *captured.PasswordHash == "" {
		t.Fatal("expected a new password hash in the update")
	}
	if !VerifyPassword("newsecret", *captured.PasswordHash) {
		t.Error("expected the stored hash to match the new password")
	}
}

// --- Plan Tests ---

func TestUpdatePlan(t *testing.T) {
	var captured UserUpdate
	repo := &mockUserRepo{
		updateFn: func(ctx context.Context, id string, update UserUpdate) (*User, error) {
			captured = update
			return &User{ID: id, Pro: *update.Pro}, nil
		},
	}

	svc := newTestAuthService(repo)
	user, err := svc.UpdatePlan(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Pro != 1 {
		t.Errorf("expected pro=1, got %d", user.Pro)
	}
	if captured.Pro == nil || *captured.Pro != 1 {
		t.Error("expected update to carry pro=1")
	}
	if captured.Provider != nil || captured.PasswordHash != nil {
		t.Error("expected plan update to touch only the pro flag")
	}
}

func TestUpdatePlan_UnknownUser(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	_, err := svc.UpdatePlan(context.Background(), "ghost", 1)
	assertAppError(t, err, 404)
}

// --- Authenticate Tests ---

func TestAuthenticate_Success(t *testing.T) {
	tokens := NewTokenService("test-secret")
	token, err := tokens.Issue("user-1", TokenTTL)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			if id != "user-1" {
				t.Errorf("expected lookup of user-1, got %s", id)
			}
			return &User{ID: id, Email: "alice@example.com"}, nil
		},
	}

	svc := NewAuthService(repo, tokens)
	user, claims, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %s", user.ID)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected claims subject user-1, got %s", claims.Subject)
	}
}

func TestAuthenticate_BadToken(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	_, _, err := svc.Authenticate(context.Background(), "not-a-token")
	assertAppError(t, err, 401)
}

func TestAuthenticate_VanishedIdentity(t *testing.T) {
	tokens := NewTokenService("test-secret")
	token, err := tokens.Issue("deleted-user", TokenTTL)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	svc := NewAuthService(&mockUserRepo{}, tokens)
	_, _, err = svc.Authenticate(context.Background(), token)
	assertAppError(t, err, 401)
}
