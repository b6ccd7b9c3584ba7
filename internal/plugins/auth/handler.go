package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// tokenCookieName is the HTTP cookie carrying the session token for browser
// clients. The same token also travels in the response body for clients
// that prefer the Authorization header.
const tokenCookieName = "token"

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and render the response. No business
// logic lives here.
type Handler struct {
	service    AuthService
	production bool
}

// NewHandler creates a new auth handler. production controls the cookie
// flags: Secure + SameSite=None in production (the web client runs on a
// different origin), Lax otherwise so local dev works without TLS.
func NewHandler(service AuthService, production bool) *Handler {
	return &Handler{service: service, production: production}
}

// Register creates a local identity (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.NewValidation("Username, email, and password are required.")
	}

	user, token, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return h.sendTokenResponse(c, http.StatusCreated, user, token)
}

// Login authenticates a local identity (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.NewValidation("Email and password are required.")
	}

	user, token, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return h.sendTokenResponse(c, http.StatusOK, user, token)
}

// Logout clears the session cookie (POST /api/auth/logout). Tokens are not
// revocable server-side; logout is purely a cookie-clearing instruction.
func (h *Handler) Logout(c echo.Context) error {
	h.clearTokenCookie(c)
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Logged out successfully.",
	})
}

// Google performs the federated login flow (POST /api/auth/google).
// Unlike local login, no cookie is set: the response carries only the
// short-lived token and the client holds it itself.
func (h *Handler) Google(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid Google user data")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.NewValidation("Invalid Google user data")
	}

	user, token, err := h.service.GoogleLogin(c.Request().Context(), GoogleLoginInput{
		Email:    req.Email,
		Name:     req.Name,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":  user.Payload(),
		"token": token,
	})
}

// Me returns the authenticated identity (GET /api/auth/me). 404 if the
// identity vanished after the token was issued.
func (h *Handler) Me(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	user, err := h.service.GetUser(c.Request().Context(), principal.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user.Payload())
}

// planRequest uses json.RawMessage so a missing "pro" field is
// distinguishable from every present value, including null.
type planRequest struct {
	Pro json.RawMessage `json:"pro"`
}

// UpdatePlan sets the pro entitlement flag (PATCH /api/auth/plan).
func (h *Handler) UpdatePlan(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	var req planRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}
	if req.Pro == nil {
		return apperror.NewValidation("Missing required field: pro.")
	}

	user, err := h.service.UpdatePlan(c.Request().Context(), principal.ID, coercePro(req.Pro))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Plan updated successfully.",
		"user":    user.Payload(),
	})
}

// ResetPassword sets a new password by email (PUT /api/auth/password).
// The response is identical whether or not the email exists.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.NewValidation("Email and new password are required.")
	}

	if err := h.service.ResetPassword(c.Request().Context(), ResetPasswordInput{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If an account exists for that email, the password has been updated.",
	})
}

// sendTokenResponse writes the session cookie and the standard success body
// used by register and local login.
func (h *Handler) sendTokenResponse(c echo.Context, status int, user *User, token string) error {
	h.setTokenCookie(c, token)
	return c.JSON(status, map[string]any{
		"message": "Success",
		"user":    user.Payload(),
		"token":   token,
	})
}

// setTokenCookie sets the session cookie: HttpOnly, 30-day lifetime,
// Secure + SameSite=None in production (cross-origin web client), Lax in
// development.
func (h *Handler) setTokenCookie(c echo.Context, token string) {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteNoneMode
	}
	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
		MaxAge:   int(TokenTTL.Seconds()),
	})
}

// clearTokenCookie removes the session cookie by setting MaxAge to -1.
func (h *Handler) clearTokenCookie(c echo.Context) {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteNoneMode
	}
	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// coercePro coerces the raw "pro" JSON value to {0,1} with JavaScript
// Number() semantics, which is what the web client historically sent:
// 1, "1", and true become 1; everything else (including "banana") is 0.
func coercePro(raw json.RawMessage) int {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	switch val := v.(type) {
	case float64:
		if val == 1 {
			return 1
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && f == 1 {
			return 1
		}
	case bool:
		if val {
			return 1
		}
	}
	return 0
}
