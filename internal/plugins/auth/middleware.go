package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// contextKeyPrincipal is the Echo context key holding the authenticated
// principal. Other plugins access it via GetPrincipal/GetUserID.
const contextKeyPrincipal = "auth_principal"

// Principal is the authenticated-identity context attached to a request
// after the authorization gate passes. It carries the identity fields
// downstream handlers need plus the raw verified token claims.
type Principal struct {
	ID       string
	Email    string
	Username string
	Provider Provider
	Pro      int

	// Claims are the verified token claims the principal was built from.
	Claims *Claims
}

// RequireAuth returns middleware that authenticates requests via an
// `Authorization: Bearer <token>` header. A missing token, a failed
// verification, and a vanished identity all produce the same generic 401.
//
// On success the principal is stored in the request context and control
// passes to the downstream handler. Authorization never mutates the
// identity.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return requireAuth(service, false)
}

// RequireAuthWithCookie is RequireAuth with a cookie fallback: the bearer
// header is consulted first, then the session cookie. Route groups that
// serve browser clients without an Authorization header opt into this
// variant explicitly.
func RequireAuthWithCookie(service AuthService) echo.MiddlewareFunc {
	return requireAuth(service, true)
}

func requireAuth(service AuthService, allowCookie bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" && allowCookie {
				token = cookieToken(c)
			}
			if token == "" {
				return apperror.NewUnauthorized("No token provided.")
			}

			user, claims, err := service.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(contextKeyPrincipal, &Principal{
				ID:       user.ID,
				Email:    user.Email,
				Username: user.Username,
				Provider: user.Provider,
				Pro:      user.Pro,
				Claims:   claims,
			})

			return next(c)
		}
	}
}

// bearerToken extracts the token from the Authorization header, or returns
// empty when the header is absent or not Bearer-shaped.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}

// cookieToken extracts the token from the session cookie.
func cookieToken(c echo.Context) string {
	cookie, err := c.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// --- Exported getters for other plugins ---

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetPrincipal(c echo.Context) *Principal {
	principal, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetUserID retrieves the authenticated identity's id from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	if p := GetPrincipal(c); p != nil {
		return p.ID
	}
	return ""
}
