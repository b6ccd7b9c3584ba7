package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth routes under /api/auth. Register, login,
// logout, google, and password reset are public; /me and /plan sit behind
// the bearer-token gate. The gate itself is exported separately for the
// chat and AI plugins to use on their route groups.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService) {
	g := e.Group("/api/auth")

	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/google", h.Google)
	g.PUT("/password", h.ResetPassword)

	authed := g.Group("", RequireAuth(service))
	authed.GET("/me", h.Me)
	authed.PATCH("/plan", h.UpdatePlan)
}
