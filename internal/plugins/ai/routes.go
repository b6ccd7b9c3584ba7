package ai

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/plugins/auth"
)

// RegisterRoutes sets up the AI routes under /api/ai, behind the
// bearer-token gate.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	g := e.Group("/api/ai", auth.RequireAuth(authSvc))

	g.POST("/gemini", h.Generate)
}
