package chats

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/plugins/auth"
)

// RegisterRoutes sets up all chat routes under /api/chats. Every route sits
// behind the bearer-token gate.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	g := e.Group("/api/chats", auth.RequireAuth(authSvc))

	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/:chatId/messages", h.AppendMessages)
	g.PATCH("/:chatId", h.Update)
	g.DELETE("/:chatId", h.Delete)
}
