package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/plugins/ai"
	"github.com/keyxmakerx/quill/internal/plugins/auth"
	"github.com/keyxmakerx/quill/internal/plugins/chats"
)

// RegisterRoutes sets up all application routes. It constructs each plugin's
// repository/service/handler chain and delegates to the plugin's route
// registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for Docker health monitoring.
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- auth plugin ---
	userRepo := auth.NewUserRepository(a.DB)
	tokens := auth.NewTokenService(a.Config.Auth.JWTSecret)
	authSvc := auth.NewAuthService(userRepo, tokens)
	authHandler := auth.NewHandler(authSvc, a.Config.IsProduction())
	auth.RegisterRoutes(e, authHandler, authSvc)

	// --- chats plugin ---
	chatRepo := chats.NewChatRepository(a.DB)
	chatSvc := chats.NewChatService(chatRepo)
	chatHandler := chats.NewHandler(chatSvc)
	chats.RegisterRoutes(e, chatHandler, authSvc)

	// --- ai plugin ---
	gemini := ai.NewClient(a.Config.Gemini)
	aiHandler := ai.NewHandler(gemini)
	ai.RegisterRoutes(e, aiHandler, authSvc)
}
