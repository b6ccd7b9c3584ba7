package chats

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/apperror"
	"github.com/keyxmakerx/quill/internal/plugins/auth"
)

// Handler handles HTTP requests for chat storage. Handlers are thin: bind,
// call the service, render JSON.
type Handler struct {
	service ChatService
}

// NewHandler creates a new chat handler with the given service.
func NewHandler(service ChatService) *Handler {
	return &Handler{service: service}
}

// List returns all chats for the authenticated user (GET /api/chats).
func (h *Handler) List(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	chats, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// Create stores a new chat (POST /api/chats).
func (h *Handler) Create(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	var req CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}

	chat, err := h.service.Create(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, chat)
}

// AppendMessages adds messages to a chat (POST /api/chats/:chatId/messages).
func (h *Handler) AppendMessages(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	var req AppendMessagesRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}

	chat, err := h.service.AppendMessages(c.Request().Context(), userID, c.Param("chatId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// Update changes chat metadata (PATCH /api/chats/:chatId).
func (h *Handler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	var req UpdateChatRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}

	chat, err := h.service.Update(c.Request().Context(), userID, c.Param("chatId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// Delete removes a chat permanently (DELETE /api/chats/:chatId).
func (h *Handler) Delete(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("Not authenticated.")
	}

	if err := h.service.Delete(c.Request().Context(), userID, c.Param("chatId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
