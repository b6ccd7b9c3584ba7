package ai

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// GenerateRequest holds the data submitted to POST /api/ai/gemini.
type GenerateRequest struct {
	Prompt           string           `json:"prompt"`
	History          []HistoryMessage `json:"history"`
	Model            string           `json:"model"`
	GenerationConfig map[string]any   `json:"generationConfig"`
}

// Handler handles HTTP requests for AI completions.
type Handler struct {
	client *Client
}

// NewHandler creates a new AI handler with the given Gemini client.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Generate proxies a completion request to Gemini (POST /api/ai/gemini).
func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body.")
	}
	if req.Prompt == "" {
		return apperror.NewValidation("Prompt is required.")
	}

	result, err := h.client.Generate(c.Request().Context(), GenerateInput{
		Prompt:           req.Prompt,
		History:          req.History,
		Model:            req.Model,
		GenerationConfig: req.GenerationConfig,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
