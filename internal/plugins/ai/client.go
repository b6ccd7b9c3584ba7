// Package ai proxies completion requests to the Gemini API for
// authenticated users. The server holds the API key; clients never see it.
// The proxy is a pass-through: no retries, no streaming, no caching.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/keyxmakerx/quill/internal/apperror"
	"github.com/keyxmakerx/quill/internal/config"
)

// geminiBaseURL is the Gemini REST endpoint; the model name is appended.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// upstreamTimeout caps how long a single completion call may take.
const upstreamTimeout = 20 * time.Second

// HistoryMessage is one prior exchange entry supplied by the client.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// GenerateInput is the validated input for a completion call.
type GenerateInput struct {
	Prompt           string
	History          []HistoryMessage
	Model            string
	GenerationConfig map[string]any
}

// GenerateResult is the distilled upstream response returned to the client.
type GenerateResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage any    `json:"usage"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey       string
	defaultModel string
	baseURL      string
	httpClient   *http.Client
}

// NewClient creates a Gemini client from config. An empty API key is
// allowed at startup; calls then fail with a configuration error instead
// of preventing the rest of the server from running.
func NewClient(cfg config.GeminiConfig) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.Model,
		baseURL:      geminiBaseURL,
		httpClient:   &http.Client{Timeout: upstreamTimeout},
	}
}

// --- Gemini wire types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata any `json:"usageMetadata"`
}

type geminiError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Generate performs a completion call and returns the joined candidate text.
func (c *Client) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if c.apiKey == "" {
		return nil, &apperror.AppError{
			Code:    http.StatusInternalServerError,
			Type:    "internal_error",
			Message: "Gemini API key is not configured on the server.",
		}
	}

	model := input.Model
	if model == "" {
		model = c.defaultModel
	}

	payload := geminiRequest{
		Contents:         buildContents(input.Prompt, input.History),
		GenerationConfig: buildGenerationConfig(input.GenerationConfig),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("encoding gemini request: %w", err))
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("building gemini request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("calling gemini: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("decoding gemini response: %w", err))
	}

	text := extractText(parsed)
	if text == "" {
		return nil, apperror.NewBadGateway("No content returned from Gemini API.")
	}

	return &GenerateResult{
		Text:  text,
		Model: model,
		Usage: parsed.UsageMetadata,
	}, nil
}

// buildContents maps the client-side history plus the new prompt onto
// Gemini's contents format. Assistant turns become "model"; everything
// else is "user".
func buildContents(prompt string, history []HistoryMessage) []geminiContent {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: prompt}},
	})
	return contents
}

// buildGenerationConfig overlays caller overrides onto the defaults.
func buildGenerationConfig(overrides map[string]any) map[string]any {
	cfg := map[string]any{
		"temperature":     0.7,
		"topP":            0.8,
		"topK":            40,
		"maxOutputTokens": 2048,
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	return cfg
}

// extractText joins all candidate parts into one trimmed string.
func extractText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

// upstreamError maps a non-2xx Gemini response to an AppError carrying the
// upstream status and its message when one can be extracted.
func upstreamError(resp *http.Response) error {
	message := "Failed to generate response from Gemini API."

	var parsed geminiError
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		} else if parsed.Message != "" {
			message = parsed.Message
		}
	}

	return apperror.NewStatus(resp.StatusCode, message)
}
