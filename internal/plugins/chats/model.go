// Package chats stores per-user chat conversations: the transcript history
// the web client renders and appends AI exchanges to. Every route is gated
// by the auth plugin and every query is scoped to the authenticated user.
package chats

import (
	"time"
)

// Message roles. Anything that isn't the assistant is coerced to a user
// message on ingest.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// defaultTitle is the placeholder for chats created without a derivable title.
const defaultTitle = "New Chat"

// Limits applied when sanitizing titles.
const (
	maxTitleLength = 80
	maxTitleWords  = 6
)

// Chat is a stored conversation. The transcript is embedded: list and get
// responses always carry the full message history.
type Chat struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Title      string     `json:"title"`
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Messages   []Message  `json:"messages"`
}

// Message is a single transcript entry. Time is the client-supplied display
// timestamp (an RFC3339 string), distinct from the server-side created_at.
type Message struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// --- Request DTOs ---

// IncomingMessage is a client-supplied message before sanitization.
type IncomingMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// CreateChatRequest holds the data submitted to POST /api/chats.
type CreateChatRequest struct {
	Title    string            `json:"title"`
	Messages []IncomingMessage `json:"messages"`
}

// AppendMessagesRequest holds the data submitted to POST /api/chats/:chatId/messages.
type AppendMessagesRequest struct {
	Messages []IncomingMessage `json:"messages"`
}

// UpdateChatRequest holds the data submitted to PATCH /api/chats/:chatId.
// Nil fields are left untouched.
type UpdateChatRequest struct {
	Title    *string `json:"title"`
	Archived *bool   `json:"archived"`
}
