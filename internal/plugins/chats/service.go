package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/quill/internal/apperror"
	"github.com/keyxmakerx/quill/internal/sanitize"
)

// ChatService defines the business logic contract for chat storage.
type ChatService interface {
	List(ctx context.Context, userID string) ([]Chat, error)
	Create(ctx context.Context, userID string, req CreateChatRequest) (*Chat, error)
	AppendMessages(ctx context.Context, userID, chatID string, req AppendMessagesRequest) (*Chat, error)
	Update(ctx context.Context, userID, chatID string, req UpdateChatRequest) (*Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
}

// chatService implements ChatService.
type chatService struct {
	repo ChatRepository
}

// NewChatService creates a new chat service with the given repository.
func NewChatService(repo ChatRepository) ChatService {
	return &chatService{repo: repo}
}

// List returns the user's chats ordered by last activity.
func (s *chatService) List(ctx context.Context, userID string) ([]Chat, error) {
	chats, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing chats: %w", err))
	}
	return chats, nil
}

// Create stores a new chat. Messages are sanitized; the title falls back
// from the explicit one to a derivation from the first user message, then
// to the placeholder.
func (s *chatService) Create(ctx context.Context, userID string, req CreateChatRequest) (*Chat, error) {
	messages := sanitizeMessages(req.Messages)

	title := sanitizeTitle(req.Title)
	if title == "" {
		title = deriveTitle(messages)
	}
	if title == "" {
		title = defaultTitle
	}

	chat := &Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Messages:  messages,
	}

	if err := s.repo.Create(ctx, chat); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating chat: %w", err))
	}

	return s.reload(ctx, chat.ID, userID)
}

// AppendMessages adds sanitized messages to an existing chat. If the chat
// still carries the placeholder title, a real one is derived from the
// enlarged transcript.
func (s *chatService) AppendMessages(ctx context.Context, userID, chatID string, req AppendMessagesRequest) (*Chat, error) {
	messages := sanitizeMessages(req.Messages)
	if len(messages) == 0 {
		return nil, apperror.NewValidation("A non-empty messages array is required.")
	}

	chat, err := s.repo.FindByID(ctx, chatID, userID)
	if err != nil {
		return nil, asRepoError(err)
	}

	if err := s.repo.AppendMessages(ctx, chat.ID, messages); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("appending messages: %w", err))
	}

	if chat.Title == "" || chat.Title == defaultTitle {
		if title := deriveTitle(append(chat.Messages, messages...)); title != "" {
			if err := s.repo.UpdateMeta(ctx, chat.ID, userID, &title, nil, nil); err != nil {
				return nil, apperror.NewInternal(fmt.Errorf("retitling chat: %w", err))
			}
		}
	}

	return s.reload(ctx, chat.ID, userID)
}

// Update changes chat metadata: title and/or archive state.
func (s *chatService) Update(ctx context.Context, userID, chatID string, req UpdateChatRequest) (*Chat, error) {
	var (
		title      *string
		archivedAt *time.Time
	)

	if req.Title != nil {
		clean := sanitizeTitle(*req.Title)
		if clean == "" {
			return nil, apperror.NewValidation("Title must contain at least one visible character.")
		}
		title = &clean
	}
	if req.Archived != nil && *req.Archived {
		now := time.Now().UTC()
		archivedAt = &now
	}

	if title == nil && req.Archived == nil {
		return nil, apperror.NewValidation("No valid fields provided for update.")
	}

	// Existence check first so an unowned chat is a 404, not a silent no-op.
	if _, err := s.repo.FindByID(ctx, chatID, userID); err != nil {
		return nil, asRepoError(err)
	}

	if err := s.repo.UpdateMeta(ctx, chatID, userID, title, req.Archived, archivedAt); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating chat: %w", err))
	}

	return s.reload(ctx, chatID, userID)
}

// Delete removes a chat permanently.
func (s *chatService) Delete(ctx context.Context, userID, chatID string) error {
	if err := s.repo.Delete(ctx, chatID, userID); err != nil {
		return asRepoError(err)
	}
	return nil
}

// reload fetches the fresh chat after a mutation.
func (s *chatService) reload(ctx context.Context, chatID, userID string) (*Chat, error) {
	chat, err := s.repo.FindByID(ctx, chatID, userID)
	if err != nil {
		return nil, asRepoError(err)
	}
	return chat, nil
}

// asRepoError passes AppErrors through and wraps everything else as internal.
func asRepoError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.NewInternal(err)
}

// --- Sanitization ---

// sanitizeMessages drops empty or unusable messages, strips HTML from the
// text, coerces unknown roles to user, and defaults missing timestamps.
func sanitizeMessages(incoming []IncomingMessage) []Message {
	messages := []Message{}
	for _, msg := range incoming {
		text := strings.TrimSpace(sanitize.Text(msg.Text))
		if text == "" {
			continue
		}

		role := RoleUser
		if msg.Role == RoleAssistant {
			role = RoleAssistant
		}

		msgTime := strings.TrimSpace(msg.Time)
		if msgTime == "" {
			msgTime = time.Now().UTC().Format(time.RFC3339)
		}

		messages = append(messages, Message{
			Role: role,
			Text: text,
			Time: msgTime,
		})
	}
	return messages
}

// sanitizeTitle strips HTML, trims, and caps a title at maxTitleLength runes.
func sanitizeTitle(raw string) string {
	trimmed := strings.TrimSpace(sanitize.Text(raw))
	runes := []rune(trimmed)
	if len(runes) > maxTitleLength {
		trimmed = string(runes[:maxTitleLength])
	}
	return strings.TrimSpace(trimmed)
}

// deriveTitle builds a title from the first user message: whitespace
// collapsed, first maxTitleWords words.
func deriveTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleUser || msg.Text == "" {
			continue
		}
		words := strings.Fields(msg.Text)
		if len(words) == 0 {
			return ""
		}
		if len(words) > maxTitleWords {
			words = words[:maxTitleWords]
		}
		return sanitizeTitle(strings.Join(words, " "))
	}
	return ""
}
