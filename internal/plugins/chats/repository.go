package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// ChatRepository defines the data access contract for chats. All SQL lives
// in the concrete implementation. Every read and mutation is scoped by the
// owning user id -- a chat id alone is never enough to touch a chat.
type ChatRepository interface {
	ListByUser(ctx context.Context, userID string) ([]Chat, error)
	FindByID(ctx context.Context, chatID, userID string) (*Chat, error)
	Create(ctx context.Context, chat *Chat) error
	AppendMessages(ctx context.Context, chatID string, messages []Message) error
	UpdateMeta(ctx context.Context, chatID, userID string, title *string, archived *bool, archivedAt *time.Time) error
	Delete(ctx context.Context, chatID, userID string) error
}

// chatRepository implements ChatRepository with hand-written MariaDB queries.
type chatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new chat repository backed by the given DB pool.
func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{db: db}
}

// ListByUser returns the user's chats ordered by last activity, transcripts
// included.
func (r *chatRepository) ListByUser(ctx context.Context, userID string) ([]Chat, error) {
	query := `SELECT id, user_id, title, archived, archived_at, created_at, updated_at
	          FROM chats WHERE user_id = ? ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(
			&chat.ID, &chat.UserID, &chat.Title, &chat.Archived,
			&chat.ArchivedAt, &chat.CreatedAt, &chat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}

	for i := range chats {
		messages, err := r.loadMessages(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Messages = messages
	}

	return chats, nil
}

// FindByID retrieves a single chat owned by the given user, transcript
// included. Returns apperror.NotFound when the chat doesn't exist or
// belongs to someone else -- the two cases are indistinguishable.
func (r *chatRepository) FindByID(ctx context.Context, chatID, userID string) (*Chat, error) {
	query := `SELECT id, user_id, title, archived, archived_at, created_at, updated_at
	          FROM chats WHERE id = ? AND user_id = ?`

	chat := &Chat{}
	err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(
		&chat.ID, &chat.UserID, &chat.Title, &chat.Archived,
		&chat.ArchivedAt, &chat.CreatedAt, &chat.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Chat not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}

	chat.Messages, err = r.loadMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	return chat, nil
}

// Create inserts a chat and its initial messages in one transaction.
func (r *chatRepository) Create(ctx context.Context, chat *Chat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO chats (id, user_id, title, archived, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		chat.ID, chat.UserID, chat.Title, chat.Archived, chat.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}

	for i := range chat.Messages {
		if err := insertMessage(ctx, tx, chat.ID, &chat.Messages[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chat: %w", err)
	}
	return nil
}

// AppendMessages inserts messages and touches the chat's updated_at so the
// list ordering reflects the new activity.
func (r *chatRepository) AppendMessages(ctx context.Context, chatID string, messages []Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range messages {
		if err := insertMessage(ctx, tx, chatID, &messages[i]); err != nil {
			return err
		}
	}

	// Message inserts don't touch the chats row; bump updated_at explicitly.
	if _, err := tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = NOW() WHERE id = ?`, chatID,
	); err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// UpdateMeta updates the chat's title and/or archive state.
func (r *chatRepository) UpdateMeta(ctx context.Context, chatID, userID string, title *string, archived *bool, archivedAt *time.Time) error {
	sets := ""
	args := []any{}
	if title != nil {
		sets += "title = ?"
		args = append(args, *title)
	}
	if archived != nil {
		if sets != "" {
			sets += ", "
		}
		sets += "archived = ?, archived_at = ?"
		args = append(args, *archived, archivedAt)
	}
	if sets == "" {
		return nil
	}

	args = append(args, chatID, userID)
	query := `UPDATE chats SET ` + sets + ` WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating chat: %w", err)
	}
	return nil
}

// Delete removes a chat permanently; messages cascade. Returns
// apperror.NotFound if the user owns no such chat.
func (r *chatRepository) Delete(ctx context.Context, chatID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chats WHERE id = ? AND user_id = ?`, chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("Chat not found.")
	}
	return nil
}

// loadMessages fetches a chat's transcript in insertion order.
func (r *chatRepository) loadMessages(ctx context.Context, chatID string) ([]Message, error) {
	query := `SELECT id, role, text, time FROM chat_messages
	          WHERE chat_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Text, &msg.Time); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// insertMessage inserts a single message within a transaction and records
// the generated id back on the message.
func insertMessage(ctx context.Context, tx *sql.Tx, chatID string, msg *Message) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (chat_id, role, text, time) VALUES (?, ?, ?, ?)`,
		chatID, msg.Role, msg.Text, msg.Time,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	msg.ID, _ = result.LastInsertId()
	return nil
}
