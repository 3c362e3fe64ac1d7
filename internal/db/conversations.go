package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation summarizes one chat session's stored transcript.
type Conversation struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Message is one stored turn of a conversation.
type Message struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	References json.RawMessage `json:"references"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ConversationStore persists chat transcripts.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a store backed by the given database.
func NewConversationStore(d *DB) *ConversationStore {
	return &ConversationStore{db: d}
}

// AppendMessage records a message under its session's conversation,
// creating the conversation on first write. The conversation title is
// the first 80 characters of the first user message.
func (s *ConversationStore) AppendMessage(sessionID, role, content string, references json.RawMessage) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(references) == 0 {
		references = json.RawMessage("[]")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	title := ""
	if role == "user" {
		title = truncateTitle(content)
	}
	_, err = tx.Exec(`
		INSERT INTO conversations (session_id, title)
		VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			title = CASE WHEN conversations.title = '' THEN excluded.title ELSE conversations.title END,
			updated_at = datetime('now'),
			message_count = conversations.message_count + 1
	`, sessionID, title)
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}

	// The ON CONFLICT branch bumps the count for existing rows; a fresh
	// insert starts at zero, so bump it here too.
	_, err = tx.Exec(`UPDATE conversations SET message_count = 1 WHERE session_id = ? AND message_count = 0`, sessionID)
	if err != nil {
		return fmt.Errorf("updating message count: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO conversation_messages (id, session_id, role, content, references_json)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, role, content, string(references))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return tx.Commit()
}

// GetSession returns the stored messages for a session in order.
func (s *ConversationStore) GetSession(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, references_json, created_at
		FROM conversation_messages
		WHERE session_id = ?
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var refs string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &refs, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.References = json.RawMessage(refs)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListSessions returns conversations most recently updated first.
func (s *ConversationStore) ListSessions() ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT session_id, title, created_at, updated_at, message_count
		FROM conversations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.SessionID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// DeleteSession removes a conversation and all of its messages.
func (s *ConversationStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// DeleteAll removes every stored conversation and session mapping.
func (s *ConversationStore) DeleteAll() error {
	if _, err := s.db.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("deleting conversations: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM chat_sessions`); err != nil {
		return fmt.Errorf("deleting chat sessions: %w", err)
	}
	return nil
}

func truncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= 80 {
		return content
	}
	return string(runes[:80])
}
