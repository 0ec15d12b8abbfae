// Package conversations persists multi-turn conversation state keyed by
// an opaque conversation ID. The orchestration layer only depends on the
// Store interface; the SQL and in-memory implementations are
// interchangeable.
package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/parley-llm/parley/llm"
)

// Store is the orchestration layer's view of persisted conversations.
// Conversations are created lazily, appended one exchange per
// completion call, and never deleted here (retention is owned by the
// operator of the backing store).
type Store interface {
	// Initialize creates a new conversation for the scope with its first
	// exchange and returns the generated conversation ID.
	Initialize(ctx context.Context, scopeID, systemPrompt string, first llm.Exchange) (string, error)

	// Get returns the conversation with its exchanges in insertion order.
	// An unknown conversation ID yields a validation error.
	Get(ctx context.Context, scopeID, conversationID string) (*llm.Conversation, error)

	// AddMessage appends one exchange to an existing conversation.
	AddMessage(ctx context.Context, scopeID, conversationID string, exchange llm.Exchange) error
}

// SQLStore persists conversations in SQLite. It implements Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Initialize implements Store.Initialize.
func (s *SQLStore) Initialize(ctx context.Context, scopeID, systemPrompt string, first llm.Exchange) (string, error) {
	conversationID := uuid.NewString()
	now := time.Now().Unix()

	query := sq.Insert("conversations").
		Columns("id", "scope_id", "system_prompt", "created_at").
		Values(conversationID, scopeID, systemPrompt, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}

	if err := s.insertMessage(ctx, scopeID, conversationID, first); err != nil {
		return "", err
	}
	return conversationID, nil
}

// Get implements Store.Get.
func (s *SQLStore) Get(ctx context.Context, scopeID, conversationID string) (*llm.Conversation, error) {
	query := sq.Select("system_prompt").
		From("conversations").
		Where(sq.Eq{"id": conversationID, "scope_id": scopeID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var systemPrompt string
	err = s.db.QueryRowContext(ctx, queryStr, args...).Scan(&systemPrompt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, llm.NewValidationError(fmt.Sprintf("conversation %s not found", conversationID))
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	msgQuery := sq.Select("prompt", "response", "typed_result").
		From("conversation_messages").
		Where(sq.Eq{"conversation_id": conversationID, "scope_id": scopeID}).
		OrderBy("id ASC")

	queryStr, args, err = msgQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	conv := &llm.Conversation{
		ID:           conversationID,
		SystemPrompt: systemPrompt,
	}
	for rows.Next() {
		var ex llm.Exchange
		var typedResult sql.NullString
		if err := rows.Scan(&ex.Prompt, &ex.Response, &typedResult); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if typedResult.Valid && typedResult.String != "" {
			ex.TypedResult = []byte(typedResult.String)
		}
		conv.Exchanges = append(conv.Exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return conv, nil
}

// AddMessage implements Store.AddMessage.
func (s *SQLStore) AddMessage(ctx context.Context, scopeID, conversationID string, exchange llm.Exchange) error {
	// Verify the conversation exists so a typo'd ID fails loudly instead
	// of creating orphan messages.
	query := sq.Select("1").
		From("conversations").
		Where(sq.Eq{"id": conversationID, "scope_id": scopeID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var one int
	err = s.db.QueryRowContext(ctx, queryStr, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return llm.NewValidationError(fmt.Sprintf("conversation %s not found", conversationID))
	}
	if err != nil {
		return fmt.Errorf("query conversation: %w", err)
	}

	return s.insertMessage(ctx, scopeID, conversationID, exchange)
}

func (s *SQLStore) insertMessage(ctx context.Context, scopeID, conversationID string, exchange llm.Exchange) error {
	now := time.Now().Unix()
	var typedResult interface{}
	if len(exchange.TypedResult) > 0 {
		typedResult = string(exchange.TypedResult)
	}

	query := sq.Insert("conversation_messages").
		Columns("conversation_id", "scope_id", "prompt", "response", "typed_result", "created_at").
		Values(conversationID, scopeID, exchange.Prompt, exchange.Response, typedResult, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
