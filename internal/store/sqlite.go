package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db             *sql.DB
	conversationMu sync.Mutex // serializes conversation writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_activity ON conversations(last_activity);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		monthly_income REAL NOT NULL DEFAULT 0,
		risk_profile TEXT NOT NULL DEFAULT 'moderate',
		savings_progress REAL NOT NULL DEFAULT 0,
		expenses_ratio REAL NOT NULL DEFAULT 0,
		digest_opt_in INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS expenses (
		expense_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount REAL NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_expenses_user ON expenses(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SaveConversation creates or replaces a conversation snapshot. Messages are
// stored as a JSON blob: conversations are always loaded whole.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	query := `
	INSERT INTO conversations (conversation_id, title, messages_json, created_at, last_activity)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(conversation_id) DO UPDATE SET
		title = excluded.title,
		messages_json = excluded.messages_json,
		last_activity = excluded.last_activity`

	_, err = s.db.ExecContext(ctx, query,
		conv.ID, conv.Title, string(messages),
		conv.CreatedAt.Unix(), conv.LastActivity.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT conversation_id, title, messages_json, created_at, last_activity
		FROM conversations WHERE conversation_id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	conv, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}
	return conv, nil
}

// ListConversations returns all stored conversations, most recent first.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	query := `
		SELECT conversation_id, title, messages_json, created_at, last_activity
		FROM conversations ORDER BY last_activity DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close conversation rows", "error", closeErr)
		}
	}()

	var convs []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

func scanConversation(scan func(dest ...any) error) (*domain.Conversation, error) {
	var conv domain.Conversation
	var messagesJSON string
	var createdAt, lastActivity int64

	if err := scan(&conv.ID, &conv.Title, &messagesJSON, &createdAt, &lastActivity); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.LastActivity = time.Unix(lastActivity, 0)
	return &conv, nil
}

// DeleteConversation removes a conversation, retrying on SQLite concurrency
// errors with exponential backoff.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.deleteConversationOnce(ctx, id)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("DeleteConversation hit a busy database, retrying",
				"conversation_id", id,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("delete conversation %s after %d attempts: %w", id, i+1, err)
	}
	return nil
}

func (s *SQLiteStore) deleteConversationOnce(ctx context.Context, id string) error {
	s.conversationMu.Lock()
	defer s.conversationMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// GetProfile retrieves a user's financial profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.UserContext, error) {
	query := `
		SELECT name, monthly_income, risk_profile, savings_progress, expenses_ratio
		FROM profiles WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var uc domain.UserContext
	err := row.Scan(&uc.Name, &uc.MonthlyIncome, &uc.RiskProfile,
		&uc.SavingsProgressPct, &uc.ExpensesRatioPct)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	return &uc, nil
}

// UpsertProfile creates or updates a user's financial profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, userID string, uc *domain.UserContext) error {
	query := `
	INSERT INTO profiles (user_id, name, monthly_income, risk_profile, savings_progress, expenses_ratio, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		name = excluded.name,
		monthly_income = excluded.monthly_income,
		risk_profile = excluded.risk_profile,
		savings_progress = excluded.savings_progress,
		expenses_ratio = excluded.expenses_ratio,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, query,
		userID, uc.Name, uc.MonthlyIncome, string(uc.RiskProfile),
		uc.SavingsProgressPct, uc.ExpensesRatioPct, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// AddExpense records an expense.
func (s *SQLiteStore) AddExpense(ctx context.Context, exp *domain.Expense) error {
	query := `
	INSERT INTO expenses (expense_id, user_id, amount, category, description, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		exp.ID, exp.UserID, exp.Amount, exp.Category, exp.Description,
		exp.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// ListExpenses returns a user's expenses recorded at or after since.
func (s *SQLiteStore) ListExpenses(ctx context.Context, userID string, since time.Time) ([]*domain.Expense, error) {
	query := `
		SELECT expense_id, user_id, amount, category, description, created_at
		FROM expenses WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close expense rows", "error", closeErr)
		}
	}()

	var expenses []*domain.Expense
	for rows.Next() {
		var exp domain.Expense
		var createdAt int64
		if err := rows.Scan(&exp.ID, &exp.UserID, &exp.Amount, &exp.Category,
			&exp.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		exp.Timestamp = time.Unix(createdAt, 0)
		expenses = append(expenses, &exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// ListDigestRecipients returns user IDs opted into scheduled digests.
func (s *SQLiteStore) ListDigestRecipients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM profiles WHERE digest_opt_in = 1`)
	if err != nil {
		return nil, fmt.Errorf("query digest recipients: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recipient rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return ids, nil
}

// SetDigestOptIn toggles digest delivery for a user.
func (s *SQLiteStore) SetDigestOptIn(ctx context.Context, userID string, optIn bool) error {
	val := 0
	if optIn {
		val = 1
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET digest_opt_in = ?, updated_at = ? WHERE user_id = ?`,
		val, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update digest opt-in: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("SetDigestOptIn affected 0 rows", "user_id", userID)
	}
	return nil
}
