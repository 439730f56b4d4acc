package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
)

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Recorder = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open")
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite store: ping")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        created_at_ms INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL,
        session_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'bot')),
        text TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        created_at_ms INTEGER NOT NULL,
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, seq);
    `
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "sqlite store: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, session chat.Session) error {
	if session.ID == "" {
		return errors.New("sqlite store: session id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id`,
		session.ID, session.UserID, session.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite store: save session")
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg chat.Message) error {
	exists, err := s.sessionExists(ctx, msg.SessionID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrapf(ErrSessionNotFound, "sqlite store: append to %q", msg.SessionID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sender, text, timestamp, created_at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Sender), msg.Text, msg.Timestamp, msg.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite store: append message")
	}
	return nil
}

func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	exists, err := s.sessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender, text, timestamp, created_at_ms FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: query messages")
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			msg       chat.Message
			sender    string
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &sender, &msg.Text, &msg.Timestamp, &createdAt); err != nil {
			return nil, errors.Wrap(err, "sqlite store: scan message")
		}
		msg.Sender = chat.Sender(sender)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite store: iterate messages")
	}
	return messages, nil
}

func (s *SQLiteStore) sessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "sqlite store: lookup session")
	}
	return true, nil
}
