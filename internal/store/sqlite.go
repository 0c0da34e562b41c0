package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps each user's document as a JSON body in one row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path. ":memory:" is
// supported; the pool is pinned to one connection so it is not lost.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS user_documents (
			user_id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements DocumentStore.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	return getDocument(ctx, s.db, userID)
}

// Merge implements DocumentStore. The read-modify-write runs in one
// transaction.
func (s *SQLiteStore) Merge(ctx context.Context, userID string, fields Document) error {
	if userID == "" {
		return ErrNoIdentity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDocument(ctx, tx, userID)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_documents (user_id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, userID, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q queryer, userID string) (Document, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM user_documents WHERE user_id = ?`, userID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}

	doc := Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
