package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/history"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps entries in a PostgreSQL table.
type PostgresStore struct {
	db    *sql.DB
	table string
	limit int
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN   string
	Table string
	Limit int
}

// NewPostgresStore opens the database, verifies the connection and creates
// the history table when it is missing.
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config == nil || config.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required: %w", errs.ErrInvalidInput)
	}
	table := config.Table
	if table == "" {
		table = "termchat_history"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: %w", table, errs.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{db: db, table: table, limit: config.Limit}
	if err := store.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id VARCHAR(64) PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		request_id VARCHAR(64) NOT NULL,
		agent_id VARCHAR(255) NOT NULL,
		input TEXT NOT NULL,
		response TEXT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
	`, s.table)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Append inserts an entry and prunes rows beyond the configured limit.
func (s *PostgresStore) Append(ctx context.Context, entry *history.Entry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil: %w", errs.ErrInvalidInput)
	}
	history.Prepare(entry)

	query := fmt.Sprintf(`
	INSERT INTO %s (id, session_id, request_id, agent_id, input, response, kind, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.RequestID,
		entry.AgentID,
		entry.Input,
		entry.Response,
		string(entry.Kind),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add history entry to PostgreSQL: %w", err)
	}

	if s.limit > 0 {
		prune := fmt.Sprintf(`
		DELETE FROM %[1]s WHERE id IN (
			SELECT id FROM %[1]s ORDER BY created_at DESC OFFSET $1
		)`, s.table)
		if _, err := s.db.ExecContext(ctx, prune, s.limit); err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*history.Entry, error) {
	query := fmt.Sprintf(`
	SELECT id, session_id, request_id, agent_id, input, response, kind, created_at
	FROM %s
	ORDER BY created_at DESC`, s.table)

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*history.Entry, 0)
	for rows.Next() {
		e := &history.Entry{}
		var kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.RequestID, &e.AgentID, &e.Input, &e.Response, &kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Kind = history.Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Clear removes all entries from the table.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
