package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/logpack/logpack/types"
)

// Dialect selects the SQL flavor used by SQLStore.
type Dialect string

const (
	// DialectPostgres targets PostgreSQL drivers such as lib/pq.
	DialectPostgres Dialect = "postgres"

	// DialectSQLite targets SQLite drivers such as mattn/go-sqlite3.
	DialectSQLite Dialect = "sqlite"
)

// sqlSchema is deliberately dialect-neutral: metadata is JSON text and
// updated_at an RFC 3339 string, so the same statements run on both
// PostgreSQL and SQLite.
const sqlSchema = `
CREATE TABLE IF NOT EXISTS logpack_messages (
	id TEXT PRIMARY KEY,
	log_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	updated_at TEXT NOT NULL,
	UNIQUE (log_id, seq)
);

CREATE INDEX IF NOT EXISTS logpack_messages_log_id_idx ON logpack_messages (log_id);
`

// SQLStore implements Store on top of database/sql. It speaks either
// the postgres or the sqlite dialect, mirroring PostgresStore's
// transactional all-or-nothing WriteLog.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates a store over an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// EnsureSchema creates the store's tables if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to the dialect's own form.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListLogs enumerates the stored logs.
func (s *SQLStore) ListLogs(ctx context.Context) ([]types.LogInfo, error) {
	query := `
		SELECT log_id, COUNT(*), MAX(updated_at)
		FROM logpack_messages
		GROUP BY log_id
		ORDER BY log_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var infos []types.LogInfo
	for rows.Next() {
		var info types.LogInfo
		var updatedAt string

		if err := rows.Scan(&info.ID, &info.MessageCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log info: %w", err)
		}

		info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at for log %s: %w", info.ID, err)
		}

		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return infos, nil
}

// ReadLog returns the full log ordered by sequence index.
func (s *SQLStore) ReadLog(ctx context.Context, id string) (*types.Log, error) {
	query := s.rebind(`
		SELECT role, content, metadata, seq
		FROM logpack_messages
		WHERE log_id = ?
		ORDER BY seq
	`)

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query log %s: %w", id, err)
	}
	defer rows.Close()

	var messages []*types.Message
	for rows.Next() {
		var msg types.Message
		var metadataJSON string

		if err := rows.Scan(&msg.Role, &msg.Content, &metadataJSON, &msg.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		if len(msg.Metadata) == 0 {
			msg.Metadata = nil
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}

	return &types.Log{ID: id, Messages: messages}, nil
}

// WriteLog replaces the log's message sequence in one transaction.
func (s *SQLStore) WriteLog(ctx context.Context, id string, messages []*types.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM logpack_messages WHERE log_id = ?`), id); err != nil {
		return fmt.Errorf("failed to clear log %s: %w", id, err)
	}

	insert := s.rebind(`
		INSERT INTO logpack_messages (id, log_id, seq, role, content, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, msg := range messages {
		metadataJSON := []byte("{}")
		if msg.Metadata != nil {
			metadataJSON, err = json.Marshal(msg.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, insert,
			uuid.New().String(), id, msg.Seq, string(msg.Role), msg.Content, string(metadataJSON), now)
		if err != nil {
			return fmt.Errorf("failed to insert message %d of log %s: %w", msg.Seq, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log %s: %w", id, err)
	}

	return nil
}
