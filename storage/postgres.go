package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logpack/logpack/types"
)

// PostgresSchema creates the tables used by PostgresStore. Apply it
// with EnsureSchema or through your own migration tooling.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS logpack_messages (
	id UUID PRIMARY KEY,
	log_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (log_id, seq)
);

CREATE INDEX IF NOT EXISTS logpack_messages_log_id_idx ON logpack_messages (log_id);
`

// PostgresStore implements Store using PostgreSQL with pgx.
//
// WriteLog replaces a log's messages inside a single transaction, so
// the swap is all-or-nothing: concurrent readers see either the old
// sequence or the new one, never a mix.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the store's tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// ListLogs enumerates the stored logs.
func (s *PostgresStore) ListLogs(ctx context.Context) ([]types.LogInfo, error) {
	query := `
		SELECT log_id, COUNT(*), MAX(updated_at)
		FROM logpack_messages
		GROUP BY log_id
		ORDER BY log_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var infos []types.LogInfo
	for rows.Next() {
		var info types.LogInfo
		if err := rows.Scan(&info.ID, &info.MessageCount, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log info: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return infos, nil
}

// ReadLog returns the full log ordered by sequence index.
func (s *PostgresStore) ReadLog(ctx context.Context, id string) (*types.Log, error) {
	query := `
		SELECT role, content, metadata, seq
		FROM logpack_messages
		WHERE log_id = $1
		ORDER BY seq
	`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query log %s: %w", id, err)
	}
	defer rows.Close()

	var messages []*types.Message
	for rows.Next() {
		var msg types.Message
		var metadataJSON []byte

		if err := rows.Scan(&msg.Role, &msg.Content, &metadataJSON, &msg.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &msg.Metadata); err != nil {
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
func (s *PostgresStore) WriteLog(ctx context.Context, id string, messages []*types.Message) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM logpack_messages WHERE log_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear log %s: %w", id, err)
	}

	insert := `
		INSERT INTO logpack_messages (id, log_id, seq, role, content, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	for _, msg := range messages {
		metadataJSON, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if msg.Metadata == nil {
			metadataJSON = []byte("{}")
		}

		_, err = tx.Exec(ctx, insert, uuid.New().String(), id, msg.Seq, string(msg.Role), msg.Content, metadataJSON)
		if err != nil {
			return fmt.Errorf("failed to insert message %d of log %s: %w", msg.Seq, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit log %s: %w", id, err)
	}

	return nil
}
