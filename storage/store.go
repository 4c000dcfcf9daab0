// Package storage provides log store backends for the compaction
// engine.
//
// A store only needs to make logs addressable, readable and atomically
// rewritable as ordered message sequences; everything else about the
// serialization is backend-specific. Three backends are provided:
// a file store (one JSONL file per conversation), a PostgreSQL store
// using pgx/v5, and a database/sql store that works with any
// driver speaking either the postgres or sqlite dialect.
package storage

import (
	"context"
	"errors"

	"github.com/logpack/logpack/types"
)

// ErrLogNotFound is returned when the requested log does not exist.
var ErrLogNotFound = errors.New("log not found")

// Store is the persistence contract consumed by the compaction runner.
//
// WriteLog must be atomic: either the new sequence becomes visible in
// full, or the previous content remains intact. A reader must never
// observe a truncated or half-written log.
type Store interface {
	// ListLogs enumerates the stored logs. The returned slice is a
	// snapshot; logs created after the call are not included.
	ListLogs(ctx context.Context) ([]types.LogInfo, error)

	// ReadLog returns the full log ordered by sequence index.
	ReadLog(ctx context.Context, id string) (*types.Log, error)

	// WriteLog replaces the log's message sequence, all or nothing.
	WriteLog(ctx context.Context, id string, messages []*types.Message) error
}
