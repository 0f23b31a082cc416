package sqlite

import (
	"context"
	"database/sql"
)

// Helpers named "<entity>Sub<Step>" run a single query
// and accept either *sql.DB or *sql.Tx.
type statementBuilder interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
