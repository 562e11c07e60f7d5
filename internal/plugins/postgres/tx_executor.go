package postgres

import (
	"context"
	"database/sql"
)

type txKeyType struct{}

var txKey = txKeyType{}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// GetExecutor returns the transaction bound to ctx by TxManager, or db.
func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx runs fn in a transaction. Repositories called with the context
// passed to fn join that transaction through GetExecutor.
func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	ctxWithTx := context.WithValue(ctx, txKey, tx)
	if err := fn(ctxWithTx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
