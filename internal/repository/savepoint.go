package repository

import (
    "context"
    "database/sql"
    "fmt"
)

// sqlExecer is the subset of *sql.Tx needed to manage savepoints.
type sqlExecer interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SavepointError reports that a savepoint statement itself failed.  When
// it is returned the enclosing transaction is in an unknown state and
// must be rolled back as a whole.
type SavepointError struct {
    Stmt string
    Err  error
}

func (e *SavepointError) Error() string {
    return fmt.Sprintf("savepoint %s failed: %v", e.Stmt, e.Err)
}

func (e *SavepointError) Unwrap() error { return e.Err }

// WithSavepointTx runs fn inside a named savepoint on tx.  When fn
// returns an error the savepoint is rolled back, so a failed fn leaves
// no writes behind in the transaction, and fn's error is returned
// unchanged.  The name must be a plain identifier; callers generate it,
// it is never user input.
func WithSavepointTx(ctx context.Context, tx sqlExecer, name string, fn func() error) error {
    if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
        return &SavepointError{Stmt: "SAVEPOINT " + name, Err: err}
    }
    if err := fn(); err != nil {
        if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
            return &SavepointError{Stmt: "ROLLBACK TO SAVEPOINT " + name, Err: rbErr}
        }
        return err
    }
    if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
        return &SavepointError{Stmt: "RELEASE SAVEPOINT " + name, Err: err}
    }
    return nil
}
