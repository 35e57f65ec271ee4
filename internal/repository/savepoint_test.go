package repository

import (
    "context"
    "database/sql"
    "errors"
    "reflect"
    "testing"
)

// scriptedTx records savepoint statements and fails the ones listed in
// fail, standing in for *sql.Tx.
type scriptedTx struct {
    stmts []string
    fail  map[string]error
}

func (s *scriptedTx) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
    s.stmts = append(s.stmts, query)
    if err, ok := s.fail[query]; ok {
        return nil, err
    }
    return nil, nil
}

func TestWithSavepointTxSuccess(t *testing.T) {
    tx := &scriptedTx{}
    ran := false
    err := WithSavepointTx(context.Background(), tx, "entry_1", func() error {
        ran = true
        return nil
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if !ran {
        t.Fatal("fn did not run")
    }
    want := []string{"SAVEPOINT entry_1", "RELEASE SAVEPOINT entry_1"}
    if !reflect.DeepEqual(tx.stmts, want) {
        t.Errorf("statements = %v, want %v", tx.stmts, want)
    }
}

func TestWithSavepointTxRollsBackFailedFn(t *testing.T) {
    tx := &scriptedTx{}
    fnErr := errors.New("order insert failed")
    err := WithSavepointTx(context.Background(), tx, "entry_2", func() error {
        return fnErr
    })
    if !errors.Is(err, fnErr) {
        t.Fatalf("error = %v, want fn error returned unchanged", err)
    }
    var spErr *SavepointError
    if errors.As(err, &spErr) {
        t.Fatalf("fn error must not be wrapped as SavepointError: %v", err)
    }
    want := []string{"SAVEPOINT entry_2", "ROLLBACK TO SAVEPOINT entry_2"}
    if !reflect.DeepEqual(tx.stmts, want) {
        t.Errorf("statements = %v, want %v", tx.stmts, want)
    }
}

func TestWithSavepointTxBrokenRollback(t *testing.T) {
    rbErr := errors.New("lost connection")
    tx := &scriptedTx{fail: map[string]error{
        "ROLLBACK TO SAVEPOINT entry_3": rbErr,
    }}
    err := WithSavepointTx(context.Background(), tx, "entry_3", func() error {
        return errors.New("conversion failed")
    })
    var spErr *SavepointError
    if !errors.As(err, &spErr) {
        t.Fatalf("error = %v, want SavepointError when rollback itself fails", err)
    }
    if !errors.Is(err, rbErr) {
        t.Errorf("SavepointError should wrap the rollback error, got %v", err)
    }
}

func TestWithSavepointTxCreateFailureSkipsFn(t *testing.T) {
    tx := &scriptedTx{fail: map[string]error{
        "SAVEPOINT entry_4": errors.New("syntax error"),
    }}
    ran := false
    err := WithSavepointTx(context.Background(), tx, "entry_4", func() error {
        ran = true
        return nil
    })
    var spErr *SavepointError
    if !errors.As(err, &spErr) {
        t.Fatalf("error = %v, want SavepointError", err)
    }
    if ran {
        t.Error("fn must not run when the savepoint cannot be created")
    }
}
