package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs multi-document changes atomically.
//
// ExecTx joins an enclosing transaction when ctx already carries one, so a
// cascade may call helpers that open their own transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
