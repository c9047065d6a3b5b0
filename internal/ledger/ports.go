// Package ledger implements the transaction categorization and scheduling
// engine: rule matching and application, recurring transaction catch-up, and
// tag/trend aggregation. It is a library invoked by request handlers and
// background workers; persistence lives behind the collaborator ports below.
package ledger

import (
	"context"

	"moobank/internal/core"
)

// TransactionSource provides the tracked transaction batch for one account.
type TransactionSource interface {
	GetTransactions(ctx context.Context, accountID string) ([]*core.Transaction, error)
}

// RuleSource provides the categorization rules scoped to one account. The
// returned order is deterministic (the repository orders by pattern) and is
// the order notes are joined in.
type RuleSource interface {
	GetForInstrument(ctx context.Context, accountID string) ([]core.Rule, error)
}

// RecurringSource provides every recurring transaction definition.
type RecurringSource interface {
	Get(ctx context.Context) ([]*core.RecurringTransaction, error)
}

// UnitOfWork stages mutations and commits them in a single transaction.
// SaveChanges is the one commit boundary per processing pass: either every
// staged change persists or none do.
type UnitOfWork interface {
	AddTransaction(t *core.Transaction)
	UpdateTransaction(t *core.Transaction)
	UpdateRecurring(rt *core.RecurringTransaction)
	SaveChanges(ctx context.Context) (int, error)
}

// UnitOfWorkFactory opens a fresh unit of work for one pass.
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}
