package storage

import (
	"context"
	"fmt"
	"log/slog"

	"moobank/internal/core"
	"moobank/internal/ledger"
)

// UnitOfWork collects staged writes and commits them in a single database
// transaction. One unit of work per processing pass; it is not safe for
// concurrent use.
type UnitOfWork struct {
	repo      *SQLiteRepository
	inserts   []*core.Transaction
	updates   []*core.Transaction
	recurring []*core.RecurringTransaction
	saved     bool
}

// NewUnitOfWork implements ledger.UnitOfWorkFactory.
func (r *SQLiteRepository) NewUnitOfWork() ledger.UnitOfWork {
	return &UnitOfWork{repo: r}
}

func (u *UnitOfWork) AddTransaction(t *core.Transaction) {
	u.inserts = append(u.inserts, t)
}

func (u *UnitOfWork) UpdateTransaction(t *core.Transaction) {
	u.updates = append(u.updates, t)
}

func (u *UnitOfWork) UpdateRecurring(rt *core.RecurringTransaction) {
	u.recurring = append(u.recurring, rt)
}

// SaveChanges commits every staged change atomically and returns the number
// of staged entities written. Calling it twice is an error.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.saved {
		return 0, fmt.Errorf("unit of work already saved")
	}
	u.saved = true

	count := len(u.inserts) + len(u.updates) + len(u.recurring)
	if count == 0 {
		return 0, nil
	}

	tx, err := u.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range u.inserts {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return 0, err
		}
	}
	for _, t := range u.updates {
		if err := updateTransaction(ctx, tx, t); err != nil {
			return 0, err
		}
	}
	for _, rt := range u.recurring {
		if err := updateRecurring(ctx, tx, rt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit unit of work: %w", err)
	}

	slog.InfoContext(ctx, "Unit of work committed",
		"inserted", len(u.inserts),
		"updated", len(u.updates),
		"recurring_updated", len(u.recurring))

	return count, nil
}
