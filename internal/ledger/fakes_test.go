package ledger

import (
	"context"

	"moobank/internal/core"
)

// In-memory collaborators used by the applicator and processor tests.

type fakeTransactionSource struct {
	transactions []*core.Transaction
	err          error
}

func (f *fakeTransactionSource) GetTransactions(_ context.Context, _ string) ([]*core.Transaction, error) {
	return f.transactions, f.err
}

type fakeRuleSource struct {
	rules []core.Rule
	err   error
}

func (f *fakeRuleSource) GetForInstrument(_ context.Context, _ string) ([]core.Rule, error) {
	return f.rules, f.err
}

type fakeRecurringSource struct {
	definitions []*core.RecurringTransaction
	err         error
}

func (f *fakeRecurringSource) Get(_ context.Context) ([]*core.RecurringTransaction, error) {
	return f.definitions, f.err
}

type fakeUnitOfWork struct {
	added     []*core.Transaction
	updated   []*core.Transaction
	recurring []*core.RecurringTransaction
	saves     int
	saveErr   error
}

func (f *fakeUnitOfWork) AddTransaction(t *core.Transaction) { f.added = append(f.added, t) }

func (f *fakeUnitOfWork) UpdateTransaction(t *core.Transaction) { f.updated = append(f.updated, t) }

func (f *fakeUnitOfWork) UpdateRecurring(rt *core.RecurringTransaction) {
	f.recurring = append(f.recurring, rt)
}

func (f *fakeUnitOfWork) SaveChanges(_ context.Context) (int, error) {
	f.saves++
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return len(f.added) + len(f.updated) + len(f.recurring), nil
}

type fakeUnitOfWorkFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeUnitOfWorkFactory) NewUnitOfWork() UnitOfWork { return f.uow }
