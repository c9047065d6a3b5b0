package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moobank/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUpsertTag(t *testing.T, repo *SQLiteRepository, tag core.Tag) {
	t.Helper()
	require.NoError(t, repo.UpsertTag(context.Background(), tag))
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	groceries := core.Tag{ID: "tag-1", Name: "Groceries"}
	mustUpsertTag(t, repo, groceries)

	when := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
	tx := core.NewTransaction("acc-1", core.Money{Cents: -3000}, "WOOLWORTHS 1234", when)
	_, err := tx.AddSplit(core.Money{Cents: -1000}, groceries)
	require.NoError(t, err)
	tx.Notes = "weekly shop"

	require.NoError(t, repo.AddTransaction(ctx, tx))

	got, err := repo.GetTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	loaded := got[0]
	assert.Equal(t, tx.ID, loaded.ID)
	assert.Equal(t, int64(-3000), loaded.Amount.Cents)
	assert.Equal(t, "WOOLWORTHS 1234", loaded.Description)
	assert.Equal(t, "weekly shop", loaded.Notes)
	assert.Equal(t, core.Debit, loaded.Type)
	assert.True(t, loaded.TransactionTime.Equal(when))
	assert.False(t, loaded.ExcludeFromReporting)

	require.Len(t, loaded.Splits, 2)
	assert.Equal(t, int64(-2000), loaded.Splits[0].Amount.Cents)
	assert.Equal(t, int64(-1000), loaded.Splits[1].Amount.Cents)
	assert.True(t, loaded.Splits[1].Tags.Contains(groceries.ID))
	require.NoError(t, loaded.Validate())
}

func TestGetTransactionsOrderedByTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	later := core.NewTransaction("acc-1", core.Money{Cents: -100}, "B",
		time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC))
	earlier := core.NewTransaction("acc-1", core.Money{Cents: -100}, "A",
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	other := core.NewTransaction("acc-2", core.Money{Cents: -100}, "C",
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC))

	for _, tx := range []*core.Transaction{later, earlier, other} {
		require.NoError(t, repo.AddTransaction(ctx, tx))
	}

	got, err := repo.GetTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Description)
	assert.Equal(t, "B", got[1].Description)
}

func TestRuleRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	groceries := core.Tag{ID: "tag-1", Name: "Groceries"}
	mustUpsertTag(t, repo, groceries)

	require.NoError(t, repo.AddRule(ctx, core.Rule{
		ID: "r-2", AccountID: "acc-1", Contains: "woolworths",
		Description: "Weekly shop", Tags: []core.Tag{groceries},
	}))
	require.NoError(t, repo.AddRule(ctx, core.Rule{
		ID: "r-1", AccountID: "acc-1", Contains: "NETFLIX",
	}))

	rules, err := repo.GetForInstrument(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	// Ordered by pattern, case-insensitively.
	assert.Equal(t, "NETFLIX", rules[0].Contains)
	assert.Equal(t, "woolworths", rules[1].Contains)
	assert.Empty(t, rules[0].Tags)
	require.Len(t, rules[1].Tags, 1)
	assert.Equal(t, "Groceries", rules[1].Tags[0].Name)
	assert.Equal(t, "Weekly shop", rules[1].Description)
}

func TestAddRuleRejectsEmptyPattern(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.AddRule(context.Background(), core.Rule{ID: "r-1", AccountID: "acc-1", Contains: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyPattern)
}

func TestRecurringRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddRecurring(ctx, core.RecurringTransaction{
		ID: "rec-1", AccountID: "virt-1", Amount: core.Money{Cents: -120000},
		Description: "Rent", Every: core.Monthly, NextRun: next,
	}))

	defs, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, core.Monthly, defs[0].Every)
	assert.True(t, defs[0].NextRun.Equal(next))
	assert.True(t, defs[0].LastRun.IsZero(), "never-run definition loads with zero LastRun")
}

func TestUnitOfWorkCommitsAtomically(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	def := core.RecurringTransaction{
		ID: "rec-1", AccountID: "virt-1", Amount: core.Money{Cents: -4200},
		Description: "Gym", Every: core.Monthly, NextRun: next,
	}
	require.NoError(t, repo.AddRecurring(ctx, def))

	uow := repo.NewUnitOfWork()
	tx := core.NewTransaction("virt-1", def.Amount, def.Description, next)
	uow.AddTransaction(tx)
	def.LastRun = next
	def.NextRun = next.AddDate(0, 1, 0)
	uow.UpdateRecurring(&def)

	count, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := repo.GetTransactions(ctx, "virt-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Gym", got[0].Description)

	defs, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.True(t, defs[0].NextRun.Equal(def.NextRun))
	assert.True(t, defs[0].LastRun.Equal(next))
}

func TestUnitOfWorkDoubleSaveFails(t *testing.T) {
	repo := newTestRepo(t)
	uow := repo.NewUnitOfWork()

	_, err := uow.SaveChanges(context.Background())
	require.NoError(t, err)
	_, err = uow.SaveChanges(context.Background())
	assert.Error(t, err)
}

func TestUnitOfWorkUpdatePersistsNotesAndTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	groceries := core.Tag{ID: "tag-1", Name: "Groceries"}
	mustUpsertTag(t, repo, groceries)

	tx := core.NewTransaction("acc-1", core.Money{Cents: -3000}, "WOOLWORTHS",
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.AddTransaction(ctx, tx))

	// Simulate what a rule pass does: tag the primary split, set notes.
	tx.ApplyTag(groceries)
	tx.Notes = "Weekly shop"

	uow := repo.NewUnitOfWork()
	uow.UpdateTransaction(tx)
	_, err := uow.SaveChanges(ctx)
	require.NoError(t, err)

	got, err := repo.GetTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Weekly shop", got[0].Notes)
	assert.True(t, got[0].Splits[0].Tags.Contains(groceries.ID))
}

func TestTagHierarchyRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, tag := range []core.Tag{
		{ID: "food", Name: "Food"},
		{ID: "groceries", Name: "Groceries"},
		{ID: "restaurants", Name: "Restaurants"},
	} {
		mustUpsertTag(t, repo, tag)
	}

	require.NoError(t, repo.AddTagRelationship(ctx, "food", "groceries"))
	require.NoError(t, repo.AddTagRelationship(ctx, "food", "restaurants"))

	h, err := repo.GetTagHierarchy(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"groceries", "restaurants"}, h.Children("food"))
	assert.True(t, h.IsChildOf("groceries", "food"))
}

func TestTagByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustUpsertTag(t, repo, core.Tag{ID: "tag-1", Name: "Groceries"})

	tag, err := repo.TagByName(ctx, "Groceries")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "tag-1", tag.ID)

	missing, err := repo.TagByName(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountIDsWithRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddRule(ctx, core.Rule{ID: "r-1", AccountID: "acc-b", Contains: "x"}))
	require.NoError(t, repo.AddRule(ctx, core.Rule{ID: "r-2", AccountID: "acc-a", Contains: "y"}))
	require.NoError(t, repo.AddRule(ctx, core.Rule{ID: "r-3", AccountID: "acc-a", Contains: "z"}))

	ids, err := repo.AccountIDsWithRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-a", "acc-b"}, ids)
}
