package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"moobank/internal/core"
)

// notesSeparator joins the descriptions of matching rules into a transaction
// note.
const notesSeparator = ". "

// MatchRules returns the subset of rules whose Contains pattern occurs in the
// description, compared case-insensitively. An empty description matches no
// rule, as do rules with an empty pattern. Pure; safe to call concurrently on
// immutable inputs.
func MatchRules(description string, rules []core.Rule) []core.Rule {
	if description == "" {
		return nil
	}
	desc := strings.ToLower(description)

	var matched []core.Rule
	for _, r := range rules {
		if r.Contains == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(r.Contains)) {
			matched = append(matched, r)
		}
	}
	return matched
}

// RuleApplicator scans transaction batches against account rules and applies
// tags and notes to the matches.
type RuleApplicator struct {
	transactions TransactionSource
	rules        RuleSource
	uow          UnitOfWorkFactory
	workers      int
}

// NewRuleApplicator creates an applicator with the given collaborators.
// workers bounds the match worker pool; values below one select one worker
// per CPU.
func NewRuleApplicator(transactions TransactionSource, rules RuleSource, uow UnitOfWorkFactory, workers int) *RuleApplicator {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &RuleApplicator{
		transactions: transactions,
		rules:        rules,
		uow:          uow,
		workers:      workers,
	}
}

// matchResult captures the per-transaction outcome of the read-only match
// phase: the union of matching rule tags and the candidate notes string.
type matchResult struct {
	transaction *core.Transaction
	tags        core.TagSet
	notes       string
}

// ApplyRules mutates the batch in place: matching runs first on a bounded
// worker pool over read-only snapshots, then tags and notes are assigned
// sequentially. The split exists because the mutation side is not safe for
// concurrent writers, while matching is CPU-bound and embarrassingly
// parallel. Returns the transactions that changed; the caller persists them.
func (a *RuleApplicator) ApplyRules(ctx context.Context, transactions []*core.Transaction, rules []core.Rule) []*core.Transaction {
	// Phase 1: read-only match computation. Each worker writes only its own
	// slot of the results slice, so no shared mutable state crosses workers.
	results := make([]matchResult, len(transactions))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, t := range transactions {
		i, t := i, t
		g.Go(func() error {
			matched := MatchRules(t.Description, rules)
			r := matchResult{transaction: t}
			for _, rule := range matched {
				for _, tag := range rule.Tags {
					r.tags.Add(tag)
				}
			}
			r.notes = buildNotes(matched)
			results[i] = r
			return nil
		})
	}
	// Workers never return errors; matching is total over strings.
	_ = g.Wait()

	// Phase 2: sequential mutation against the tracked batch.
	var changed []*core.Transaction
	for _, r := range results {
		dirty := false
		for _, tag := range r.tags.Tags() {
			if r.transaction.ApplyTag(tag) {
				dirty = true
			}
		}
		if r.notes != "" && r.transaction.Notes == "" {
			r.transaction.Notes = r.notes
			dirty = true
		}
		if dirty {
			changed = append(changed, r.transaction)
		}
	}
	return changed
}

// buildNotes joins the non-blank descriptions of the matched rules, in rule
// order, into a single note.
func buildNotes(matched []core.Rule) string {
	var parts []string
	for _, r := range matched {
		if strings.TrimSpace(r.Description) == "" {
			continue
		}
		parts = append(parts, r.Description)
	}
	return strings.Join(parts, notesSeparator)
}

// ReprocessAccount fetches the account's transactions and rules, applies the
// rules and commits every change in one save. Repository failures propagate
// to the caller, which decides whether to retry the batch.
func (a *RuleApplicator) ReprocessAccount(ctx context.Context, accountID string) (int, error) {
	transactions, err := a.transactions.GetTransactions(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("get transactions: %w", err)
	}

	rules, err := a.rules.GetForInstrument(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("get rules: %w", err)
	}

	changed := a.ApplyRules(ctx, transactions, rules)
	if len(changed) == 0 {
		slog.InfoContext(ctx, "Rule run produced no changes",
			"account_id", accountID,
			"transactions", len(transactions),
			"rules", len(rules))
		return 0, nil
	}

	uow := a.uow.NewUnitOfWork()
	for _, t := range changed {
		uow.UpdateTransaction(t)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return 0, fmt.Errorf("save rule changes: %w", err)
	}

	slog.InfoContext(ctx, "Rule run complete",
		"account_id", accountID,
		"transactions", len(transactions),
		"rules", len(rules),
		"changed", len(changed))

	return len(changed), nil
}
