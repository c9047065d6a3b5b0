package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moobank/internal/core"
)

// RecurringProcessor materializes transactions from recurring definitions.
// It is single-threaded by design; callers must serialize Process invocations
// per definition.
type RecurringProcessor struct {
	recurring RecurringSource
	uow       UnitOfWorkFactory
}

// NewRecurringProcessor creates a processor with the given collaborators.
func NewRecurringProcessor(recurring RecurringSource, uow UnitOfWorkFactory) *RecurringProcessor {
	return &RecurringProcessor{
		recurring: recurring,
		uow:       uow,
	}
}

// Process runs one pass over every recurring definition whose NextRun is due.
// A definition N whole periods in the past produces exactly N transactions,
// each dated at its historical occurrence (catch-up). All staged changes
// commit in one save at the end of the pass; a repository failure aborts the
// whole pass without a partial commit.
func (p *RecurringProcessor) Process(ctx context.Context, today time.Time) (int, error) {
	definitions, err := p.recurring.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("get recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total", len(definitions),
		"processing_date", today.Format("2006-01-02"))

	cutoff := dateOnly(today)
	uow := p.uow.NewUnitOfWork()
	created := 0

	for _, def := range definitions {
		count, err := p.catchUp(ctx, uow, def, cutoff)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring transaction",
				"id", def.ID,
				"description", def.Description,
				"error", err)
			continue
		}
		created += count
	}

	if _, err := uow.SaveChanges(ctx); err != nil {
		return 0, fmt.Errorf("save recurring pass: %w", err)
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"created", created,
		"total_checked", len(definitions))

	return created, nil
}

// catchUp replays every occurrence of def up to and including cutoff. NextRun
// strictly advances each iteration, so the loop always terminates.
func (p *RecurringProcessor) catchUp(ctx context.Context, uow UnitOfWork, def *core.RecurringTransaction, cutoff time.Time) (int, error) {
	rule, err := GetScheduleRule(def.Every)
	if err != nil {
		return 0, err
	}

	count := 0
	for !dateOnly(def.NextRun).After(cutoff) {
		transaction := core.NewTransaction(def.AccountID, def.Amount, def.Description, def.NextRun)
		uow.AddTransaction(transaction)

		def.LastRun = def.NextRun
		def.NextRun = rule.Next(def.NextRun)
		count++

		slog.DebugContext(ctx, "Materialized recurring occurrence",
			"recurring_id", def.ID,
			"transaction_id", transaction.ID,
			"occurrence", def.LastRun.Format("2006-01-02"),
			"next_run", def.NextRun.Format("2006-01-02"))
	}

	if count > 0 {
		uow.UpdateRecurring(def)
		slog.InfoContext(ctx, "Created transactions from recurring definition",
			"recurring_id", def.ID,
			"description", def.Description,
			"amount_cents", def.Amount.Cents,
			"frequency", def.Every,
			"created", count)
	}
	return count, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
