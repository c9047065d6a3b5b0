package worker

import (
	"context"
	"fmt"
	"log/slog"

	"moobank/internal/amqp"
	"moobank/internal/ledger"
	"moobank/internal/storage"
)

// RulesWorker drains rule-reprocess requests and runs the rule applicator
// for the requested account.
type RulesWorker struct {
	storage    *storage.SQLiteRepository
	applicator *ledger.RuleApplicator
}

func NewRulesWorker(storage *storage.SQLiteRepository, applicator *ledger.RuleApplicator) *RulesWorker {
	return &RulesWorker{
		storage:    storage,
		applicator: applicator,
	}
}

// HandleReprocessMessage processes a single reprocess request from AMQP.
// Errors propagate so the delivery is requeued.
func (w *RulesWorker) HandleReprocessMessage(ctx context.Context, msg *amqp.RuleReprocessMessage) error {
	slog.InfoContext(ctx, "Processing reprocess message",
		"account_id", msg.AccountID,
		"requested_at", msg.Timestamp)

	changed, err := w.applicator.ReprocessAccount(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("reprocess account %s: %w", msg.AccountID, err)
	}

	slog.InfoContext(ctx, "Reprocess complete",
		"account_id", msg.AccountID,
		"changed", changed)
	return nil
}

// ReprocessAllAccounts sweeps every account that has rules. This is a backup
// mechanism for requests lost while the worker was down; accounts that fail
// are logged and skipped so the sweep continues.
func (w *RulesWorker) ReprocessAllAccounts(ctx context.Context) error {
	accountIDs, err := w.storage.AccountIDsWithRules(ctx)
	if err != nil {
		return fmt.Errorf("get accounts with rules: %w", err)
	}

	if len(accountIDs) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping accounts with rules", "count", len(accountIDs))

	for _, accountID := range accountIDs {
		if _, err := w.applicator.ReprocessAccount(ctx, accountID); err != nil {
			slog.ErrorContext(ctx, "Failed to reprocess account",
				"account_id", accountID,
				"error", err)
			continue
		}
	}
	return nil
}
