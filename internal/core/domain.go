package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Daily       Frequency = "daily"
	Weekly      Frequency = "weekly"
	Fortnightly Frequency = "fortnightly"
	Monthly     Frequency = "monthly"
	Yearly      Frequency = "yearly"
)

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

type (
	Frequency string

	TransactionType string

	// Tag is a user-defined label applied to transaction splits. Tags are
	// read-only from the engine's perspective; they are created elsewhere.
	Tag struct {
		ID   string
		Name string
	}

	// Rule matches transactions by description substring and carries the tags
	// and optional notes text to apply on match.
	Rule struct {
		ID          string
		AccountID   string
		Contains    string
		Description string
		Tags        []Tag
	}

	// Split is a portion of a transaction's amount, independently taggable.
	// Splits are owned exclusively by their parent transaction.
	Split struct {
		ID            string
		TransactionID string
		Amount        Money
		Tags          TagSet
	}

	// Transaction is an imported or generated ledger entry. Every transaction
	// carries at least one split and the split amounts always total the
	// transaction amount.
	Transaction struct {
		ID                   string
		AccountID            string
		Amount               Money
		Description          string
		TransactionTime      time.Time
		Type                 TransactionType
		Notes                string
		ExcludeFromReporting bool
		Splits               []Split
	}

	// RecurringTransaction is a schedule definition that materializes
	// transactions for a virtual account. Mutated only by the recurring
	// processor.
	RecurringTransaction struct {
		ID          string
		AccountID   string
		Amount      Money
		Description string
		Every       Frequency
		NextRun     time.Time
		LastRun     time.Time // zero means never materialized
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyPattern     = errors.New("empty rule pattern")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrSplitTooLarge    = errors.New("split amount exceeds unallocated remainder")
	ErrZeroSplit        = errors.New("split amount cannot be zero")
)

// NewTransaction creates a transaction with a single split covering the full
// amount. The transaction type follows the sign of the amount: negative is a
// debit, positive a credit.
func NewTransaction(accountID string, amount Money, description string, at time.Time) *Transaction {
	id := uuid.NewString()
	txType := Credit
	if amount.Cents < 0 {
		txType = Debit
	}
	return &Transaction{
		ID:              id,
		AccountID:       accountID,
		Amount:          amount,
		Description:     description,
		TransactionTime: at,
		Type:            txType,
		Splits: []Split{{
			ID:            uuid.NewString(),
			TransactionID: id,
			Amount:        amount,
		}},
	}
}

// AddSplit carves a new split out of the primary split's amount, keeping the
// split total equal to the transaction amount. The amount must be non-zero,
// carry the same sign as the transaction and leave a non-negative remainder
// on the primary split.
func (t *Transaction) AddSplit(amount Money, tags ...Tag) (*Split, error) {
	if amount.Cents == 0 {
		return nil, ErrZeroSplit
	}
	if len(t.Splits) == 0 {
		return nil, ErrSplitTooLarge
	}
	primary := &t.Splits[0]
	remainder := primary.Amount.Cents - amount.Cents
	if !sameSignOrZero(amount.Cents, t.Amount.Cents) || !sameSignOrZero(remainder, t.Amount.Cents) {
		return nil, ErrSplitTooLarge
	}
	primary.Amount = Money{Cents: remainder}

	split := Split{
		ID:            uuid.NewString(),
		TransactionID: t.ID,
		Amount:        amount,
	}
	for _, tag := range tags {
		split.Tags.Add(tag)
	}
	t.Splits = append(t.Splits, split)
	return &t.Splits[len(t.Splits)-1], nil
}

func sameSignOrZero(v, reference int64) bool {
	if v == 0 {
		return true
	}
	return (v < 0) == (reference < 0)
}

// ApplyTag assigns a tag to the transaction's primary split. A tag already
// present on any split is not duplicated. Reports whether the tag was added.
func (t *Transaction) ApplyTag(tag Tag) bool {
	for i := range t.Splits {
		if t.Splits[i].Tags.Contains(tag.ID) {
			return false
		}
	}
	if len(t.Splits) == 0 {
		t.Splits = append(t.Splits, Split{
			ID:            uuid.NewString(),
			TransactionID: t.ID,
			Amount:        t.Amount,
		})
	}
	t.Splits[0].Tags.Add(tag)
	return true
}

// HasTaggedSplit reports whether any split carries at least one tag.
func (t *Transaction) HasTaggedSplit() bool {
	for i := range t.Splits {
		if t.Splits[i].Tags.Len() > 0 {
			return true
		}
	}
	return false
}

// SplitTotal returns the sum of all split amounts.
func (t *Transaction) SplitTotal() Money {
	var total int64
	for i := range t.Splits {
		total += t.Splits[i].Amount.Cents
	}
	return Money{Cents: total}
}

func (t *Transaction) Validate() error {
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if len(t.Splits) == 0 {
		return errors.New("transaction has no splits")
	}
	if t.SplitTotal() != t.Amount {
		return errors.New("split total does not equal transaction amount")
	}
	return nil
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Contains) == "" {
		return ErrEmptyPattern
	}
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Fortnightly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (rt RecurringTransaction) Validate() error {
	if rt.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if rt.NextRun.IsZero() {
		return errors.New("next run date cannot be zero")
	}
	return rt.Every.Validate()
}
