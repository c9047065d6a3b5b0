package ledger

import (
	"sort"
	"time"

	"moobank/internal/core"
)

// UntaggedName labels the synthetic bucket for transactions whose splits
// carry no tags.
const UntaggedName = "Untagged"

// TransactionFilter selects the transactions that feed an aggregation.
type TransactionFilter struct {
	AccountID string
	// Start bounds the range at start-of-day; the zero value disables the
	// lower bound ("since the beginning of history").
	Start time.Time
	// End bounds the range at end-of-day inclusive; the zero value disables
	// the upper bound.
	End time.Time
	// Type restricts to debits or credits; empty matches both.
	Type core.TransactionType
	// ParentTagID scopes the aggregation to the children of one tag. When
	// set, the Untagged bucket is omitted: there is no "untagged within X".
	ParentTagID string
}

func (f TransactionFilter) matches(t *core.Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if t.ExcludeFromReporting {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.Start.IsZero() && t.TransactionTime.Before(dateOnly(f.Start)) {
		return false
	}
	if !f.End.IsZero() && t.TransactionTime.After(endOfDay(f.End)) {
		return false
	}
	return true
}

// TagTotal is a per-tag aggregate produced fresh on every call; it is never
// persisted.
type TagTotal struct {
	TagID   string
	TagName string
	Total   core.Money
}

// TrendPoint is a calendar-month aggregate keyed by the first day of the
// month.
type TrendPoint struct {
	Month time.Time
	Total core.Money
}

// AggregateTagTotals reduces the filtered transaction stream into per-tag
// totals. Every tag on every split of a surviving transaction accumulates
// that split's absolute amount, so a split carrying two tags contributes to
// both (fan-out). Transactions without any tagged split land in the Untagged
// bucket, except under parent-tag scoping. Output is sorted by total
// descending, ties in first-seen input order.
//
// hierarchy is consulted only when the filter scopes to a parent tag; it may
// be nil otherwise.
func AggregateTagTotals(transactions []*core.Transaction, filter TransactionFilter, hierarchy *core.TagHierarchy) []TagTotal {
	totals := make(map[string]*TagTotal)
	var order []string

	accumulate := func(id, name string, amount core.Money) {
		entry, ok := totals[id]
		if !ok {
			entry = &TagTotal{TagID: id, TagName: name}
			totals[id] = entry
			order = append(order, id)
		}
		entry.Total = entry.Total.Add(amount)
	}

	scoped := filter.ParentTagID != ""
	for _, t := range transactions {
		if !filter.matches(t) {
			continue
		}

		for i := range t.Splits {
			split := &t.Splits[i]
			for _, tag := range split.Tags.Tags() {
				if scoped && (hierarchy == nil || !hierarchy.IsChildOf(tag.ID, filter.ParentTagID)) {
					continue
				}
				accumulate(tag.ID, tag.Name, split.Amount.Abs())
			}
		}

		if !scoped && !t.HasTaggedSplit() {
			accumulate("", UntaggedName, t.Amount.Abs())
		}
	}

	out := make([]TagTotal, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// BucketTrends groups the filtered transaction stream into monthly buckets,
// credits into income and debits into expenses. Amounts are signed sums of
// the transactions' net amounts; months with no transactions produce no
// bucket. Both streams are sorted ascending by month.
func BucketTrends(transactions []*core.Transaction, filter TransactionFilter) (income, expenses []TrendPoint) {
	// The debit/credit separation is structural here; any Type on the filter
	// is ignored.
	filter.Type = ""

	incomeByMonth := make(map[time.Time]int64)
	expensesByMonth := make(map[time.Time]int64)

	for _, t := range transactions {
		if !filter.matches(t) {
			continue
		}
		month := monthStart(t.TransactionTime)
		if t.Type == core.Credit {
			incomeByMonth[month] += t.Amount.Cents
		} else {
			expensesByMonth[month] += t.Amount.Cents
		}
	}

	return trendPoints(incomeByMonth), trendPoints(expensesByMonth)
}

func trendPoints(byMonth map[time.Time]int64) []TrendPoint {
	out := make([]TrendPoint, 0, len(byMonth))
	for month, cents := range byMonth {
		out = append(out, TrendPoint{Month: month, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return dateOnly(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
