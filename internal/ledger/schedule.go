package ledger

import (
	"fmt"
	"time"

	"moobank/internal/core"
)

// ScheduleRule computes the next occurrence date for one frequency. Every
// implementation must return a date strictly after its input; the recurring
// catch-up loop relies on that to terminate.
type ScheduleRule interface {
	Next(date time.Time) time.Time
}

type dailyRule struct{}

func (dailyRule) Next(date time.Time) time.Time { return date.AddDate(0, 0, 1) }

type weeklyRule struct{}

func (weeklyRule) Next(date time.Time) time.Time { return date.AddDate(0, 0, 7) }

type fortnightlyRule struct{}

func (fortnightlyRule) Next(date time.Time) time.Time { return date.AddDate(0, 0, 14) }

// monthlyRule advances by one calendar month with day-of-month clamping:
// Jan 31 -> Feb 28 (29 in leap years), rather than Go's AddDate overflow into
// early March.
type monthlyRule struct{}

func (monthlyRule) Next(date time.Time) time.Time { return addMonthsClamped(date, 1) }

// yearlyRule advances by one calendar year, clamping Feb 29 to Feb 28 in
// non-leap years.
type yearlyRule struct{}

func (yearlyRule) Next(date time.Time) time.Time { return addMonthsClamped(date, 12) }

// scheduleRules maps frequencies to their advancers.
var scheduleRules = map[core.Frequency]ScheduleRule{
	core.Daily:       dailyRule{},
	core.Weekly:      weeklyRule{},
	core.Fortnightly: fortnightlyRule{},
	core.Monthly:     monthlyRule{},
	core.Yearly:      yearlyRule{},
}

// GetScheduleRule returns the advancer for a frequency, or an error for an
// unsupported one.
func GetScheduleRule(every core.Frequency) (ScheduleRule, error) {
	rule, ok := scheduleRules[every]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", every)
	}
	return rule, nil
}

// Advance maps (date, frequency) to the next occurrence date. Pure and
// side-effect-free; the result is always strictly after the input.
func Advance(date time.Time, every core.Frequency) (time.Time, error) {
	rule, err := GetScheduleRule(every)
	if err != nil {
		return time.Time{}, err
	}
	return rule.Next(date), nil
}

func addMonthsClamped(date time.Time, months int) time.Time {
	first := time.Date(date.Year(), date.Month()+time.Month(months), 1,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	day := date.Day()
	if last := daysInMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysInMonth(date time.Time) int {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
}
