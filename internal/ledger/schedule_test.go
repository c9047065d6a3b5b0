package ledger

import (
	"testing"
	"time"

	"moobank/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name  string
		every core.Frequency
		from  time.Time
		want  time.Time
	}{
		{"daily", core.Daily, date(2024, time.March, 15), date(2024, time.March, 16)},
		{"daily across month end", core.Daily, date(2024, time.January, 31), date(2024, time.February, 1)},
		{"weekly", core.Weekly, date(2024, time.March, 15), date(2024, time.March, 22)},
		{"fortnightly", core.Fortnightly, date(2024, time.March, 15), date(2024, time.March, 29)},
		{"fortnightly across year end", core.Fortnightly, date(2023, time.December, 25), date(2024, time.January, 8)},
		{"monthly", core.Monthly, date(2024, time.March, 15), date(2024, time.April, 15)},
		{"monthly clamps jan 31 to feb 29 in leap year", core.Monthly, date(2024, time.January, 31), date(2024, time.February, 29)},
		{"monthly clamps jan 31 to feb 28", core.Monthly, date(2023, time.January, 31), date(2023, time.February, 28)},
		{"monthly clamps may 31 to jun 30", core.Monthly, date(2024, time.May, 31), date(2024, time.June, 30)},
		{"monthly keeps short day", core.Monthly, date(2024, time.February, 29), date(2024, time.March, 29)},
		{"yearly", core.Yearly, date(2024, time.March, 15), date(2025, time.March, 15)},
		{"yearly clamps feb 29 to feb 28", core.Yearly, date(2024, time.February, 29), date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Advance(tt.from, tt.every)
			if err != nil {
				t.Fatalf("Advance(%v, %s) returned error: %v", tt.from, tt.every, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Advance(%v, %s) = %v, want %v", tt.from, tt.every, got, tt.want)
			}
		})
	}
}

func TestAdvanceUnknownFrequency(t *testing.T) {
	if _, err := Advance(date(2024, time.March, 15), core.Frequency("quarterly")); err == nil {
		t.Error("Advance with unknown frequency should return an error")
	}
}

// Every schedule rule must return a date strictly after its input; the
// catch-up loop depends on that to terminate.
func TestScheduleRulesAlwaysAdvance(t *testing.T) {
	inputs := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.December, 31),
	}

	for every, rule := range scheduleRules {
		for _, in := range inputs {
			if next := rule.Next(in); !next.After(in) {
				t.Errorf("%s.Next(%v) = %v, not strictly after input", every, in, next)
			}
		}
	}
}

func TestGetScheduleRule(t *testing.T) {
	for _, every := range []core.Frequency{core.Daily, core.Weekly, core.Fortnightly, core.Monthly, core.Yearly} {
		if _, err := GetScheduleRule(every); err != nil {
			t.Errorf("GetScheduleRule(%s) returned error: %v", every, err)
		}
	}
	if _, err := GetScheduleRule(""); err == nil {
		t.Error("GetScheduleRule(\"\") should return an error")
	}
}
