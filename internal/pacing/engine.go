// Package pacing derives all goal KPIs from a goal definition and the
// ledger. Every figure is recomputed from scratch on demand; nothing in
// this package holds state, so the numbers can never drift from the store.
package pacing

import (
	"time"

	"pacecal/internal/core"
	"pacecal/internal/ledger"
)

// PeriodKPI pairs a period's pacing target with what actually landed.
type PeriodKPI struct {
	Target     float64 `json:"target"`
	Actual     int64   `json:"actual"`
	Attainment float64 `json:"attainment"`
}

// Report is the full KPI readout for one rendered view.
type Report struct {
	Progress             float64 `json:"progress"`
	RemainingGoal        float64 `json:"remainingGoal"`
	TotalWorkingDays     int     `json:"totalWorkingDays"`
	DaysElapsed          int     `json:"daysElapsed"`
	RemainingWorkingDays int     `json:"remainingWorkingDays"`
	DailyTarget          float64 `json:"dailyTarget"`

	Today   PeriodKPI `json:"today"`
	Week    PeriodKPI `json:"week"`
	Month   PeriodKPI `json:"month"`
	Quarter PeriodKPI `json:"quarter"`

	// GoalAttainment is cumulative progress against the full target amount.
	GoalAttainment float64 `json:"goalAttainment"`
}

// Compute produces the KPI report for the given view month. today anchors
// the current week and the elapsed-day count; viewYear/viewMonth anchor the
// month and fiscal-quarter periods. Every division is guarded so missing
// dates and empty ranges degrade to zero-valued output, never NaN.
func Compute(goal core.Goal, store *ledger.Store, today time.Time, viewYear, viewMonth int) Report {
	mask := goal.Weekdays
	todaySOD := core.StartOfDay(today)

	progress := goal.PriorProgress + float64(store.SumOpenRange(goal.Start, goal.End))
	remaining := goal.TargetAmount - progress
	if remaining < 0 {
		remaining = 0
	}

	totalWork := core.WorkingDaysInRange(goal.Start, goal.End, mask)
	elapsed := core.WorkingDaysInRange(goal.Start, todaySOD, mask)
	remainingDays := totalWork - elapsed
	if remainingDays < 0 {
		remainingDays = 0
	}

	daily := 0.0
	if remainingDays > 0 {
		daily = remaining / float64(remainingDays)
	}

	weekStart, weekEnd := core.WeekBounds(todaySOD)
	monthStart, monthEnd := core.MonthBounds(viewYear, viewMonth, today.Location())
	qStart, qEnd := core.QuarterBounds(viewYear, viewMonth, today.Location())

	weekly := daily * float64(core.WorkingDaysInRange(weekStart, weekEnd, mask))
	monthly := daily * float64(core.WorkingDaysInRange(monthStart, monthEnd, mask))
	quarterly := daily * float64(core.WorkingDaysInRange(qStart, qEnd, mask))

	todayActual := store.TotalFor(todaySOD)

	return Report{
		Progress:             progress,
		RemainingGoal:        remaining,
		TotalWorkingDays:     totalWork,
		DaysElapsed:          elapsed,
		RemainingWorkingDays: remainingDays,
		DailyTarget:          daily,

		Today:   kpi(daily, todayActual),
		Week:    kpi(weekly, store.SumRange(weekStart, weekEnd)),
		Month:   kpi(monthly, store.SumRange(monthStart, monthEnd)),
		Quarter: kpi(quarterly, store.SumRange(qStart, qEnd)),

		GoalAttainment: Attainment(progress, goal.TargetAmount),
	}
}

// Schedule walks every calendar date of the goal range and records, for each
// working day, the target that would close the goal if all prior actuals had
// already landed. The denominator shrinks day by day, so a strong day eases
// every later target and a weak one raises them — distinct from the flat
// target/totalWorkingDays split.
//
// rollingProgress is seeded with the goal's prior-progress baseline, matching
// the headline progress figure. Entries on non-working days still count
// toward rolling progress.
func Schedule(goal core.Goal, store *ledger.Store) map[string]float64 {
	if !goal.Bounded() {
		return map[string]float64{}
	}
	remainingDays := goal.TotalWorkingDays()
	if remainingDays == 0 {
		return map[string]float64{}
	}

	out := make(map[string]float64, remainingDays)
	rolling := goal.PriorProgress
	start := core.StartOfDay(goal.Start)
	end := core.EndOfDay(goal.End)

	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		if goal.Weekdays.Working(cur.Weekday()) {
			pace := 0.0
			if remainingDays > 0 {
				left := goal.TargetAmount - rolling
				if left < 0 {
					left = 0
				}
				pace = left / float64(remainingDays)
			}
			out[core.FormatDay(cur)] = pace
			if remainingDays > 0 {
				remainingDays--
			}
		}
		rolling += float64(store.TotalFor(cur))
	}
	return out
}

// Attainment returns actual/target as a percentage, 0 when the target is
// not positive. It never returns NaN or an infinity.
func Attainment(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return actual / target * 100
}

func kpi(target float64, actual int64) PeriodKPI {
	return PeriodKPI{
		Target:     target,
		Actual:     actual,
		Attainment: Attainment(float64(actual), target),
	}
}
