package core

import (
	"strings"
	"time"
)

// Goal defines what the user is pacing toward. Start and End are optional;
// a zero time means the range is open on that side. An end before the start
// is not an error, it simply yields zero working days.
type Goal struct {
	Name          string
	TargetAmount  float64
	Start         time.Time
	End           time.Time
	PriorProgress float64
	Weekdays      WeekdayMask
}

// TotalWorkingDays counts the working days across the whole goal range.
func (g Goal) TotalWorkingDays() int {
	return WorkingDaysInRange(g.Start, g.End, g.Weekdays)
}

// Bounded reports whether both ends of the goal range are set.
func (g Goal) Bounded() bool {
	return !g.Start.IsZero() && !g.End.IsZero()
}

// Settings is the persisted user configuration: the goal definition plus
// presentation and feed preferences. It round-trips through the key-value
// store as JSON; unknown or corrupt payloads fall back to DefaultSettings.
type Settings struct {
	GoalName      string      `json:"goalName"`
	GoalAmount    float64     `json:"goalAmount"`
	GoalStart     string      `json:"goalStart"` // YYYY-MM-DD, empty = open
	GoalEnd       string      `json:"goalEnd"`
	GoalProgress  float64     `json:"goalProgress"`
	Theme         string      `json:"theme"`
	Weekdays      WeekdayMask `json:"weekdays"`
	SheetURL      string      `json:"sheetUrl"`
}

// DefaultSettings mirrors the shipped configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		GoalName:   "Yearly sales goal",
		GoalAmount: 500000,
		Theme:      "dark",
		Weekdays:   DefaultWeekdayMask(),
	}
}

// Goal materializes the goal definition from the settings, parsing the
// optional ISO date bounds. Unparseable bounds are treated as absent.
func (s Settings) Goal() Goal {
	g := Goal{
		Name:          strings.TrimSpace(s.GoalName),
		TargetAmount:  s.GoalAmount,
		PriorProgress: s.GoalProgress,
		Weekdays:      s.Weekdays,
	}
	if g.Name == "" {
		g.Name = "Goal"
	}
	if g.TargetAmount < 0 {
		g.TargetAmount = 0
	}
	if s.GoalStart != "" {
		if t, err := ParseDay(s.GoalStart); err == nil {
			g.Start = t
		}
	}
	if s.GoalEnd != "" {
		if t, err := ParseDay(s.GoalEnd); err == nil {
			g.End = t
		}
	}
	return g
}
