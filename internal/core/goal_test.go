package core

import "testing"

func TestSettingsGoal(t *testing.T) {
	s := Settings{
		GoalName:     "Q1 push",
		GoalAmount:   1000,
		GoalStart:    "2024-01-01",
		GoalEnd:      "2024-01-05",
		GoalProgress: 50,
		Weekdays:     DefaultWeekdayMask(),
	}
	g := s.Goal()
	if g.Name != "Q1 push" {
		t.Errorf("name = %q", g.Name)
	}
	if g.Start.IsZero() || g.End.IsZero() {
		t.Fatal("expected bounded goal")
	}
	if !g.Bounded() {
		t.Fatal("Bounded() = false")
	}
	if g.PriorProgress != 50 {
		t.Errorf("prior progress = %v", g.PriorProgress)
	}
}

func TestSettingsGoalDefaultsAndBadInput(t *testing.T) {
	g := (Settings{GoalAmount: -10, GoalStart: "not-a-date"}).Goal()
	if g.Name != "Goal" {
		t.Errorf("empty name should default, got %q", g.Name)
	}
	if g.TargetAmount != 0 {
		t.Errorf("negative target should clamp to 0, got %v", g.TargetAmount)
	}
	if !g.Start.IsZero() {
		t.Error("unparseable start should be treated as absent")
	}
}

func TestGoalTotalWorkingDaysInvertedRange(t *testing.T) {
	g := Goal{
		Start:    date(2024, 2, 1),
		End:      date(2024, 1, 1),
		Weekdays: DefaultWeekdayMask(),
	}
	if got := g.TotalWorkingDays(); got != 0 {
		t.Fatalf("inverted range working days = %d, want 0", got)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.GoalAmount != 500000 || s.Theme != "dark" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Weekdays.Working(0) {
		t.Error("Sunday should be off by default")
	}
	if !s.Weekdays.Working(1) {
		t.Error("Monday should be on by default")
	}
}
