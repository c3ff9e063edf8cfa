package pacing

import "testing"

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		name   string
		target float64
		actual int64
		want   Tier
	}{
		{"zero target neutral", 0, 100, TierNeutral},
		{"negative target neutral", -10, 100, TierNeutral},
		{"zero actual low", 100, 0, TierLow},
		{"49 low", 100, 49, TierLow},
		{"50 mid", 100, 50, TierMid},
		{"99 mid", 100, 99, TierMid},
		{"100 high", 100, 100, TierHigh},
		{"124 high", 100, 124, TierHigh},
		{"125 star", 100, 125, TierStar},
		{"149 star", 100, 149, TierStar},
		{"150 crown", 100, 150, TierCrown},
		{"way over crown", 100, 1000, TierCrown},
	}
	for _, tc := range cases {
		if got := Classify(tc.target, tc.actual); got != tc.want {
			t.Errorf("%s: Classify(%v, %d) = %v, want %v", tc.name, tc.target, tc.actual, got, tc.want)
		}
	}
}

func TestClassifyDay(t *testing.T) {
	sched := map[string]float64{
		"2024-01-01": 100,
		"2024-01-02": 0,
	}
	if got := ClassifyDay(sched, "2024-01-01", 150); got != TierCrown {
		t.Errorf("scheduled day = %v, want crown", got)
	}
	if got := ClassifyDay(sched, "2024-01-02", 50); got != TierNeutral {
		t.Errorf("zero-target day = %v, want neutral", got)
	}
	if got := ClassifyDay(sched, "2024-01-07", 50); got != TierNone {
		t.Errorf("unscheduled day = %v, want none", got)
	}
}

func TestTierNames(t *testing.T) {
	want := map[Tier]string{
		TierNone:    "none",
		TierNeutral: "neutral",
		TierLow:     "low",
		TierMid:     "mid",
		TierHigh:    "high",
		TierStar:    "star",
		TierCrown:   "crown",
	}
	for tier, name := range want {
		if tier.String() != name {
			t.Errorf("%d.String() = %q, want %q", tier, tier.String(), name)
		}
	}
}
