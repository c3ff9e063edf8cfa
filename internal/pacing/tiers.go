package pacing

// Tier classifies a day's attainment against its pace-schedule target into
// the indicator shown on the calendar cell.
type Tier int

const (
	// TierNone means the day carries no target (non-working or outside the
	// goal range) and gets no indicator.
	TierNone Tier = iota
	// TierNeutral marks a working day whose target is zero or negative.
	TierNeutral
	// TierLow is attainment below 50%.
	TierLow
	// TierMid is attainment in [50%, 100%).
	TierMid
	// TierHigh is attainment in [100%, 125%).
	TierHigh
	// TierStar is attainment in [125%, 150%).
	TierStar
	// TierCrown is attainment at or above 150%.
	TierCrown
)

func (t Tier) String() string {
	switch t {
	case TierNeutral:
		return "neutral"
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	case TierStar:
		return "star"
	case TierCrown:
		return "crown"
	default:
		return "none"
	}
}

// MarshalText makes tiers render as their names in JSON payloads.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Classify maps a working day's target and actual onto its tier. The crown
// check runs before the star check, which runs before the banded pills, so
// the five bands {<50, [50,100), [100,125), [125,150), >=150} stay distinct.
func Classify(target float64, actual int64) Tier {
	if target <= 0 {
		return TierNeutral
	}
	pct := float64(actual) / target * 100
	switch {
	case pct >= 150:
		return TierCrown
	case pct >= 125:
		return TierStar
	case pct < 50:
		return TierLow
	case pct < 100:
		return TierMid
	default:
		return TierHigh
	}
}

// ClassifyDay looks a day up in the pace schedule; days without a target
// yield TierNone.
func ClassifyDay(schedule map[string]float64, dayKey string, actual int64) Tier {
	target, ok := schedule[dayKey]
	if !ok {
		return TierNone
	}
	return Classify(target, actual)
}
