package stonk

// ConditionKind enumerates the time-scoped modifiers a stonk can carry.
type ConditionKind string

const (
	// ConditionBump temporarily shifts the effective drift by Amount.
	ConditionBump ConditionKind = "bump"

	// ConditionIncreasedShockProbability temporarily raises the chance of
	// a volatility shock. Checked during Tick, carries no amount.
	ConditionIncreasedShockProbability ConditionKind = "increased_shock_probability"
)

// Condition is one time-scoped modifier. Amount is only meaningful for
// ConditionBump and is a signed drift delta (e.g. 0.05 = +5%).
type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Amount float64       `json:"amount,omitempty"`
}

// ActiveCondition pairs a condition with the absolute tick at which it
// expires. A condition is active while Until > currentTick; expired entries
// are purged at each tick boundary, never merely skipped.
type ActiveCondition struct {
	Until     int64     `json:"until"`
	Condition Condition `json:"condition"`
}

// AddCondition queues a condition that stays active until untilTick.
func (s *Stonk) AddCondition(c Condition, untilTick int64) {
	s.Conditions = append(s.Conditions, ActiveCondition{Until: untilTick, Condition: c})
}

// purgeExpired drops every condition whose expiry tick has been reached.
func (s *Stonk) purgeExpired(currentTick int64) {
	kept := s.Conditions[:0]
	for _, ac := range s.Conditions {
		if ac.Until > currentTick {
			kept = append(kept, ac)
		}
	}
	s.Conditions = kept
}

// effectiveDrift is the baseline drift plus the sum of all active bumps.
// Callers must purge expired conditions first.
func (s *Stonk) effectiveDrift() float64 {
	drift := s.Drift
	for _, ac := range s.Conditions {
		if ac.Condition.Kind == ConditionBump {
			drift += ac.Condition.Amount
		}
	}
	return drift
}

// hasShockBoost reports whether any active condition raises the shock
// probability.
func (s *Stonk) hasShockBoost() bool {
	for _, ac := range s.Conditions {
		if ac.Condition.Kind == ConditionIncreasedShockProbability {
			return true
		}
	}
	return false
}
