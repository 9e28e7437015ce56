// Package agent holds the participant-side state of the market engine:
// cash and share accounting with checked arithmetic, the single pending
// action slot, timed agent conditions, and the past-action history.
//
// All cash values are integer cents — never float64 for money.
package agent

import (
	"errors"
	"math"
)

// StartingCashCents is the endowment every agent receives on first join.
const StartingCashCents int64 = 10_000 * 100

var (
	// ErrInsufficientFunds is returned when a cash subtraction would go
	// negative.
	ErrInsufficientFunds = errors.New("agent: insufficient funds")

	// ErrInsufficientShares is returned when a share subtraction would go
	// negative.
	ErrInsufficientShares = errors.New("agent: insufficient shares")

	// ErrOverflow is returned when a cash or share addition would exceed
	// the representable range.
	ErrOverflow = errors.New("agent: amount overflow")
)

// Condition is a temporary agent-level condition.
type Condition string

// ConditionUltraVision reveals full stonk detail regardless of stake.
const ConditionUltraVision Condition = "ultra_vision"

// TimedCondition pairs a condition with its absolute expiry tick.
type TimedCondition struct {
	Until     int64     `json:"until"`
	Condition Condition `json:"condition"`
}

// DecisionAgent is the capability surface the resolver and the event
// catalog need from any participant, human session or scripted bot alike.
type DecisionAgent interface {
	Username() string

	Cash() int64
	AddCash(amountCents int64) error
	SubCash(amountCents int64) error

	OwnedStonks() []int64
	AddStonk(stonkID int, amount int64) error
	SubStonk(stonkID int, amount int64) error

	SelectAction(a Action)
	PendingAction() *Action
	ClearPendingAction()

	PastActions() map[ActionKind]PastAction
	RecordAction(kind ActionKind, tick int64)

	AddCondition(c Condition, untilTick int64)
	HasCondition(c Condition, currentTick int64) bool
	PurgeConditions(currentTick int64)

	SetNightEvents(offers []EventOffer)
	NightEvents() []EventOffer
}

// UserAgent is the concrete participant state. It is the unit of agent
// persistence: the whole struct round-trips through JSON.
type UserAgent struct {
	Name       string                    `json:"username"`
	CashCents  int64                     `json:"cash_cents"`
	Owned      []int64                   `json:"owned_stonks"`
	Pending    *Action                   `json:"pending_action,omitempty"`
	Offers     []EventOffer              `json:"night_events,omitempty"`
	Past       map[ActionKind]PastAction `json:"past_actions,omitempty"`
	Conditions []TimedCondition          `json:"conditions,omitempty"`
}

// New creates an agent with the starting endowment and zero holdings across
// numStonks stonks.
func New(username string, numStonks int) *UserAgent {
	return &UserAgent{
		Name:      username,
		CashCents: StartingCashCents,
		Owned:     make([]int64, numStonks),
		Past:      make(map[ActionKind]PastAction),
	}
}

// Clone returns a deep copy. Persistence hands clones to the store so that
// marshalling can proceed without holding the game lock while session
// handlers keep mutating the live agent.
func (a *UserAgent) Clone() *UserAgent {
	c := &UserAgent{
		Name:       a.Name,
		CashCents:  a.CashCents,
		Owned:      append([]int64(nil), a.Owned...),
		Offers:     append([]EventOffer(nil), a.Offers...),
		Conditions: append([]TimedCondition(nil), a.Conditions...),
	}
	if a.Pending != nil {
		p := *a.Pending
		c.Pending = &p
	}
	if a.Past != nil {
		c.Past = make(map[ActionKind]PastAction, len(a.Past))
		for k, v := range a.Past {
			c.Past[k] = v
		}
	}
	return c
}

func (a *UserAgent) Username() string { return a.Name }

func (a *UserAgent) Cash() int64 { return a.CashCents }

// AddCash credits cash. Fails only on int64 overflow.
func (a *UserAgent) AddCash(amountCents int64) error {
	if amountCents > math.MaxInt64-a.CashCents {
		return ErrOverflow
	}
	a.CashCents += amountCents
	return nil
}

// SubCash debits cash; a subtraction that would go negative fails instead.
func (a *UserAgent) SubCash(amountCents int64) error {
	if amountCents > a.CashCents {
		return ErrInsufficientFunds
	}
	a.CashCents -= amountCents
	return nil
}

func (a *UserAgent) OwnedStonks() []int64 { return a.Owned }

func (a *UserAgent) AddStonk(stonkID int, amount int64) error {
	if stonkID < 0 || stonkID >= len(a.Owned) {
		return ErrOverflow
	}
	if amount > math.MaxInt64-a.Owned[stonkID] {
		return ErrOverflow
	}
	a.Owned[stonkID] += amount
	return nil
}

func (a *UserAgent) SubStonk(stonkID int, amount int64) error {
	if stonkID < 0 || stonkID >= len(a.Owned) || amount > a.Owned[stonkID] {
		return ErrInsufficientShares
	}
	a.Owned[stonkID] -= amount
	return nil
}

// SelectAction fills the pending slot. First select wins: a second call
// while an action is already pending is silently ignored until the resolver
// clears the slot.
func (a *UserAgent) SelectAction(action Action) {
	if a.Pending != nil {
		return
	}
	a.Pending = &action
}

func (a *UserAgent) PendingAction() *Action { return a.Pending }

func (a *UserAgent) ClearPendingAction() { a.Pending = nil }

func (a *UserAgent) PastActions() map[ActionKind]PastAction {
	if a.Past == nil {
		a.Past = make(map[ActionKind]PastAction)
	}
	return a.Past
}

// RecordAction bumps the history entry for kind and stamps the tick.
func (a *UserAgent) RecordAction(kind ActionKind, tick int64) {
	past := a.PastActions()[kind]
	past.Count++
	past.LastTick = tick
	a.PastActions()[kind] = past
}

func (a *UserAgent) AddCondition(c Condition, untilTick int64) {
	a.Conditions = append(a.Conditions, TimedCondition{Until: untilTick, Condition: c})
}

func (a *UserAgent) HasCondition(c Condition, currentTick int64) bool {
	for _, tc := range a.Conditions {
		if tc.Condition == c && tc.Until > currentTick {
			return true
		}
	}
	return false
}

// PurgeConditions drops expired conditions at a tick boundary.
func (a *UserAgent) PurgeConditions(currentTick int64) {
	kept := a.Conditions[:0]
	for _, tc := range a.Conditions {
		if tc.Until > currentTick {
			kept = append(kept, tc)
		}
	}
	a.Conditions = kept
}

func (a *UserAgent) SetNightEvents(offers []EventOffer) { a.Offers = offers }

func (a *UserAgent) NightEvents() []EventOffer { return a.Offers }
