package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/stonk"
)

// Fixed action costs and payoffs, in cents.
const (
	// CrashAllCostCents is debited from the agent triggering a
	// market-wide crash.
	CrashAllCostCents int64 = 50_000 * 100

	// CrashAgentCostCents is debited for a targeted sabotage.
	CrashAgentCostCents int64 = 10_000 * 100

	// BribeCents is the unconditional credit for accepting the offer.
	BribeCents int64 = 10_000 * 100
)

const (
	// classBumpAmount is the drift bump pushed onto every stonk of a
	// class by the class-bump payoff, lasting one day.
	classBumpAmount = 5.0

	// crashBumpAmount is the market-wide crash drift, lasting one day.
	crashBumpAmount = -5.0
)

var (
	// ErrInvalidPrecondition marks an action that reached the resolver
	// without its eligibility gate holding. This is a contract violation:
	// such actions must only be produced by events that already checked.
	ErrInvalidPrecondition = errors.New("market: action precondition violated")

	// ErrUnknownStonk is returned for an out-of-range stonk id.
	ErrUnknownStonk = errors.New("market: unknown stonk id")

	// ErrInvalidAmount is returned for a zero or negative share amount.
	ErrInvalidAmount = errors.New("market: amount must be positive")
)

// AgentLookup resolves a username to a live agent. Targeted actions use it;
// a miss is a silent no-op, not an error, since the target may have been
// removed between event offer and resolution.
type AgentLookup interface {
	Get(username string) (agent.DecisionAgent, bool)
}

// ApplyAgentAction drains and applies the agent's pending action, if any.
//
// The pending slot is cleared before anything else so the action is
// consumed exactly once — a failed action is not retried. Validation runs
// before any mutation: either every sub-step of the action commits or none
// does. On success the action is recorded into the agent's history.
func (m *Market) ApplyAgentAction(a agent.DecisionAgent, others AgentLookup) error {
	pending := a.PendingAction()
	if pending == nil {
		return nil
	}
	action := *pending
	a.ClearPendingAction()

	if err := m.applyAction(a, action, others); err != nil {
		return err
	}
	a.RecordAction(action.Kind, m.LastTick)
	return nil
}

func (m *Market) applyAction(a agent.DecisionAgent, action agent.Action, others AgentLookup) error {
	switch action.Kind {
	case agent.KindBuy:
		return m.applyBuy(a, action.StonkID, action.Amount)

	case agent.KindSell:
		return m.applySell(a, action.StonkID, action.Amount)

	case agent.KindBumpStonkClass:
		for _, s := range m.StonksOfClass(action.Class) {
			s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: classBumpAmount}, m.LastTick+DayLength)
		}
		return nil

	case agent.KindCrashAll:
		if err := a.SubCash(CrashAllCostCents); err != nil {
			return err
		}
		for _, s := range m.Stonks {
			s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: crashBumpAmount}, m.LastTick+DayLength)
			s.AddCondition(stonk.Condition{Kind: stonk.ConditionIncreasedShockProbability}, m.LastTick+DayLength)
		}
		return nil

	case agent.KindCrashAgentStonks:
		return m.applyCrashAgentStonks(a, action.TargetUsername, others)

	case agent.KindAddCash:
		return a.AddCash(action.Amount)

	case agent.KindAcceptBribe:
		return a.AddCash(BribeCents)

	case agent.KindOneDayUltraVision:
		a.AddCondition(agent.ConditionUltraVision, m.LastTick+DayLength)
		return nil

	case agent.KindGetDividends:
		return m.applyGetDividends(a, action.StonkID)

	case agent.KindAssassinationVictim:
		// Marker only: being recorded in history is the whole effect.
		return nil

	default:
		return fmt.Errorf("market: unknown action kind %q", action.Kind)
	}
}

func (m *Market) applyBuy(a agent.DecisionAgent, stonkID int, amount int64) error {
	if stonkID < 0 || stonkID >= len(m.Stonks) {
		return ErrUnknownStonk
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s := m.Stonks[stonkID]

	if amount > s.AvailableShares() {
		return stonk.ErrNotEnoughSupply
	}
	cost := s.BuyPriceCents(amount)
	if cost > a.Cash() {
		return agent.ErrInsufficientFunds
	}

	// Validated above; these cannot fail half-way.
	if err := a.SubCash(cost); err != nil {
		return err
	}
	if err := a.AddStonk(stonkID, amount); err != nil {
		return err
	}
	if err := s.AllocateToAgent(a.Username(), amount); err != nil {
		return err
	}

	// A buy has an instantaneous price-pressure effect proportional to
	// the purchased stake, gone by the tick after next.
	s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: s.ToStake(amount)}, m.LastTick+1)
	return nil
}

func (m *Market) applySell(a agent.DecisionAgent, stonkID int, amount int64) error {
	if stonkID < 0 || stonkID >= len(m.Stonks) {
		return ErrUnknownStonk
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s := m.Stonks[stonkID]

	owned := a.OwnedStonks()
	if stonkID >= len(owned) || amount > owned[stonkID] {
		return agent.ErrInsufficientShares
	}
	if amount > s.AllocatedTo(a.Username()) {
		return stonk.ErrExcessDeallocation
	}
	credit := s.SellPriceCents(amount)
	if credit > math.MaxInt64-a.Cash() {
		return agent.ErrOverflow
	}

	// Validated above; these cannot fail half-way.
	if err := a.SubStonk(stonkID, amount); err != nil {
		return err
	}
	if err := s.DeallocateFromAgent(a.Username(), amount); err != nil {
		return err
	}
	if err := a.AddCash(credit); err != nil {
		return err
	}

	s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: -s.ToStake(amount)}, m.LastTick+1)
	return nil
}

func (m *Market) applyCrashAgentStonks(a agent.DecisionAgent, targetUsername string, others AgentLookup) error {
	if others == nil {
		return nil
	}
	target, ok := others.Get(targetUsername)
	if !ok {
		// Target disconnected or was removed since the event was
		// offered: silent no-op, no cost.
		return nil
	}

	if err := a.SubCash(CrashAgentCostCents); err != nil {
		return err
	}

	// The target's history shows they were hit.
	target.RecordAction(agent.KindAssassinationVictim, m.LastTick)

	for stonkID, amount := range target.OwnedStonks() {
		if amount <= 0 || stonkID >= len(m.Stonks) {
			continue
		}
		s := m.Stonks[stonkID]
		stake := s.ToStake(amount)
		s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: -stake}, m.LastTick+DayLength)
		s.AddCondition(stonk.Condition{Kind: stonk.ConditionIncreasedShockProbability}, m.LastTick+DayLength)
	}
	return nil
}

func (m *Market) applyGetDividends(a agent.DecisionAgent, stonkID int) error {
	gain, ok := m.YesterdayGain(stonkID)
	if !ok {
		// Only reachable through an event that already verified the
		// gain; getting here means the gate was bypassed.
		return fmt.Errorf("%w: dividends for stonk %d without yesterday gain", ErrInvalidPrecondition, stonkID)
	}

	owned := a.OwnedStonks()
	var shares int64
	if stonkID < len(owned) {
		shares = owned[stonkID]
	}
	payout := DividendPayoutCents(shares, m.Stonks[stonkID].PriceCents, gain)
	return a.AddCash(payout)
}
