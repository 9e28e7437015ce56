package agent

import "github.com/stonkgame/market-engine/internal/stonk"

// ActionKind enumerates every action the resolver can apply. The kind also
// keys the past-action history used by eligibility and anti-repeat checks.
type ActionKind string

const (
	KindBuy                 ActionKind = "buy"
	KindSell                ActionKind = "sell"
	KindBumpStonkClass      ActionKind = "bump_stonk_class"
	KindCrashAll            ActionKind = "crash_all"
	KindCrashAgentStonks    ActionKind = "crash_agent_stonks"
	KindAddCash             ActionKind = "add_cash"
	KindAcceptBribe         ActionKind = "accept_bribe"
	KindOneDayUltraVision   ActionKind = "one_day_ultra_vision"
	KindGetDividends        ActionKind = "get_dividends"
	KindAssassinationVictim ActionKind = "assassination_victim"
)

// Action is one pending agent action. Only the fields relevant to the kind
// are set: StonkID for Buy/Sell/GetDividends, Amount (shares for Buy/Sell,
// cents for AddCash), Class for BumpStonkClass, TargetUsername for
// CrashAgentStonks.
type Action struct {
	Kind           ActionKind  `json:"kind"`
	StonkID        int         `json:"stonk_id,omitempty"`
	Amount         int64       `json:"amount,omitempty"`
	Class          stonk.Class `json:"class,omitempty"`
	TargetUsername string      `json:"target_username,omitempty"`
}

// PastAction records how often and how recently an action kind was applied.
type PastAction struct {
	Count    int64 `json:"count"`
	LastTick int64 `json:"last_tick"`
}

// EventOffer is one unlocked night event as presented to an agent: a name,
// the rendered description lines, and the action it resolves to. Offers are
// built by the events catalog and stored on the agent until the next day.
type EventOffer struct {
	Name        string   `json:"name"`
	Description []string `json:"description"`
	Action      Action   `json:"action"`
}
