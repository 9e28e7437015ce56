// Package events implements the night-event catalog: a fixed enumeration
// of special one-time opportunities, each with an eligibility predicate
// over one agent and the market, a rendered description, and the action it
// resolves to when chosen.
//
// Events are evaluated once per agent at night-phase entry. Direct
// invocation of gated actions (dividends in particular) without a prior
// eligibility check is a contract violation handled by the resolver.
package events

import (
	"fmt"
	"math/rand"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
	"github.com/stonkgame/market-engine/internal/stonk"
)

// MaxPerNight caps how many unlocked events an agent is shown. Excess
// eligible events are trimmed by a shuffle with the injected source.
const MaxPerNight = 3

const (
	// aGoodOfferProbability gates the bribe offer. Deliberately near 1:
	// broke agents almost always get tempted.
	aGoodOfferProbability = 0.99994

	// luckyNightProbability gates the free-cash event.
	luckyNightProbability = 0.05

	// LuckyNightCents is the lucky-night payoff.
	LuckyNightCents int64 = 2_000 * 100

	// marketCrashCashThresholdCents unlocks the market-wide crash.
	marketCrashCashThresholdCents int64 = 100_000 * 100

	// aGoodOfferCashCeilingCents: only agents below this are tempted.
	aGoodOfferCashCeilingCents int64 = 1_000 * 100

	// Ultra vision unlocks from a large stake in one specific stonk.
	ultraVisionStonkID       = 3
	ultraVisionStakePercent  = 10.0
	classAverageStakePercent = 1.0
)

// Kind enumerates the catalog. The order here is the evaluation order.
type Kind string

const (
	War                    Kind = "war"
	ColdWinter             Kind = "cold_winter"
	RoyalScandal           Kind = "royal_scandal"
	PurpleBlockchain       Kind = "purple_blockchain"
	MarketCrash            Kind = "market_crash"
	UltraVision            Kind = "ultra_vision"
	CharacterAssassination Kind = "character_assassination"
	AGoodOffer             Kind = "a_good_offer"
	LuckyNight             Kind = "lucky_night"
	Dividend               Kind = "dividend"
)

// Event is one catalog entry, possibly parameterized: TargetUsername for
// CharacterAssassination, StonkID for Dividend.
type Event struct {
	Kind           Kind
	TargetUsername string
	StonkID        int
}

// Name is the short display name.
func (e Event) Name() string {
	switch e.Kind {
	case War:
		return "War"
	case ColdWinter:
		return "Cold winter"
	case RoyalScandal:
		return "Royal scandal"
	case PurpleBlockchain:
		return "Purple blockchain"
	case MarketCrash:
		return "Market crash"
	case UltraVision:
		return "UltraVision"
	case CharacterAssassination:
		return "Character assassination"
	case AGoodOffer:
		return "A good offer"
	case LuckyNight:
		return "Lucky night"
	case Dividend:
		return "Dividends"
	default:
		return string(e.Kind)
	}
}

// Eligible reports whether the event is unlocked for the agent. Random
// gates draw from the injected source so tests can pin outcomes.
func (e Event) Eligible(a agent.DecisionAgent, m *market.Market, rng *rand.Rand) bool {
	switch e.Kind {
	case War:
		return classStakeEligible(a, m, stonk.ClassWar)
	case ColdWinter:
		return classStakeEligible(a, m, stonk.ClassCommodity)
	case RoyalScandal:
		return classStakeEligible(a, m, stonk.ClassMedia)
	case PurpleBlockchain:
		return classStakeEligible(a, m, stonk.ClassTechnology)
	case MarketCrash:
		return a.Cash() >= marketCrashCashThresholdCents
	case UltraVision:
		if ultraVisionStonkID >= len(m.Stonks) {
			return false
		}
		s := m.Stonks[ultraVisionStonkID]
		owned := a.OwnedStonks()
		if ultraVisionStonkID >= len(owned) {
			return false
		}
		return 100*s.ToStake(owned[ultraVisionStonkID]) >= ultraVisionStakePercent
	case CharacterAssassination:
		return e.TargetUsername != a.Username()
	case AGoodOffer:
		if _, taken := a.PastActions()[agent.KindAcceptBribe]; taken {
			return false
		}
		return a.Cash() < aGoodOfferCashCeilingCents && rng.Float64() < aGoodOfferProbability
	case LuckyNight:
		return rng.Float64() < luckyNightProbability
	case Dividend:
		if e.StonkID < 0 || e.StonkID >= len(m.Stonks) {
			return false
		}
		owned := a.OwnedStonks()
		if e.StonkID >= len(owned) || owned[e.StonkID] <= 0 {
			return false
		}
		if _, ok := m.YesterdayGain(e.StonkID); !ok {
			return false
		}
		return rng.Float64() < m.Stonks[e.StonkID].DividendProbability
	default:
		return false
	}
}

// classStakeEligible checks that the agent's average stake across all
// stonks of the class is at least one percent.
func classStakeEligible(a agent.DecisionAgent, m *market.Market, class stonk.Class) bool {
	stonks := m.StonksOfClass(class)
	if len(stonks) == 0 {
		return false
	}
	owned := a.OwnedStonks()
	var sum float64
	for _, s := range stonks {
		if s.ID < len(owned) {
			sum += 100 * s.ToStake(owned[s.ID])
		}
	}
	return sum/float64(len(stonks)) >= classAverageStakePercent
}

// Action is the payoff the event produces when chosen.
func (e Event) Action() agent.Action {
	switch e.Kind {
	case War:
		return agent.Action{Kind: agent.KindBumpStonkClass, Class: stonk.ClassWar}
	case ColdWinter:
		return agent.Action{Kind: agent.KindBumpStonkClass, Class: stonk.ClassCommodity}
	case RoyalScandal:
		return agent.Action{Kind: agent.KindBumpStonkClass, Class: stonk.ClassMedia}
	case PurpleBlockchain:
		return agent.Action{Kind: agent.KindBumpStonkClass, Class: stonk.ClassTechnology}
	case MarketCrash:
		return agent.Action{Kind: agent.KindCrashAll}
	case UltraVision:
		return agent.Action{Kind: agent.KindOneDayUltraVision}
	case CharacterAssassination:
		return agent.Action{Kind: agent.KindCrashAgentStonks, TargetUsername: e.TargetUsername}
	case AGoodOffer:
		return agent.Action{Kind: agent.KindAcceptBribe}
	case LuckyNight:
		return agent.Action{Kind: agent.KindAddCash, Amount: LuckyNightCents}
	case Dividend:
		return agent.Action{Kind: agent.KindGetDividends, StonkID: e.StonkID}
	default:
		return agent.Action{}
	}
}

// Description renders the card text: flavor, then unlock condition, then
// cost where one applies.
func (e Event) Description(m *market.Market) []string {
	var lines []string
	switch e.Kind {
	case War:
		lines = []string{
			"It's war time!",
			"Chance for all war stonks",
			"to get a big bump.",
		}
	case ColdWinter:
		lines = []string{
			"Apparently next winter",
			"is gonna be very cold,",
			"better prepare soon. So",
			"much for global warming!",
		}
	case RoyalScandal:
		lines = []string{
			"A juicy scandal will hit",
			"every frontpage tomorrow.",
			"Media stonks will surely",
			"sell some extra!",
		}
	case PurpleBlockchain:
		lines = []string{
			"Didn't you hear?",
			"Blockchains are gonna ruin",
			"the broken financial",
			"system. Just put it on",
			"chain, and make it purple.",
		}
	case MarketCrash:
		lines = []string{
			"It's 1929 all over again,",
			"or was it 1987?",
			"Or 2001? Or 2008?",
			"Or...",
		}
	case UltraVision:
		lines = []string{
			"You woke up differently",
			"this morning, with a sense",
			"of prescience about",
			"something incoming...",
		}
	case CharacterAssassination:
		lines = []string{
			fmt.Sprintf("That fucker %s", e.TargetUsername),
			"better pay attention",
			"to their stonks tomorrow.",
		}
	case AGoodOffer:
		lines = []string{
			"An offer you can't refuse",
			"they say. Get $10000,",
			"pay later (maybe).",
		}
	case LuckyNight:
		lines = []string{
			"You found a banknote",
			"tucked in an old coat.",
			"Tonight is your night.",
		}
	case Dividend:
		name := ""
		if e.StonkID >= 0 && e.StonkID < len(m.Stonks) {
			name = m.Stonks[e.StonkID].Name
		}
		lines = []string{
			fmt.Sprintf("%s had a good run", name),
			"yesterday. The board is",
			"feeling generous towards",
			"loyal shareholders.",
		}
	}

	lines = append(lines, "", "Unlock Condition:")
	lines = append(lines, e.unlockDescription(m)...)
	if cost := e.costDescription(); cost != "" {
		lines = append(lines, "", cost)
	}
	return lines
}

func (e Event) unlockDescription(m *market.Market) []string {
	switch e.Kind {
	case War:
		return []string{"Average share in", "War stonks >= 1%"}
	case ColdWinter:
		return []string{"Average share in", "Commodity stonks >= 1%"}
	case RoyalScandal:
		return []string{"Average share in", "Media stonks >= 1%"}
	case PurpleBlockchain:
		return []string{"Average share in", "Technology stonks >= 1%"}
	case MarketCrash:
		return []string{"Total cash >= $100000"}
	case UltraVision:
		name := ""
		if ultraVisionStonkID < len(m.Stonks) {
			name = m.Stonks[ultraVisionStonkID].Name
		}
		return []string{fmt.Sprintf("%s share >= 10%%", name)}
	case CharacterAssassination:
		return []string{
			fmt.Sprintf("%s took a special offer", e.TargetUsername),
			"in the past and got too",
			"greedy now.",
		}
	case AGoodOffer:
		return []string{"Random chance,", "happens only once"}
	case LuckyNight:
		return []string{"Pure luck"}
	case Dividend:
		return []string{"Hold shares in a stonk", "that gained yesterday"}
	default:
		return nil
	}
}

func (e Event) costDescription() string {
	switch e.Kind {
	case MarketCrash:
		return fmt.Sprintf("Cost: $%d", market.CrashAllCostCents/100)
	case CharacterAssassination:
		return fmt.Sprintf("Cost: $%d", market.CrashAgentCostCents/100)
	default:
		return ""
	}
}

// Offer packages the event for storage on an agent.
func (e Event) Offer(m *market.Market) agent.EventOffer {
	return agent.EventOffer{
		Name:        e.Name(),
		Description: e.Description(m),
		Action:      e.Action(),
	}
}

// AvailableEvents evaluates the catalog for one agent at night entry and
// returns up to MaxPerNight offers. others is the full agent set in
// registry order; it seeds the per-target assassination and per-holding
// dividend candidates. Excess eligible events are trimmed by shuffling
// with the injected source.
func AvailableEvents(a agent.DecisionAgent, m *market.Market, others []agent.DecisionAgent, rng *rand.Rand) []agent.EventOffer {
	candidates := []Event{
		{Kind: War},
		{Kind: ColdWinter},
		{Kind: RoyalScandal},
		{Kind: PurpleBlockchain},
		{Kind: MarketCrash},
		{Kind: UltraVision},
	}

	// One assassination candidate per agent who took the bribe.
	for _, other := range others {
		if other.Username() == a.Username() {
			continue
		}
		if _, bribed := other.PastActions()[agent.KindAcceptBribe]; bribed {
			candidates = append(candidates, Event{Kind: CharacterAssassination, TargetUsername: other.Username()})
		}
	}

	candidates = append(candidates, Event{Kind: AGoodOffer}, Event{Kind: LuckyNight})

	// One dividend candidate per held stonk.
	for stonkID, amount := range a.OwnedStonks() {
		if amount > 0 {
			candidates = append(candidates, Event{Kind: Dividend, StonkID: stonkID})
		}
	}

	var eligible []Event
	for _, e := range candidates {
		if e.Eligible(a, m, rng) {
			eligible = append(eligible, e)
		}
	}

	if len(eligible) > MaxPerNight {
		rng.Shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})
		eligible = eligible[:MaxPerNight]
	}

	offers := make([]agent.EventOffer, 0, len(eligible))
	for _, e := range eligible {
		offers = append(offers, e.Offer(m))
	}
	return offers
}
