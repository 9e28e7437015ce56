// Package market owns the shared market state: the fixed stonk collection,
// the day/night phase machine, the feedback-controlled global drift, the
// leaderboard, and the transactional resolution of agent actions.
package market

import (
	"math"
	"math/rand"
	"sort"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/stonk"
)

const (
	// globalDriftNoise is the half-width of the uniform noise added to the
	// recomputed global drift.
	globalDriftNoise = 0.01

	// maxGlobalDrift is the symmetric clamp on the recomputed global
	// drift. The controller nudges, it never yanks.
	maxGlobalDrift = 0.1
)

// PortfolioEntry is one leaderboard row: an agent and its total valuation
// (cash plus holdings marked at current prices), in cents.
type PortfolioEntry struct {
	Username   string `json:"username"`
	TotalCents int64  `json:"total_cents"`
}

// Market is the shared simulation state. It is the unit of market
// persistence: the whole struct round-trips through JSON. The random source
// is injected, not serialized; callers must SetRand after decoding.
type Market struct {
	Stonks          []*stonk.Stonk   `json:"stonks"`
	LastTick        int64            `json:"last_tick"`
	Phase           Phase            `json:"phase"`
	InitialCapCents int64            `json:"initial_cap_cents"`
	Portfolios      []PortfolioEntry `json:"portfolios,omitempty"`

	rng *rand.Rand
}

// New bootstraps a market from static stonk configuration. The initial
// capitalization becomes the anchor of the global drift target.
func New(cfgs []stonk.Config, rng *rand.Rand) *Market {
	stonks := make([]*stonk.Stonk, len(cfgs))
	var cap int64
	for i, cfg := range cfgs {
		stonks[i] = stonk.New(cfg, i)
		cap += stonks[i].MarketCapCents()
	}
	return &Market{
		Stonks:          stonks,
		Phase:           Phase{Kind: PhaseDay},
		InitialCapCents: cap,
		rng:             rng,
	}
}

// SetRand injects the random source. Required after loading a market from a
// snapshot.
func (m *Market) SetRand(rng *rand.Rand) { m.rng = rng }

// CapCents is the aggregate market capitalization: the sum over stonks of
// unit price times total share supply.
func (m *Market) CapCents() int64 {
	var cap int64
	for _, s := range m.Stonks {
		cap += s.MarketCapCents()
	}
	return cap
}

// Tick advances the market by one step: day ticks run the price process and
// the drift controller, night ticks move no prices. The phase advances in
// both cases.
func (m *Market) Tick(agentCount int) {
	if m.Phase.IsDay() {
		m.tickDay(agentCount)
	}
	m.Phase = m.Phase.Next()
}

func (m *Market) tickDay(agentCount int) {
	if m.LastTick%DayLength == 0 {
		drift := m.globalDrift(agentCount)
		for _, s := range m.Stonks {
			s.AddCondition(stonk.Condition{Kind: stonk.ConditionBump, Amount: drift}, m.LastTick+DayLength)
		}
	}
	for _, s := range m.Stonks {
		s.Tick(m.LastTick, m.rng)
	}
	m.LastTick++
}

// globalDrift recomputes the market-wide drift that nudges aggregate
// capitalization toward its target: the initial capitalization plus one
// starting endowment per connected agent. The mean correction is
// (target - cap) / min(cap, target), dosed out over a full day rather than
// forced in one step, with uniform noise and a symmetric clamp. This keeps
// the market from inflating or deflating without bound as agents join and
// leave.
func (m *Market) globalDrift(agentCount int) float64 {
	cap := m.CapCents()
	target := m.InitialCapCents + agent.StartingCashCents*int64(agentCount)

	denom := cap
	if target < denom {
		denom = target
	}

	var mean float64
	if denom > 0 {
		mean = float64(target-cap) / float64(denom)
	}
	drift := mean + (m.rng.Float64()*2-1)*globalDriftNoise
	return math.Max(-maxGlobalDrift, math.Min(maxGlobalDrift, drift))
}

// RecomputePortfolios rebuilds the leaderboard from the full agent set:
// username to total valuation in cents, sorted descending (ties broken by
// name for a stable order).
func (m *Market) RecomputePortfolios(agents []agent.DecisionAgent) {
	entries := make([]PortfolioEntry, 0, len(agents))
	for _, a := range agents {
		total := a.Cash()
		owned := a.OwnedStonks()
		for id, amount := range owned {
			if id < len(m.Stonks) {
				total += amount * m.Stonks[id].PriceCents
			}
		}
		entries = append(entries, PortfolioEntry{Username: a.Username(), TotalCents: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalCents != entries[j].TotalCents {
			return entries[i].TotalCents > entries[j].TotalCents
		}
		return entries[i].Username < entries[j].Username
	})
	m.Portfolios = entries
}

// StonksOfClass returns the stonks carrying the given class tag.
func (m *Market) StonksOfClass(c stonk.Class) []*stonk.Stonk {
	var out []*stonk.Stonk
	for _, s := range m.Stonks {
		if s.Class == c {
			out = append(out, s)
		}
	}
	return out
}
