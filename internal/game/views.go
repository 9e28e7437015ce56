package game

import (
	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
	"github.com/stonkgame/market-engine/internal/stonk"
)

// StonkView is one stonk as shown to a particular agent. Info is gated by
// that agent's stake (and ultra vision), so two agents can see different
// detail for the same stonk.
type StonkView struct {
	ID         int         `json:"id"`
	ShortName  string      `json:"short_name"`
	Name       string      `json:"name"`
	Class      stonk.Class `json:"class"`
	PriceCents int64       `json:"price_cents"`
	Info       string      `json:"info"`
}

// MarketView is the market as shown to one agent.
type MarketView struct {
	Clock       string                  `json:"clock"`
	Phase       market.Phase            `json:"phase"`
	LastTick    int64                   `json:"last_tick"`
	CapCents    int64                   `json:"cap_cents"`
	Stonks      []StonkView             `json:"stonks"`
	Leaderboard []market.PortfolioEntry `json:"leaderboard"`
}

// AgentView is an agent's own state as returned by the API.
type AgentView struct {
	Username    string                                `json:"username"`
	CashCents   int64                                 `json:"cash_cents"`
	Owned       []int64                               `json:"owned_stonks"`
	Pending     *agent.Action                         `json:"pending_action,omitempty"`
	NightEvents []agent.EventOffer                    `json:"night_events,omitempty"`
	PastActions map[agent.ActionKind]agent.PastAction `json:"past_actions,omitempty"`
}

// PricePoint is one stonk's price in a tick update.
type PricePoint struct {
	ID         int    `json:"id"`
	ShortName  string `json:"short_name"`
	PriceCents int64  `json:"price_cents"`
}

// TickUpdate is the payload broadcast to WebSocket clients after each tick.
type TickUpdate struct {
	Type     string       `json:"type"`
	Clock    string       `json:"clock"`
	Phase    market.Phase `json:"phase"`
	LastTick int64        `json:"last_tick"`
	Prices   []PricePoint `json:"prices"`
}

// MarketViewFor renders the market for the named agent, or with minimal
// detail for an unknown or anonymous viewer.
func (g *Game) MarketViewFor(username string) MarketView {
	g.mu.Lock()
	defer g.mu.Unlock()

	var owned []int64
	ultra := false
	if e, ok := g.agents[username]; ok {
		e.lastSeen = g.now()
		owned = e.agent.OwnedStonks()
		ultra = e.agent.HasCondition(agent.ConditionUltraVision, g.market.LastTick)
	}

	stonks := make([]StonkView, 0, len(g.market.Stonks))
	for _, s := range g.market.Stonks {
		var amount int64
		if s.ID < len(owned) {
			amount = owned[s.ID]
		}
		stonks = append(stonks, StonkView{
			ID:         s.ID,
			ShortName:  s.ShortName,
			Name:       s.Name,
			Class:      s.Class,
			PriceCents: s.PriceCents,
			Info:       s.Info(amount, ultra),
		})
	}

	return MarketView{
		Clock:       g.market.Phase.Formatted(),
		Phase:       g.market.Phase,
		LastTick:    g.market.LastTick,
		CapCents:    g.market.CapCents(),
		Stonks:      stonks,
		Leaderboard: g.market.Portfolios,
	}
}

// History returns a copy of one stonk's recorded prices.
func (g *Game) History(stonkID int) ([]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if stonkID < 0 || stonkID >= len(g.market.Stonks) {
		return nil, market.ErrUnknownStonk
	}
	src := g.market.Stonks[stonkID].HistoricalPrices
	out := make([]int64, len(src))
	copy(out, src)
	return out, nil
}

// MaxBuy returns how many shares of one stonk the named agent could afford
// at the current price curve, bounded by the free pool.
func (g *Game) MaxBuy(username string, stonkID int) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.agents[username]
	if !ok {
		return 0, ErrUnknownAgent
	}
	if stonkID < 0 || stonkID >= len(g.market.Stonks) {
		return 0, market.ErrUnknownStonk
	}
	s := g.market.Stonks[stonkID]
	max := s.MaxBuyAmount(e.agent.Cash())
	if avail := s.AvailableShares(); max > avail {
		max = avail
	}
	return max, nil
}

// AgentViewFor returns the named agent's own state.
func (g *Game) AgentViewFor(username string) (AgentView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.agents[username]
	if !ok {
		return AgentView{}, ErrUnknownAgent
	}
	e.lastSeen = g.now()
	return g.agentView(e.agent), nil
}

// agentView builds the DTO. Caller holds the mutex. Slices are copied so
// the caller can marshal them after the lock is released.
func (g *Game) agentView(a *agent.UserAgent) AgentView {
	owned := make([]int64, len(a.Owned))
	copy(owned, a.Owned)

	var pending *agent.Action
	if a.Pending != nil {
		p := *a.Pending
		pending = &p
	}

	offers := make([]agent.EventOffer, len(a.Offers))
	copy(offers, a.Offers)

	past := make(map[agent.ActionKind]agent.PastAction, len(a.Past))
	for k, v := range a.Past {
		past[k] = v
	}

	return AgentView{
		Username:    a.Name,
		CashCents:   a.CashCents,
		Owned:       owned,
		Pending:     pending,
		NightEvents: offers,
		PastActions: past,
	}
}

// tickUpdate builds the broadcast payload. Caller holds the mutex.
func (g *Game) tickUpdate() TickUpdate {
	prices := make([]PricePoint, 0, len(g.market.Stonks))
	for _, s := range g.market.Stonks {
		prices = append(prices, PricePoint{ID: s.ID, ShortName: s.ShortName, PriceCents: s.PriceCents})
	}
	return TickUpdate{
		Type:     "tick",
		Clock:    g.market.Phase.Formatted(),
		Phase:    g.market.Phase,
		LastTick: g.market.LastTick,
		Prices:   prices,
	}
}
