// Package game drives the simulation: it owns the market, the agent
// registry, and the single-writer tick loop that advances prices, resolves
// pending actions, hands out night events, and persists state.
package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/events"
	"github.com/stonkgame/market-engine/internal/market"
	"github.com/stonkgame/market-engine/internal/metrics"
	"github.com/stonkgame/market-engine/internal/stonk"
	"github.com/stonkgame/market-engine/internal/store"
)

// inactiveAfter is how long an agent may go unseen before it is pruned from
// the registry and the store.
const inactiveAfter = 24 * time.Hour

var (
	// ErrUnknownAgent is returned when a username is not registered.
	ErrUnknownAgent = errors.New("game: unknown agent")

	// ErrNoSuchEvent is returned when a night-event selection is out of
	// range for the agent's current offers.
	ErrNoSuchEvent = errors.New("game: no such night event")

	// ErrActionNotAllowed is returned when a directly submitted action is
	// of a kind only reachable through a night event.
	ErrActionNotAllowed = errors.New("game: action only available through a night event")
)

type entry struct {
	agent    *agent.UserAgent
	lastSeen time.Time
}

// Broadcaster pushes a tick update to connected clients. The WebSocket hub
// satisfies it; tests use a no-op.
type Broadcaster interface {
	Broadcast(v any)
}

// Game is the single-writer owner of all mutable simulation state. Every
// public method takes the mutex; the tick loop and the HTTP handlers never
// touch market or agent state without it.
type Game struct {
	mu sync.Mutex

	market *market.Market
	agents map[string]*entry
	rng    *rand.Rand

	st        store.Store
	hub       Broadcaster
	saveEvery time.Duration
	lastSave  time.Time

	now func() time.Time
}

// New assembles a game around an existing market. st and hub may be nil in
// tests.
func New(m *market.Market, st store.Store, hub Broadcaster, rng *rand.Rand, saveEvery time.Duration) *Game {
	return &Game{
		market:    m,
		agents:    make(map[string]*entry),
		rng:       rng,
		st:        st,
		hub:       hub,
		saveEvery: saveEvery,
		now:       time.Now,
	}
}

// Load restores a game from the store, or bootstraps a fresh market from
// configuration when no snapshot exists. Agent holdings are reconciled into
// each stonk's allocation ledger: the agents are the source of truth after a
// restart.
func Load(ctx context.Context, cfgs []stonk.Config, st store.Store, hub Broadcaster, rng *rand.Rand, saveEvery time.Duration) (*Game, error) {
	var m *market.Market

	loaded, err := st.LoadMarket(ctx)
	switch {
	case err == nil:
		m = loaded
		m.SetRand(rng)
		slog.Info("market restored from snapshot", "last_tick", m.LastTick)
	case errors.Is(err, store.ErrNotFound):
		m = market.New(cfgs, rng)
		slog.Info("bootstrapped fresh market", "stonks", len(m.Stonks))
	default:
		return nil, err
	}

	g := New(m, st, hub, rng, saveEvery)

	agents, err := st.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	now := g.now()
	for _, a := range agents {
		g.agents[a.Name] = &entry{agent: a, lastSeen: now}
	}
	g.reconcileAllocations()
	metrics.RegisteredAgents.Set(float64(len(g.agents)))
	return g, nil
}

// reconcileAllocations rebuilds every stonk's shareholder ledger from the
// registry. Caller holds the mutex (or is still single-threaded at startup).
func (g *Game) reconcileAllocations() {
	for _, s := range g.market.Stonks {
		holdings := make(map[string]int64)
		for username, e := range g.agents {
			owned := e.agent.OwnedStonks()
			if s.ID < len(owned) && owned[s.ID] > 0 {
				holdings[username] = owned[s.ID]
			}
		}
		s.SetAllocation(holdings)
	}
}

// Join registers a new agent with the starting endowment, or reattaches an
// existing one. Reattachment is idempotent so a reconnecting session keeps
// its state.
func (g *Game) Join(ctx context.Context, username string) (AgentView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.agents[username]; ok {
		e.lastSeen = g.now()
		return g.agentView(e.agent), nil
	}

	a := agent.New(username, len(g.market.Stonks))
	g.agents[username] = &entry{agent: a, lastSeen: g.now()}
	metrics.RegisteredAgents.Set(float64(len(g.agents)))

	if g.st != nil {
		if err := g.st.SaveAgent(ctx, a); err != nil {
			slog.Error("persist new agent failed", "username", username, "err", err)
		}
	}
	slog.Info("agent joined", "username", username)
	return g.agentView(a), nil
}

// SelectTrade submits a buy or sell into the agent's pending slot. Only
// trades may be submitted directly; every other action kind arrives through
// a night event.
func (g *Game) SelectTrade(username string, kind agent.ActionKind, stonkID int, amount int64) error {
	if kind != agent.KindBuy && kind != agent.KindSell {
		return ErrActionNotAllowed
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.agents[username]
	if !ok {
		return ErrUnknownAgent
	}
	e.lastSeen = g.now()
	e.agent.SelectAction(agent.Action{Kind: kind, StonkID: stonkID, Amount: amount})
	return nil
}

// SelectNightEvent submits the agent's idx-th current night offer into the
// pending slot. The offer itself was eligibility-checked when it was built.
func (g *Game) SelectNightEvent(username string, idx int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.agents[username]
	if !ok {
		return ErrUnknownAgent
	}
	e.lastSeen = g.now()

	offers := e.agent.NightEvents()
	if idx < 0 || idx >= len(offers) {
		return ErrNoSuchEvent
	}
	e.agent.SelectAction(offers[idx].Action)
	return nil
}

// Tick advances the simulation one step: resolve every pending action at
// current prices, advance the market, then handle the phase boundary
// (populate night events on day-to-night, clear them and purge expired
// agent conditions on night-to-day). Persistence and the broadcast happen
// at the end, outside the failure path of the simulation itself.
func (g *Game) Tick(ctx context.Context) {
	g.mu.Lock()

	for username, e := range g.agents {
		pending := e.agent.PendingAction()
		if pending == nil {
			continue
		}
		kind := string(pending.Kind)
		if err := g.market.ApplyAgentAction(e.agent, g); err != nil {
			metrics.ActionsTotal.WithLabelValues(kind, "rejected").Inc()
			if errors.Is(err, market.ErrInvalidPrecondition) {
				metrics.PreconditionRejections.Inc()
			}
			slog.Warn("action rejected", "username", username, "kind", kind, "err", err)
		} else {
			metrics.ActionsTotal.WithLabelValues(kind, "applied").Inc()
		}
	}

	wasDay := g.market.Phase.IsDay()
	g.market.Tick(len(g.agents))
	if wasDay {
		metrics.TicksTotal.WithLabelValues("day").Inc()
	} else {
		metrics.TicksTotal.WithLabelValues("night").Inc()
	}

	switch {
	case wasDay && !g.market.Phase.IsDay():
		g.enterNight()
	case !wasDay && g.market.Phase.IsDay():
		g.enterDay()
	}

	g.market.RecomputePortfolios(g.agentList())
	metrics.MarketCapCents.Set(float64(g.market.CapCents()))

	g.pruneInactive(ctx)

	update := g.tickUpdate()
	shouldSave := g.st != nil && g.now().Sub(g.lastSave) >= g.saveEvery
	if shouldSave {
		g.lastSave = g.now()
	}
	var toSave []*agent.UserAgent
	if shouldSave {
		for _, e := range g.agents {
			toSave = append(toSave, e.agent.Clone())
		}
	}
	m := g.market
	g.mu.Unlock()

	// Snapshotting happens outside the lock; a slow store must not stall
	// the simulation. The market is only ever written by this loop
	// goroutine, and the agents are detached clones, so nothing the store
	// marshals can change underneath it while handlers queue new actions.
	if shouldSave {
		if err := g.st.SaveMarket(ctx, m); err != nil {
			slog.Error("persist market failed", "err", err)
		}
		for _, a := range toSave {
			if err := g.st.SaveAgent(ctx, a); err != nil {
				slog.Error("persist agent failed", "username", a.Name, "err", err)
			}
		}
	}

	if g.hub != nil {
		g.hub.Broadcast(update)
	}
}

// enterNight hands each agent its eligible night events. Caller holds the
// mutex.
func (g *Game) enterNight() {
	all := g.agentList()
	for _, e := range g.agents {
		offers := events.AvailableEvents(e.agent, g.market, all, g.rng)
		e.agent.SetNightEvents(offers)
		for _, o := range offers {
			metrics.NightEventsOffered.WithLabelValues(o.Name).Inc()
		}
	}
	slog.Info("night begins", "cycle", g.market.Phase.Cycle, "agents", len(g.agents))
}

// enterDay clears unchosen night offers and drops expired agent conditions.
// Caller holds the mutex.
func (g *Game) enterDay() {
	for _, e := range g.agents {
		e.agent.SetNightEvents(nil)
		e.agent.PurgeConditions(g.market.LastTick)
	}
	slog.Info("day begins", "cycle", g.market.Phase.Cycle)
}

// pruneInactive drops agents unseen for more than a day. Their shares go
// back to the free pool via reconciliation. Caller holds the mutex.
func (g *Game) pruneInactive(ctx context.Context) {
	cutoff := g.now().Add(-inactiveAfter)
	var pruned bool
	for username, e := range g.agents {
		if e.lastSeen.After(cutoff) {
			continue
		}
		delete(g.agents, username)
		pruned = true
		if g.st != nil {
			if err := g.st.DeleteAgent(ctx, username); err != nil {
				slog.Error("delete pruned agent failed", "username", username, "err", err)
			}
		}
		slog.Info("agent pruned for inactivity", "username", username)
	}
	if pruned {
		g.reconcileAllocations()
		metrics.RegisteredAgents.Set(float64(len(g.agents)))
	}
}

// Get resolves a username to a live agent. Satisfies market.AgentLookup for
// targeted actions. Caller holds the mutex (only reached from Tick).
func (g *Game) Get(username string) (agent.DecisionAgent, bool) {
	e, ok := g.agents[username]
	if !ok {
		return nil, false
	}
	return e.agent, true
}

func (g *Game) agentList() []agent.DecisionAgent {
	out := make([]agent.DecisionAgent, 0, len(g.agents))
	for _, e := range g.agents {
		out = append(out, e.agent)
	}
	return out
}

// Run drives the tick loop until the context is cancelled.
func (g *Game) Run(ctx context.Context, tickEvery time.Duration) {
	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.saveAll(context.Background())
			return
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// saveAll persists everything unconditionally. Used on shutdown.
func (g *Game) saveAll(ctx context.Context) {
	if g.st == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.st.SaveMarket(ctx, g.market); err != nil {
		slog.Error("final market save failed", "err", err)
	}
	for _, e := range g.agents {
		if err := g.st.SaveAgent(ctx, e.agent); err != nil {
			slog.Error("final agent save failed", "username", e.agent.Name, "err", err)
		}
	}
	slog.Info("state saved", "agents", len(g.agents))
}
