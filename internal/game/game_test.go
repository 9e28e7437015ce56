package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
	"github.com/stonkgame/market-engine/internal/stonk"
	"github.com/stonkgame/market-engine/internal/store"
)

func testConfigs() []stonk.Config {
	return []stonk.Config{
		{Name: "Warhol Industries", ShortName: "WRHL", Class: stonk.ClassWar, InitialPriceCents: 10_000, NumberOfShares: 1_000},
		{Name: "Grain of Truth", ShortName: "GRTR", Class: stonk.ClassCommodity, InitialPriceCents: 5_000, NumberOfShares: 2_000},
	}
}

func newTestGame(t *testing.T, st store.Store) *Game {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	return New(market.New(testConfigs(), rng), st, nil, rng, time.Hour)
}

// --- Join tests ---

func TestJoin_NewAgentGetsEndowment(t *testing.T) {
	g := newTestGame(t, nil)
	view, err := g.Join(context.Background(), "alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if view.CashCents != agent.StartingCashCents {
		t.Errorf("cash = %d, want %d", view.CashCents, agent.StartingCashCents)
	}
	if len(view.Owned) != 2 {
		t.Errorf("owned length = %d, want 2", len(view.Owned))
	}
}

func TestJoin_ReattachKeepsState(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")

	g.SelectTrade("alice", agent.KindBuy, 0, 5)
	g.Tick(ctx)

	view, err := g.Join(ctx, "alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if view.Owned[0] != 5 {
		t.Errorf("rejoin lost holdings: %v", view.Owned)
	}
}

// --- Trade tests ---

func TestSelectTrade_AppliedOnNextTick(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")

	if err := g.SelectTrade("alice", agent.KindBuy, 0, 5); err != nil {
		t.Fatalf("select: %v", err)
	}

	view, _ := g.AgentViewFor("alice")
	if view.Owned[0] != 0 {
		t.Error("trade applied before the tick")
	}
	if view.Pending == nil {
		t.Fatal("trade not queued")
	}

	g.Tick(ctx)

	view, _ = g.AgentViewFor("alice")
	if view.Owned[0] != 5 {
		t.Errorf("owned = %d, want 5", view.Owned[0])
	}
	if view.CashCents != agent.StartingCashCents-50_000 {
		t.Errorf("cash = %d", view.CashCents)
	}
	if view.Pending != nil {
		t.Error("pending slot not drained by the tick")
	}
}

func TestSelectTrade_OnlyTradesAllowedDirectly(t *testing.T) {
	g := newTestGame(t, nil)
	g.Join(context.Background(), "alice")

	if err := g.SelectTrade("alice", agent.KindCrashAll, 0, 0); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("expected ErrActionNotAllowed, got %v", err)
	}
	if err := g.SelectTrade("ghost", agent.KindBuy, 0, 1); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}

// --- Phase boundary tests ---

// runToNight ticks until the market flips to the night phase.
func runToNight(t *testing.T, g *Game, ctx context.Context) {
	t.Helper()
	for i := 0; i < market.DayLength+market.NightLength; i++ {
		g.Tick(ctx)
		g.mu.Lock()
		night := !g.market.Phase.IsDay()
		g.mu.Unlock()
		if night {
			return
		}
	}
	t.Fatal("market never reached the night phase")
}

func TestTick_NightEntryHandsOutEvents(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")

	// A 2% war stake deterministically unlocks the war event.
	g.SelectTrade("alice", agent.KindBuy, 0, 20)
	g.Tick(ctx)

	runToNight(t, g, ctx)

	// With only two stonks and no price movement, the war event is the
	// one deterministically unlocked offer; lucky night may join it.
	view, _ := g.AgentViewFor("alice")
	var warOffered bool
	for _, o := range view.NightEvents {
		if o.Action.Kind == agent.KindBumpStonkClass && o.Action.Class == stonk.ClassWar {
			warOffered = true
		}
	}
	if !warOffered {
		t.Errorf("war event not offered: %+v", view.NightEvents)
	}

	if err := g.SelectNightEvent("alice", len(view.NightEvents)); !errors.Is(err, ErrNoSuchEvent) {
		t.Errorf("expected ErrNoSuchEvent for an out-of-range index, got %v", err)
	}
	if err := g.SelectNightEvent("alice", 0); err != nil {
		t.Errorf("selecting a valid offer failed: %v", err)
	}
}

func TestTick_DayEntryClearsOffers(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")
	g.SelectTrade("alice", agent.KindBuy, 0, 20)
	g.Tick(ctx)

	runToNight(t, g, ctx)
	for i := 0; i < market.NightLength; i++ {
		g.Tick(ctx)
	}

	g.mu.Lock()
	day := g.market.Phase.IsDay()
	g.mu.Unlock()
	if !day {
		t.Fatal("market did not return to day")
	}
	view, _ := g.AgentViewFor("alice")
	if len(view.NightEvents) != 0 {
		t.Errorf("offers survived into the day: %+v", view.NightEvents)
	}
}

// --- Persistence tests ---

func TestLoad_RestoresAgentsAndReconcilesLedger(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	a := agent.New("alice", 2)
	a.AddStonk(0, 25)
	if err := st.SaveAgent(ctx, a); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	g, err := Load(ctx, testConfigs(), st, nil, rng, time.Hour)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	view, err := g.AgentViewFor("alice")
	if err != nil {
		t.Fatalf("restored agent missing: %v", err)
	}
	if view.Owned[0] != 25 {
		t.Errorf("restored holdings = %v", view.Owned)
	}

	g.mu.Lock()
	allocated := g.market.Stonks[0].AllocatedShares
	g.mu.Unlock()
	if allocated != 25 {
		t.Errorf("ledger not reconciled from holdings: %d", allocated)
	}
}

func TestLoad_BootstrapsWhenStoreEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	rng := rand.New(rand.NewSource(1))
	g, err := Load(context.Background(), testConfigs(), st, nil, rng, time.Hour)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.market.Stonks) != 2 {
		t.Errorf("bootstrapped %d stonks, want 2", len(g.market.Stonks))
	}
}

// captureStore records the agent values handed to SaveAgent so tests can
// inspect exactly what the save path observed.
type captureStore struct {
	store.Store
	saved []*agent.UserAgent
}

func newCaptureStore() *captureStore {
	return &captureStore{Store: store.NewMemoryStore()}
}

func (c *captureStore) SaveAgent(ctx context.Context, a *agent.UserAgent) error {
	c.saved = append(c.saved, a)
	return c.Store.SaveAgent(ctx, a)
}

func TestTick_SavesDetachedAgentState(t *testing.T) {
	st := newCaptureStore()
	rng := rand.New(rand.NewSource(1))
	g := New(market.New(testConfigs(), rng), st, nil, rng, 0)
	ctx := context.Background()

	g.Join(ctx, "alice")
	st.saved = nil

	g.SelectTrade("alice", agent.KindBuy, 0, 5)
	g.Tick(ctx)

	if len(st.saved) != 1 {
		t.Fatalf("saved %d agents, want 1", len(st.saved))
	}
	snap := st.saved[0]

	g.mu.Lock()
	live := g.agents["alice"].agent
	g.mu.Unlock()
	if snap == live {
		t.Fatal("save path handed the live agent to the store")
	}
	if snap.Owned[0] != 5 {
		t.Errorf("snapshot owned = %v, want 5 of stonk 0", snap.Owned)
	}

	// A trade queued while the store marshals must not reach the snapshot.
	g.SelectTrade("alice", agent.KindSell, 0, 1)
	if snap.Pending != nil {
		t.Error("snapshot shares the pending slot with the live agent")
	}
	g.mu.Lock()
	live.Owned[0] = 99
	g.mu.Unlock()
	if snap.Owned[0] == 99 {
		t.Error("snapshot shares the owned vector with the live agent")
	}
}

// --- Pruning tests ---

func TestTick_PrunesInactiveAgents(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	g.Join(ctx, "sleeper")
	g.SelectTrade("sleeper", agent.KindBuy, 0, 10)
	g.Tick(ctx)

	g.now = func() time.Time { return base.Add(inactiveAfter + time.Minute) }
	g.Tick(ctx)

	if _, err := g.AgentViewFor("sleeper"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("inactive agent not pruned: %v", err)
	}

	// The pruned agent's shares return to the free pool.
	g.mu.Lock()
	defer g.mu.Unlock()
	if got := g.market.Stonks[0].AllocatedShares; got != 0 {
		t.Errorf("allocated = %d after pruning, want 0", got)
	}
}

// --- View tests ---

func TestMarketViewFor_GatesDetailByStake(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")
	g.Join(ctx, "bob")

	// Alice takes a 5% stake in stonk 0; bob holds nothing.
	g.SelectTrade("alice", agent.KindBuy, 0, 50)
	g.Tick(ctx)

	alice := g.MarketViewFor("alice")
	bob := g.MarketViewFor("bob")
	if alice.Stonks[0].Info == bob.Stonks[0].Info {
		t.Errorf("stakeholder and outsider see the same detail: %q", alice.Stonks[0].Info)
	}
	if len(bob.Stonks) != 2 {
		t.Errorf("view has %d stonks, want 2", len(bob.Stonks))
	}
	if len(alice.Leaderboard) != 2 {
		t.Errorf("leaderboard has %d entries, want 2: %+v", len(alice.Leaderboard), alice.Leaderboard)
	}
}

func TestMaxBuy_BoundedByCashAndSupply(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Join(ctx, "alice")

	// Starting cash 1,000,000 cents at 10,000 cents per share, zero
	// volatility: exactly 100 shares.
	max, err := g.MaxBuy("alice", 0)
	if err != nil {
		t.Fatalf("max buy: %v", err)
	}
	if max != 100 {
		t.Errorf("max = %d, want 100", max)
	}

	if _, err := g.MaxBuy("alice", 99); !errors.Is(err, market.ErrUnknownStonk) {
		t.Errorf("expected ErrUnknownStonk, got %v", err)
	}
	if _, err := g.MaxBuy("ghost", 0); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	g := newTestGame(t, nil)
	ctx := context.Background()
	g.Tick(ctx)

	prices, err := g.History(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(prices) < 2 {
		t.Fatalf("history too short: %d", len(prices))
	}
	prices[0] = -1

	again, _ := g.History(0)
	if again[0] == -1 {
		t.Error("history shares backing storage with the caller")
	}
}
