package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
	"github.com/stonkgame/market-engine/internal/stonk"
)

func testMarket(t *testing.T) *market.Market {
	t.Helper()
	cfgs := []stonk.Config{
		{Name: "Acme Anvils", ShortName: "ACME", Class: stonk.ClassCommodity, InitialPriceCents: 10_000, NumberOfShares: 1_000},
		{Name: "Warhol Industries", ShortName: "WRHL", Class: stonk.ClassWar, InitialPriceCents: 5_000, NumberOfShares: 2_000},
	}
	return market.New(cfgs, rand.New(rand.NewSource(1)))
}

// --- Market round-trip tests ---

func TestMemoryStore_MarketRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.LoadMarket(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store should report ErrNotFound, got %v", err)
	}

	m := testMarket(t)
	for i := 0; i < 10; i++ {
		m.Tick(3)
	}
	m.Stonks[0].AllocateToAgent("alice", 42)

	if err := st.SaveMarket(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.LoadMarket(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.LastTick != m.LastTick {
		t.Errorf("LastTick = %d, want %d", got.LastTick, m.LastTick)
	}
	if got.Phase != m.Phase {
		t.Errorf("Phase = %+v, want %+v", got.Phase, m.Phase)
	}
	if got.InitialCapCents != m.InitialCapCents {
		t.Errorf("InitialCapCents = %d, want %d", got.InitialCapCents, m.InitialCapCents)
	}
	if len(got.Stonks) != len(m.Stonks) {
		t.Fatalf("stonk count = %d, want %d", len(got.Stonks), len(m.Stonks))
	}
	if got.Stonks[0].AllocatedShares != 42 {
		t.Errorf("allocation lost in round trip: %d", got.Stonks[0].AllocatedShares)
	}
	if len(got.Stonks[0].HistoricalPrices) != len(m.Stonks[0].HistoricalPrices) {
		t.Errorf("history length = %d, want %d",
			len(got.Stonks[0].HistoricalPrices), len(m.Stonks[0].HistoricalPrices))
	}
}

func TestMemoryStore_SavedMarketIsDetached(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	m := testMarket(t)
	if err := st.SaveMarket(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	m.LastTick = 999

	got, err := st.LoadMarket(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LastTick == 999 {
		t.Error("stored snapshot shares state with the caller")
	}
}

// --- Agent round-trip tests ---

func TestMemoryStore_AgentRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.GetAgent(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing agent should report ErrNotFound, got %v", err)
	}

	a := agent.New("alice", 2)
	a.AddStonk(0, 7)
	a.SubCash(1_234)
	a.RecordAction(agent.KindBuy, 5)
	a.SelectAction(agent.Action{Kind: agent.KindSell, StonkID: 0, Amount: 3})
	a.AddCondition(agent.ConditionUltraVision, 100)

	if err := st.SaveAgent(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.GetAgent(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Cash() != a.Cash() {
		t.Errorf("cash = %d, want %d", got.Cash(), a.Cash())
	}
	if got.OwnedStonks()[0] != 7 {
		t.Errorf("owned = %d, want 7", got.OwnedStonks()[0])
	}
	if got.PendingAction() == nil || got.PendingAction().Kind != agent.KindSell {
		t.Errorf("pending action lost: %+v", got.PendingAction())
	}
	if got.PastActions()[agent.KindBuy].Count != 1 {
		t.Errorf("history lost: %+v", got.PastActions())
	}
	if !got.HasCondition(agent.ConditionUltraVision, 0) {
		t.Error("condition lost in round trip")
	}
}

func TestMemoryStore_ListAndDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		if err := st.SaveAgent(ctx, agent.New(name, 1)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	agents, err := st.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(agents) != 2 {
		t.Errorf("listed %d agents, want 2", len(agents))
	}

	if err := st.DeleteAgent(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetAgent(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted agent still present: %v", err)
	}
	if _, err := st.GetAgent(ctx, "bob"); err != nil {
		t.Errorf("delete removed the wrong agent: %v", err)
	}
}
