package stonk

import (
	"math/rand"
	"testing"
)

// newTestStonk builds a stonk with quiet defaults: no drift, no volatility,
// no shocks, so the price stays put unless a test says otherwise.
func newTestStonk(t *testing.T) *Stonk {
	t.Helper()
	return New(Config{
		Name:              "Acme Anvils",
		ShortName:         "ACME",
		Class:             ClassCommodity,
		InitialPriceCents: 10_000,
		NumberOfShares:    1_000,
	}, 0)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// --- Price process tests ---

func TestTick_NoDriftNoVolatilityHoldsPrice(t *testing.T) {
	s := newTestStonk(t)
	rng := testRand()
	for i := int64(0); i < 100; i++ {
		s.Tick(i, rng)
	}
	if s.PriceCents != 10_000 {
		t.Errorf("price moved without drift or volatility: %d", s.PriceCents)
	}
}

func TestTick_FullPositiveDriftAlwaysGoesUp(t *testing.T) {
	s := newTestStonk(t)
	s.Drift = 1
	s.Volatility = 0.1
	rng := testRand()

	prev := s.PriceCents
	for i := int64(0); i < 10; i++ {
		s.Tick(i, rng)
		if s.PriceCents <= prev {
			t.Fatalf("tick %d: price did not rise: %d -> %d", i, prev, s.PriceCents)
		}
		prev = s.PriceCents
	}
}

func TestTick_FullNegativeDriftAlwaysGoesDown(t *testing.T) {
	s := newTestStonk(t)
	s.Drift = -1
	s.Volatility = 0.1
	rng := testRand()

	prev := s.PriceCents
	for i := int64(0); i < 10; i++ {
		s.Tick(i, rng)
		if s.PriceCents >= prev {
			t.Fatalf("tick %d: price did not fall: %d -> %d", i, prev, s.PriceCents)
		}
		prev = s.PriceCents
	}
}

func TestTick_PriceNeverBelowOneCent(t *testing.T) {
	s := newTestStonk(t)
	s.PriceCents = 2
	s.Drift = -1
	s.Volatility = 0.99
	rng := testRand()

	for i := int64(0); i < 50; i++ {
		s.Tick(i, rng)
		if s.PriceCents < 1 {
			t.Fatalf("tick %d: price below floor: %d", i, s.PriceCents)
		}
	}
}

func TestTick_ShockStaysInRange(t *testing.T) {
	s := newTestStonk(t)
	s.ShockProbability = 1
	rng := testRand()

	for i := int64(0); i < 200; i++ {
		before := float64(s.PriceCents)
		s.Tick(i, rng)
		after := float64(s.PriceCents)
		// Volatility is zero, so the entire move is the shock factor.
		ratio := after / before
		if ratio < 0.49 || ratio >= 1.51 {
			t.Fatalf("tick %d: shock factor %f out of range", i, ratio)
		}
	}
}

func TestTick_AppendsHistoryAndEvictsOldest(t *testing.T) {
	s := newTestStonk(t)
	rng := testRand()

	for i := int64(0); i < int64(HistoryRetention)+10; i++ {
		s.Tick(i, rng)
	}
	if len(s.HistoricalPrices) != HistoryRetention {
		t.Errorf("history length = %d, want %d", len(s.HistoricalPrices), HistoryRetention)
	}
}

// --- Condition tests ---

func TestConditions_BumpShiftsDrift(t *testing.T) {
	s := newTestStonk(t)
	s.Volatility = 0.1
	s.AddCondition(Condition{Kind: ConditionBump, Amount: 1}, 100)
	rng := testRand()

	before := s.PriceCents
	s.Tick(0, rng)
	if s.PriceCents <= before {
		t.Errorf("bumped stonk did not rise: %d -> %d", before, s.PriceCents)
	}
}

func TestConditions_ExpireAtTick(t *testing.T) {
	s := newTestStonk(t)
	s.AddCondition(Condition{Kind: ConditionBump, Amount: 1}, 5)
	rng := testRand()

	s.Tick(4, rng)
	if len(s.Conditions) != 1 {
		t.Fatalf("condition dropped early: %d active", len(s.Conditions))
	}
	s.Tick(5, rng)
	if len(s.Conditions) != 0 {
		t.Errorf("condition survived its expiry tick: %d active", len(s.Conditions))
	}
}

func TestConditions_StackAdditively(t *testing.T) {
	s := newTestStonk(t)
	s.Drift = -1
	s.AddCondition(Condition{Kind: ConditionBump, Amount: 0.5}, 100)
	s.AddCondition(Condition{Kind: ConditionBump, Amount: 0.5}, 100)
	s.purgeExpired(0)
	if got := s.effectiveDrift(); got != 0 {
		t.Errorf("effective drift = %f, want 0", got)
	}
}

func TestConditions_ShockBoostCapped(t *testing.T) {
	s := newTestStonk(t)
	s.ShockProbability = 0.5
	s.AddCondition(Condition{Kind: ConditionIncreasedShockProbability}, 100)
	s.purgeExpired(0)
	if !s.hasShockBoost() {
		t.Fatal("shock boost not active")
	}
	// The boosted probability is min(2*0.5, 0.2); indirectly observable
	// only through Tick, so just pin the helper here.
}

// --- Pricing tests ---

func TestBuyPriceCents_SingleShare(t *testing.T) {
	s := newTestStonk(t)
	s.Volatility = 0.1
	// 10000 * 1 * (1 + 2/2*0.1) = 11000
	if got := s.BuyPriceCents(1); got != 11_000 {
		t.Errorf("BuyPriceCents(1) = %d, want 11000", got)
	}
}

func TestBuyPriceCents_GrowsSuperlinearly(t *testing.T) {
	s := newTestStonk(t)
	s.Volatility = 0.1
	if 2*s.BuyPriceCents(1) >= s.BuyPriceCents(2) {
		t.Errorf("two shares should cost more than twice one: %d vs %d",
			s.BuyPriceCents(1), s.BuyPriceCents(2))
	}
}

func TestSellPriceCents_NeverNegative(t *testing.T) {
	s := newTestStonk(t)
	s.Volatility = 0.9
	if got := s.SellPriceCents(s.NumberOfShares); got < 0 {
		t.Errorf("selling the whole supply went negative: %d", got)
	}
}

func TestSellPriceCents_ZeroVolatilityIsLinear(t *testing.T) {
	s := newTestStonk(t)
	if got := s.SellPriceCents(5); got != 50_000 {
		t.Errorf("SellPriceCents(5) = %d, want 50000", got)
	}
}

func TestMaxBuyAmount_ConsistentWithBuyPrice(t *testing.T) {
	s := newTestStonk(t)
	s.Volatility = 0.05

	for _, cash := range []int64{0, 9_999, 10_000, 123_456, 10_000_000} {
		max := s.MaxBuyAmount(cash)
		if max > 0 && s.BuyPriceCents(max) > cash {
			t.Errorf("cash %d: max %d costs %d, unaffordable", cash, max, s.BuyPriceCents(max))
		}
		if s.BuyPriceCents(max+1) <= cash {
			t.Errorf("cash %d: max %d too small, %d shares still affordable", cash, max, max+1)
		}
	}
}

func TestMaxBuyAmount_ZeroVolatility(t *testing.T) {
	s := newTestStonk(t)
	if got := s.MaxBuyAmount(25_000); got != 2 {
		t.Errorf("MaxBuyAmount = %d, want 2", got)
	}
}

// --- Allocation ledger tests ---

func TestAllocate_TracksShareholdersSorted(t *testing.T) {
	s := newTestStonk(t)
	if err := s.AllocateToAgent("alice", 10); err != nil {
		t.Fatalf("allocate alice: %v", err)
	}
	if err := s.AllocateToAgent("bob", 30); err != nil {
		t.Fatalf("allocate bob: %v", err)
	}

	if s.AllocatedShares != 40 {
		t.Errorf("AllocatedShares = %d, want 40", s.AllocatedShares)
	}
	if s.Shareholders[0].Username != "bob" {
		t.Errorf("largest holder first, got %q", s.Shareholders[0].Username)
	}
	if got := s.AvailableShares(); got != 960 {
		t.Errorf("AvailableShares = %d, want 960", got)
	}
}

func TestAllocate_RejectsOverSupply(t *testing.T) {
	s := newTestStonk(t)
	if err := s.AllocateToAgent("whale", 1_001); err == nil {
		t.Fatal("allocating beyond supply should fail")
	}
	if s.AllocatedShares != 0 {
		t.Errorf("failed allocation mutated state: %d", s.AllocatedShares)
	}
}

func TestDeallocate_PrunesZeroEntries(t *testing.T) {
	s := newTestStonk(t)
	s.AllocateToAgent("alice", 10)
	if err := s.DeallocateFromAgent("alice", 10); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	if len(s.Shareholders) != 0 {
		t.Errorf("zero-amount holder not pruned: %v", s.Shareholders)
	}
	if s.AllocatedShares != 0 {
		t.Errorf("AllocatedShares = %d, want 0", s.AllocatedShares)
	}
}

func TestDeallocate_Errors(t *testing.T) {
	s := newTestStonk(t)
	s.AllocateToAgent("alice", 10)

	if err := s.DeallocateFromAgent("bob", 1); err == nil {
		t.Error("deallocating from a non-holder should fail")
	}
	if err := s.DeallocateFromAgent("alice", 11); err == nil {
		t.Error("deallocating more than held should fail")
	}
	if s.AllocatedShares != 10 {
		t.Errorf("failed deallocation mutated state: %d", s.AllocatedShares)
	}
}

func TestSetAllocation_Reconciles(t *testing.T) {
	s := newTestStonk(t)
	s.AllocateToAgent("ghost", 500)

	s.SetAllocation(map[string]int64{"alice": 20, "bob": 5, "gone": 0})
	if s.AllocatedShares != 25 {
		t.Errorf("AllocatedShares = %d, want 25", s.AllocatedShares)
	}
	if len(s.Shareholders) != 2 {
		t.Errorf("shareholder count = %d, want 2", len(s.Shareholders))
	}
}

// --- Info gating tests ---

func TestInfo_GatedByStake(t *testing.T) {
	s := newTestStonk(t)
	s.Drift = 0.01
	s.Volatility = 0.05

	// Below 1%: price only.
	if got := s.Info(5, false); got != "Price $100.00" {
		t.Errorf("low stake info = %q", got)
	}
	// 1%: price and drift.
	if got := s.Info(10, false); got != "Price $100.00 - Drift 1.000%" {
		t.Errorf("1%% stake info = %q", got)
	}
	// 5%: everything.
	want := "Price $100.00 - Drift 1.000% - Volatility 5.000%"
	if got := s.Info(50, false); got != want {
		t.Errorf("5%% stake info = %q, want %q", got, want)
	}
	// Ultra vision: everything regardless of stake.
	if got := s.Info(0, true); got != want {
		t.Errorf("ultra vision info = %q, want %q", got, want)
	}
}

// --- Config tests ---

func TestLoadConfigs_EmbeddedDefault(t *testing.T) {
	cfgs, err := LoadConfigs("")
	if err != nil {
		t.Fatalf("loading embedded config: %v", err)
	}
	if len(cfgs) == 0 {
		t.Fatal("embedded config is empty")
	}
	classes := make(map[Class]bool)
	for _, c := range cfgs {
		classes[c.Class] = true
	}
	for _, class := range []Class{ClassMedia, ClassWar, ClassCommodity, ClassTechnology} {
		if !classes[class] {
			t.Errorf("embedded config missing class %s", class)
		}
	}
}
