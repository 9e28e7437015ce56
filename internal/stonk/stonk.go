// Package stonk implements the per-stock price process for the market
// engine: a biased-coin random walk with drift, independent fat-tail shocks,
// time-scoped drift/shock modifiers, and the share allocation ledger.
//
// All prices are integer minor-currency-units (cents) — never float64 for
// money. The stochastic math runs in float64 and is rounded back to cents
// immediately, clamped to a 1-cent floor.
package stonk

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Tick cadence. One tick represents 15 simulated minutes: a 16-hour trading
// day is 64 ticks, the 8-hour night is 32.
const (
	TicksPerHour = 4
	DayTicks     = 16 * TicksPerHour
	NightTicks   = 8 * TicksPerHour

	// HistoryRetention bounds the price history to the last 12 weeks of
	// trading days. Oldest entries are evicted first.
	HistoryRetention = DayTicks * 7 * 12
)

const (
	// minPriceCents is the floor for a unit price. A process that would
	// drive the price to zero or below is clamped here instead.
	minPriceCents = 1

	// maxBoostedShockProbability caps the doubled shock probability while
	// an IncreasedShockProbability condition is active.
	maxBoostedShockProbability = 0.2

	// Shock multiplier range: on a shock the price is multiplied by a
	// uniform draw from [shockFactorMin, shockFactorMax).
	shockFactorMin = 0.5
	shockFactorMax = 1.5
)

var (
	// ErrNotEnoughSupply is returned when an allocation would exceed the
	// stonk's unallocated shares.
	ErrNotEnoughSupply = errors.New("stonk: not enough unallocated shares")

	// ErrNotShareholder is returned when a deallocation names an agent
	// that holds no shares of this stonk.
	ErrNotShareholder = errors.New("stonk: agent is not a shareholder")

	// ErrExcessDeallocation is returned when a deallocation exceeds the
	// shares recorded for the agent or the total allocated count.
	ErrExcessDeallocation = errors.New("stonk: deallocation exceeds allocated shares")
)

// Class tags a stonk with its market sector. The set is fixed.
type Class string

const (
	ClassMedia      Class = "Media"
	ClassWar        Class = "War"
	ClassCommodity  Class = "Commodity"
	ClassTechnology Class = "Technology"
)

// Shareholder is one entry of a stonk's holder ledger.
type Shareholder struct {
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

// Stonk is one listed stock. It owns its price history and allocation
// ledger. Invariants: 0 <= AllocatedShares <= NumberOfShares, the price
// history is never empty, and every recorded price is >= 1 cent.
type Stonk struct {
	ID        int    `json:"id"`
	Class     Class  `json:"class"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`

	PriceCents         int64 `json:"price_cents"`
	StartingPriceCents int64 `json:"starting_price_cents"`
	NumberOfShares     int64 `json:"number_of_shares"`
	AllocatedShares    int64 `json:"allocated_shares"`

	// Shareholders is kept sorted from largest to smallest holding;
	// zero-amount entries are pruned.
	Shareholders []Shareholder `json:"shareholders"`

	Drift               float64 `json:"drift"`
	Volatility          float64 `json:"volatility"`
	ShockProbability    float64 `json:"shock_probability"`
	DividendProbability float64 `json:"dividend_probability"`

	HistoricalPrices []int64           `json:"historical_prices"`
	Conditions       []ActiveCondition `json:"conditions"`
}

// New builds a stonk from static configuration, seeding the price history
// with the initial price so it is never empty.
func New(cfg Config, id int) *Stonk {
	return &Stonk{
		ID:                  id,
		Class:               cfg.Class,
		Name:                cfg.Name,
		ShortName:           cfg.ShortName,
		PriceCents:          cfg.InitialPriceCents,
		StartingPriceCents:  cfg.InitialPriceCents,
		NumberOfShares:      cfg.NumberOfShares,
		Drift:               cfg.Drift,
		Volatility:          cfg.Volatility,
		ShockProbability:    cfg.ShockProbability,
		DividendProbability: cfg.DividendProbability,
		HistoricalPrices:    []int64{cfg.InitialPriceCents},
	}
}

// Tick advances the price by one step.
//
// Effective drift is the baseline plus all active bumps. The walk draws a
// biased coin with success probability (1 + drift) / 2, clamped to [0, 1]:
// success multiplies the price by (1 + volatility), failure by
// (1 - volatility). An independent shock fires with the (possibly boosted)
// shock probability and multiplies the price by a uniform draw from
// [0.5, 1.5). The result is rounded to cents, floored at 1 cent, and
// appended to the history; entries beyond the retention window are evicted
// oldest-first.
func (s *Stonk) Tick(currentTick int64, rng *rand.Rand) {
	s.purgeExpired(currentTick)

	drift := s.effectiveDrift()
	shockProbability := s.ShockProbability
	if s.hasShockBoost() {
		shockProbability = math.Min(2*s.ShockProbability, maxBoostedShockProbability)
	}

	up := (1 + drift) / 2
	if up < 0 {
		up = 0
	} else if up > 1 {
		up = 1
	}

	factor := 1 - s.Volatility
	if rng.Float64() < up {
		factor = 1 + s.Volatility
	}

	price := float64(s.PriceCents) * factor
	if rng.Float64() < shockProbability {
		price *= shockFactorMin + rng.Float64()*(shockFactorMax-shockFactorMin)
	}

	cents := int64(math.Round(price))
	if cents < minPriceCents {
		cents = minPriceCents
	}
	s.PriceCents = cents

	s.HistoricalPrices = append(s.HistoricalPrices, cents)
	if excess := len(s.HistoricalPrices) - HistoryRetention; excess > 0 {
		s.HistoricalPrices = append(s.HistoricalPrices[:0], s.HistoricalPrices[excess:]...)
	}
}

// AvailableShares is the unallocated share count.
func (s *Stonk) AvailableShares() int64 {
	return s.NumberOfShares - s.AllocatedShares
}

// MarketCapCents is unit price times total share supply.
func (s *Stonk) MarketCapCents() int64 {
	return s.PriceCents * s.NumberOfShares
}

// ToStake converts a share amount into a fractional ownership of the total
// supply. A zero supply (configuration error) yields zero rather than a
// division panic.
func (s *Stonk) ToStake(amount int64) float64 {
	if s.NumberOfShares == 0 {
		return 0
	}
	return float64(amount) / float64(s.NumberOfShares)
}

// BuyPriceCents is the total price to buy amount shares.
//
// The first share costs base * (1 + volatility), each subsequent share adds
// one more unit of volatility, so the summation collapses to
//
//	base * amount * (1 + (amount+1)/2 * volatility)
func (s *Stonk) BuyPriceCents(amount int64) int64 {
	return int64(float64(s.PriceCents*amount) * (1 + float64(amount+1)/2*s.Volatility))
}

// SellPriceCents is the total credit for selling amount shares, symmetric
// to BuyPriceCents. Volatility is clamped to 1/NumberOfShares so the total
// can never go negative.
func (s *Stonk) SellPriceCents(amount int64) int64 {
	vol := s.Volatility
	if s.NumberOfShares > 0 {
		vol = math.Min(vol, 1/float64(s.NumberOfShares))
	}
	return int64(float64(s.PriceCents*amount) * (1 - float64(amount+1)/2*vol))
}

// MaxBuyAmount solves cash == BuyPriceCents(amount) for amount and floors
// the result.
func (s *Stonk) MaxBuyAmount(cashCents int64) int64 {
	if s.PriceCents <= 0 {
		return 0
	}
	if s.Volatility == 0 {
		return cashCents / s.PriceCents
	}
	v := s.Volatility
	// Quadratic in amount: base*v/2*a^2 + base*(1+v/2)*a - cash = 0.
	a := (-(2 + v) + math.Sqrt(8*float64(cashCents)*v/float64(s.PriceCents)+(2+v)*(2+v))) / (2 * v)
	if a < 0 {
		return 0
	}
	return int64(a)
}

// AllocateToAgent moves amount shares from the free pool to the named
// agent's ledger entry. Fails without mutation if the free pool is too
// small.
func (s *Stonk) AllocateToAgent(username string, amount int64) error {
	if amount > s.AvailableShares() {
		return fmt.Errorf("%w: want %d, available %d", ErrNotEnoughSupply, amount, s.AvailableShares())
	}
	if amount == 0 {
		return nil
	}

	s.AllocatedShares += amount
	for i := range s.Shareholders {
		if s.Shareholders[i].Username == username {
			s.Shareholders[i].Amount += amount
			s.sortShareholders()
			return nil
		}
	}
	s.Shareholders = append(s.Shareholders, Shareholder{Username: username, Amount: amount})
	s.sortShareholders()
	return nil
}

// DeallocateFromAgent returns amount shares from the named agent to the
// free pool. Fails without mutation if the agent holds fewer than amount.
func (s *Stonk) DeallocateFromAgent(username string, amount int64) error {
	if amount > s.AllocatedShares {
		return ErrExcessDeallocation
	}
	if amount == 0 {
		return nil
	}

	for i := range s.Shareholders {
		if s.Shareholders[i].Username != username {
			continue
		}
		if amount > s.Shareholders[i].Amount {
			return ErrExcessDeallocation
		}
		s.Shareholders[i].Amount -= amount
		s.AllocatedShares -= amount
		s.sortShareholders()
		return nil
	}
	return ErrNotShareholder
}

// AllocatedTo returns the shares the ledger records for the named agent.
func (s *Stonk) AllocatedTo(username string) int64 {
	for _, h := range s.Shareholders {
		if h.Username == username {
			return h.Amount
		}
	}
	return 0
}

// SetAllocation overwrites the allocation ledger from an authoritative
// holdings map. Used at startup to reconcile against the agent registry.
func (s *Stonk) SetAllocation(holdings map[string]int64) {
	s.Shareholders = s.Shareholders[:0]
	var total int64
	for username, amount := range holdings {
		if amount <= 0 {
			continue
		}
		s.Shareholders = append(s.Shareholders, Shareholder{Username: username, Amount: amount})
		total += amount
	}
	s.AllocatedShares = total
	s.sortShareholders()
}

func (s *Stonk) sortShareholders() {
	kept := s.Shareholders[:0]
	for _, h := range s.Shareholders {
		if h.Amount > 0 {
			kept = append(kept, h)
		}
	}
	s.Shareholders = kept
	sort.SliceStable(s.Shareholders, func(i, j int) bool {
		return s.Shareholders[i].Amount > s.Shareholders[j].Amount
	})
}

// Info renders the detail line a holder is entitled to see: price always,
// drift from a 1% stake, volatility from a 5% stake. Ultra vision reveals
// everything regardless of stake.
func (s *Stonk) Info(ownedAmount int64, ultraVision bool) string {
	stake := s.ToStake(ownedAmount) * 100
	switch {
	case ultraVision || stake >= 5:
		return fmt.Sprintf("Price $%.2f - Drift %.3f%% - Volatility %.3f%%",
			float64(s.PriceCents)/100, s.Drift*100, s.Volatility*100)
	case stake >= 1:
		return fmt.Sprintf("Price $%.2f - Drift %.3f%%", float64(s.PriceCents)/100, s.Drift*100)
	default:
		return fmt.Sprintf("Price $%.2f", float64(s.PriceCents)/100)
	}
}
