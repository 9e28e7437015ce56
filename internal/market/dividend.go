package market

import (
	"github.com/shopspring/decimal"

	"github.com/stonkgame/market-engine/internal/stonk"
)

// DividendPayoutRate is the fraction of the marked position paid out per
// dividend, before scaling by yesterday's gain.
var DividendPayoutRate = decimal.NewFromFloat(0.01)

// YesterdayGain computes yesterday's fractional price gain for a stonk by
// looking back exactly one day length in its price history: the opening
// level is the price one full day of ticks ago, the closing level is the
// latest price. It returns ok=false when the history is too short or the
// stonk did not gain.
//
// This is the single source of truth for the dividend gate: both the night
// event eligibility check and the GetDividends resolution consume it, so
// the two can never diverge.
func (m *Market) YesterdayGain(stonkID int) (decimal.Decimal, bool) {
	if stonkID < 0 || stonkID >= len(m.Stonks) {
		return decimal.Zero, false
	}
	prices := m.Stonks[stonkID].HistoricalPrices
	if len(prices) <= stonk.DayTicks {
		return decimal.Zero, false
	}

	open := prices[len(prices)-1-stonk.DayTicks]
	close := prices[len(prices)-1]
	if open <= 0 || close <= open {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(close - open).Div(decimal.NewFromInt(open)), true
}

// DividendPayoutCents is the dividend credited for a holding: shares times
// current unit price times the payout rate times yesterday's gain, computed
// in exact decimal arithmetic and rounded to whole cents.
func DividendPayoutCents(shares, priceCents int64, gain decimal.Decimal) int64 {
	return decimal.NewFromInt(shares).
		Mul(decimal.NewFromInt(priceCents)).
		Mul(DividendPayoutRate).
		Mul(gain).
		Round(0).
		IntPart()
}
