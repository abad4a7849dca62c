package ledger

import (
	"math"

	"boundless/internal/domain"
)

// 账本以 stroops 计价，1 XLM = 10^7 stroops。
const StroopsPerXLM = 10_000_000

// USDToStroops converts a USD amount to stroops at the given XLM/USD rate,
// rounding to the nearest stroop.
func USDToStroops(usd, xlmPriceUSD float64) (int64, error) {
	if xlmPriceUSD <= 0 {
		return 0, domain.E(domain.KindInvalidInput, "exchange rate must be positive")
	}
	if usd < 0 {
		return 0, domain.E(domain.KindInvalidInput, "usd amount must not be negative")
	}
	return int64(math.Round(usd / xlmPriceUSD * StroopsPerXLM)), nil
}

// StroopsToUSD converts stroops back to USD at the given XLM/USD rate.
func StroopsToUSD(stroops int64, xlmPriceUSD float64) (float64, error) {
	if xlmPriceUSD <= 0 {
		return 0, domain.E(domain.KindInvalidInput, "exchange rate must be positive")
	}
	return float64(stroops) / StroopsPerXLM * xlmPriceUSD, nil
}
