package indicators

import (
	"math"
	"sort"

	"monad-trader/internal/models"
)

// riskOnVolThreshold is the daily volatility (fractional) below which a
// momentum-positive market still counts as risk-on.
const riskOnVolThreshold = 0.02

// ComputeCross derives the cross-instrument metrics from the per-pair
// snapshots and their indicator sets. Pairs with empty snapshots are
// excluded from every metric.
func ComputeCross(snapshots map[models.TradingPair]models.MarketSnapshot, sets map[models.TradingPair]models.IndicatorSet) models.CrossMetrics {
	pairs := make([]models.TradingPair, 0, len(sets))
	for pair, snap := range snapshots {
		if snap.Empty() {
			continue
		}
		if _, ok := sets[pair]; ok {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i] < pairs[j] })

	cross := models.CrossMetrics{
		Correlations:     make(map[string]float64),
		RelativeStrength: make(map[models.TradingPair]float64),
		VolatilityRank:   make(map[models.TradingPair]int),
		MarketRegime:     marketRegime(pairs, sets),
	}

	for i := 0; i < len(pairs); i++ {
		for j := i + 1; j < len(pairs); j++ {
			a := Returns(snapshots[pairs[i]].Closes())
			b := Returns(snapshots[pairs[j]].Closes())
			key := string(pairs[i]) + "-" + string(pairs[j])
			cross.Correlations[key] = Correlation(a, b)
		}
	}

	for _, pair := range pairs {
		cross.RelativeStrength[pair] = sets[pair].Momentum
	}

	rankVolatility(pairs, sets, cross.VolatilityRank)
	cross.StrongestTrend = strongestTrend(pairs, sets)
	return cross
}

// marketRegime counts risk-on and risk-off votes across pairs. A strict
// majority wins; anything else is MIXED, and no votable pairs at all is
// UNKNOWN.
func marketRegime(pairs []models.TradingPair, sets map[models.TradingPair]models.IndicatorSet) models.Regime {
	if len(pairs) == 0 {
		return models.RegimeUnknown
	}

	var riskOn, riskOff int
	for _, pair := range pairs {
		set := sets[pair]
		switch {
		case set.RSI > 50 && set.Momentum > 0 && set.Volatility.Daily/100 < riskOnVolThreshold:
			riskOn++
		case set.RSI < 50 && set.Momentum < 0:
			riskOff++
		}
	}

	half := len(pairs) / 2
	switch {
	case riskOn > half:
		return models.RegimeRiskOn
	case riskOff > half:
		return models.RegimeRiskOff
	default:
		return models.RegimeMixed
	}
}

// strongestTrend finds the pair with the largest absolute directional
// momentum, momentum signed by the SMA20/SMA50 relationship.
func strongestTrend(pairs []models.TradingPair, sets map[models.TradingPair]models.IndicatorSet) models.TradingPair {
	var strongest models.TradingPair
	best := -1.0
	for _, pair := range pairs {
		set := sets[pair]
		signal := set.Momentum
		if set.SMA.SMA20 < set.SMA.SMA50 {
			signal = -signal
		}
		if math.Abs(signal) > best {
			best = math.Abs(signal)
			strongest = pair
		}
	}
	return strongest
}

// rankVolatility assigns 1-based ranks from most to least volatile, by
// daily realized volatility.
func rankVolatility(pairs []models.TradingPair, sets map[models.TradingPair]models.IndicatorSet, ranks map[models.TradingPair]int) {
	ordered := make([]models.TradingPair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sets[ordered[i]].Volatility.Daily > sets[ordered[j]].Volatility.Daily
	})
	for i, pair := range ordered {
		ranks[pair] = i + 1
	}
}

// Compute builds the full indicator payload for a run: per-pair sets
// plus cross-pair metrics.
func Compute(snapshots map[models.TradingPair]models.MarketSnapshot) models.MarketIndicators {
	sets := make(map[models.TradingPair]models.IndicatorSet, len(snapshots))
	for pair, snap := range snapshots {
		if snap.Empty() {
			continue
		}
		sets[pair] = ComputeSet(snap)
	}
	return models.MarketIndicators{
		Pairs: sets,
		Cross: ComputeCross(snapshots, sets),
	}
}
