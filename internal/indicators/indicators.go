package indicators

import (
	"time"

	"monad-trader/internal/models"
)

// Lookback windows in 4-hour periods.
const (
	periodsDaily   = 6
	periodsWeekly  = 42
	periodsMonthly = 180

	rsiPeriod      = 14
	momentumPeriod = 14
	levelsWindow   = 30
)

// ComputeSet derives the full indicator view for one snapshot. An empty
// snapshot yields the zero-value set with RSI at the neutral 50.
func ComputeSet(snapshot models.MarketSnapshot) models.IndicatorSet {
	if snapshot.Empty() {
		return models.IndicatorSet{Timestamp: time.Now().UTC(), RSI: 50}
	}

	closes := snapshot.Closes()
	volumes := snapshot.Volumes()
	price := closes[len(closes)-1]

	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)
	sma200 := SMA(closes, 200)

	set := models.IndicatorSet{
		Timestamp: snapshot.Candles[len(snapshot.Candles)-1].Timestamp,
		Price:     price,
		Changes: models.PriceChanges{
			Daily:   PriceChange(closes, periodsDaily),
			Weekly:  PriceChange(closes, periodsWeekly),
			Monthly: PriceChange(closes, periodsMonthly),
		},
		SMA: models.SMASet{
			SMA20:        sma20,
			SMA50:        sma50,
			SMA200:       sma200,
			IsAboveSMA20: sma20 > 0 && price > sma20,
			IsAboveSMA50: sma50 > 0 && price > sma50,
			IsAbove200:   sma200 > 0 && price > sma200,
		},
		Volatility: models.VolatilitySet{
			Daily:  Volatility(Returns(tail(closes, periodsDaily+1))) * 100,
			Weekly: Volatility(Returns(tail(closes, periodsWeekly+1))) * 100,
		},
		Volume: volumeProfile(volumes),
		Levels: levels(closes, price),
		RSI:    RSI(closes, rsiPeriod),
		Momentum: Momentum(closes, momentumPeriod),
	}
	return set
}

func volumeProfile(volumes []float64) models.VolumeProfile {
	if len(volumes) == 0 {
		return models.VolumeProfile{}
	}
	current := volumes[len(volumes)-1]
	avg := mean(volumes)

	var trend float64
	if avg > 0 {
		trend = (current/avg - 1) * 100
	}
	return models.VolumeProfile{
		Current:        current,
		TrendPercent:   trend,
		IsAboveAverage: current > avg,
	}
}

func levels(closes []float64, price float64) models.Levels {
	window := tail(closes, levelsWindow)
	support := lowest(window)
	resistance := highest(window)

	lv := models.Levels{Support: support, Resistance: resistance}
	if price > 0 {
		lv.DistanceToSupport = (price - support) / price * 100
		lv.DistanceToResistance = (resistance - price) / price * 100
	}
	return lv
}
