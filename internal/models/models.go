// Package models provides domain models for the decision pipeline.
package models

import "time"

// TradingPair identifies a quoted instrument, e.g. "BTCUSD".
type TradingPair string

const (
	PairBTCUSD TradingPair = "BTCUSD"
	PairETHUSD TradingPair = "ETHUSD"
	PairSOLUSD TradingPair = "SOLUSD"
)

// DefaultPairs lists the pairs analyzed each cycle.
var DefaultPairs = []TradingPair{PairBTCUSD, PairETHUSD, PairSOLUSD}

// Candle represents one OHLCV period.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MarketSnapshot is the ordered price series for one instrument within
// a single pipeline run. Timestamps are strictly increasing.
type MarketSnapshot struct {
	Pair    TradingPair `json:"pair"`
	Candles []Candle    `json:"candles"`
}

// Empty reports whether the snapshot carries no usable series.
func (s MarketSnapshot) Empty() bool {
	return len(s.Candles) == 0
}

// Closes extracts the close price series.
func (s MarketSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume series.
func (s MarketSnapshot) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// Regime is the qualitative market-wide state derived from aggregate
// indicator voting.
type Regime string

const (
	RegimeRiskOn  Regime = "RISK_ON"
	RegimeRiskOff Regime = "RISK_OFF"
	RegimeMixed   Regime = "MIXED"
	RegimeUnknown Regime = "UNKNOWN"
)

// SMASet holds the moving averages and position flags for one series.
type SMASet struct {
	SMA20        float64 `json:"sma20"`
	SMA50        float64 `json:"sma50"`
	SMA200       float64 `json:"sma200"`
	IsAboveSMA20 bool    `json:"isAboveSMA20"`
	IsAboveSMA50 bool    `json:"isAboveSMA50"`
	IsAbove200   bool    `json:"isAboveSMA200"`
}

// PriceChanges holds percentage changes over the fixed lookback windows,
// expressed in 4-hour periods (6 = 1 day, 42 = 1 week, 180 = 30 days).
type PriceChanges struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// VolatilitySet holds realized volatility over two windows, in percent.
type VolatilitySet struct {
	Daily  float64 `json:"daily"`
	Weekly float64 `json:"weekly"`
}

// VolumeProfile describes current volume relative to its rolling average.
type VolumeProfile struct {
	Current        float64 `json:"current"`
	TrendPercent   float64 `json:"trend"`
	IsAboveAverage bool    `json:"isAboveAverage"`
}

// Levels holds rolling support/resistance and distances from price, in
// percent of the current price.
type Levels struct {
	Support              float64 `json:"support"`
	Resistance           float64 `json:"resistance"`
	DistanceToSupport    float64 `json:"distanceToSupport"`
	DistanceToResistance float64 `json:"distanceToResistance"`
}

// IndicatorSet is the derived, immutable indicator view over one
// MarketSnapshot. Fields degrade to neutral defaults (0, or 50 for RSI)
// when the input series is too short.
type IndicatorSet struct {
	Timestamp  time.Time     `json:"timestamp"`
	Price      float64       `json:"price"`
	Changes    PriceChanges  `json:"changes"`
	SMA        SMASet        `json:"sma"`
	Volatility VolatilitySet `json:"volatility"`
	Volume     VolumeProfile `json:"volume"`
	Levels     Levels        `json:"levels"`
	RSI        float64       `json:"rsi"`
	Momentum   float64       `json:"momentum"`
}

// CrossMetrics holds the cross-instrument analysis for one run.
type CrossMetrics struct {
	Correlations     map[string]float64      `json:"correlations"`
	RelativeStrength map[TradingPair]float64 `json:"relativeStrength"`
	VolatilityRank   map[TradingPair]int     `json:"volatilityRank"`
	StrongestTrend   TradingPair             `json:"strongestTrend"`
	MarketRegime     Regime                  `json:"marketRegime"`
}

// MarketIndicators is the full indicator payload handed to the
// forecasting sources: per-pair sets plus cross-pair metrics.
type MarketIndicators struct {
	Pairs map[TradingPair]IndicatorSet `json:"pairs"`
	Cross CrossMetrics                 `json:"crossPairAnalysis"`
}
