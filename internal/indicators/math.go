// Package indicators provides pure technical indicator calculations.
// All functions are deterministic, perform no I/O, and degrade to
// documented neutral defaults instead of failing on short input.
package indicators

import "math"

// SMA calculates the simple moving average of the last period closes.
// Returns 0 when the series is shorter than the period.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	return mean(prices[len(prices)-period:])
}

// PriceChange calculates the percentage change over the last periods,
// as (new-old)/old*100. Returns 0 when the series is too short or the
// base price is zero.
func PriceChange(prices []float64, periods int) float64 {
	if periods <= 0 || len(prices) < periods+1 {
		return 0
	}
	recent := prices[len(prices)-1]
	old := prices[len(prices)-1-periods]
	if old == 0 {
		return 0
	}
	return (recent - old) / old * 100
}

// Returns calculates period-over-period fractional returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}

// Volatility calculates the population standard deviation of returns.
// Returns 0 for an empty input.
func Volatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		diff := r - m
		variance += diff * diff
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// RSI calculates the Relative Strength Index over the given period.
// Returns the neutral 50 when the series is too short. An average loss
// of zero yields 100, not infinity.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = prices[i] - prices[i-1]
	}

	var avgGain, avgLoss float64
	for _, ch := range changes[len(changes)-period:] {
		if ch > 0 {
			avgGain += ch
		} else {
			avgLoss += -ch
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Momentum calculates the rate of change over the given period, in
// percent. Returns 0 when the series is too short.
func Momentum(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0
	}
	base := prices[len(prices)-1-period]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1]/base - 1) * 100
}

// Correlation calculates the Pearson correlation of two return series,
// truncated to the shorter length. Returns 0 when fewer than two
// observations overlap or either series has zero variance.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]

	meanA := mean(a)
	meanB := mean(b)

	var varA, varB, cov float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		varA += da * da
		varB += db * db
		cov += da * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
