package strategy

import (
	"backtester/internal/domain"
)

// Indicator helpers used by the built-in strategies. All of them consume a
// value series and produce a full-length array whose warm-up positions are
// undefined Floats, so strategies can index them per bar and the chart
// builder can render the gap as null.

// Closes extracts the close series from a bar sequence.
func Closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA computes a simple moving average. Positions before period-1 are
// undefined.
func SMA(values []float64, period int) []domain.Float {
	out := make([]domain.Float, len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = domain.FloatOf(sum / float64(period))
		}
	}
	return out
}

// EMA computes an exponential moving average seeded with the first value,
// alpha = 2/(period+1). Positions before period-1 are undefined.
func EMA(values []float64, period int) []domain.Float {
	out := make([]domain.Float, len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = v*alpha + ema*(1-alpha)
		}
		if i >= period-1 {
			out[i] = domain.FloatOf(ema)
		}
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing. The first
// period positions are undefined.
func RSI(values []float64, period int) []domain.Float {
	out := make([]domain.Float, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) domain.Float {
	if avgLoss == 0 {
		return domain.FloatOf(100)
	}
	rs := avgGain / avgLoss
	return domain.FloatOf(100 - 100/(1+rs))
}

// MACD computes the MACD line (fast EMA − slow EMA) and its signal line.
// Positions where either component is still warming up are undefined.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine []domain.Float) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd = make([]domain.Float, len(values))
	diffs := make([]float64, 0, len(values))
	firstDefined := -1
	for i := range values {
		if !fastEMA[i].Valid || !slowEMA[i].Valid {
			continue
		}
		if firstDefined < 0 {
			firstDefined = i
		}
		d := fastEMA[i].Value - slowEMA[i].Value
		macd[i] = domain.FloatOf(d)
		diffs = append(diffs, d)
	}

	signalLine = make([]domain.Float, len(values))
	if firstDefined >= 0 {
		sig := EMA(diffs, signal)
		for j, v := range sig {
			signalLine[firstDefined+j] = v
		}
	}
	return macd, signalLine
}

// Crossover reports whether series a crosses above series b at index i: a
// was at or below b on the previous bar and is strictly above on this one.
// Undefined values never cross.
func Crossover(a, b []domain.Float, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	if !a[i].Valid || !b[i].Valid || !a[i-1].Valid || !b[i-1].Valid {
		return false
	}
	return a[i-1].Value <= b[i-1].Value && a[i].Value > b[i].Value
}
