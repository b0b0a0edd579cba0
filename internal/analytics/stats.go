package analytics

import (
	"math"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// Closes extracts the close values of a series.
func Closes(prices []model.PricePoint) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Close
	}
	return out
}

// Returns computes simple day-over-day returns. The result is one shorter than
// prices; a zero previous close yields NaN for that step.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// SMA produces the simple moving average; the first period-1 values are NaN.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}
	result := make([]float64, len(prices))
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i < period-1 {
			result[i] = math.NaN()
			continue
		}
		result[i] = sum / float64(period)
	}
	return result
}

// RSI computes the Relative Strength Index with Wilder smoothing. Values before
// index period are NaN.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) == 0 {
		return []float64{}
	}
	rsi := make([]float64, len(prices))
	for i := range rsi {
		rsi[i] = math.NaN()
	}
	if len(prices) <= period {
		return rsi
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	rsi[period] = computeRSI(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = computeRSI(avgGain, avgLoss)
	}
	return rsi
}

func computeRSI(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Correlation returns the Pearson correlation of a and b, which must have equal
// length. ok is false with fewer than two pairs or zero variance.
func Correlation(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) < 2 {
		return 0, false
	}
	meanA, meanB := mean(a), mean(b)
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varA*varB), true
}

// Beta returns cov(asset, benchmark) / var(benchmark) over equal-length return
// series. ok is false with fewer than two pairs or a flat benchmark.
func Beta(asset, benchmark []float64) (float64, bool) {
	if len(asset) != len(benchmark) || len(asset) < 2 {
		return 0, false
	}
	meanA, meanB := mean(asset), mean(benchmark)
	var cov, varB float64
	for i := range asset {
		db := benchmark[i] - meanB
		cov += (asset[i] - meanA) * db
		varB += db * db
	}
	if varB == 0 {
		return 0, false
	}
	return cov / varB, true
}

// Align returns the closes of a and b on the dates both series share, in
// ascending date order. Both inputs must be ascending.
func Align(a, b []model.PricePoint) ([]float64, []float64) {
	var outA, outB []float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Date.Equal(b[j].Date):
			outA = append(outA, a[i].Close)
			outB = append(outB, b[j].Close)
			i++
			j++
		case a[i].Date.Before(b[j].Date):
			i++
		default:
			j++
		}
	}
	return outA, outB
}

// Last returns the last non-NaN value of values.
func Last(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

// DropNaN removes pairs where either value is NaN.
func DropNaN(a, b []float64) ([]float64, []float64) {
	outA := make([]float64, 0, len(a))
	outB := make([]float64, 0, len(b))
	for i := range a {
		if i >= len(b) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		outA = append(outA, a[i])
		outB = append(outB, b[i])
	}
	return outA, outB
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
