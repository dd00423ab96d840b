package indicator

import "math"

const (
	DefaultRSIPeriod = 14

	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// Config carries the tunable lookback windows. MACD periods are fixed at
// 12/26/9 and do not follow the SMA configuration.
type Config struct {
	RSIPeriod int
	SMAShort  int
	SMAMid    int
	SMALong   int
}

func (c Config) withDefaults() Config {
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = DefaultRSIPeriod
	}
	if c.SMAShort <= 0 {
		c.SMAShort = 5
	}
	if c.SMAMid <= 0 {
		c.SMAMid = 25
	}
	if c.SMALong <= 0 {
		c.SMALong = 75
	}
	return c
}

// Set holds per-bar derived series aligned to the input closes. Indices
// before an indicator's lookback window is satisfied hold NaN.
type Set struct {
	RSI           []float64
	MACD          []float64
	MACDSignal    []float64
	MACDHistogram []float64
	SMAShort      []float64
	SMAMid        []float64
	SMALong       []float64
}

// Valid reports whether a series value is defined at its index.
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

// Compute derives the full indicator set from an ascending close series.
// Deterministic; too few bars yields leading NaN runs, never an error.
func Compute(closes []float64, cfg Config) Set {
	cfg = cfg.withDefaults()
	macd, signal, hist := MACD(closes)
	return Set{
		RSI:           RSI(closes, cfg.RSIPeriod),
		MACD:          macd,
		MACDSignal:    signal,
		MACDHistogram: hist,
		SMAShort:      SMA(closes, cfg.SMAShort),
		SMAMid:        SMA(closes, cfg.SMAMid),
		SMALong:       SMA(closes, cfg.SMALong),
	}
}

// SMA is the arithmetic mean of the trailing n closes; NaN for the first n-1
// indices.
func SMA(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) < n {
		return out
	}
	var sum float64
	for i, c := range closes {
		sum += c
		if i >= n {
			sum -= closes[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA seeds with the SMA of the first n closes, then applies the standard
// 2/(n+1) smoothing.
func EMA(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) < n {
		return out
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += closes[i]
	}
	out[n-1] = sum / float64(n)
	k := 2.0 / float64(n+1)
	for i := n; i < len(closes); i++ {
		out[i] = (closes[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI uses Wilder smoothing: the first average gain/loss is a simple mean
// over the first period changes, then each subsequent average folds the new
// change in at weight 1/period.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
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

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		// A flat window has no gains either; pin at neutral.
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the 12/26 EMA difference, its 9-period signal line and the
// histogram, each NaN until defined.
func MACD(closes []float64) (macd, signal, hist []float64) {
	macd = nanSlice(len(closes))
	signal = nanSlice(len(closes))
	hist = nanSlice(len(closes))
	if len(closes) < macdSlowPeriod {
		return macd, signal, hist
	}
	fast := EMA(closes, macdFastPeriod)
	slow := EMA(closes, macdSlowPeriod)
	for i := macdSlowPeriod - 1; i < len(closes); i++ {
		macd[i] = fast[i] - slow[i]
	}
	// Signal line is a 9-period EMA over the defined tail of the MACD line.
	tail := macd[macdSlowPeriod-1:]
	tailSignal := EMA(tail, macdSignalPeriod)
	for i, v := range tailSignal {
		idx := macdSlowPeriod - 1 + i
		signal[idx] = v
		if Valid(v) {
			hist[idx] = macd[idx] - v
		}
	}
	return macd, signal, hist
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
