package stats

import "math"

// Supported confidence levels and their z critical values.
const (
	Level90 = 0.90
	Level95 = 0.95
	Level99 = 0.99

	z90 = 1.645
	z95 = 1.96
	z99 = 2.576
)

// Interval is a symmetric z-approximation confidence interval around a mean.
type Interval struct {
	Level  float64 `json:"level"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Margin float64 `json:"margin"`
}

// ZValue returns the z critical value for the given confidence level.
// Unknown levels fall back to the 95% value.
func ZValue(level float64) float64 {
	switch level {
	case Level90:
		return z90
	case Level99:
		return z99
	default:
		return z95
	}
}

// ConfidenceInterval returns the z-approximation interval for the mean of values.
// For fewer than two samples the interval degenerates to the mean itself.
func ConfidenceInterval(values []float64, level float64) Interval {
	mean, stddev := MeanStdDev(values)

	count := len(values)
	if count < 2 {
		return Interval{Level: level, Lower: mean, Upper: mean, Margin: 0}
	}

	margin := ZValue(level) * stddev / math.Sqrt(float64(count))

	return Interval{
		Level:  level,
		Lower:  mean - margin,
		Upper:  mean + margin,
		Margin: margin,
	}
}

// Summary is a flat descriptive-statistics digest of a sample.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
}

// Describe computes the descriptive summary of values.
// Returns the zero Summary for an empty slice.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	mean, stddev := MeanStdDev(values)

	return Summary{
		Mean:   mean,
		Median: Median(values),
		StdDev: stddev,
		Min:    Min(values),
		Max:    Max(values),
		P90:    Percentile(values, PercentileP90),
		P95:    Percentile(values, PercentileP95),
	}
}
