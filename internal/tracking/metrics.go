package tracking

import "math"

const mpsToKmh = 3.6

// SpeedKmh converts a sensor speed to whole km/h. A missing, non-finite or
// negative reading yields 0.
func SpeedKmh(speedMps *float64) int {
	if speedMps == nil {
		return 0
	}
	v := *speedMps
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	kmh := math.Round(v * mpsToKmh)
	if kmh <= 0 {
		return 0
	}
	if kmh > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(kmh)
}

// GaugePercent is the share of the gauge's full scale covered by speedKmh,
// capped at 100.
func GaugePercent(speedKmh int) float64 {
	return math.Min(float64(speedKmh)*100/GaugeFullScaleKmh, 100)
}
