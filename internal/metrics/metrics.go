// Package metrics provides the derived-metric calculations shared by all
// workout normalizers: geodesic distance, elevation gain, averages and the
// display formatting helpers.
package metrics

import (
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Point is a single GPS coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometres. Identical points yield 0 and the function is symmetric.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// AccumulateDistance sums the haversine distance between consecutive points.
// Sequences of fewer than two points yield 0.
func AccumulateDistance(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return total
}

// ElevationGain sums only the positive deltas between consecutive defined
// altitude samples. Decreases are dropped, never subtracted, so the result is
// total metres climbed rather than net elevation change. Nil samples are
// skipped without resetting the previous-altitude reference.
func ElevationGain(altitudes []*float64) float64 {
	var gain float64
	var previous *float64
	for _, alt := range altitudes {
		if alt == nil {
			continue
		}
		if previous != nil && *alt > *previous {
			gain += *alt - *previous
		}
		previous = alt
	}
	return gain
}

// AverageHeartRate returns the mean of all defined samples rounded to the
// nearest integer, or nil when no sample carries a heart rate.
func AverageHeartRate(samples []*int) *int {
	var sum, count int
	for _, s := range samples {
		if s == nil {
			continue
		}
		sum += *s
		count++
	}
	if count == 0 {
		return nil
	}
	avg := int(math.Round(float64(sum) / float64(count)))
	return &avg
}

// EstimateCalories is a rough burn estimate (~60 kcal per km) used only when a
// source supplies no calorie figure of its own. It is not physiologically
// exact.
func EstimateCalories(distanceKm, durationSeconds float64) int {
	return int(math.Round(distanceKm * 60))
}

// FormatDuration renders total seconds as zero-padded HH:MM:SS.
func FormatDuration(totalSeconds int) string {
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatPace renders a minutes-per-km pace as M'SS"/km.
func FormatPace(minPerKm float64) string {
	minutes := int(minPerKm)
	seconds := int((minPerKm - float64(minutes)) * 60)
	return fmt.Sprintf("%d'%02d\"/km", minutes, seconds)
}

// PaceMinPerKm converts an average speed in m/s to minutes per km. A zero or
// negative speed yields 0 so callers never divide by zero.
func PaceMinPerKm(averageSpeedMs float64) float64 {
	if averageSpeedMs <= 0 {
		return 0
	}
	return (1000.0 / 60.0) / averageSpeedMs
}

// EffortFromHeartRate maps an average heart rate onto the 1-10 effort scale
// used across the app. Activities without heart rate data default to moderate.
func EffortFromHeartRate(avgHeartRate *int) (int, string) {
	if avgHeartRate == nil {
		return 5, "Moderate"
	}
	switch {
	case *avgHeartRate < 120:
		return 3, "Easy"
	case *avgHeartRate < 150:
		return 5, "Moderate"
	default:
		return 8, "Hard"
	}
}
