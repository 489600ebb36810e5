// Package series transforms raw activity samples into chart-ready time
// series: derived pace, summary aggregation and downsampling.
package series

import (
	"math"

	"github.com/stridelab/server/pkg/types"
)

const (
	// DefaultMaxPoints is the target size for standard chart payloads.
	DefaultMaxPoints = 2000

	// FullPrecisionThreshold caps full-precision responses; anything larger
	// is downsampled to FullPrecisionMaxPoints.
	FullPrecisionThreshold = 10000

	// FullPrecisionMaxPoints is the LTTB target for oversized full-precision
	// requests.
	FullPrecisionMaxPoints = 5000
)

// PaceFromSpeed converts a speed in m/s to a pace in min/km. Non-positive
// speeds yield 0, meaning "no pace".
func PaceFromSpeed(speedMS float64) float64 {
	if speedMS <= 0 {
		return 0
	}
	return (1000 / speedMS) / 60
}

// FillDerived populates PaceMinKM from SpeedMS on every point that has a
// speed but no pace.
func FillDerived(points []types.SeriesPoint) {
	for i := range points {
		if points[i].PaceMinKM == 0 && points[i].SpeedMS > 0 {
			points[i].PaceMinKM = PaceFromSpeed(points[i].SpeedMS)
		}
	}
}

// Summary aggregates a series into whole-activity figures. Zero values mean
// the underlying samples never carried that channel.
type Summary struct {
	DurationSeconds     float64 `json:"duration_seconds"`
	TotalDistanceMeters float64 `json:"total_distance_meters"`
	AvgSpeedMS          float64 `json:"avg_speed_ms"`
	AvgPaceMinKM        float64 `json:"avg_pace_min_km"`
	AvgHeartRate        float64 `json:"avg_heart_rate"`
	MaxHeartRate        float64 `json:"max_heart_rate"`
}

// Aggregate computes a Summary over the series. Duration and distance come
// from the last sample; averages skip samples missing the channel.
func Aggregate(points []types.SeriesPoint) Summary {
	var s Summary
	if len(points) == 0 {
		return s
	}

	last := points[len(points)-1]
	s.DurationSeconds = last.TimeS
	s.TotalDistanceMeters = last.DistanceM

	speedSum, speedN := 0.0, 0
	hrSum, hrN := 0.0, 0
	for _, p := range points {
		if p.SpeedMS > 0 {
			speedSum += p.SpeedMS
			speedN++
		}
		if p.HeartRate > 0 {
			hrSum += p.HeartRate
			hrN++
			if p.HeartRate > s.MaxHeartRate {
				s.MaxHeartRate = p.HeartRate
			}
		}
	}
	if speedN > 0 {
		s.AvgSpeedMS = speedSum / float64(speedN)
		s.AvgPaceMinKM = PaceFromSpeed(s.AvgSpeedMS)
	}
	if hrN > 0 {
		s.AvgHeartRate = hrSum / float64(hrN)
	}
	return s
}

// Decimate reduces a series by taking every k-th point so that at most
// maxPoints remain, always keeping the final point. Series already at or
// under the limit are returned unchanged.
func Decimate(points []types.SeriesPoint, maxPoints int) []types.SeriesPoint {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	step := int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	out := make([]types.SeriesPoint, 0, maxPoints)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	if out[len(out)-1] != points[len(points)-1] {
		out = append(out, points[len(points)-1])
	}
	return out
}

// DownsampleLTTB reduces the series to at most threshold points using
// Largest-Triangle-Three-Buckets, preserving the visual shape of the curve.
// The first and last points are always kept. The y channel is pace when
// present, heart rate otherwise.
func DownsampleLTTB(points []types.SeriesPoint, threshold int) []types.SeriesPoint {
	n := len(points)
	if threshold >= n || threshold < 3 {
		return points
	}

	out := make([]types.SeriesPoint, 0, threshold)
	out = append(out, points[0])

	bucketSize := float64(n-2) / float64(threshold-2)
	prevIdx := 0

	for i := 0; i < threshold-2; i++ {
		bucketStart := int(math.Floor(float64(i)*bucketSize)) + 1
		bucketEnd := int(math.Floor(float64(i+1)*bucketSize)) + 1
		if bucketEnd >= n {
			bucketEnd = n - 1
		}

		// Average of the next bucket, the third triangle corner.
		nextStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		nextEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if nextEnd >= n {
			nextEnd = n
		}
		avgX, avgY := 0.0, 0.0
		nextLen := nextEnd - nextStart
		if nextLen < 1 {
			nextLen = 1
			nextStart = n - 1
			nextEnd = n
		}
		for j := nextStart; j < nextEnd; j++ {
			avgX += float64(j)
			avgY += yValue(points[j])
		}
		avgX /= float64(nextLen)
		avgY /= float64(nextLen)

		aX := float64(prevIdx)
		aY := yValue(points[prevIdx])

		maxArea := -1.0
		maxIdx := bucketStart
		for j := bucketStart; j < bucketEnd; j++ {
			area := math.Abs((aX-avgX)*(yValue(points[j])-aY)-(aX-float64(j))*(avgY-aY)) / 2
			if area > maxArea {
				maxArea = area
				maxIdx = j
			}
		}

		out = append(out, points[maxIdx])
		prevIdx = maxIdx
	}

	out = append(out, points[n-1])
	return out
}

func yValue(p types.SeriesPoint) float64 {
	if p.PaceMinKM != 0 {
		return p.PaceMinKM
	}
	if p.HeartRate != 0 {
		return p.HeartRate
	}
	return 0
}
