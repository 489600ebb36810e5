// Package segment extracts the fastest continuous stretch of a target
// distance from a GPS track.
package segment

import (
	"github.com/stridelab/server/pkg/domain/geo"
	"github.com/stridelab/server/pkg/domain/stats"
	"github.com/stridelab/server/pkg/types"
)

const (
	// DefaultTargetDistanceMeters is the classic best-kilometer split.
	DefaultTargetDistanceMeters = 1000.0

	// MinPoints is the minimum number of valid GPS points required before a
	// segment search is attempted.
	MinPoints = 10
)

// Result describes the best segment found in a track. Indices refer to the
// validated track, not the caller's input slice; the cumulative distances
// carry the window endpoints so callers never need to index back into it.
type Result struct {
	StartIndex          int     `json:"start_index"`
	EndIndex            int     `json:"end_index"`
	DistanceMeters      float64 `json:"distance_meters"`
	DurationSeconds     float64 `json:"duration_seconds"`
	PaceMinPerKM        float64 `json:"pace_min_per_km"`
	StartTimeSeconds    float64 `json:"start_time_seconds"`
	EndTimeSeconds      float64 `json:"end_time_seconds"`
	StartDistanceMeters float64 `json:"start_distance_meters"`
	EndDistanceMeters   float64 `json:"end_distance_meters"`
}

// BestMovingSegment finds the fastest window covering at least targetDistance
// meters. It returns nil when the track has too few valid points or never
// covers the target distance; callers treat nil as "no segment", not an error.
//
// The search walks every start index forward until the accumulated distance
// reaches the target, keeping the window with the lowest pace. Ties keep the
// earliest window.
func BestMovingSegment(points []types.ActivityPoint, targetDistance float64) *Result {
	if targetDistance <= 0 {
		targetDistance = DefaultTargetDistanceMeters
	}

	valid := filterValid(points)
	if len(valid) < MinPoints {
		return nil
	}

	// Leg distances between consecutive points, computed once.
	legs := make([]float64, len(valid)-1)
	total := 0.0
	for i := 0; i < len(valid)-1; i++ {
		legs[i] = geo.Haversine(valid[i].Lat, valid[i].Lon, valid[i+1].Lat, valid[i+1].Lon)
		total += legs[i]
	}
	if total < targetDistance {
		return nil
	}

	bestStart, bestEnd := -1, -1
	bestPace, bestDist := 0.0, 0.0
	for start := 0; start < len(valid)-1; start++ {
		dist := 0.0
		for end := start + 1; end < len(valid); end++ {
			dist += legs[end-1]
			if dist < targetDistance {
				continue
			}

			duration := valid[end].TimeSeconds - valid[start].TimeSeconds
			if duration <= 0 {
				break
			}
			pace := (duration / 60) / (dist / 1000)
			if bestStart < 0 || pace < bestPace {
				bestStart, bestEnd = start, end
				bestPace, bestDist = pace, dist
			}
			break
		}
	}

	if bestStart < 0 {
		return nil
	}
	return &Result{
		StartIndex:          bestStart,
		EndIndex:            bestEnd,
		DistanceMeters:      stats.Round2(bestDist),
		DurationSeconds:     stats.Round2(valid[bestEnd].TimeSeconds - valid[bestStart].TimeSeconds),
		PaceMinPerKM:        stats.Round2(bestPace),
		StartTimeSeconds:    valid[bestStart].TimeSeconds,
		EndTimeSeconds:      valid[bestEnd].TimeSeconds,
		StartDistanceMeters: valid[bestStart].CumulativeDistanceMeters,
		EndDistanceMeters:   valid[bestEnd].CumulativeDistanceMeters,
	}
}

// filterValid drops points with coordinates outside the WGS84 ranges.
func filterValid(points []types.ActivityPoint) []types.ActivityPoint {
	valid := make([]types.ActivityPoint, 0, len(points))
	for _, p := range points {
		if geo.ValidCoordinate(p.Lat, p.Lon) {
			valid = append(valid, p)
		}
	}
	return valid
}
