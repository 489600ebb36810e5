// Package classify assigns a deterministic workout type to an activity from
// its chart series aggregates. Rules are evaluated in order; the first match
// wins.
package classify

import (
	"math"

	"github.com/stridelab/server/pkg/domain/stats"
	"github.com/stridelab/server/pkg/types"
)

// Detected workout types, from most to least specific.
const (
	TypeWalkOrInvalid     = "walk_or_invalid"
	TypeLongRun           = "long_run"
	TypeIntervalOrFartlek = "interval_or_fartlek"
	TypeTempoRun          = "tempo_run"
	TypeEasyRun           = "easy_run"
	TypeRecoveryRun       = "recovery_run"
	TypeUnclassified      = "unclassified"
)

// maxPlausiblePaceMinKM drops GPS-noise paces from the aggregates.
const maxPlausiblePaceMinKM = 20.0

// AggregateSeries reduces a chart series to the metrics the classifier rules
// read. Nil fields mean the series carried no usable samples for that metric.
func AggregateSeries(series []types.SeriesPoint) types.ClassificationMetrics {
	var distances, times, speeds, paces, hrs []float64
	for _, p := range series {
		if p.DistanceM >= 0 {
			distances = append(distances, p.DistanceM)
		}
		if p.TimeS >= 0 {
			times = append(times, p.TimeS)
		}
		if p.SpeedMS > 0 {
			speeds = append(speeds, p.SpeedMS)
		}
		pace := p.PaceMinKM
		if pace <= 0 && p.SpeedMS > 0 {
			pace = 1000 / (p.SpeedMS * 60)
		}
		if pace > 0 && pace < maxPlausiblePaceMinKM {
			paces = append(paces, pace)
		}
		if p.HeartRate > 0 {
			hrs = append(hrs, p.HeartRate)
		}
	}

	var m types.ClassificationMetrics

	if len(distances) > 0 {
		m.DistKM = roundPtr(maxOf(distances)/1000, 2)
	} else if len(times) > 0 && len(speeds) > 0 {
		m.DistKM = roundPtr(maxOf(times)*stats.Mean(speeds)/1000, 2)
	}

	if len(times) > 0 {
		m.DurMin = roundPtr(maxOf(times)/60, 1)
	} else if len(distances) > 0 && len(speeds) > 0 {
		m.DurMin = roundPtr(maxOf(distances)/stats.Mean(speeds)/60, 1)
	}

	if len(paces) > 0 {
		m.AvgPace = roundPtr(stats.Mean(paces), 2)
		m.CVPace = cvPtr(paces)
	}
	if len(hrs) > 0 {
		avg := math.Round(stats.Mean(hrs))
		m.AvgHR = &avg
		m.CVHR = cvPtr(hrs)
	}

	return m
}

// Classify runs the decision list over the aggregates. Conditions on a nil
// metric simply do not match, so sparse data degrades toward unclassified
// rather than erroring.
func Classify(m types.ClassificationMetrics) string {
	var avgSpeedMS *float64
	if m.AvgPace != nil && *m.AvgPace > 0 {
		v := 1000 / (*m.AvgPace * 60)
		avgSpeedMS = &v
	}

	if gt(m.AvgPace, 11) || lt(avgSpeedMS, 1.5) || lt(m.AvgHR, 90) {
		return TypeWalkOrInvalid
	}

	if gt(m.DistKM, 14) && lt(m.CVPace, 0.10) {
		hrOK := m.AvgHR == nil || (*m.AvgHR >= 100 && *m.AvgHR <= 160)
		if hrOK {
			return TypeLongRun
		}
	}

	if gt(m.CVPace, 0.20) && lt(m.DurMin, 70) {
		return TypeIntervalOrFartlek
	}

	if between(m.DistKM, 5, 12) && lt(m.CVPace, 0.10) && between(m.AvgHR, 150, 180) {
		return TypeTempoRun
	}

	if between(m.DistKM, 3, 12) && gt(m.AvgPace, 6.0) && lt(m.CVHR, 0.08) {
		return TypeEasyRun
	}

	if lt(m.DistKM, 6) && gt(m.AvgPace, 7.0) && lt(m.AvgHR, 130) {
		return TypeRecoveryRun
	}

	return TypeUnclassified
}

func gt(v *float64, bound float64) bool { return v != nil && *v > bound }
func lt(v *float64, bound float64) bool { return v != nil && *v < bound }

func between(v *float64, lo, hi float64) bool {
	return v != nil && *v >= lo && *v <= hi
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// cvPtr returns the sample coefficient of variation rounded to three
// decimals, or nil for fewer than two values or a zero mean.
func cvPtr(values []float64) *float64 {
	if len(values) < 2 || stats.Mean(values) == 0 {
		return nil
	}
	return roundPtr(stats.CV(values), 3)
}

func roundPtr(v float64, digits int) *float64 {
	pow := math.Pow(10, float64(digits))
	r := math.Round(v*pow) / pow
	return &r
}
