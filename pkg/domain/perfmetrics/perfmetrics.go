// Package perfmetrics derives per-activity scalar performance metrics with
// Portuguese-language qualitative comments.
package perfmetrics

import (
	"time"

	"github.com/stridelab/server/pkg/domain/stats"
	"github.com/stridelab/server/pkg/types"
)

// RestingHeartRate is the assumed resting heart rate used for the heart rate
// reserve calculation when no per-user value is known.
const RestingHeartRate = 60.0

// Input carries everything the calculator needs. Zero numeric fields and
// empty slices mean the channel is missing; the calculator still produces the
// metrics it can.
type Input struct {
	DistanceMeters  float64
	DurationSeconds float64
	Paces           []float64 // min/km per sample
	HeartRates      []float64 // bpm per sample
	AverageHR       float64
	MaxHR           float64
}

// Calculate derives every metric the input supports. Missing channels leave
// their fields at zero values rather than failing the whole record.
func Calculate(in Input, now time.Time) types.PerformanceMetricsRecord {
	rec := types.PerformanceMetricsRecord{
		AverageHR:    stats.Round2(in.AverageHR),
		MaxHR:        stats.Round2(in.MaxHR),
		CalculatedAt: now,
	}

	if in.DurationSeconds > 0 && in.DistanceMeters > 0 {
		durMin := in.DurationSeconds / 60
		rec.DistancePerMinute = stats.Round2(in.DistanceMeters / durMin)
		rec.AverageSpeedKMH = stats.Round2((in.DistanceMeters / 1000) / (in.DurationSeconds / 3600))
	}

	if len(in.Paces) > 0 {
		mean := stats.Mean(in.Paces)
		if mean > 0 {
			cv := stats.StdDev(in.Paces) / mean * 100
			rec.PaceVariationCoefficient = stats.Round2(cv)
			rec.PaceComment = paceComment(cv)
		}
	}

	if in.AverageHR > 0 && in.MaxHR > 0 {
		intensity := in.AverageHR / in.MaxHR * 100
		rec.RelativeIntensity = stats.Round2(intensity)
		rec.HeartRateComment = intensityComment(intensity)
		if in.MaxHR > RestingHeartRate {
			reserve := (in.AverageHR - RestingHeartRate) / (in.MaxHR - RestingHeartRate) * 100
			rec.RelativeReserve = stats.Round2(reserve)
		}
	}

	if begin, middle, end, ok := effortThirds(in.HeartRates); ok {
		rec.EffortBeginningBPM = stats.Round2(begin)
		rec.EffortMiddleBPM = stats.Round2(middle)
		rec.EffortEndBPM = stats.Round2(end)
		rec.EffortComment = effortComment(begin, middle, end)
	}

	return rec
}

func paceComment(cv float64) string {
	switch {
	case cv <= 15:
		return "Ritmo muito consistente"
	case cv <= 25:
		return "Ritmo moderadamente consistente"
	default:
		return "Ritmo inconsistente"
	}
}

func intensityComment(intensity float64) string {
	switch {
	case intensity >= 90:
		return "Intensidade muito alta"
	case intensity >= 80:
		return "Intensidade alta"
	case intensity >= 70:
		return "Intensidade moderada"
	default:
		return "Intensidade baixa"
	}
}

// effortThirds averages the first, middle and last thirds of the heart rate
// series. The thirds all use the same floor(n/3) length, so up to two
// trailing samples may be ignored.
func effortThirds(hr []float64) (begin, middle, end float64, ok bool) {
	third := len(hr) / 3
	if third == 0 {
		return 0, 0, 0, false
	}
	begin = stats.Mean(hr[:third])
	middle = stats.Mean(hr[third : 2*third])
	end = stats.Mean(hr[2*third : 3*third])
	return begin, middle, end, true
}

func effortComment(begin, middle, end float64) string {
	maxV, minV := begin, begin
	for _, v := range []float64{middle, end} {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	spread := maxV - minV
	switch {
	case spread <= 10:
		return "Esforço muito consistente"
	case spread <= 20:
		return "Esforço moderadamente consistente"
	default:
		return "Esforço variável"
	}
}
